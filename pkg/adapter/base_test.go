package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			require.NoError(t, base.Close())
			assert.False(t, base.IsConnected())
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		expectErr bool
		errMsg    string
	}{
		{
			name:      "exec without connection",
			setupDB:   false,
			sql:       "SELECT 1",
			expectErr: true,
			errMsg:    "database connection not established",
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS retail").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql: "CREATE SCHEMA IF NOT EXISTS retail",
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:       "INVALID SQL",
			expectErr: true,
			errMsg:    "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()

				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.DB = db
			}

			err := base.Exec(ctx, tt.sql)
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	t.Run("query without connection", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		rows, err := base.Query(context.Background(), "SELECT 1")
		require.Error(t, err)
		assert.Nil(t, rows)

		var connErr *core.ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, "query", connErr.Op)
		assert.True(t, errors.Is(err, core.ErrNotConnected))
	})

	t.Run("query success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT").WillReturnRows(
			sqlmock.NewRows([]string{"stock_code", "qty"}).AddRow("A", 3).AddRow("B", 5))

		base := &BaseSQLAdapter{DB: db}
		rows, err := base.Query(context.Background(), "SELECT stock_code, qty FROM sales")
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()

		n := 0
		for rows.Next() {
			n++
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, 2, n)
	})

	t.Run("query with error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("INVALID").WillReturnError(assert.AnError)

		base := &BaseSQLAdapter{DB: db}
		_, err = base.Query(context.Background(), "INVALID SQL")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute query")
	})
}

func TestBaseSQLAdapter_SessionAndTx(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		base := &BaseSQLAdapter{}

		_, err := base.Session(context.Background())
		require.ErrorIs(t, err, core.ErrNotConnected)

		_, err = base.BeginTx(context.Background())
		require.ErrorIs(t, err, core.ErrNotConnected)
	})

	t.Run("begin failure is a connection error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin().WillReturnError(assert.AnError)

		base := &BaseSQLAdapter{DB: db, Cfg: core.AdapterConfig{Host: "db", Port: 5432, Database: "retail"}}
		_, err = base.BeginTx(context.Background())

		var connErr *core.ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, "db:5432/retail", connErr.Target)
	})

	t.Run("session is released", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))

		base := &BaseSQLAdapter{DB: db}
		conn, err := base.Session(context.Background())
		require.NoError(t, err)

		var x int
		require.NoError(t, conn.QueryRowContext(context.Background(), "SELECT 1").Scan(&x))
		assert.Equal(t, 1, x)
		require.NoError(t, conn.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
