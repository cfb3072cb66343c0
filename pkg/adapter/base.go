package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/retailflow/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query, Session and BeginTx implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		err := b.DB.Close()
		b.DB = nil
		return err
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return NotConnected("exec")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*sql.Rows, error) {
	if b.DB == nil {
		return nil, NotConnected("query")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// Session acquires a dedicated connection from the pool.
func (b *BaseSQLAdapter) Session(ctx context.Context) (*sql.Conn, error) {
	if b.DB == nil {
		return nil, NotConnected("session")
	}
	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return nil, &core.ConnectionError{Op: "acquire session", Target: b.target(), Err: err}
	}
	return conn, nil
}

// BeginTx starts a transaction.
func (b *BaseSQLAdapter) BeginTx(ctx context.Context) (*sql.Tx, error) {
	if b.DB == nil {
		return nil, NotConnected("begin")
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, &core.ConnectionError{Op: "begin transaction", Target: b.target(), Err: err}
	}
	return tx, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

func (b *BaseSQLAdapter) target() string {
	if b.Cfg.Host != "" {
		return fmt.Sprintf("%s:%d/%s", b.Cfg.Host, b.Cfg.Port, b.Cfg.Database)
	}
	return b.Cfg.Path
}

// NotConnected returns the ConnectionError adapters report before Connect.
func NotConnected(op string) error {
	return &core.ConnectionError{Op: op, Err: core.ErrNotConnected}
}
