// Package postgres provides the PostgreSQL warehouse adapter for retailflow.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/retailflow/pkg/adapter"
	"github.com/leapstack-labs/retailflow/pkg/core"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)
	target := fmt.Sprintf("%s:%d/%s", hostOrDefault(cfg.Host), portOrDefault(cfg.Port), cfg.Database)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return &core.ConnectionError{Op: "open", Target: target, Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectionError{Op: "ping", Target: target, Err: err}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// BulkCopy streams CSV text into table with COPY FROM STDIN.
// The copy runs inside a transaction on a dedicated connection so a
// failed transfer leaves the table as it was.
func (a *Adapter) BulkCopy(ctx context.Context, table core.TableRef, src io.Reader) (int64, error) {
	if a.DB == nil {
		return 0, adapter.NotConnected("copy")
	}
	if err := table.Validate(); err != nil {
		return 0, err
	}

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return 0, &core.ConnectionError{Op: "acquire session", Target: a.Cfg.Database, Err: err}
	}
	defer func() { _ = conn.Close() }()

	var copied int64
	err = conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}

		tx, err := sc.Conn().Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		tag, err := tx.Conn().PgConn().CopyFrom(ctx, src, copySQL(table))
		if err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		copied = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}

	a.Logger.Debug("bulk copy complete", slog.String("table", table.String()), slog.Int64("rows", copied))
	return copied, nil
}

func copySQL(table core.TableRef) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true, DELIMITER ',')",
		table, strings.Join(core.CanonicalHeader(), ", "))
}

// buildPostgresDSN constructs a key=value PostgreSQL connection string.
// Extra options are appended in sorted order.
func buildPostgresDSN(cfg adapter.Config) string {
	sslmode := "disable"
	extra := make([]string, 0, len(cfg.Options))
	for k, v := range cfg.Options {
		if k == "sslmode" {
			sslmode = v
			continue
		}
		extra = append(extra, fmt.Sprintf("%s=%s", k, quoteValue(v)))
	}
	sort.Strings(extra)

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		hostOrDefault(cfg.Host), portOrDefault(cfg.Port), cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", quoteValue(cfg.Username))
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", quoteValue(cfg.Password))
	}
	for _, kv := range extra {
		dsn += " " + kv
	}
	return dsn
}

// quoteValue single-quotes a DSN value containing spaces or quotes.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func hostOrDefault(host string) string {
	if host == "" {
		return "localhost"
	}
	return host
}

func portOrDefault(port int) int {
	if port == 0 {
		return 5432
	}
	return port
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
