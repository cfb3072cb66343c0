// Package duckdb provides an embedded DuckDB warehouse adapter for retailflow.
// It serves local runs and tests where no PostgreSQL server is available.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/leapstack-labs/retailflow/pkg/adapter"
	"github.com/leapstack-labs/retailflow/pkg/core"
	goduckdb "github.com/marcboeker/go-duckdb"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
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
	return "duckdb"
}

// Connect opens the database file at cfg.Path.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return &core.ConnectionError{Op: "open", Target: path, Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectionError{Op: "ping", Target: path, Err: err}
	}

	a.DB = db
	a.Cfg = cfg
	a.Cfg.Path = path

	if err := a.applyParams(ctx, params); err != nil {
		_ = a.Close()
		return err
	}

	a.Logger.Debug("connected to duckdb", slog.String("path", path))
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if !core.ValidIdentifier(ext) {
			return fmt.Errorf("invalid duckdb extension name %q", ext)
		}
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !core.ValidIdentifier(k) {
			return fmt.Errorf("invalid duckdb setting name %q", k)
		}
		if err := a.Exec(ctx, buildSetSQL(k, p.Settings[k])); err != nil {
			return fmt.Errorf("apply setting %s: %w", k, err)
		}
	}
	return nil
}

func buildSetSQL(key, value string) string {
	return fmt.Sprintf("SET %s = '%s'", key, strings.ReplaceAll(value, "'", "''"))
}

// BulkCopy spools src to a temporary file and loads it with COPY inside a
// transaction. DuckDB reads COPY input from files only.
func (a *Adapter) BulkCopy(ctx context.Context, table core.TableRef, src io.Reader) (int64, error) {
	if a.DB == nil {
		return 0, adapter.NotConnected("copy")
	}
	if err := table.Validate(); err != nil {
		return 0, err
	}

	f, err := os.CreateTemp("", "retailflow-copy-*.csv")
	if err != nil {
		return 0, fmt.Errorf("create spool file: %w", err)
	}
	spool := f.Name()
	defer func() { _ = os.Remove(spool) }()

	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("spool copy data: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("spool copy data: %w", err)
	}

	tx, err := a.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", table) //nolint:gosec // identifiers validated
	var before, after int64
	if err := tx.QueryRowContext(ctx, countSQL).Scan(&before); err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, copySQL(table, spool)); err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	if err := tx.QueryRowContext(ctx, countSQL).Scan(&after); err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}

	a.Logger.Debug("bulk copy complete", slog.String("table", table.String()), slog.Int64("rows", after-before))
	return after - before, nil
}

func copySQL(table core.TableRef, path string) string {
	return fmt.Sprintf("COPY %s (%s) FROM '%s' (HEADER, DELIMITER ',')",
		table, strings.Join(core.CanonicalHeader(), ", "), strings.ReplaceAll(path, "'", "''"))
}

// ReturnsRows prepares stmt on conn and reports whether its statement type
// yields rows. DuckDB returns a single Count column for everything else.
func (a *Adapter) ReturnsRows(ctx context.Context, conn *sql.Conn, stmt string) (bool, error) {
	var typ goduckdb.StmtType
	err := conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(*goduckdb.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		ps, err := dc.PrepareContext(ctx, stmt)
		if err != nil {
			return err
		}
		defer func() { _ = ps.Close() }()

		ds, ok := ps.(*goduckdb.Stmt)
		if !ok {
			return fmt.Errorf("unexpected driver statement %T", ps)
		}
		typ, err = ds.StatementType()
		return err
	})
	if err != nil {
		return false, err
	}
	return rowStatement(typ), nil
}

func rowStatement(t goduckdb.StmtType) bool {
	switch t {
	case goduckdb.STATEMENT_TYPE_SELECT,
		goduckdb.STATEMENT_TYPE_EXPLAIN,
		goduckdb.STATEMENT_TYPE_PRAGMA,
		goduckdb.STATEMENT_TYPE_CALL,
		goduckdb.STATEMENT_TYPE_RELATION,
		goduckdb.STATEMENT_TYPE_EXECUTE:
		return true
	default:
		return false
	}
}

// Ensure Adapter implements the adapter interfaces
var (
	_ adapter.Adapter          = (*Adapter)(nil)
	_ adapter.ResultClassifier = (*Adapter)(nil)
)
