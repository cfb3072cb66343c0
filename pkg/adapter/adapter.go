// Package adapter provides the store adapter contract and registry
// for retailflow's load, query and sink stages.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves from init().
package adapter

import (
	"context"
	"database/sql"
	"io"

	"github.com/leapstack-labs/retailflow/pkg/core"
)

// Type aliases for the core types adapters exchange.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows wraps sql.Rows.
	Rows = sql.Rows
)

// Adapter defines the interface that all store adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the store using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the store connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows (e.g., CREATE, INSERT).
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	// The caller must close the returned rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// Session acquires a dedicated connection. Statements that depend on
	// session state (temporary tables, SET) must share one session.
	// The caller must Close the session on every exit path.
	Session(ctx context.Context) (*sql.Conn, error)

	// BeginTx starts a transaction on a pooled connection.
	BeginTx(ctx context.Context) (*sql.Tx, error)

	// BulkCopy streams delimited text (comma, header row present) into table
	// as a single transaction and returns the store's reported row count.
	BulkCopy(ctx context.Context, table core.TableRef, src io.Reader) (int64, error)

	// DialectName returns the SQL dialect name, e.g. "postgres".
	DialectName() string
}

// ResultClassifier is implemented by adapters whose driver answers DDL and
// DML with a result set of its own (an affected-row count). ReturnsRows
// reports whether stmt is a row-returning statement; it prepares stmt on
// conn without executing it.
type ResultClassifier interface {
	ReturnsRows(ctx context.Context, conn *sql.Conn, stmt string) (bool, error)
}
