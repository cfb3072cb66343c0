// Package state records pipeline runs and their per-stage outcomes in a
// local SQLite ledger.
package state

import (
	"context"

	"github.com/leapstack-labs/retailflow/pkg/core"
)

// Store is the run ledger used by the engine.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(ctx context.Context) (*core.Run, error)
	CompleteRun(ctx context.Context, id string, status core.RunStatus, errMsg string) error
	GetRun(ctx context.Context, id string) (*core.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*core.Run, error)

	RecordLoad(ctx context.Context, runID string, outcome core.LoadOutcome) error
	GetLoad(ctx context.Context, runID string) (*core.LoadOutcome, error)
	RecordStatement(ctx context.Context, sr core.StatementRun) error
	ListStatements(ctx context.Context, runID string) ([]core.StatementRun, error)
	RecordSinkWrite(ctx context.Context, runID, table string, rows int64) error
	ListSinkWrites(ctx context.Context, runID string) ([]SinkWrite, error)
}

// SinkWrite is one recorded sink table overwrite.
type SinkWrite struct {
	Table    string
	RowCount int64
}

var _ Store = (*SQLiteStore)(nil)
