package core

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one pipeline execution recorded in the ledger.
type Run struct {
	ID          string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// LoadStatus is the result kind of an idempotent load.
type LoadStatus string

// Load status values.
const (
	LoadStatusLoaded        LoadStatus = "loaded"
	LoadStatusAlreadyLoaded LoadStatus = "already_loaded"
)

// LoadOutcome reports what the bulk loader did.
// RowCount is the store's reported copy count and is only a hint.
type LoadOutcome struct {
	Status      LoadStatus
	Table       TableRef
	RowCount    int64
	Fingerprint string
}

// Loaded reports whether data was transferred.
func (o LoadOutcome) Loaded() bool {
	return o.Status == LoadStatusLoaded
}

// StatementStatus is the outcome of one batch statement.
type StatementStatus string

// Statement status values.
const (
	StatementStatusSuccess StatementStatus = "success"
	StatementStatusFailed  StatementStatus = "failed"
)

// StatementRun records the execution of one batch statement.
type StatementRun struct {
	RunID       string
	Index       int
	Statement   string
	Status      StatementStatus
	RowCount    int64
	ExecutionMS int64
	Error       string
}
