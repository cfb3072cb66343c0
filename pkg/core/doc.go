// Package core defines the shared language of retailflow.
//
// This package contains:
//   - Domain entities (RawRecord, Record, Dataset, Table, QueryResult)
//   - The error taxonomy surfaced by every pipeline stage
//   - Store configuration types (AdapterConfig, TargetConfig, TableRef)
//   - Run ledger entities (Run, LoadOutcome, StatementRun)
//
// The Golden Rule: pkg/core imports only stdlib and the decimal type.
// All other packages depend on core, not the reverse.
package core
