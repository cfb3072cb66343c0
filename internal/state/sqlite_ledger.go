package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/retailflow/pkg/core"
)

// RecordLoad stores the bulk loader outcome for a run.
func (s *SQLiteStore) RecordLoad(ctx context.Context, runID string, outcome core.LoadOutcome) error {
	if s.db == nil {
		return errNotOpened
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO load_outcomes (run_id, table_name, status, row_count, fingerprint, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, outcome.Table.String(), string(outcome.Status), outcome.RowCount,
		nullString(outcome.Fingerprint), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to record load: %w", err)
	}
	return nil
}

// GetLoad returns the load outcome recorded for a run, or nil if the run
// never reached the load stage.
func (s *SQLiteStore) GetLoad(ctx context.Context, runID string) (*core.LoadOutcome, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	var table, status string
	var fingerprint sql.NullString
	out := &core.LoadOutcome{}

	err := s.db.QueryRowContext(ctx,
		`SELECT table_name, status, row_count, fingerprint FROM load_outcomes
		 WHERE run_id = ? ORDER BY recorded_at DESC LIMIT 1`, runID,
	).Scan(&table, &status, &out.RowCount, &fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get load: %w", err)
	}

	out.Table = splitTable(table)
	out.Status = core.LoadStatus(status)
	out.Fingerprint = fingerprint.String
	return out, nil
}

// RecordStatement stores one batch statement execution.
func (s *SQLiteStore) RecordStatement(ctx context.Context, sr core.StatementRun) error {
	if s.db == nil {
		return errNotOpened
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO statement_runs (run_id, statement_index, statement, status, row_count, execution_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sr.RunID, sr.Index, sr.Statement, string(sr.Status), sr.RowCount, sr.ExecutionMS, nullString(sr.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record statement %d: %w", sr.Index, err)
	}
	return nil
}

// ListStatements returns the statements recorded for a run in batch order.
func (s *SQLiteStore) ListStatements(ctx context.Context, runID string) ([]core.StatementRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, statement_index, statement, status, row_count, execution_ms, error
		 FROM statement_runs WHERE run_id = ? ORDER BY statement_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.StatementRun
	for rows.Next() {
		var sr core.StatementRun
		var status string
		var errMsg sql.NullString
		if err := rows.Scan(&sr.RunID, &sr.Index, &sr.Statement, &status, &sr.RowCount, &sr.ExecutionMS, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		sr.Status = core.StatementStatus(status)
		sr.Error = errMsg.String
		out = append(out, sr)
	}
	return out, rows.Err()
}

// RecordSinkWrite stores one sink table overwrite.
func (s *SQLiteStore) RecordSinkWrite(ctx context.Context, runID, table string, rows int64) error {
	if s.db == nil {
		return errNotOpened
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sink_writes (run_id, table_name, row_count, recorded_at) VALUES (?, ?, ?, ?)`,
		runID, table, rows, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to record sink write: %w", err)
	}
	return nil
}

// ListSinkWrites returns the sink writes recorded for a run.
func (s *SQLiteStore) ListSinkWrites(ctx context.Context, runID string) ([]SinkWrite, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name, row_count FROM sink_writes WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sink writes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SinkWrite
	for rows.Next() {
		var w SinkWrite
		if err := rows.Scan(&w.Table, &w.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan sink write: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func splitTable(s string) core.TableRef {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return core.TableRef{Schema: s[:i], Name: s[i+1:]}
		}
	}
	return core.TableRef{Name: s}
}
