// Package batch splits SQL scripts into statements and executes them in
// order on a single store session.
package batch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leapstack-labs/retailflow/pkg/core"
)

// Session is the query surface a batch runs on. *sql.Conn, *sql.Tx and
// *sql.DB all satisfy it; a *sql.Conn keeps session state across statements.
type Session interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// StatementEvent describes one executed statement.
type StatementEvent struct {
	Index     int // 1-based
	Statement string
	Duration  time.Duration
	RowCount  int64
	Err       error
}

// Observer is notified after every statement, including the failing one.
type Observer func(StatementEvent)

// Classifier reports whether stmt returns rows of its own, as opposed to the
// affected-row count some drivers answer DDL and DML with.
type Classifier func(ctx context.Context, stmt string) (bool, error)

// Runner executes statement batches with fail-fast semantics.
type Runner struct {
	logger   *slog.Logger
	mode     SplitMode
	observer Observer
	classify Classifier
}

// Option configures a Runner.
type Option func(*Runner)

// WithSplitMode selects the statement splitter.
func WithSplitMode(m SplitMode) Option {
	return func(r *Runner) { r.mode = m }
}

// WithObserver registers a per-statement callback.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithClassifier lets the store decide which statements produce results.
// Without one, every statement that reports columns is captured.
func WithClassifier(c Classifier) Option {
	return func(r *Runner) { r.classify = c }
}

// NewRunner creates a Runner. If logger is nil, a discard logger is used.
func NewRunner(logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Runner{logger: logger, mode: SplitNaive}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the statements of script in order on sess.
//
// Row-returning statements contribute their complete result, others
// contribute nothing. The first failing statement aborts the batch
// with a *core.StatementExecutionError; effects of earlier statements are
// kept.
func (r *Runner) Run(ctx context.Context, sess Session, script string) ([]core.QueryResult, error) {
	stmts := r.mode.Split(script)
	r.logger.Debug("running batch", slog.Int("statements", len(stmts)), slog.String("split_mode", string(r.mode)))

	var results []core.QueryResult
	for i, stmt := range stmts {
		start := time.Now()
		res, hasResult, count, err := execute(ctx, sess, stmt, r.returnsRows(ctx, stmt))
		ev := StatementEvent{Index: i + 1, Statement: stmt, Duration: time.Since(start), RowCount: count, Err: err}
		if r.observer != nil {
			r.observer(ev)
		}

		if err != nil {
			r.logger.Debug("statement failed", slog.Int("index", ev.Index), slog.String("error", err.Error()))
			return results, &core.StatementExecutionError{Index: ev.Index, Statement: stmt, Err: err}
		}

		r.logger.Debug("statement executed",
			slog.Int("index", ev.Index),
			slog.Int64("rows", ev.RowCount),
			slog.Duration("duration", ev.Duration))
		if hasResult {
			results = append(results, res)
		}
	}
	return results, nil
}

// RunFile reads a UTF-8 script from path and runs it.
func (r *Runner) RunFile(ctx context.Context, sess Session, path string) ([]core.QueryResult, error) {
	b, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return r.Run(ctx, sess, string(b))
}

func (r *Runner) returnsRows(ctx context.Context, stmt string) bool {
	if r.classify == nil {
		return true
	}
	ok, err := r.classify(ctx, stmt)
	if err != nil {
		// execution surfaces the real error, if there is one
		r.logger.Debug("statement not classified", slog.String("error", err.Error()))
		return true
	}
	return ok
}

// execute runs stmt and returns its result, whether the result is captured
// and the number of rows it returned or affected.
func execute(ctx context.Context, sess Session, stmt string, returnsRows bool) (core.QueryResult, bool, int64, error) {
	var res core.QueryResult

	rows, err := sess.QueryContext(ctx, stmt)
	if err != nil {
		return res, false, 0, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return res, false, 0, err
	}
	if len(cols) == 0 {
		for rows.Next() { // drain
		}
		if err := rows.Err(); err != nil {
			return res, false, 0, err
		}
		return res, false, 0, rows.Close()
	}
	if !returnsRows && isAffectedCount(cols) {
		var n int64
		for rows.Next() {
			if err := rows.Scan(&n); err != nil {
				return res, false, 0, err
			}
		}
		if err := rows.Err(); err != nil {
			return res, false, 0, err
		}
		return res, false, n, rows.Close()
	}

	res.Columns = cols
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return res, false, 0, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return res, false, 0, err
	}
	return res, true, int64(len(res.Rows)), rows.Close()
}

// isAffectedCount matches the single Count column DuckDB returns for DDL and
// DML. RETURNING clauses keep their own columns and are still captured.
func isAffectedCount(cols []string) bool {
	return len(cols) == 1 && cols[0] == "Count"
}
