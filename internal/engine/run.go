package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/retailflow/pkg/core"
)

// Report summarizes one pipeline run.
type Report struct {
	Run      *core.Run
	Records  int
	Load     core.LoadOutcome
	Results  []core.QueryResult
	Tables   []core.Table
	Duration time.Duration
}

// Run executes normalize, load, batch, aggregate and sink in order. The
// first failing step stops the run; the ledger entry is then marked failed
// with the error message. The report is returned in both cases.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	run, err := e.store.CreateRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.run = run
	defer func() { e.run = nil }()

	e.logger.Info("run started", slog.String("run_id", run.ID))

	report := &Report{Run: run}
	runErr := e.pipeline(ctx, report)

	status, msg := core.RunStatusCompleted, ""
	if runErr != nil {
		status, msg = core.RunStatusFailed, runErr.Error()
	}

	// The ledger is updated even when ctx was canceled.
	done := context.WithoutCancel(ctx)
	if err := e.store.CompleteRun(done, run.ID, status, msg); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to complete run: %w", err))
	}
	if r, err := e.store.GetRun(done, run.ID); err == nil {
		report.Run = r
	}
	report.Duration = time.Since(start)

	if runErr != nil {
		e.logger.Error("run failed", slog.String("run_id", run.ID), slog.String("error", runErr.Error()))
		return report, runErr
	}
	e.logger.Info("run completed", slog.String("run_id", run.ID), slog.Duration("duration", report.Duration))
	return report, nil
}

func (e *Engine) pipeline(ctx context.Context, report *Report) error {
	ds, err := e.Normalize(ctx)
	if err != nil {
		return err
	}
	report.Records = ds.Len()

	if report.Load, err = e.Load(ctx, ds); err != nil {
		return err
	}

	if e.cfg.Script != "" {
		if report.Results, err = e.RunBatch(ctx); err != nil {
			return err
		}
	}

	if report.Tables, err = e.Aggregate(ctx, ds); err != nil {
		return err
	}

	return e.Sink(ctx, report.Tables, ds)
}
