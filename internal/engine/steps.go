package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/retailflow/internal/batch"
	intconfig "github.com/leapstack-labs/retailflow/internal/config"
	"github.com/leapstack-labs/retailflow/internal/loader"
	"github.com/leapstack-labs/retailflow/internal/normalize"
	"github.com/leapstack-labs/retailflow/internal/sink"
	"github.com/leapstack-labs/retailflow/pkg/adapter"
	"github.com/leapstack-labs/retailflow/pkg/core"
)

// Normalize reads and normalizes the raw dataset and, when a canonical path
// is configured, writes the canonical CSV there.
func (e *Engine) Normalize(ctx context.Context) (*core.Dataset, error) {
	if e.cfg.RawPath == "" {
		return nil, &core.ConfigurationError{Key: "dataset.raw_path", Err: intconfig.ErrRequired}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := normalize.NormalizeFile(e.cfg.RawPath)
	if err != nil {
		return nil, err
	}
	e.logger.Info("dataset normalized", slog.String("path", e.cfg.RawPath), slog.Int("records", ds.Len()))

	if e.cfg.CanonicalPath != "" {
		if err := normalize.WriteCSVFile(e.cfg.CanonicalPath, ds); err != nil {
			return nil, fmt.Errorf("write canonical dataset: %w", err)
		}
		e.logger.Debug("canonical dataset written", slog.String("path", e.cfg.CanonicalPath))
	}
	return ds, nil
}

// Canonical reads the canonical CSV written by an earlier Normalize.
func (e *Engine) Canonical() (*core.Dataset, error) {
	if e.cfg.CanonicalPath == "" {
		return nil, &core.ConfigurationError{Key: "dataset.canonical_path", Err: intconfig.ErrRequired}
	}
	return normalize.ReadCSVFile(e.cfg.CanonicalPath)
}

// Load bulk-loads ds into the warehouse table unless the table already holds
// rows. A nil ds loads the canonical CSV file instead.
func (e *Engine) Load(ctx context.Context, ds *core.Dataset) (core.LoadOutcome, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return core.LoadOutcome{}, err
	}

	var src loader.Source
	switch {
	case ds != nil:
		src = loader.DatasetSource(ds)
	case e.cfg.CanonicalPath != "":
		src = loader.FileSource(e.cfg.CanonicalPath)
	default:
		return core.LoadOutcome{}, &core.ConfigurationError{Key: "dataset.canonical_path", Err: intconfig.ErrRequired}
	}

	outcome, err := e.loader.Load(ctx, e.db, e.cfg.Warehouse, src)
	if err != nil {
		return outcome, err
	}
	if e.run != nil {
		if err := e.store.RecordLoad(ctx, e.run.ID, outcome); err != nil {
			return outcome, fmt.Errorf("record load: %w", err)
		}
	}
	return outcome, nil
}

// RunBatch executes the configured SQL script on one store session.
func (e *Engine) RunBatch(ctx context.Context) ([]core.QueryResult, error) {
	if e.cfg.Script == "" {
		return nil, &core.ConfigurationError{Key: "batch.script", Err: intconfig.ErrRequired}
	}
	return e.runBatch(ctx, func(r *batch.Runner, sess batch.Session) ([]core.QueryResult, error) {
		return r.RunFile(ctx, sess, e.cfg.Script)
	})
}

// RunFile executes the SQL script at path on one store session.
func (e *Engine) RunFile(ctx context.Context, path string) ([]core.QueryResult, error) {
	return e.runBatch(ctx, func(r *batch.Runner, sess batch.Session) ([]core.QueryResult, error) {
		return r.RunFile(ctx, sess, path)
	})
}

// RunScript executes an inline SQL script on one store session.
func (e *Engine) RunScript(ctx context.Context, script string) ([]core.QueryResult, error) {
	return e.runBatch(ctx, func(r *batch.Runner, sess batch.Session) ([]core.QueryResult, error) {
		return r.Run(ctx, sess, script)
	})
}

func (e *Engine) runBatch(ctx context.Context, fn func(*batch.Runner, batch.Session) ([]core.QueryResult, error)) ([]core.QueryResult, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}

	conn, err := e.db.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	opts := []batch.Option{
		batch.WithSplitMode(e.cfg.SplitMode),
		batch.WithObserver(e.recordStatement(ctx)),
	}
	if rc, ok := e.db.(adapter.ResultClassifier); ok {
		opts = append(opts, batch.WithClassifier(func(ctx context.Context, stmt string) (bool, error) {
			return rc.ReturnsRows(ctx, conn, stmt)
		}))
	}
	return fn(batch.NewRunner(e.logger, opts...), conn)
}

// recordStatement returns an observer writing each statement to the ledger.
// Ledger failures are logged; the statement error, if any, is what the batch returns.
func (e *Engine) recordStatement(ctx context.Context) batch.Observer {
	return func(ev batch.StatementEvent) {
		if e.run == nil {
			return
		}
		sr := core.StatementRun{
			RunID:       e.run.ID,
			Index:       ev.Index,
			Statement:   ev.Statement,
			Status:      core.StatementStatusSuccess,
			RowCount:    ev.RowCount,
			ExecutionMS: ev.Duration.Milliseconds(),
		}
		if ev.Err != nil {
			sr.Status = core.StatementStatusFailed
			sr.Error = ev.Err.Error()
		}
		if err := e.store.RecordStatement(ctx, sr); err != nil {
			e.logger.Warn("failed to record statement", slog.Int("index", ev.Index), slog.String("error", err.Error()))
		}
	}
}

// Aggregate computes the result tables from ds.
func (e *Engine) Aggregate(ctx context.Context, ds *core.Dataset) ([]core.Table, error) {
	return e.agg.All(ctx, ds, e.cfg.TopN)
}

// Sink overwrites one sink table per result table. With WriteCanonical set
// and a non-nil ds, the canonical dataset is written as well.
func (e *Engine) Sink(ctx context.Context, tables []core.Table, ds *core.Dataset) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}

	if e.cfg.WriteCanonical && ds != nil {
		tables = append(tables[:len(tables):len(tables)], ds.Table(CanonicalTable))
	}

	for _, t := range tables {
		target := core.TableRef{Schema: e.cfg.SinkSchema, Name: t.Name}
		if err := e.sink.Write(ctx, e.db, t, target, sink.ModeOverwrite); err != nil {
			return err
		}
		if e.run != nil {
			if err := e.store.RecordSinkWrite(ctx, e.run.ID, target.String(), int64(len(t.Rows))); err != nil {
				return fmt.Errorf("record sink write: %w", err)
			}
		}
	}
	return nil
}
