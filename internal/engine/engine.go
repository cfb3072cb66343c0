// Package engine runs the retail pipeline: normalize, load, batch, aggregate
// and sink, recording each step in the run ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/retailflow/internal/aggregate"
	"github.com/leapstack-labs/retailflow/internal/batch"
	intconfig "github.com/leapstack-labs/retailflow/internal/config"
	"github.com/leapstack-labs/retailflow/internal/loader"
	"github.com/leapstack-labs/retailflow/internal/sink"
	"github.com/leapstack-labs/retailflow/internal/state"
	"github.com/leapstack-labs/retailflow/pkg/adapter"
	"github.com/leapstack-labs/retailflow/pkg/core"
)

// CanonicalTable is the sink table holding the full canonical dataset.
const CanonicalTable = "sales"

// Engine orchestrates one store connection and one run ledger.
type Engine struct {
	// Store adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	logger *slog.Logger
	store  state.Store
	cfg    Config

	loader *loader.Loader
	agg    *aggregate.Engine
	sink   *sink.Writer

	// run is the ledger entry steps are recorded against; nil outside Run.
	run *core.Run
}

// Config holds engine configuration.
type Config struct {
	// Target is the store the dataset is loaded into. Nil means in-memory DuckDB.
	Target *core.TargetConfig
	// RawPath is the raw dataset file read by Normalize.
	RawPath string
	// CanonicalPath is where Normalize writes the canonical CSV (optional).
	CanonicalPath string
	// Warehouse is the table canonical records are loaded into.
	Warehouse core.TableRef
	// Script is the SQL batch file executed by RunBatch.
	Script    string
	SplitMode batch.SplitMode
	// Partitions for aggregation; 0 uses one per CPU.
	Partitions int
	TopN       int
	// SinkSchema receives the result tables.
	SinkSchema string
	// WriteCanonical also writes the canonical dataset as a sink table.
	WriteCanonical bool
	// StatePath is the path to the SQLite run ledger.
	StatePath string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New validates cfg, opens the run ledger and resolves the store adapter.
// The store itself is only connected when a step needs it.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Target == nil {
		cfg.Target = &core.TargetConfig{Type: intconfig.DefaultTargetType}
	}
	intconfig.ApplyTargetDefaults(cfg.Target)
	if err := intconfig.ValidateTarget(cfg.Target); err != nil {
		return nil, err
	}
	if err := cfg.Warehouse.Validate(); err != nil {
		return nil, &core.ConfigurationError{Key: "warehouse", Err: err}
	}
	if cfg.SplitMode == "" {
		cfg.SplitMode = batch.SplitNaive
	}

	logger.Debug("initializing engine", "target", cfg.Target.Type, "warehouse", cfg.Warehouse.String())

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}

	return &Engine{
		dbConfig: cfg.Target.AdapterConfig(),
		logger:   logger,
		store:    store,
		cfg:      cfg,
		loader:   loader.New(logger),
		agg:      aggregate.New(cfg.Partitions, logger),
		sink:     sink.New(logger),
	}, nil
}

// ensureConnected lazily connects to the store.
func (e *Engine) ensureConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to store", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return &core.ConfigurationError{Key: "target.type", Err: err}
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return err
	}

	e.db = db
	e.dbConnected = true
	e.logger.Debug("store connected", "dialect", db.DialectName())
	return nil
}

// Store returns the run ledger.
func (e *Engine) Store() state.Store {
	return e.store
}

// Close releases the store connection and the run ledger.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing engine: %w", err)
	}
	return nil
}
