package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/retailflow/internal/batch"
	"github.com/leapstack-labs/retailflow/internal/cli/config"
	"github.com/leapstack-labs/retailflow/internal/engine"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Engine *engine.Engine
	Out    io.Writer
}

// NewCommandContext creates a CommandContext with an engine.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", slog.String("error", err.Error()))
		}
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Engine: eng,
		Out:    cmd.OutOrStdout(),
	}, cleanup, nil
}

// getConfig returns the configuration loaded by the root command, loading it
// from the current directory when a command runs on its own.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	mode, err := batch.ParseSplitMode(cfg.Batch.SplitMode)
	if err != nil {
		return nil, fmt.Errorf("batch.split_mode: %w", err)
	}

	return engine.New(engine.Config{
		Target:         cfg.Target,
		RawPath:        cfg.Dataset.RawPath,
		CanonicalPath:  cfg.Dataset.CanonicalPath,
		Warehouse:      cfg.Warehouse.TableRef(),
		Script:         cfg.Batch.Script,
		SplitMode:      mode,
		Partitions:     cfg.Aggregate.Partitions,
		TopN:           cfg.Aggregate.TopN,
		SinkSchema:     cfg.Sink.Schema,
		WriteCanonical: cfg.Sink.WriteCanonical,
		StatePath:      cfg.StatePath,
		Logger:         logger,
	})
}
