package commands

import (
	"fmt"

	"github.com/leapstack-labs/retailflow/internal/cli/config"
	"github.com/spf13/cobra"
)

// AggregateOptions holds options for the aggregate command.
type AggregateOptions struct {
	Sink bool
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand() *cobra.Command {
	opts := &AggregateOptions{}

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Compute total sales, transactions per day and top products",
		Long: `Compute the aggregation tables from the canonical CSV and print them.
If the canonical CSV has not been written yet, the raw dataset is normalized first.
With --sink the tables also overwrite their counterparts in sink.schema.`,
		Example: `  retailflow aggregate
  retailflow aggregate --sink`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAggregate(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Sink, "sink", false, "Write the tables to the sink schema")

	return cmd
}

func runAggregate(cmd *cobra.Command, opts *AggregateOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	ds, err := normalizeIfMissing(ctx, cc)
	if err != nil {
		return err
	}
	if ds == nil {
		if ds, err = cc.Engine.Canonical(); err != nil {
			return fmt.Errorf("read canonical dataset: %w", err)
		}
	}

	tables, err := cc.Engine.Aggregate(ctx, ds)
	if err != nil {
		return err
	}

	if cc.Cfg.Output == config.OutputJSON {
		out := make([]jsonTable, 0, len(tables))
		for _, t := range tables {
			out = append(out, jsonFromTable(t))
		}
		if err := writeJSON(cc.Out, out); err != nil {
			return err
		}
	} else {
		for i, t := range tables {
			if i > 0 {
				_, _ = fmt.Fprintln(cc.Out)
			}
			renderTable(cc.Out, t)
		}
	}

	if !opts.Sink {
		return nil
	}
	if err := cc.Engine.Sink(ctx, tables, ds); err != nil {
		return err
	}
	if cc.Cfg.Output != config.OutputJSON {
		_, _ = fmt.Fprintf(cc.Out, "\nWrote %d tables to schema %s\n", len(tables), cc.Cfg.Sink.Schema)
	}
	return nil
}
