package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/leapstack-labs/retailflow/internal/cli/config"
	"github.com/leapstack-labs/retailflow/internal/engine"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline",
		Long: `Normalize the raw dataset, load it into the warehouse table, execute the
batch script, compute the aggregations and overwrite the sink tables.

The load is skipped when the warehouse table already holds rows. Every step
is recorded in the run ledger; the first failure stops the run and marks it
failed.`,
		Example: `  # Run with ./retailflow.yaml
  retailflow run

  # Run against a DuckDB file with a separate ledger
  retailflow run --database warehouse.duckdb --state /tmp/ledger.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd)
		},
	}
}

func runRun(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	report, runErr := cc.Engine.Run(cmd.Context())
	if report != nil {
		if err := printReport(cc.Out, cc.Cfg.Output, report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

type jsonReport struct {
	RunID      string      `json:"run_id"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Records    int         `json:"records"`
	Load       jsonLoad    `json:"load"`
	Results    []jsonTable `json:"results"`
	Tables     []jsonTable `json:"tables"`
	DurationMS int64       `json:"duration_ms"`
}

type jsonLoad struct {
	Status      string `json:"status,omitempty"`
	Table       string `json:"table,omitempty"`
	RowCount    int64  `json:"row_count"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

func printReport(w io.Writer, format string, r *engine.Report) error {
	if format == config.OutputJSON {
		out := jsonReport{
			RunID:   r.Run.ID,
			Status:  string(r.Run.Status),
			Error:   r.Run.Error,
			Records: r.Records,
			Load: jsonLoad{
				Status:      string(r.Load.Status),
				RowCount:    r.Load.RowCount,
				Fingerprint: r.Load.Fingerprint,
			},
			Results:    make([]jsonTable, 0, len(r.Results)),
			Tables:     make([]jsonTable, 0, len(r.Tables)),
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Load.Status != "" {
			out.Load.Table = r.Load.Table.String()
		}
		for i, res := range r.Results {
			out.Results = append(out.Results, jsonFromResult(fmt.Sprintf("result_%d", i+1), res))
		}
		for _, t := range r.Tables {
			out.Tables = append(out.Tables, jsonFromTable(t))
		}
		return writeJSON(w, out)
	}

	_, _ = fmt.Fprintf(w, "Run %s: %s\n", r.Run.ID, statusLabel(string(r.Run.Status)))
	_, _ = fmt.Fprintf(w, "Normalized %d records\n", r.Records)
	if r.Load.Status != "" {
		printLoad(w, r)
	}
	for i, res := range r.Results {
		_, _ = fmt.Fprintln(w)
		renderQueryResult(w, fmt.Sprintf("Result %d", i+1), res)
	}
	for _, t := range r.Tables {
		_, _ = fmt.Fprintln(w)
		renderTable(w, t)
	}
	_, _ = fmt.Fprintln(w)
	if r.Run.Error != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", r.Run.Error)
	}
	_, _ = fmt.Fprintf(w, "Completed in %s\n", r.Duration.Round(time.Millisecond))
	return nil
}

func printLoad(w io.Writer, r *engine.Report) {
	if !r.Load.Loaded() {
		_, _ = fmt.Fprintf(w, "Load %s: %s\n", r.Load.Table, statusLabel(string(r.Load.Status)))
		return
	}
	_, _ = fmt.Fprintf(w, "Load %s: %s (%d rows, fingerprint %s)\n",
		r.Load.Table, statusLabel(string(r.Load.Status)), r.Load.RowCount, r.Load.Fingerprint)
}
