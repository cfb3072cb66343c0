package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/retailflow/internal/cli/config"
	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded pipeline runs",
		Long: `List recent runs from the run ledger, newest first. With a run id, show that
run's load outcome, batch statements and sink writes.`,
		Example: `  retailflow history --limit 5
  retailflow history 3f0c2a4e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				return showRun(cmd, cc, args[0])
			}
			return listRuns(cmd, cc, opts.Limit)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}

func listRuns(cmd *cobra.Command, cc *CommandContext, limit int) error {
	runs, err := cc.Engine.Store().ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cc.Cfg.Output == config.OutputJSON {
		type jsonRun struct {
			ID          string     `json:"id"`
			Status      string     `json:"status"`
			StartedAt   time.Time  `json:"started_at"`
			CompletedAt *time.Time `json:"completed_at,omitempty"`
			Error       string     `json:"error,omitempty"`
		}
		out := make([]jsonRun, 0, len(runs))
		for _, r := range runs {
			out = append(out, jsonRun{ID: r.ID, Status: string(r.Status), StartedAt: r.StartedAt, CompletedAt: r.CompletedAt, Error: r.Error})
		}
		return writeJSON(cc.Out, out)
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			statusLabel(string(r.Status)),
			r.StartedAt.Local().Format(time.DateTime),
			runDuration(r),
			r.Error,
		})
	}
	renderGrid(cc.Out, "", []string{"run", "status", "started", "duration", "error"}, rows)
	return nil
}

func showRun(cmd *cobra.Command, cc *CommandContext, id string) error {
	ctx := cmd.Context()
	store := cc.Engine.Store()

	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	load, err := store.GetLoad(ctx, id)
	if err != nil {
		return err
	}
	stmts, err := store.ListStatements(ctx, id)
	if err != nil {
		return err
	}
	writes, err := store.ListSinkWrites(ctx, id)
	if err != nil {
		return err
	}

	w := cc.Out
	_, _ = fmt.Fprintf(w, "Run %s: %s (started %s, %s)\n", run.ID, statusLabel(string(run.Status)),
		run.StartedAt.Local().Format(time.DateTime), runDuration(run))
	if run.Error != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	if load != nil {
		_, _ = fmt.Fprintf(w, "Load %s: %s (%d rows, fingerprint %s)\n",
			load.Table, statusLabel(string(load.Status)), load.RowCount, load.Fingerprint)
	}

	_, _ = fmt.Fprintln(w)
	stmtRows := make([][]string, 0, len(stmts))
	for _, s := range stmts {
		stmtRows = append(stmtRows, []string{
			strconv.Itoa(s.Index),
			statusLabel(string(s.Status)),
			strconv.FormatInt(s.RowCount, 10),
			strconv.FormatInt(s.ExecutionMS, 10),
			abbreviate(s.Statement, 60),
		})
	}
	renderGrid(w, "Statements", []string{"#", "status", "rows", "ms", "statement"}, stmtRows)

	_, _ = fmt.Fprintln(w)
	writeRows := make([][]string, 0, len(writes))
	for _, sw := range writes {
		writeRows = append(writeRows, []string{sw.Table, strconv.FormatInt(sw.RowCount, 10)})
	}
	renderGrid(w, "Sink writes", []string{"table", "rows"}, writeRows)
	return nil
}

func runDuration(r *core.Run) string {
	if r.CompletedAt == nil {
		return "-"
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
