package commands

import (
	"fmt"

	"github.com/leapstack-labs/retailflow/internal/cli/config"
	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Script string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Execute a SQL batch against the warehouse",
		Long: `Execute a ';'-separated SQL batch in order on a single session and print
every result set. Execution stops at the first failing statement.

Without arguments the batch.script file is run; --script runs another file
and a positional argument runs inline SQL.`,
		Example: `  # Run the configured batch script
  retailflow query

  # Run another script
  retailflow query --script sql/checks.sql

  # Inline SQL
  retailflow query "SELECT Country, COUNT(*) FROM retail.online_retail GROUP BY 1"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Script, "script", "f", "", "SQL script file to execute instead of batch.script")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, args []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	var results []core.QueryResult
	switch {
	case len(args) == 1:
		results, err = cc.Engine.RunScript(ctx, args[0])
	case opts.Script != "":
		results, err = cc.Engine.RunFile(ctx, opts.Script)
	default:
		results, err = cc.Engine.RunBatch(ctx)
	}

	// Results gathered before a failure are still shown.
	if rerr := printResults(cc, results); rerr != nil {
		return rerr
	}
	return err
}

func printResults(cc *CommandContext, results []core.QueryResult) error {
	if cc.Cfg.Output == config.OutputJSON {
		out := make([]jsonTable, 0, len(results))
		for i, res := range results {
			out = append(out, jsonFromResult(fmt.Sprintf("result_%d", i+1), res))
		}
		return writeJSON(cc.Out, out)
	}
	for i, res := range results {
		if i > 0 {
			_, _ = fmt.Fprintln(cc.Out)
		}
		title := ""
		if len(results) > 1 {
			title = fmt.Sprintf("Result %d", i+1)
		}
		renderQueryResult(cc.Out, title, res)
	}
	return nil
}
