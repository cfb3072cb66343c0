package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Bulk-load the canonical dataset into the warehouse table",
		Long: `Copy the canonical CSV into the warehouse table. The table is created if it
does not exist; when it already holds rows nothing is copied.

If the canonical CSV has not been written yet, the raw dataset is normalized first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			outcome, err := cc.Engine.Load(ctx, ds)
			if err != nil {
				return err
			}
			if outcome.Loaded() {
				_, _ = fmt.Fprintf(cc.Out, "Loaded %d rows into %s (fingerprint %s)\n", outcome.RowCount, outcome.Table, outcome.Fingerprint)
			} else {
				_, _ = fmt.Fprintf(cc.Out, "%s already loaded, nothing copied\n", outcome.Table)
			}
			return nil
		},
	}
}

// normalizeIfMissing normalizes the raw dataset when the canonical CSV has
// not been written yet. It returns nil when the canonical file exists.
func normalizeIfMissing(ctx context.Context, cc *CommandContext) (*core.Dataset, error) {
	if _, err := os.Stat(cc.Cfg.Dataset.CanonicalPath); !errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	cc.Logger.Debug("canonical dataset missing, normalizing", "path", cc.Cfg.Dataset.CanonicalPath)
	return cc.Engine.Normalize(ctx)
}
