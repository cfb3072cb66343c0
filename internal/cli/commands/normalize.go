package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Normalize the raw dataset into the canonical CSV",
		Long: `Read dataset.raw_path, coerce every record to the canonical schema and
write the result to dataset.canonical_path. The first record that cannot be
normalized aborts the command and is reported with its position and field.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ds, err := cc.Engine.Normalize(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cc.Out, "Normalized %d records into %s\n", ds.Len(), cc.Cfg.Dataset.CanonicalPath)
			return nil
		},
	}
}
