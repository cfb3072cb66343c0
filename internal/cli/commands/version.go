package commands

import (
	"fmt"

	"github.com/leapstack-labs/retailflow/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display retailflow version and the available store adapters.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "retailflow v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Store adapters: %v\n", adapter.ListAdapters())
		},
	}
}
