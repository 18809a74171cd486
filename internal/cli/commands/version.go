package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Show the mallard version and the embedded engine it was built against.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mallard v%s\n", version)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Embedded analytical database toolkit built on DuckDB")
			return nil
		},
	}
}
