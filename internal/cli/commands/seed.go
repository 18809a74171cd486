package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	var opts seed.Options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load CSV fixtures into the target",
		Long: `Load every CSV file in the seeds directory into a table of the same
name, creating missing tables from the CSV header. A seeds.yml manifest
can override column types and per-table truncation.`,
		Example: `  # Load all fixtures
  mallard seed

  # Reload a single table from scratch
  mallard seed --table users --truncate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			adp, cleanup, err := c.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := seed.Run(cmd.Context(), adp, c.Cfg.SeedsDir, opts)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				c.Renderer.Println("No seed files found in", c.Cfg.SeedsDir)
				return nil
			}

			rows := make([][]any, 0, len(results))
			var total int64
			for _, res := range results {
				rows = append(rows, []any{res.Table, strconv.FormatInt(res.Rows, 10)})
				total += res.Rows
			}
			c.Renderer.Table([]string{"table", "rows"}, rows)
			c.Renderer.Success(fmt.Sprintf("Loaded %d row(s) into %d table(s)", total, len(results)))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "Seed only this table")
	cmd.Flags().BoolVar(&opts.Truncate, "truncate", false, "Clear tables before loading")
	return cmd
}
