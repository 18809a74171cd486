package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/pkg/adapter"
)

// targetPingTimeout bounds the reachability probe per target.
const targetPingTimeout = 3 * time.Second

// NewTargetsCommand creates the targets command.
func NewTargetsCommand() *cobra.Command {
	var opts struct {
		Format string
		Check  bool
	}

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List configured targets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			r := rendererForFormat(cmd, c, opts.Format)
			rows := make([][]any, 0, len(c.Cfg.Targets))
			for _, name := range c.Cfg.TargetNames() {
				t := c.Cfg.Targets[name]
				label := name
				if name == c.Cfg.TargetName {
					label = name + " *"
				}
				row := []any{label, t.Type, databaseLabel(t)}
				if opts.Check {
					row = append(row, probeTarget(cmd.Context(), c, name))
				}
				rows = append(rows, row)
			}

			columns := []string{"target", "adapter", "database"}
			if opts.Check {
				columns = append(columns, "status")
			}
			r.Table(columns, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format (table, json, csv, md)")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "Probe each target for reachability")
	return cmd
}

// probeTarget connects to one named target and pings it.
func probeTarget(ctx context.Context, c *CommandContext, name string) string {
	t := c.Cfg.Targets[name]
	adp, err := adapter.Create(t, c.Logger)
	if err != nil {
		return "error: " + err.Error()
	}

	ctx, cancel := context.WithTimeout(ctx, targetPingTimeout)
	defer cancel()

	if err := adp.Connect(ctx, t); err != nil {
		return "unreachable"
	}
	defer func() { _ = adp.Close() }()
	if err := adp.Ping(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}
