// Package commands implements the mallard subcommands.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/internal/cli/config"
	"github.com/mallardhq/mallard/internal/cli/output"
	"github.com/mallardhq/mallard/internal/state"
	"github.com/mallardhq/mallard/pkg/adapter"
)

// CommandContext holds the dependencies every command starts from.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext resolves the loaded configuration, logger, and renderer
// for a command. The root command loads config in PersistentPreRunE, so a
// missing config here means the command ran outside the root.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}, nil
}

// Connect creates the adapter for the selected target and connects it.
// The returned func closes the connection.
func (c *CommandContext) Connect(ctx context.Context) (adapter.Adapter, func(), error) {
	adp, err := adapter.Create(c.Cfg.Target, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := adp.Connect(ctx, c.Cfg.Target); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to target %q: %w", c.Cfg.TargetName, err)
	}
	cleanup := func() { _ = adp.Close() }
	return adp, cleanup, nil
}

// Adapter creates the adapter for the selected target without connecting.
// Database lifecycle operations work against unconnected adapters.
func (c *CommandContext) Adapter() (adapter.Adapter, error) {
	return adapter.Create(c.Cfg.Target, c.Logger)
}

// OpenState opens and migrates the toolkit state store. The returned func
// closes it.
func (c *CommandContext) OpenState() (*state.SQLiteStore, func(), error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to migrate state store: %w", err)
	}
	cleanup := func() { _ = store.Close() }
	return store, cleanup, nil
}

// confirm prompts on stdin and accepts y/yes.
func confirm(cmd *cobra.Command, prompt string) bool {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// rendererForFormat returns the command renderer, overridden when a
// per-command --format flag was set.
func rendererForFormat(cmd *cobra.Command, c *CommandContext, format string) *output.Renderer {
	if format == "" {
		return c.Renderer
	}
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), modeForFormat(format))
}

// modeForFormat maps the query-style format names onto renderer modes.
func modeForFormat(format string) output.Mode {
	switch strings.ToLower(format) {
	case "table":
		return output.ModeText
	case "md", "markdown":
		return output.ModeMarkdown
	case "json":
		return output.ModeJSON
	case "csv":
		return output.ModeCSV
	default:
		return output.Mode(format)
	}
}
