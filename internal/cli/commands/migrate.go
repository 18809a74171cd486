package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/internal/migrate"
	"github.com/mallardhq/mallard/internal/state"
	"github.com/mallardhq/mallard/pkg/adapter"
)

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply and manage schema migrations",
		Long: `Apply versioned migrations from the migrations directory to the
selected target. Migrations are plain SQL files with up/down markers or
Starlark files defining up(db) and down(db).`,
	}

	cmd.AddCommand(newMigrateUpCommand())
	cmd.AddCommand(newMigrateDownCommand())
	cmd.AddCommand(newMigrateRedoCommand())
	cmd.AddCommand(newMigrateStatusCommand())
	cmd.AddCommand(newMigrateVersionCommand())
	cmd.AddCommand(newMigrateNewCommand())

	return cmd
}

// newRunner builds a migration runner for the connected adapter. Run history
// recording is best effort: a broken state store logs and disables it.
func newRunner(c *CommandContext, adp adapter.Adapter) (*migrate.Runner, func()) {
	opts := []migrate.Option{migrate.WithLogger(c.Logger)}
	store, done, err := c.OpenState()
	if err != nil {
		c.Logger.Debug("migration history unavailable", "error", err)
		done = func() {}
	} else {
		opts = append(opts, migrate.WithRecorder(state.NewMigrationRecorder(store, c.Cfg.TargetName)))
	}
	return migrate.NewRunner(adp, c.Cfg.MigrationsDir, opts...), done
}

func newMigrateUpCommand() *cobra.Command {
	var to int64

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
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

			runner, done := newRunner(c, adp)
			defer done()

			var n int
			if to > 0 {
				n, err = runner.UpTo(cmd.Context(), to)
			} else {
				n, err = runner.Up(cmd.Context())
			}
			if err != nil {
				return err
			}
			if n == 0 {
				c.Renderer.Println("Already up to date")
				return nil
			}
			c.Renderer.Success(fmt.Sprintf("Applied %d migration(s)", n))
			return nil
		},
	}

	cmd.Flags().Int64Var(&to, "to", 0, "Apply up to and including this version")
	return cmd
}

func newMigrateDownCommand() *cobra.Command {
	var to int64

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
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

			runner, done := newRunner(c, adp)
			defer done()

			if cmd.Flags().Changed("to") {
				n, err := runner.DownTo(cmd.Context(), to)
				if err != nil {
					return err
				}
				if n == 0 {
					c.Renderer.Println("Nothing to roll back")
					return nil
				}
				c.Renderer.Success(fmt.Sprintf("Rolled back %d migration(s)", n))
				return nil
			}

			if err := runner.Down(cmd.Context()); err != nil {
				return err
			}
			c.Renderer.Success("Rolled back 1 migration")
			return nil
		},
	}

	cmd.Flags().Int64Var(&to, "to", 0, "Roll back down to this version, exclusive (0 rolls back everything)")
	return cmd
}

func newMigrateRedoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Roll back and re-apply the most recent migration",
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

			runner, done := newRunner(c, adp)
			defer done()

			if err := runner.Redo(cmd.Context()); err != nil {
				return err
			}
			c.Renderer.Success("Re-applied latest migration")
			return nil
		},
	}
}

func newMigrateStatusCommand() *cobra.Command {
	var opts struct {
		Format string
	}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show each migration's state against the target",
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

			runner, done := newRunner(c, adp)
			defer done()

			statuses, err := runner.Status(cmd.Context())
			if err != nil {
				return err
			}

			r := rendererForFormat(cmd, c, opts.Format)
			rows := make([][]any, 0, len(statuses))
			for _, s := range statuses {
				rows = append(rows, []any{
					strconv.FormatInt(s.Version, 10),
					s.Label,
					string(s.Format),
					statusWord(s),
					s.AppliedAt,
				})
			}
			r.Table([]string{"version", "name", "format", "state", "applied at"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format (table, json, csv, md)")
	return cmd
}

// statusWord collapses a migration status into a single display word.
func statusWord(s migrate.Status) string {
	switch {
	case s.Missing:
		return "missing"
	case s.Applied:
		return "applied"
	default:
		return "pending"
	}
}

func newMigrateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the highest applied migration version",
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

			runner, done := newRunner(c, adp)
			defer done()

			v, err := runner.Version(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newMigrateNewCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "new <label>",
		Short: "Create a new migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			f := migrate.Format(format)
			if f != migrate.FormatSQL && f != migrate.FormatStarlark {
				return fmt.Errorf("invalid migration type %q (sql, star)", format)
			}
			path, err := migrate.Create(c.Cfg.MigrationsDir, args[0], f)
			if err != nil {
				return err
			}
			c.Renderer.Success(fmt.Sprintf("Created %s", path))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "type", string(migrate.FormatSQL), "Migration type (sql, star)")
	return cmd
}
