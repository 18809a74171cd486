package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/schema"
)

// NewDBCommand creates the db command group.
func NewDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database lifecycle tasks",
		Long:  `Create, drop, and rebuild the selected target's database.`,
	}

	cmd.AddCommand(newDBCreateCommand())
	cmd.AddCommand(newDBDropCommand())
	cmd.AddCommand(newDBPurgeCommand())
	cmd.AddCommand(newDBExistsCommand())

	return cmd
}

// databaseLabel names the database for messages: the file path for embedded
// engines, the database name for servers.
func databaseLabel(t *core.TargetConfig) string {
	if t.Path != "" {
		return t.Path
	}
	return t.Database
}

func newDBCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the target database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			adp, err := c.Adapter()
			if err != nil {
				return err
			}
			if err := adp.CreateDatabase(cmd.Context(), c.Cfg.Target); err != nil {
				return err
			}
			c.Renderer.Success(fmt.Sprintf("Created database %s", databaseLabel(c.Cfg.Target)))
			return nil
		},
	}
}

func newDBDropCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the target database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			label := databaseLabel(c.Cfg.Target)
			if !force && !confirm(cmd, fmt.Sprintf("Drop database %s?", label)) {
				c.Renderer.Println("Aborted")
				return nil
			}
			adp, err := c.Adapter()
			if err != nil {
				return err
			}
			if err := adp.DropDatabase(cmd.Context(), c.Cfg.Target); err != nil {
				return err
			}
			c.Renderer.Success(fmt.Sprintf("Dropped database %s", label))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Drop without confirmation")
	return cmd
}

func newDBPurgeCommand() *cobra.Command {
	var force bool
	var structure string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop and recreate the target database",
		Long: `Drop and recreate the target database, then load a structure script
when one is available. Without --structure, db/structure.sql under the
project root is loaded if it exists.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			label := databaseLabel(c.Cfg.Target)
			if !force && !confirm(cmd, fmt.Sprintf("Purge database %s?", label)) {
				c.Renderer.Println("Aborted")
				return nil
			}

			adp, err := c.Adapter()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := adp.DropDatabase(ctx, c.Cfg.Target); err != nil {
				return err
			}
			if err := adp.CreateDatabase(ctx, c.Cfg.Target); err != nil {
				return err
			}
			c.Renderer.Success(fmt.Sprintf("Recreated database %s", label))

			script := structure
			if script == "" {
				candidate := filepath.Join(c.Cfg.ProjectRoot, "db", "structure.sql")
				if _, err := os.Stat(candidate); err == nil {
					script = candidate
				}
			}
			if script == "" {
				return nil
			}

			content, err := os.ReadFile(script)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", script, err)
			}
			if err := adp.Connect(ctx, c.Cfg.Target); err != nil {
				return fmt.Errorf("failed to connect to target %q: %w", c.Cfg.TargetName, err)
			}
			defer func() { _ = adp.Close() }()
			if err := schema.Load(ctx, adp, string(content)); err != nil {
				return err
			}
			c.Renderer.Success(fmt.Sprintf("Loaded structure from %s", script))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Purge without confirmation")
	cmd.Flags().StringVar(&structure, "structure", "", "Structure script to load after recreating")
	return cmd
}

func newDBExistsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists",
		Short: "Report whether the target database exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			adp, err := c.Adapter()
			if err != nil {
				return err
			}
			exists, err := adp.DatabaseExists(cmd.Context(), c.Cfg.Target)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), exists)
			return nil
		},
	}
}
