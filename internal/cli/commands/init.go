package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new mallard project",
		Long: `Initialize a mallard project with a config file and the standard
directory layout.

This creates:
  - mallard.yaml with a local DuckDB target
  - migrations/ for versioned schema changes
  - seeds/ for CSV fixtures

Use --example to include a working demo: two migrations (SQL and
Starlark) and a seed fixture with a seeds.yml manifest.`,
		Example: `  # Initialize in the current directory
  mallard init

  # Initialize with the demo project
  mallard init --example

  # Initialize in a new directory
  mallard init analytics --example`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			// init runs before any config exists, so it builds its own
			// renderer instead of going through the command context.
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
			return runInit(r, dir, example, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Include a working example project")

	return cmd
}

func runInit(r *output.Renderer, dir string, example, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "mallard.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("mallard.yaml already exists, use --force to overwrite")
	}

	template := "minimal"
	if example {
		template = "example"
	}
	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	styles := r.Styles()
	for _, f := range files {
		r.Println("  " + styles.StatusSuccess.String() + " " + f)
	}

	r.Println("")
	r.Success("Mallard project initialized")
	r.Println("")
	r.Println("Next steps:")
	if example {
		r.Println("  mallard db create     Create the dev database")
		r.Println("  mallard migrate up    Apply the example migrations")
		r.Println("  mallard seed          Load the example fixtures")
		r.Println("  mallard query         Open a REPL against the result")
	} else {
		r.Println("  1. Point the targets in mallard.yaml at your databases")
		r.Println(`  2. Run "mallard migrate new <label>" to write a migration`)
		r.Println(`  3. Run "mallard migrate up" to apply it`)
		r.Println(`  4. Run "mallard query" to open a REPL`)
	}

	return nil
}
