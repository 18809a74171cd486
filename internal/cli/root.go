// Package cli provides the mallard command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/internal/cli/commands"
	"github.com/mallardhq/mallard/internal/cli/config"

	// Adapters self-register on import.
	_ "github.com/mallardhq/mallard/pkg/adapters/duckdb"
	_ "github.com/mallardhq/mallard/pkg/adapters/postgres"
	_ "github.com/mallardhq/mallard/pkg/adapters/sqlite"
)

var (
	cfgFile    string
	targetFlag string
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mallard",
		Short: "Mallard - embedded analytical database toolkit",
		Long: `Mallard manages embedded analytical databases end to end: versioned
schema migrations, CSV seeds, structure dumps, and an interactive SQL
shell. Targets are DuckDB files first, with the same workflow available
against SQLite and Postgres.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Commands that work without a project skip config loading.
			// Matching on the full path keeps "migrate version" and
			// friends out of the exemption.
			switch cmd.CommandPath() {
			case "mallard help", "mallard completion", "mallard __complete", "mallard init", "mallard version":
				return nil
			}

			cfg, err := config.Load(cfgFile, targetFlag, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			flags := cmd.Root().PersistentFlags()
			level := logLevel(cfg.LogLevel)
			if verbose, _ := flags.GetBool("verbose"); verbose && !flags.Changed("log-level") {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if path := config.GetConfigFileUsed(); path != "" {
				logger.Debug("using config file", "path", path)
			}
			logger.Debug("using target", "target", cfg.TargetName, "adapter", cfg.Target.Type)

			cmd.SetContext(context.WithValue(cmd.Context(), config.LoggerKey(), logger))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Embedded analytical database toolkit built on DuckDB
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./mallard.yaml)")
	rootCmd.PersistentFlags().StringVarP(&targetFlag, "target", "t", "", "Target to run against (e.g. dev, prod)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json|csv)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output (log level debug)")
	rootCmd.PersistentFlags().String("migrations-dir", "", "Path to migrations directory")
	rootCmd.PersistentFlags().String("seeds-dir", "", "Path to seeds directory")
	rootCmd.PersistentFlags().String("state", "", "Path to the state database")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json", "csv"}, cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		// Fall back to common target names when no config is readable.
		cfg, err := config.Load(cfgFile, "", nil)
		if err != nil {
			return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
		}
		return cfg.TargetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(commands.NewDBCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewTargetsCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// logLevel maps a validated level name to its slog level.
func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mallard.

To load completions:

Bash:
  $ source <(mallard completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ mallard completion bash > /etc/bash_completion.d/mallard
  # macOS:
  $ mallard completion bash > $(brew --prefix)/etc/bash_completion.d/mallard

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ mallard completion zsh > "${fpath[1]}/_mallard"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ mallard completion fish | source

  # To load completions for each session, execute once:
  $ mallard completion fish > ~/.config/fish/completions/mallard.fish

PowerShell:
  PS> mallard completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> mallard completion powershell > mallard.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
