package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/internal/cli/output"
	"github.com/mallardhq/mallard/internal/state"
	"github.com/mallardhq/mallard/pkg/adapter"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	File   string
	Watch  bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against the selected target",
		Long: `Run SQL against the selected target database.

SQL comes from the argument, --file, or piped stdin. Without any of those
on a terminal, an interactive REPL starts. Statements are recorded in the
local query history.`,
		Example: `  # Run SQL directly
  mallard query "SELECT count(*) FROM events"

  # Run a file, re-running whenever it changes
  mallard query --file daily.sql --watch

  # Pipe SQL in, format as JSON
  echo "SELECT 1 AS one" | mallard query --format json

  # Interactive REPL
  mallard query`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")
	cmd.Flags().StringVar(&opts.File, "file", "", "Read SQL from a file")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-run --file when it changes")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	c, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := rendererForFormat(cmd, c, opts.Format)

	if opts.Watch {
		if opts.File == "" {
			return fmt.Errorf("--watch requires --file")
		}
		return watchQueryFile(cmd, c, r, opts.File)
	}

	var sqlText string
	switch {
	case len(args) > 0:
		sqlText = args[0]
	case opts.File != "":
		content, err := os.ReadFile(opts.File)
		if err != nil {
			return fmt.Errorf("failed to read SQL file: %w", err)
		}
		sqlText = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText = string(content)
	default:
		return runQueryREPL(cmd, c, opts)
	}

	return executeQuery(cmd.Context(), c, r, sqlText)
}

func executeQuery(ctx context.Context, c *CommandContext, r *output.Renderer, sqlText string) error {
	adp, done, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer done()

	store, closeStore := openHistory(c)
	defer closeStore()

	return runStatement(ctx, c, adp, store, r, sqlText)
}

// openHistory opens the state store for query history. History is best
// effort; a store that fails to open degrades to no recording.
func openHistory(c *CommandContext) (*state.SQLiteStore, func()) {
	store, done, err := c.OpenState()
	if err != nil {
		c.Logger.Debug("query history unavailable", "error", err)
		return nil, func() {}
	}
	return store, done
}

// runStatement executes one statement and renders its result. Row-returning
// statements render a result set; everything else reports rows affected.
func runStatement(ctx context.Context, c *CommandContext, adp adapter.Adapter, store *state.SQLiteStore, r *output.Renderer, sqlText string) error {
	sqlText = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sqlText), ";"))
	if sqlText == "" {
		return nil
	}

	start := time.Now()
	if returnsRows(sqlText) {
		rows, err := adp.Query(ctx, sqlText)
		if err != nil {
			recordQuery(ctx, c, store, sqlText, 0, time.Since(start), err)
			return fmt.Errorf("query failed: %w", err)
		}
		defer func() { _ = rows.Close() }()

		res, err := output.CollectRows(rows.Rows)
		if err != nil {
			recordQuery(ctx, c, store, sqlText, 0, time.Since(start), err)
			return err
		}
		recordQuery(ctx, c, store, sqlText, int64(len(res.Rows)), time.Since(start), nil)
		return r.Result(res)
	}

	result, err := adp.Exec(ctx, sqlText)
	if err != nil {
		recordQuery(ctx, c, store, sqlText, 0, time.Since(start), err)
		return fmt.Errorf("statement failed: %w", err)
	}
	affected, _ := result.RowsAffected()
	recordQuery(ctx, c, store, sqlText, affected, time.Since(start), nil)
	r.Printf("OK, %d rows affected\n", affected)
	return nil
}

func recordQuery(ctx context.Context, c *CommandContext, store *state.SQLiteStore, sqlText string, rows int64, duration time.Duration, runErr error) {
	if store == nil {
		return
	}
	if err := store.RecordQuery(ctx, c.Cfg.TargetName, sqlText, rows, duration, runErr); err != nil {
		c.Logger.Debug("failed to record query history", "error", err)
	}
}

// returnsRows reports whether the statement produces a result set. DuckDB
// accepts FROM-first queries and SUMMARIZE alongside the usual forms.
func returnsRows(sqlText string) bool {
	fields := strings.Fields(sqlText)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA", "FROM", "VALUES", "SUMMARIZE", "TABLE", "CALL":
		return true
	default:
		return false
	}
}

// watchQueryFile runs the file once, then re-runs it on every change. The
// parent directory is watched because editors replace files on save.
func watchQueryFile(cmd *cobra.Command, c *CommandContext, r *output.Renderer, file string) error {
	ctx := cmd.Context()

	adp, done, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer done()

	store, closeStore := openHistory(c)
	defer closeStore()

	runFile := func() {
		content, err := os.ReadFile(file)
		if err != nil {
			r.Error(fmt.Sprintf("failed to read %s: %v", file, err))
			return
		}
		if err := runStatement(ctx, c, adp, store, r, string(content)); err != nil {
			r.Error(err.Error())
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(file)
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	base := filepath.Base(file)
	r.Printf("Watching %s (Ctrl+C to stop)\n\n", file)
	runFile()

	var debounce *time.Timer
	rerun := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rerun:
			r.Printf("\n%s changed at %s\n\n", file, time.Now().Format("15:04:05"))
			runFile()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				r.Error(fmt.Sprintf("watch error: %v", err))
			}
		}
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
