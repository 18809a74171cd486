package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/internal/state"
	"github.com/mallardhq/mallard/pkg/adapter"
)

const replPrompt = "mallard> "

// replSession carries the mutable REPL settings.
type replSession struct {
	cmd    *cobra.Command
	c      *CommandContext
	adp    adapter.Adapter
	store  *state.SQLiteStore
	format string
	timer  bool
}

func runQueryREPL(cmd *cobra.Command, c *CommandContext, opts *QueryOptions) error {
	ctx := cmd.Context()

	adp, done, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer done()

	store, closeStore := openHistory(c)
	defer closeStore()

	// History lives next to the state database.
	historyFile := filepath.Join(filepath.Dir(c.Cfg.StatePath), "history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newTableCompleter(ctx, adp),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	session := &replSession{
		cmd:    cmd,
		c:      c,
		adp:    adp,
		store:  store,
		format: opts.Format,
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mallard REPL (target: %s, adapter: %s)\n", c.Cfg.TargetName, c.Cfg.Target.Type)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Dot-commands apply only outside a multi-line statement.
		if buffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := session.handleDotCommand(ctx, line); quit {
				break
			}
			continue
		}

		buffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buffer.WriteString(" ")
			rl.SetPrompt("    ...> ")
			continue
		}
		rl.SetPrompt(replPrompt)

		sqlText := buffer.String()
		buffer.Reset()
		session.execute(ctx, sqlText)
	}

	return nil
}

func (s *replSession) execute(ctx context.Context, sqlText string) {
	r := rendererForFormat(s.cmd, s.c, s.format)
	start := time.Now()
	if err := runStatement(ctx, s.c, s.adp, s.store, r, sqlText); err != nil {
		_, _ = fmt.Fprintf(s.cmd.ErrOrStderr(), "Error: %v\n", err)
	} else if s.timer {
		_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), "Time: %s\n", time.Since(start).Round(time.Millisecond))
	}
	_, _ = fmt.Fprintln(s.cmd.OutOrStdout())
}

// handleDotCommand runs one dot-command and reports whether to quit.
func (s *replSession) handleDotCommand(ctx context.Context, line string) bool {
	out := s.cmd.OutOrStdout()
	errOut := s.cmd.ErrOrStderr()
	r := rendererForFormat(s.cmd, s.c, s.format)
	parts := strings.Fields(line)

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(out)

	case ".tables":
		if err := renderTableList(ctx, s.adp, r); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".schema":
		var err error
		if len(parts) < 2 {
			err = renderTableList(ctx, s.adp, r)
		} else {
			err = renderTableDetail(ctx, s.adp, r, parts[1])
		}
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".indexes":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .indexes <table>")
			break
		}
		if err := renderIndexes(ctx, s.adp, r, parts[1]); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".format":
		if len(parts) < 2 {
			current := s.format
			if current == "" {
				current = "table"
			}
			_, _ = fmt.Fprintf(out, "Format: %s\n", current)
			break
		}
		switch strings.ToLower(parts[1]) {
		case "table", "json", "csv", "md", "markdown":
			s.format = strings.ToLower(parts[1])
		default:
			_, _ = fmt.Fprintf(errOut, "Unknown format: %s (table, json, csv, md)\n", parts[1])
		}

	case ".timer":
		s.timer = !s.timer
		if s.timer {
			_, _ = fmt.Fprintln(out, "Timer on")
		} else {
			_, _ = fmt.Fprintln(out, "Timer off")
		}

	case ".clear":
		_, _ = fmt.Fprint(out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .tables          List tables and views
  .schema [table]  Show columns for a table, or list everything
  .indexes <table> Show indexes for a table
  .format [mode]   Show or set the output format (table, json, csv, md)
  .timer           Toggle statement timing
  .clear           Clear the screen
  .quit / .exit    Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newTableCompleter builds a readline completer over table and view names.
func newTableCompleter(ctx context.Context, adp adapter.Adapter) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	if tables, err := adp.Tables(ctx); err == nil {
		views, _ := adp.Views(ctx)
		for _, rel := range append(tables, views...) {
			items = append(items, readline.PcItem(rel.Name))
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".indexes"),
		readline.PcItem(".format"),
		readline.PcItem(".timer"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
