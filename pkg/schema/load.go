package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/mallardhq/mallard/pkg/adapter"
)

// Load executes a structure script statement by statement. Statements are
// split on top-level semicolons; semicolons inside string literals, quoted
// identifiers, and comments do not terminate a statement.
func Load(ctx context.Context, adp adapter.Adapter, script string) error {
	for i, stmt := range SplitStatements(script) {
		if _, err := adp.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d failed: %w", i+1, err)
		}
	}
	return nil
}

// SplitStatements splits a SQL script into individual statements. Chunks
// containing only whitespace and comments are dropped; comments attached to
// a real statement are kept with it.
func SplitStatements(script string) []string {
	var (
		stmts      []string
		cur        strings.Builder
		hasContent bool
	)

	flush := func() {
		stmt := strings.TrimSpace(cur.String())
		cur.Reset()
		if hasContent && stmt != "" {
			stmts = append(stmts, stmt)
		}
		hasContent = false
	}

	i, n := 0, len(script)
	for i < n {
		c := script[i]
		switch {
		case c == '\'' || c == '"':
			j := skipQuoted(script, i, c)
			cur.WriteString(script[i:j])
			hasContent = true
			i = j
		case c == '-' && i+1 < n && script[i+1] == '-':
			j := strings.IndexByte(script[i:], '\n')
			if j < 0 {
				j = n - i
			}
			cur.WriteString(script[i : i+j])
			i += j
		case c == '/' && i+1 < n && script[i+1] == '*':
			j := strings.Index(script[i+2:], "*/")
			if j < 0 {
				cur.WriteString(script[i:])
				i = n
				break
			}
			end := i + 2 + j + 2
			cur.WriteString(script[i:end])
			i = end
		case c == ';':
			flush()
			i++
		default:
			if !isSpace(c) {
				hasContent = true
			}
			cur.WriteByte(c)
			i++
		}
	}
	flush()
	return stmts
}

// skipQuoted advances past a quoted region starting at i, honoring doubled
// quote escapes. Returns the index just past the closing quote, or len(s)
// when the literal is unterminated.
func skipQuoted(s string, i int, quote byte) int {
	j := i + 1
	for j < len(s) {
		if s[j] == quote {
			if j+1 < len(s) && s[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return len(s)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
