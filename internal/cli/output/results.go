package output

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Result is a fully collected tabular result set.
type Result struct {
	Columns []string
	Rows    [][]any
}

// CollectRows drains rows into a Result, closing nothing. Byte slices
// become strings for readability.
func CollectRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Result renders a result set in the effective mode.
func (r *Renderer) Result(res *Result) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(res.records())
	case ModeCSV:
		return r.resultCSV(res)
	case ModeMarkdown:
		return r.resultMarkdown(res)
	default:
		return r.resultTable(res)
	}
}

// records converts rows to column-keyed maps for JSON output.
func (res *Result) records() []map[string]any {
	records := make([]map[string]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		record := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			record[col] = row[i]
		}
		records = append(records, record)
	}
	return records
}

func (r *Renderer) resultTable(res *Result) error {
	if len(res.Rows) == 0 {
		r.Println("(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, values := range res.Rows {
		row := make(table.Row, len(res.Columns))
		for i := range res.Columns {
			row[i] = FormatValue(values[i])
		}
		t.AppendRow(row)
	}

	t.Render()
	r.Printf("(%d rows)\n", len(res.Rows))
	return nil
}

func (r *Renderer) resultCSV(res *Result) error {
	r.Println(strings.Join(res.Columns, ","))
	for _, values := range res.Rows {
		fields := make([]string, len(res.Columns))
		for i := range res.Columns {
			fields[i] = escapeCSV(FormatValue(values[i]))
		}
		r.Println(strings.Join(fields, ","))
	}
	return nil
}

func (r *Renderer) resultMarkdown(res *Result) error {
	if len(res.Rows) == 0 {
		r.Println("(0 rows)")
		return nil
	}

	r.Printf("| %s |\n", strings.Join(res.Columns, " | "))
	seps := make([]string, len(res.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	r.Printf("| %s |\n", strings.Join(seps, " | "))

	for _, values := range res.Rows {
		fields := make([]string, len(res.Columns))
		for i := range res.Columns {
			fields[i] = FormatValue(values[i])
		}
		r.Printf("| %s |\n", strings.Join(fields, " | "))
	}
	return nil
}

// FormatValue renders a scanned value for display. NULL stays literal so it
// is distinguishable from an empty string.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
