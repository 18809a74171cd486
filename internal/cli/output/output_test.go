package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferRenderer(mode Mode) (*Renderer, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return NewRenderer(buf, new(bytes.Buffer), mode), buf
}

func sampleResult() *Result {
	return &Result{
		Columns: []string{"id", "email"},
		Rows: [][]any{
			{int64(1), "ada@example.com"},
			{int64(2), nil},
		},
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want Mode
	}{
		// Buffers are not terminals, so auto resolves to markdown.
		{ModeAuto, ModeMarkdown},
		{Mode(""), ModeMarkdown},
		{ModeText, ModeText},
		{ModeJSON, ModeJSON},
		{ModeCSV, ModeCSV},
	}
	for _, tt := range tests {
		r, _ := newBufferRenderer(tt.mode)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode %q", tt.mode)
		assert.False(t, r.IsTTY())
	}
}

func TestResult_Table(t *testing.T) {
	r, buf := newBufferRenderer(ModeText)
	require.NoError(t, r.Result(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
}

func TestResult_TableEmpty(t *testing.T) {
	r, buf := newBufferRenderer(ModeText)
	require.NoError(t, r.Result(&Result{Columns: []string{"id"}}))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestResult_Markdown(t *testing.T) {
	r, buf := newBufferRenderer(ModeMarkdown)
	require.NoError(t, r.Result(sampleResult()))

	want := "| id | email |\n" +
		"| --- | --- |\n" +
		"| 1 | ada@example.com |\n" +
		"| 2 | NULL |\n"
	assert.Equal(t, want, buf.String())
}

func TestResult_CSV(t *testing.T) {
	r, buf := newBufferRenderer(ModeCSV)
	res := &Result{
		Columns: []string{"id", "note"},
		Rows: [][]any{
			{int64(1), `plain`},
			{int64(2), `has,comma`},
			{int64(3), `has "quote"`},
		},
	}
	require.NoError(t, r.Result(res))

	want := "id,note\n" +
		"1,plain\n" +
		"2,\"has,comma\"\n" +
		"3,\"has \"\"quote\"\"\"\n"
	assert.Equal(t, want, buf.String())
}

func TestResult_JSON(t *testing.T) {
	r, buf := newBufferRenderer(ModeJSON)
	require.NoError(t, r.Result(sampleResult()))

	var records []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "ada@example.com", records[0]["email"])
	assert.Equal(t, float64(1), records[0]["id"])
	assert.Nil(t, records[1]["email"])
}

func TestCollectRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("ada")).
			AddRow(int64(2), nil))

	rows, err := db.Query("SELECT id, name FROM users")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	res, err := CollectRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	require.Len(t, res.Rows, 2)
	// Byte slices arrive as strings.
	assert.Equal(t, "ada", res.Rows[0][1])
	assert.Nil(t, res.Rows[1][1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{int64(42), "42"},
		{3.14, "3.14"},
		{true, "true"},
		{"text", "text"},
		{ts, "2024-03-01T12:30:00Z"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Tables", FormatHeader(1, "Tables"))
	assert.Equal(t, "## users", FormatHeader(2, "users"))
	assert.Equal(t, "# x", FormatHeader(0, "x"))
	assert.Equal(t, "Adapter: duckdb", FormatKeyValue("Adapter", "duckdb"))
	assert.Equal(t, "```sql\nSELECT 1\n```", FormatCodeBlock("sql", "SELECT 1\n"))
}

func TestStylesPlainWithoutTTY(t *testing.T) {
	styles := NewStyles(false)
	// Ascii profile drops all escape sequences.
	assert.Equal(t, "users", styles.Bold.Render("users"))
	assert.Equal(t, "warn", styles.Warning.Render("warn"))
}

func TestMessageHelpers(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		r, buf := newBufferRenderer(ModeMarkdown)
		r.Header("Targets")
		r.Warning("no seeds directory")
		r.StatusLine("Adapter", "duckdb")
		out := buf.String()
		assert.Contains(t, out, "# Targets")
		assert.Contains(t, out, "Warning: no seeds directory")
		assert.Contains(t, out, "- **Adapter**: duckdb")
	})

	t.Run("text", func(t *testing.T) {
		r, buf := newBufferRenderer(ModeText)
		r.Header("Targets")
		r.Success("created")
		r.StatusLine("Adapter", "duckdb")
		out := buf.String()
		// No terminal, so styles degrade to plain text.
		assert.Contains(t, out, "Targets\n")
		assert.Contains(t, out, "created\n")
		assert.Contains(t, out, "Adapter: duckdb\n")
	})

	t.Run("error goes to stderr", func(t *testing.T) {
		outBuf := new(bytes.Buffer)
		errBuf := new(bytes.Buffer)
		r := NewRenderer(outBuf, errBuf, ModeText)
		r.Error("boom")
		assert.Empty(t, outBuf.String())
		assert.Equal(t, "boom\n", errBuf.String())
	})
}

func TestTable(t *testing.T) {
	r, buf := newBufferRenderer(ModeMarkdown)
	require.NoError(t, r.Table([]string{"name", "type"}, [][]any{{"users", "table"}}))
	assert.Contains(t, buf.String(), "| users | table |")
}

func TestPrintHelpers(t *testing.T) {
	r, buf := newBufferRenderer(ModeText)
	r.Println("hello")
	r.Printf("%d rows\n", 3)
	assert.Equal(t, "hello\n3 rows\n", buf.String())

	require.NoError(t, r.JSON(map[string]string{"status": "ok"}))
	assert.Contains(t, buf.String(), "\"status\": \"ok\"")
}
