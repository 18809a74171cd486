package schema_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mallardhq/mallard/pkg/adapters/duckdb"
	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/schema"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "two statements",
			script: "CREATE TABLE a (id INTEGER);\nCREATE TABLE b (id INTEGER);",
			want:   []string{"CREATE TABLE a (id INTEGER)", "CREATE TABLE b (id INTEGER)"},
		},
		{
			name:   "semicolon inside string literal",
			script: "INSERT INTO t VALUES ('a;b');",
			want:   []string{"INSERT INTO t VALUES ('a;b')"},
		},
		{
			name:   "semicolon inside quoted identifier",
			script: `CREATE TABLE "a;b" (id INTEGER);`,
			want:   []string{`CREATE TABLE "a;b" (id INTEGER)`},
		},
		{
			name:   "doubled quote escape",
			script: "INSERT INTO t VALUES ('it''s; fine');",
			want:   []string{"INSERT INTO t VALUES ('it''s; fine')"},
		},
		{
			name:   "semicolon inside line comment",
			script: "-- drop; everything\nSELECT 1;",
			want:   []string{"-- drop; everything\nSELECT 1"},
		},
		{
			name:   "semicolon inside block comment",
			script: "/* one; two */ SELECT 1;",
			want:   []string{"/* one; two */ SELECT 1"},
		},
		{
			name:   "trailing comment only chunk dropped",
			script: "SELECT 1;\n-- done\n",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "no trailing semicolon",
			script: "SELECT 1",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "empty script",
			script: "  \n\t",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schema.SplitStatements(tt.script))
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	adp := duckdb.New(nil)
	require.NoError(t, adp.Connect(ctx, &core.TargetConfig{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })

	script := `
CREATE TABLE events (id INTEGER, note VARCHAR DEFAULT 'a;b');
INSERT INTO events VALUES (1, 'x');
`
	require.NoError(t, schema.Load(ctx, adp, script))

	var count int
	require.NoError(t, adp.QueryRow(ctx, "SELECT COUNT(*) FROM events").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLoad_StatementError(t *testing.T) {
	ctx := context.Background()
	adp := duckdb.New(nil)
	require.NoError(t, adp.Connect(ctx, &core.TargetConfig{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })

	err := schema.Load(ctx, adp, "CREATE TABLE ok (id INTEGER);\nSELECT * FROM no_such_table;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2 failed")
}
