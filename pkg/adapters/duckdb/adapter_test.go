package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/ddl"
)

func mustExec(t *testing.T, ctx context.Context, adp *Adapter, sqlStr string) {
	t.Helper()
	_, err := adp.Exec(ctx, sqlStr)
	require.NoError(t, err)
}

func openMemory(t *testing.T, ctx context.Context) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, &core.TargetConfig{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				tmpDir := t.TempDir()
				return filepath.Join(tmpDir, "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, &core.TargetConfig{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{
			name: "exec without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Exec(ctx, "SELECT 1")
				return err
			},
		},
		{
			name: "query without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Query(ctx, "SELECT 1")
				return err
			},
		},
		{
			name: "table exists without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.TableExists(ctx, "users")
				return err
			},
		},
		{
			name: "load csv without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				return adp.LoadCSV(ctx, "users", "users.csv")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			err := tt.operation(ctx, adp)
			require.Error(t, err, "expected error when operating without connection")

			var notConnected *adapter.NotConnectedError
			assert.ErrorAs(t, err, &notConnected)
		})
	}
}

func TestAdapter_QueryExecution(t *testing.T) {
	ctx := context.Background()
	adp := openMemory(t, ctx)

	mustExec(t, ctx, adp, `
		CREATE TABLE test_table (
			id INTEGER PRIMARY KEY,
			name VARCHAR,
			value DOUBLE
		)
	`)
	mustExec(t, ctx, adp, `
		INSERT INTO test_table VALUES
			(1, 'alice', 100.5),
			(2, 'bob', 200.75),
			(3, 'charlie', 300.25)
	`)

	rows, err := adp.Query(ctx, `SELECT COUNT(*) FROM test_table`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var count int
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&count))
	assert.Equal(t, 3, count)
}

func TestAdapter_InsertReturning(t *testing.T) {
	ctx := context.Background()
	adp := openMemory(t, ctx)

	require.NoError(t, adp.CreateTableWithPrimaryKey(ctx, "users", []ddl.ColumnDef{
		{Name: "id", Type: "BIGINT"},
		{Name: "name", Type: "VARCHAR", NotNull: true},
	}, "id"))

	first, err := adp.InsertReturning(ctx, "INSERT INTO users (name) VALUES (?)", "id", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)

	second, err := adp.InsertReturning(ctx, "INSERT INTO users (name) VALUES (?)", "id", "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 2, second)
}

func TestAdapter_DropTableRemovesSequence(t *testing.T) {
	ctx := context.Background()
	adp := openMemory(t, ctx)

	require.NoError(t, adp.CreateTableWithPrimaryKey(ctx, "events", []ddl.ColumnDef{
		{Name: "id", Type: "BIGINT"},
		{Name: "payload", Type: "VARCHAR"},
	}, "id"))

	var seqCount int
	row := adp.QueryRow(ctx, "SELECT COUNT(*) FROM duckdb_sequences() WHERE sequence_name = 'events_id_seq'")
	require.NoError(t, row.Scan(&seqCount))
	require.Equal(t, 1, seqCount, "sequence should exist after create")

	require.NoError(t, adp.DropTable(ctx, "events", false))

	row = adp.QueryRow(ctx, "SELECT COUNT(*) FROM duckdb_sequences() WHERE sequence_name = 'events_id_seq'")
	require.NoError(t, row.Scan(&seqCount))
	assert.Equal(t, 0, seqCount, "sequence should be dropped with the table")
}

func TestAdapter_DatabaseLifecycle(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	tmpDir := t.TempDir()
	cfg := &core.TargetConfig{Type: "duckdb", Path: filepath.Join(tmpDir, "nested", "lifecycle.duckdb")}

	exists, err := adp.DatabaseExists(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, exists, "database should not exist before create")

	require.NoError(t, adp.CreateDatabase(ctx, cfg))

	exists, err = adp.DatabaseExists(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, exists, "database should exist after create")

	require.NoError(t, adp.DropDatabase(ctx, cfg))

	exists, err = adp.DatabaseExists(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, exists, "database should not exist after drop")
}

func TestAdapter_DatabaseLifecycle_InMemory(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	cfg := &core.TargetConfig{Type: "duckdb", Path: ":memory:"}

	exists, err := adp.DatabaseExists(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, exists, "in-memory databases always exist")

	assert.NoError(t, adp.CreateDatabase(ctx, cfg))
	assert.NoError(t, adp.DropDatabase(ctx, cfg))
}

func TestAdapter_LoadCSV(t *testing.T) {
	ctx := context.Background()
	adp := openMemory(t, ctx)

	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "test_data.csv")

	csvContent := `id,name,value
1,alice,100.5
2,bob,200.75
3,charlie,300.25`

	require.NoError(t, os.WriteFile(csvPath, []byte(csvContent), 0600))

	// First load creates the table with the inferred schema.
	require.NoError(t, adp.LoadCSV(ctx, "test_data", csvPath))

	rows, err := adp.Query(ctx, "SELECT COUNT(*) FROM test_data")
	require.NoError(t, err)
	var count int
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&count))
	require.NoError(t, rows.Close())
	assert.Equal(t, 3, count)

	// Second load appends.
	require.NoError(t, adp.LoadCSV(ctx, "test_data", csvPath))

	rows, err = adp.Query(ctx, "SELECT COUNT(*) FROM test_data")
	require.NoError(t, err)
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&count))
	require.NoError(t, rows.Close())
	assert.Equal(t, 6, count)
}

func TestAdapter_ExportCSV(t *testing.T) {
	ctx := context.Background()
	adp := openMemory(t, ctx)

	mustExec(t, ctx, adp, `CREATE TABLE exports (id INTEGER, label VARCHAR)`)
	mustExec(t, ctx, adp, `INSERT INTO exports VALUES (1, 'one'), (2, 'two')`)

	outPath := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, adp.ExportCSV(ctx, "exports", outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id,label")
	assert.Contains(t, string(data), "1,one")
}
