package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBuildDSN(t *testing.T) {
	assert.Equal(t,
		"file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		buildDSN(":memory:"))
	assert.Equal(t,
		"file:.mallard/state.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		buildDSN(".mallard/state.db"))
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Close())
	// Closing twice is harmless.
	require.NoError(t, store.Close())
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := openTestStore(t)

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"query_history", "migration_runs"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, table)
		require.NoError(t, rows.Close())
		require.NoError(t, rows.Err())
	}

	// Migrating an up-to-date store is a no-op.
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(nil)

	assert.Error(t, store.Migrate())
	assert.Error(t, store.RecordQuery(ctx, "dev", "SELECT 1", 0, 0, nil))
	_, err := store.ListQueryHistory(ctx, 10)
	assert.Error(t, err)
	assert.Error(t, store.RecordMigration(ctx, "dev", 1, "init", "up", 0, nil))
	_, err = store.ListMigrationRuns(ctx, "", 10)
	assert.Error(t, err)
	_, err = store.Prune(ctx, time.Now())
	assert.Error(t, err)
	_, err = store.SchemaVersion()
	assert.Error(t, err)
}

func TestSQLiteStore_QueryHistory(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.RecordQuery(ctx, "dev", "SELECT 1", 1, 5*time.Millisecond, nil))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.RecordQuery(ctx, "dev", "SELECT * FROM missing", 0, time.Millisecond, errors.New("table not found")))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.RecordQuery(ctx, "prod", "SELECT COUNT(*) FROM users", 1, 12*time.Millisecond, nil))

	records, err := store.ListQueryHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	newest := records[0]
	assert.Equal(t, "prod", newest.Target)
	assert.Equal(t, "SELECT COUNT(*) FROM users", newest.Query)
	assert.Equal(t, int64(1), newest.Rows)
	assert.Equal(t, 12*time.Millisecond, newest.Duration)
	assert.False(t, newest.Failed())
	assert.NotEmpty(t, newest.ID)
	assert.WithinDuration(t, time.Now(), newest.ExecutedAt, time.Minute)

	failed := records[1]
	assert.True(t, failed.Failed())
	assert.Equal(t, "table not found", failed.Error)

	limited, err := store.ListQueryHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, newest.ID, limited[0].ID)
}

func TestSQLiteStore_MigrationRuns(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.RecordMigration(ctx, "dev", 1, "create_users", "up", 3*time.Millisecond, nil))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.RecordMigration(ctx, "dev", 2, "add_orders", "up", time.Millisecond, errors.New("syntax error")))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.RecordMigration(ctx, "prod", 1, "create_users", "up", 4*time.Millisecond, nil))

	devRuns, err := store.ListMigrationRuns(ctx, "dev", 0)
	require.NoError(t, err)
	require.Len(t, devRuns, 2)
	assert.Equal(t, int64(2), devRuns[0].Version)
	assert.Equal(t, "add_orders", devRuns[0].Name)
	assert.Equal(t, "up", devRuns[0].Direction)
	assert.True(t, devRuns[0].Failed())
	assert.False(t, devRuns[1].Failed())

	all, err := store.ListMigrationRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "prod", all[0].Target)
}

func TestSQLiteStore_Prune(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.RecordQuery(ctx, "dev", "SELECT 1", 1, 0, nil))
	require.NoError(t, store.RecordMigration(ctx, "dev", 1, "init", "up", 0, nil))

	// Nothing is older than an hour ago.
	removed, err := store.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	removed, err = store.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	queries, err := store.ListQueryHistory(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, queries)
	runs, err := store.ListMigrationRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSQLiteStore_FilePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".mallard", "state.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.Migrate())
	require.NoError(t, store.RecordQuery(ctx, "dev", "SELECT 1", 1, 0, nil))
	assert.Equal(t, path, store.Path())
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	t.Cleanup(func() { _ = reopened.Close() })

	records, err := reopened.ListQueryHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SELECT 1", records[0].Query)
}

func TestMigrationRecorder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	rec := NewMigrationRecorder(store, "dev")
	require.NoError(t, rec.RecordMigration(ctx, 7, "add_widgets", "down", 9*time.Millisecond, nil))

	runs, err := store.ListMigrationRuns(ctx, "dev", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(7), runs[0].Version)
	assert.Equal(t, "add_widgets", runs[0].Name)
	assert.Equal(t, "down", runs[0].Direction)
}
