package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	duckadapter "github.com/mallardhq/mallard/pkg/adapters/duckdb"
	"github.com/mallardhq/mallard/pkg/core"
)

const createUsersSQL = `-- +mallard up
CREATE TABLE users (
    id INTEGER NOT NULL,
    email VARCHAR NOT NULL,
    PRIMARY KEY (id)
);
CREATE INDEX idx_users_email ON users (email);

-- +mallard down
DROP TABLE users;
`

const addProfilesStar = `def up(db):
    db.create_table(
        "profiles",
        columns = [
            {"name": "id", "type": "integer", "null": False},
            {"name": "user_id", "type": "integer"},
            {"name": "bio", "type": "text"},
        ],
        primary_key = "id",
    )

def down(db):
    db.drop_table("profiles")
`

const seedUsersSQL = `-- +mallard up
INSERT INTO users (id, email) VALUES (1, 'ada@example.com');
INSERT INTO users (id, email) VALUES (2, 'grace@example.com');

-- +mallard down
DELETE FROM users;
`

func openDuckDB(t *testing.T, ctx context.Context) *duckadapter.Adapter {
	t.Helper()
	adp := duckadapter.New(nil)
	require.NoError(t, adp.Connect(ctx, &core.TargetConfig{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeMigration(t, dir, "0001_create_users.sql", createUsersSQL)
	writeMigration(t, dir, "0002_add_profiles.star", addProfilesStar)
	writeMigration(t, dir, "0003_seed_users.sql", seedUsersSQL)
	return dir
}

func countRows(t *testing.T, ctx context.Context, adp *duckadapter.Adapter, table string) int {
	t.Helper()
	var n int
	require.NoError(t, adp.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestRunner_UpDownCycle(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	r := NewRunner(adp, fixtureDir(t))

	count, err := r.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	version, err := r.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	for _, table := range []string{"users", "profiles", VersionTable} {
		exists, err := adp.TableExists(ctx, table)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
	assert.Equal(t, 2, countRows(t, ctx, adp, "users"))

	// Already applied; nothing left to do.
	count, err = r.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, r.Down(ctx))
	version, err = r.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.Equal(t, 0, countRows(t, ctx, adp, "users"))

	reverted, err := r.DownTo(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, reverted)

	version, err = r.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	for _, table := range []string{"users", "profiles"} {
		exists, err := adp.TableExists(ctx, table)
		require.NoError(t, err)
		assert.False(t, exists, table)
	}
}

func TestRunner_UpTo(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	r := NewRunner(adp, fixtureDir(t))

	count, err := r.UpTo(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	version, err := r.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.Equal(t, 0, countRows(t, ctx, adp, "users"))

	count, err = r.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, countRows(t, ctx, adp, "users"))
}

func TestRunner_Redo(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	r := NewRunner(adp, fixtureDir(t))

	_, err := r.Up(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Redo(ctx))

	version, err := r.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
	assert.Equal(t, 2, countRows(t, ctx, adp, "users"))
}

func TestRunner_Status(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	r := NewRunner(adp, fixtureDir(t))

	statuses, err := r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	for _, s := range statuses {
		assert.False(t, s.Applied)
		assert.Empty(t, s.AppliedAt)
	}

	_, err = r.UpTo(ctx, 2)
	require.NoError(t, err)

	statuses, err = r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.Equal(t, "create_users", statuses[0].Label)
	assert.Equal(t, FormatSQL, statuses[0].Format)
	assert.True(t, statuses[0].Applied)
	assert.NotEmpty(t, statuses[0].AppliedAt)

	assert.Equal(t, "add_profiles", statuses[1].Label)
	assert.Equal(t, FormatStarlark, statuses[1].Format)
	assert.True(t, statuses[1].Applied)

	assert.Equal(t, "seed_users", statuses[2].Label)
	assert.False(t, statuses[2].Applied)
}

func TestRunner_Status_MissingFile(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	dir := t.TempDir()
	writeMigration(t, dir, "0001_create_users.sql", createUsersSQL)
	r := NewRunner(adp, dir)

	_, err := r.Up(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "0001_create_users.sql")))

	statuses, err := r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, int64(1), statuses[0].Version)
	assert.True(t, statuses[0].Applied)
	assert.True(t, statuses[0].Missing)

	err = r.Down(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration file for version 1 not found")
}

func TestRunner_Down_NothingApplied(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	r := NewRunner(adp, fixtureDir(t))

	err := r.Down(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no migrations applied")
}

func TestRunner_Down_NoDownSection(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	dir := t.TempDir()
	writeMigration(t, dir, "0001_create_users.sql", "-- +mallard up\nCREATE TABLE users (id INTEGER);\n")
	r := NewRunner(adp, dir)

	_, err := r.Up(ctx)
	require.NoError(t, err)

	err = r.Down(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no down section")
}

func TestRunner_FailedMigrationRollsBack(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	dir := t.TempDir()
	writeMigration(t, dir, "0001_create_users.sql", createUsersSQL)
	writeMigration(t, dir, "0002_bad_insert.sql", `-- +mallard up
CREATE TABLE gadgets (id INTEGER);
INSERT INTO no_such_table (id) VALUES (1);

-- +mallard down
DROP TABLE gadgets;
`)
	r := NewRunner(adp, dir)

	count, err := r.Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0002_bad_insert.sql up failed")
	assert.Equal(t, 1, count)

	// The failed migration's earlier statements were rolled back with it.
	exists, err := adp.TableExists(ctx, "gadgets")
	require.NoError(t, err)
	assert.False(t, exists)

	version, err := r.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

type runRecord struct {
	version   int64
	name      string
	direction string
	failed    bool
}

type recordingSink struct {
	records []runRecord
}

func (s *recordingSink) RecordMigration(_ context.Context, version int64, name, direction string, duration time.Duration, runErr error) error {
	if duration < 0 {
		panic("negative duration")
	}
	s.records = append(s.records, runRecord{
		version:   version,
		name:      name,
		direction: direction,
		failed:    runErr != nil,
	})
	return nil
}

func TestRunner_Recorder(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	sink := &recordingSink{}
	r := NewRunner(adp, fixtureDir(t), WithRecorder(sink))

	_, err := r.Up(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Down(ctx))

	require.Len(t, sink.records, 4)
	assert.Equal(t, runRecord{version: 1, name: "create_users", direction: "up"}, sink.records[0])
	assert.Equal(t, runRecord{version: 2, name: "add_profiles", direction: "up"}, sink.records[1])
	assert.Equal(t, runRecord{version: 3, name: "seed_users", direction: "up"}, sink.records[2])
	assert.Equal(t, runRecord{version: 3, name: "seed_users", direction: "down"}, sink.records[3])
}

func TestRunner_Create(t *testing.T) {
	dir := t.TempDir()
	adp := duckadapter.New(nil)
	r := NewRunner(adp, dir)

	path, err := r.Create("add widgets", FormatSQL)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0001_add_widgets.sql"), path)
}

func TestRunner_StarMigrationTypes(t *testing.T) {
	ctx := context.Background()
	adp := openDuckDB(t, ctx)
	dir := t.TempDir()
	writeMigration(t, dir, "0001_add_profiles.star", addProfilesStar)
	r := NewRunner(adp, dir)

	_, err := r.Up(ctx)
	require.NoError(t, err)

	cols, err := adp.Columns(ctx, "profiles")
	require.NoError(t, err)
	require.Len(t, cols, 3)

	byName := map[string]string{}
	for _, col := range cols {
		byName[col.Name] = col.GenericType
	}
	assert.Equal(t, "integer", byName["id"])
	assert.Equal(t, "integer", byName["user_id"])
	assert.Equal(t, "string", byName["bio"])
}
