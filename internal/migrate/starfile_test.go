package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	duckdialect "github.com/mallardhq/mallard/pkg/dialects/duckdb"
)

// runStar loads a Starlark migration from source and runs one direction,
// collecting the SQL statements it would execute.
func runStar(t *testing.T, source, direction string) ([]string, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "0001_test.star")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	star, err := loadStarMigration(path)
	require.NoError(t, err)

	var stmts []string
	db := newDBModule(duckdialect.DuckDB, func(stmt string) error {
		stmts = append(stmts, stmt)
		return nil
	})
	return stmts, star.call(direction, db)
}

func TestStarMigration_DSL(t *testing.T) {
	source := `
def up(db):
    db.create_table(
        "widgets",
        columns = [
            {"name": "id", "type": "integer"},
            {"name": "label", "type": "string", "limit": 40, "null": False},
            {"name": "price", "type": "decimal", "precision": 10, "scale": 2, "default": 0},
            {"name": "note", "type": "VARCHAR", "default": "n/a"},
        ],
        primary_key = "id",
    )
    db.add_index("widgets", ["label"], unique = True)
    db.add_column("widgets", {"name": "active", "type": "boolean", "default": True})
    db.rename_column("widgets", old = "note", new = "remark")
    db.drop_column("widgets", "remark")
    db.rename_table("widgets", "gadgets")
    db.execute("DELETE FROM gadgets")
    db.drop_index("idx_widgets_label", if_exists = True)
    db.drop_table("gadgets", if_exists = True)
`
	stmts, err := runStar(t, source, directionUp)
	require.NoError(t, err)

	want := []string{
		`CREATE TABLE "widgets" (` +
			`"id" INTEGER, ` +
			`"label" VARCHAR(40) NOT NULL, ` +
			`"price" DECIMAL(10,2) DEFAULT 0, ` +
			`"note" VARCHAR DEFAULT 'n/a', ` +
			`PRIMARY KEY ("id"))`,
		`CREATE UNIQUE INDEX "idx_widgets_label" ON "widgets" ("label")`,
		`ALTER TABLE "widgets" ADD COLUMN "active" BOOLEAN DEFAULT TRUE`,
		`ALTER TABLE "widgets" RENAME COLUMN "note" TO "remark"`,
		`ALTER TABLE "widgets" DROP COLUMN "remark"`,
		`ALTER TABLE "widgets" RENAME TO "gadgets"`,
		`DELETE FROM gadgets`,
		`DROP INDEX IF EXISTS "idx_widgets_label"`,
		`DROP TABLE IF EXISTS "gadgets"`,
	}
	assert.Equal(t, want, stmts)
}

func TestStarMigration_CompositePrimaryKey(t *testing.T) {
	source := `
def up(db):
    db.create_table(
        "order_items",
        columns = [
            {"name": "order_id", "type": "bigint", "null": False},
            {"name": "item_id", "type": "bigint", "null": False},
        ],
        primary_key = ["order_id", "item_id"],
        if_not_exists = True,
    )
`
	stmts, err := runStar(t, source, directionUp)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "order_items" (`+
		`"order_id" BIGINT NOT NULL, "item_id" BIGINT NOT NULL, `+
		`PRIMARY KEY ("order_id", "item_id"))`, stmts[0])
}

func TestStarMigration_DefaultIndexName(t *testing.T) {
	source := `
def up(db):
    db.add_index("users", ["email", "tenant_id"])
`
	stmts, err := runStar(t, source, directionUp)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, `CREATE INDEX "idx_users_email_tenant_id" ON "users" ("email", "tenant_id")`, stmts[0])
}

func TestStarMigration_MissingUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001_noop.star")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))

	_, err := loadStarMigration(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must define up(db)")
}

func TestStarMigration_UpNotCallable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001_bad.star")
	require.NoError(t, os.WriteFile(path, []byte("up = 42\n"), 0o644))

	_, err := loadStarMigration(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "up must be a function")
}

func TestStarMigration_NoDown(t *testing.T) {
	_, err := runStar(t, "def up(db):\n    pass\n", directionDown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defines no down(db)")
}

func TestStarMigration_SyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001_broken.star")
	require.NoError(t, os.WriteFile(path, []byte("def up(db)\n    pass\n"), 0o644))

	_, err := loadStarMigration(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starlark error")
}

func TestStarMigration_ColumnSpecErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr string
	}{
		{
			name: "column missing type",
			source: `
def up(db):
    db.create_table("t", columns = [{"name": "id"}])
`,
			wantErr: "requires a type",
		},
		{
			name: "column missing name",
			source: `
def up(db):
    db.create_table("t", columns = [{"type": "integer"}])
`,
			wantErr: "requires a name",
		},
		{
			name: "column spec not a dict",
			source: `
def up(db):
    db.create_table("t", columns = ["id integer"])
`,
			wantErr: "must be a dict",
		},
		{
			name: "unsupported default",
			source: `
def up(db):
    db.create_table("t", columns = [{"name": "id", "type": "integer", "default": [1]}])
`,
			wantErr: "unsupported default type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runStar(t, tt.source, directionUp)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
