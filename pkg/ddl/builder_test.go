package ddl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mallardhq/mallard/pkg/ddl"
	duckdialect "github.com/mallardhq/mallard/pkg/dialects/duckdb"
	sqlitedialect "github.com/mallardhq/mallard/pkg/dialects/sqlite"
)

func duckBuilder() *ddl.Builder {
	return ddl.NewBuilder(duckdialect.DuckDB)
}

func TestCreateTable(t *testing.T) {
	b := duckBuilder()

	tests := []struct {
		name    string
		schema  string
		table   string
		columns []ddl.ColumnDef
		opts    ddl.CreateTableOptions
		want    string
		wantErr string
	}{
		{
			name:   "simple",
			schema: "main",
			table:  "users",
			columns: []ddl.ColumnDef{
				{Name: "id", Type: "BIGINT", PrimaryKey: true},
				{Name: "email", Type: "VARCHAR", NotNull: true},
			},
			want: `CREATE TABLE "main"."users" ("id" BIGINT PRIMARY KEY, "email" VARCHAR NOT NULL)`,
		},
		{
			name:   "no schema",
			schema: "",
			table:  "events",
			columns: []ddl.ColumnDef{
				{Name: "payload", Type: "JSON"},
			},
			want: `CREATE TABLE "events" ("payload" JSON)`,
		},
		{
			name:   "if not exists with default",
			schema: "main",
			table:  "settings",
			columns: []ddl.ColumnDef{
				{Name: "enabled", Type: "BOOLEAN", Default: "TRUE"},
			},
			opts: ddl.CreateTableOptions{IfNotExists: true},
			want: `CREATE TABLE IF NOT EXISTS "main"."settings" ("enabled" BOOLEAN DEFAULT TRUE)`,
		},
		{
			name:   "temporary",
			schema: "",
			table:  "scratch",
			columns: []ddl.ColumnDef{
				{Name: "v", Type: "INTEGER"},
			},
			opts: ddl.CreateTableOptions{Temporary: true},
			want: `CREATE TEMPORARY TABLE "scratch" ("v" INTEGER)`,
		},
		{
			name:   "composite primary key",
			schema: "main",
			table:  "order_items",
			columns: []ddl.ColumnDef{
				{Name: "order_id", Type: "BIGINT"},
				{Name: "item_id", Type: "BIGINT"},
			},
			opts: ddl.CreateTableOptions{PrimaryKey: []string{"order_id", "item_id"}},
			want: `CREATE TABLE "main"."order_items" ("order_id" BIGINT, "item_id" BIGINT, PRIMARY KEY ("order_id", "item_id"))`,
		},
		{
			name:    "no columns",
			schema:  "main",
			table:   "empty",
			wantErr: "at least one column is required",
		},
		{
			name:   "bad table name",
			schema: "main",
			table:  "users; DROP TABLE users",
			columns: []ddl.ColumnDef{
				{Name: "id", Type: "BIGINT"},
			},
			wantErr: "invalid table name",
		},
		{
			name:   "bad column type",
			schema: "main",
			table:  "users",
			columns: []ddl.ColumnDef{
				{Name: "id", Type: "BIGINT; --"},
			},
			wantErr: "invalid column type",
		},
		{
			name:   "bad default",
			schema: "main",
			table:  "users",
			columns: []ddl.ColumnDef{
				{Name: "id", Type: "BIGINT", Default: "1; DROP TABLE users"},
			},
			wantErr: "invalid default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.CreateTable(tt.schema, tt.table, tt.columns, tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDropAndRenameTable(t *testing.T) {
	b := duckBuilder()

	got, err := b.DropTable("main", "users", false)
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE "main"."users"`, got)

	got, err = b.DropTable("", "users", true)
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "users"`, got)

	got, err = b.RenameTable("main", "users", "accounts")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "main"."users" RENAME TO "accounts"`, got)

	_, err = b.RenameTable("main", "users", "bad name")
	require.Error(t, err)
}

func TestAlterColumn(t *testing.T) {
	b := duckBuilder()

	got, err := b.AddColumn("main", "users", ddl.ColumnDef{Name: "age", Type: "INTEGER"})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "main"."users" ADD COLUMN "age" INTEGER`, got)

	got, err = b.DropColumn("main", "users", "age")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "main"."users" DROP COLUMN "age"`, got)

	got, err = b.RenameColumn("main", "users", "age", "years")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "main"."users" RENAME COLUMN "age" TO "years"`, got)

	got, err = b.AlterColumnType("main", "users", "age", "BIGINT")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "main"."users" ALTER COLUMN "age" SET DATA TYPE BIGINT`, got)

	got, err = b.AlterColumnSetDefault("main", "users", "age", "0")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "main"."users" ALTER COLUMN "age" SET DEFAULT 0`, got)

	got, err = b.AlterColumnDropDefault("main", "users", "age")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "main"."users" ALTER COLUMN "age" DROP DEFAULT`, got)

	got, err = b.AlterColumnNull("main", "users", "age", false)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "main"."users" ALTER COLUMN "age" SET NOT NULL`, got)

	got, err = b.AlterColumnNull("main", "users", "age", true)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "main"."users" ALTER COLUMN "age" DROP NOT NULL`, got)
}

func TestAlterColumnTypeUnsupported(t *testing.T) {
	b := ddl.NewBuilder(sqlitedialect.SQLite)

	_, err := b.AlterColumnType("", "users", "age", "BIGINT")
	require.Error(t, err)

	var unsupported *ddl.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "sqlite", unsupported.Dialect)
	assert.Contains(t, err.Error(), "does not support ALTER COLUMN TYPE")
}

func TestIndexes(t *testing.T) {
	b := duckBuilder()

	got, err := b.CreateIndex("idx_users_email", "main", "users", []string{"email"}, true, false)
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX "idx_users_email" ON "main"."users" ("email")`, got)

	got, err = b.CreateIndex("idx_users_name", "", "users", []string{"last_name", "first_name"}, false, true)
	require.NoError(t, err)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "idx_users_name" ON "users" ("last_name", "first_name")`, got)

	_, err = b.CreateIndex("idx", "main", "users", nil, false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one column")

	got, err = b.DropIndex("main", "idx_users_email", true)
	require.NoError(t, err)
	assert.Equal(t, `DROP INDEX IF EXISTS "main"."idx_users_email"`, got)

	// DuckDB has no ALTER INDEX RENAME.
	_, err = b.RenameIndex("main", "idx_users_email", "idx_accounts_email")
	var unsupported *ddl.UnsupportedError
	require.ErrorAs(t, err, &unsupported)

	assert.Equal(t, "idx_users_last_name_first_name", b.DefaultIndexName("users", []string{"last_name", "first_name"}))
}

func TestSequences(t *testing.T) {
	b := duckBuilder()

	got, err := b.CreateSequence("main", "users_id_seq", 1, true)
	require.NoError(t, err)
	assert.Equal(t, `CREATE SEQUENCE IF NOT EXISTS "main"."users_id_seq"`, got)

	got, err = b.CreateSequence("", "users_id_seq", 100, false)
	require.NoError(t, err)
	assert.Equal(t, `CREATE SEQUENCE "users_id_seq" START 100`, got)

	got, err = b.DropSequence("main", "users_id_seq", true)
	require.NoError(t, err)
	assert.Equal(t, `DROP SEQUENCE IF EXISTS "main"."users_id_seq"`, got)

	got, err = b.SequenceDefault("", "users_id_seq")
	require.NoError(t, err)
	assert.Equal(t, `nextval('"users_id_seq"')`, got)

	assert.Equal(t, "users_id_seq", b.DefaultSequenceName("users", "id"))

	// Sequences are unavailable on SQLite.
	sb := ddl.NewBuilder(sqlitedialect.SQLite)
	_, err = sb.CreateSequence("", "s", 1, false)
	var unsupported *ddl.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}

func TestViews(t *testing.T) {
	b := duckBuilder()

	got, err := b.CreateView("main", "active_users", "SELECT * FROM users WHERE active", true)
	require.NoError(t, err)
	assert.Equal(t, `CREATE OR REPLACE VIEW "main"."active_users" AS SELECT * FROM users WHERE active`, got)

	_, err = b.CreateView("main", "v", "   ", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "view body is required")

	got, err = b.DropView("main", "active_users", true)
	require.NoError(t, err)
	assert.Equal(t, `DROP VIEW IF EXISTS "main"."active_users"`, got)
}

func TestTruncateAndSchema(t *testing.T) {
	b := duckBuilder()

	got, err := b.Truncate("main", "users")
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "main"."users"`, got)

	got, err = b.CreateSchema("analytics", true)
	require.NoError(t, err)
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "analytics"`, got)

	got, err = b.DropSchema("analytics", true)
	require.NoError(t, err)
	assert.Equal(t, `DROP SCHEMA "analytics" CASCADE`, got)
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"valid", "users", ""},
		{"valid underscore", "_users_2", ""},
		{"empty", "", "name is required"},
		{"leading digit", "2users", "must match"},
		{"embedded quote", `us"ers`, "must match"},
		{"embedded space", "order items", "must match"},
		{"too long", string(make([]byte, 200)), "at most"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ddl.ValidateIdentifier(tt.in, 0)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateTypeName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"word", "INTEGER", false},
		{"lower word", "integer", false},
		{"two words", "DOUBLE PRECISION", false},
		{"precision", "VARCHAR(255)", false},
		{"precision and scale", "DECIMAL(10, 2)", false},
		{"array", "INTEGER[]", false},
		{"parameterized array", "DECIMAL(10,2)[]", false},
		{"empty", "", true},
		{"semicolon", "INTEGER;", true},
		{"comment", "INTEGER --", true},
		{"quote", "INTEGER'", true},
		{"stray paren", "INTEGER)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ddl.ValidateTypeName(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
