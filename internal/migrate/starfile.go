package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/mallardhq/mallard/pkg/ddl"
	"github.com/mallardhq/mallard/pkg/dialect"
)

// starMaxSteps bounds Starlark execution; migrations are declarative and
// should never need long computation.
const starMaxSteps = uint64(500_000)

// starMigration holds the callables a .star migration file defines.
type starMigration struct {
	up   starlark.Value
	down starlark.Value
}

// loadStarMigration executes a migration file and extracts its up/down
// functions. The file must define up(db); down(db) is optional.
func loadStarMigration(path string) (*starMigration, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from the migrations directory listing
	if err != nil {
		return nil, fmt.Errorf("failed to read migration file: %w", err)
	}

	thread := newStarThread("load:" + filepath.Base(path))
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, path, content, nil)
	if err != nil {
		return nil, fmt.Errorf("starlark error: %w", err)
	}

	up, ok := globals["up"]
	if !ok {
		return nil, fmt.Errorf("migration must define up(db)")
	}
	if _, ok := up.(starlark.Callable); !ok {
		return nil, fmt.Errorf("up must be a function, got %s", up.Type())
	}
	m := &starMigration{up: up}

	if down, ok := globals["down"]; ok {
		if _, ok := down.(starlark.Callable); !ok {
			return nil, fmt.Errorf("down must be a function, got %s", down.Type())
		}
		m.down = down
	}
	return m, nil
}

// call invokes one direction's function with the db module as its argument.
func (m *starMigration) call(direction string, db *dbModule) error {
	fn := m.up
	if direction == directionDown {
		fn = m.down
		if fn == nil {
			return fmt.Errorf("migration defines no down(db)")
		}
	}

	thread := newStarThread(direction)
	_, err := starlark.Call(thread, fn, starlark.Tuple{db.toStarlark()}, nil)
	if err != nil {
		return fmt.Errorf("starlark error: %w", err)
	}
	return nil
}

func newStarThread(name string) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, _ string) {
			// Migrations should not print.
		},
	}
	thread.SetMaxExecutionSteps(starMaxSteps)
	return thread
}

// dbModule is the "db" object passed to up(db)/down(db). Its methods render
// DDL through the dialect-aware builder and execute against the migration's
// statement executor, so Starlark migrations participate in the same
// transaction as SQL ones.
type dbModule struct {
	d       *dialect.Dialect
	builder *ddl.Builder
	exec    func(stmt string) error
}

func newDBModule(d *dialect.Dialect, exec func(stmt string) error) *dbModule {
	return &dbModule{d: d, builder: ddl.NewBuilder(d), exec: exec}
}

func (db *dbModule) toStarlark() starlark.Value {
	methods := starlark.StringDict{
		"create_table":  starlark.NewBuiltin("create_table", db.createTable),
		"drop_table":    starlark.NewBuiltin("drop_table", db.dropTable),
		"rename_table":  starlark.NewBuiltin("rename_table", db.renameTable),
		"add_column":    starlark.NewBuiltin("add_column", db.addColumn),
		"drop_column":   starlark.NewBuiltin("drop_column", db.dropColumn),
		"rename_column": starlark.NewBuiltin("rename_column", db.renameColumn),
		"add_index":     starlark.NewBuiltin("add_index", db.addIndex),
		"drop_index":    starlark.NewBuiltin("drop_index", db.dropIndex),
		"execute":       starlark.NewBuiltin("execute", db.execute),
	}
	return starlarkstruct.FromStringDict(starlark.String("db"), methods)
}

func (db *dbModule) createTable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name        string
		columns     *starlark.List
		primaryKey  starlark.Value
		ifNotExists bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "columns", &columns,
		"primary_key?", &primaryKey, "if_not_exists?", &ifNotExists); err != nil {
		return nil, err
	}

	defs := make([]ddl.ColumnDef, 0, columns.Len())
	for i := 0; i < columns.Len(); i++ {
		def, err := db.columnFromSpec(columns.Index(i))
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		defs = append(defs, def)
	}

	opts := ddl.CreateTableOptions{IfNotExists: ifNotExists}
	if primaryKey != nil && primaryKey != starlark.None {
		pk, err := stringOrStringList(primaryKey)
		if err != nil {
			return nil, fmt.Errorf("primary_key: %w", err)
		}
		opts.PrimaryKey = pk
	}

	stmt, err := db.builder.CreateTable("", name, defs, opts)
	if err != nil {
		return nil, err
	}
	return starlark.None, db.exec(stmt)
}

func (db *dbModule) dropTable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name     string
		ifExists bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "if_exists?", &ifExists); err != nil {
		return nil, err
	}
	stmt, err := db.builder.DropTable("", name, ifExists)
	if err != nil {
		return nil, err
	}
	return starlark.None, db.exec(stmt)
}

func (db *dbModule) renameTable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var oldName, newName string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "old", &oldName, "new", &newName); err != nil {
		return nil, err
	}
	stmt, err := db.builder.RenameTable("", oldName, newName)
	if err != nil {
		return nil, err
	}
	return starlark.None, db.exec(stmt)
}

func (db *dbModule) addColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		table  string
		column starlark.Value
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "table", &table, "column", &column); err != nil {
		return nil, err
	}
	def, err := db.columnFromSpec(column)
	if err != nil {
		return nil, err
	}
	stmt, err := db.builder.AddColumn("", table, def)
	if err != nil {
		return nil, err
	}
	return starlark.None, db.exec(stmt)
}

func (db *dbModule) dropColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var table, name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "table", &table, "name", &name); err != nil {
		return nil, err
	}
	stmt, err := db.builder.DropColumn("", table, name)
	if err != nil {
		return nil, err
	}
	return starlark.None, db.exec(stmt)
}

func (db *dbModule) renameColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var table, oldName, newName string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"table", &table, "old", &oldName, "new", &newName); err != nil {
		return nil, err
	}
	stmt, err := db.builder.RenameColumn("", table, oldName, newName)
	if err != nil {
		return nil, err
	}
	return starlark.None, db.exec(stmt)
}

func (db *dbModule) addIndex(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		table       string
		columns     starlark.Value
		name        string
		unique      bool
		ifNotExists bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"table", &table, "columns", &columns,
		"name?", &name, "unique?", &unique, "if_not_exists?", &ifNotExists); err != nil {
		return nil, err
	}

	cols, err := stringOrStringList(columns)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	if name == "" {
		name = db.builder.DefaultIndexName(table, cols)
	}

	stmt, err := db.builder.CreateIndex(name, "", table, cols, unique, ifNotExists)
	if err != nil {
		return nil, err
	}
	return starlark.None, db.exec(stmt)
}

func (db *dbModule) dropIndex(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name     string
		ifExists bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "if_exists?", &ifExists); err != nil {
		return nil, err
	}
	stmt, err := db.builder.DropIndex("", name, ifExists)
	if err != nil {
		return nil, err
	}
	return starlark.None, db.exec(stmt)
}

func (db *dbModule) execute(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var sqlStr string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "sql", &sqlStr); err != nil {
		return nil, err
	}
	return starlark.None, db.exec(sqlStr)
}

// columnFromSpec converts a column spec dict into a ddl.ColumnDef. Generic
// type names go through the dialect type map; unknown names pass through as
// native types.
func (db *dbModule) columnFromSpec(v starlark.Value) (ddl.ColumnDef, error) {
	spec, ok := v.(starlark.IterableMapping)
	if !ok {
		return ddl.ColumnDef{}, fmt.Errorf("column spec must be a dict, got %s", v.Type())
	}

	name, found, err := specString(spec, "name")
	if err != nil {
		return ddl.ColumnDef{}, err
	}
	if !found {
		return ddl.ColumnDef{}, fmt.Errorf("column spec requires a name")
	}

	typeName, found, err := specString(spec, "type")
	if err != nil {
		return ddl.ColumnDef{}, err
	}
	if !found {
		return ddl.ColumnDef{}, fmt.Errorf("column %q requires a type", name)
	}

	mods := dialect.TypeMods{}
	if mods.Limit, err = specInt(spec, "limit"); err != nil {
		return ddl.ColumnDef{}, err
	}
	if mods.Precision, err = specInt(spec, "precision"); err != nil {
		return ddl.ColumnDef{}, err
	}
	if mods.Scale, err = specInt(spec, "scale"); err != nil {
		return ddl.ColumnDef{}, err
	}

	native, err := db.resolveType(typeName, mods)
	if err != nil {
		return ddl.ColumnDef{}, fmt.Errorf("column %q: %w", name, err)
	}

	def := ddl.ColumnDef{Name: name, Type: native}

	if nullable, found, err := specBool(spec, "null"); err != nil {
		return ddl.ColumnDef{}, err
	} else if found && !nullable {
		def.NotNull = true
	}

	if pk, found, err := specBool(spec, "primary_key"); err != nil {
		return ddl.ColumnDef{}, err
	} else if found && pk {
		def.PrimaryKey = true
	}

	if raw, found, err := specValue(spec, "default"); err != nil {
		return ddl.ColumnDef{}, err
	} else if found {
		def.Default, err = db.defaultLiteral(raw)
		if err != nil {
			return ddl.ColumnDef{}, fmt.Errorf("column %q: %w", name, err)
		}
	}
	return def, nil
}

// resolveType maps a generic type id to its native spelling; anything not in
// the type map is treated as an already-native name.
func (db *dbModule) resolveType(typeName string, mods dialect.TypeMods) (string, error) {
	if _, ok := db.d.Types.ToNative[typeName]; ok {
		return db.d.Types.NativeType(typeName, mods)
	}
	return typeName, nil
}

// defaultLiteral renders a Starlark default value as a SQL literal.
func (db *dbModule) defaultLiteral(v starlark.Value) (string, error) {
	switch val := v.(type) {
	case starlark.String:
		return db.d.QuoteLiteral(string(val)), nil
	case starlark.Bool:
		return db.d.QuoteLiteral(bool(val)), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return "", fmt.Errorf("default integer out of range")
		}
		return db.d.QuoteLiteral(i), nil
	case starlark.Float:
		return db.d.QuoteLiteral(float64(val)), nil
	default:
		return "", fmt.Errorf("unsupported default type %s", v.Type())
	}
}

func specValue(spec starlark.IterableMapping, key string) (starlark.Value, bool, error) {
	v, found, err := spec.Get(starlark.String(key))
	if err != nil || !found || v == starlark.None {
		return nil, false, err
	}
	return v, true, nil
}

func specString(spec starlark.IterableMapping, key string) (string, bool, error) {
	v, found, err := specValue(spec, key)
	if err != nil || !found {
		return "", false, err
	}
	s, ok := starlark.AsString(v)
	if !ok {
		return "", false, fmt.Errorf("%q must be a string, got %s", key, v.Type())
	}
	return s, true, nil
}

func specBool(spec starlark.IterableMapping, key string) (bool, bool, error) {
	v, found, err := specValue(spec, key)
	if err != nil || !found {
		return false, false, err
	}
	b, ok := v.(starlark.Bool)
	if !ok {
		return false, false, fmt.Errorf("%q must be a bool, got %s", key, v.Type())
	}
	return bool(b), true, nil
}

func specInt(spec starlark.IterableMapping, key string) (int, error) {
	v, found, err := specValue(spec, key)
	if err != nil || !found {
		return 0, err
	}
	i, err := starlark.AsInt32(v)
	if err != nil {
		return 0, fmt.Errorf("%q must be an int: %w", key, err)
	}
	return i, nil
}

// stringOrStringList accepts a string or list of strings.
func stringOrStringList(v starlark.Value) ([]string, error) {
	if s, ok := starlark.AsString(v); ok {
		return []string{s}, nil
	}
	list, ok := v.(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("must be a string or list of strings, got %s", v.Type())
	}
	out := make([]string, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("element %d must be a string, got %s", i, list.Index(i).Type())
		}
		out = append(out, s)
	}
	return out, nil
}
