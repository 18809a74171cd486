// Package seed loads CSV fixtures into a target database. Every <table>.csv
// file in the seeds directory maps to one table; an optional seeds.yml
// manifest supplies column type overrides and a truncate flag.
package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/ddl"
	"github.com/mallardhq/mallard/pkg/dialect"
)

// Options control a seed run.
type Options struct {
	// Table restricts the run to a single table's fixture.
	Table string
	// Truncate clears existing rows before loading, regardless of the
	// manifest setting.
	Truncate bool
}

// Result reports one loaded fixture.
type Result struct {
	Table string
	Rows  int64
}

// Run loads every CSV fixture in dir, in filename order. Missing tables are
// created on demand: from manifest column overrides when present, otherwise
// by the adapter's own CSV schema inference. Returns the number of rows each
// load added.
func Run(ctx context.Context, adp adapter.Adapter, dir string, opts Options) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seeds directory: %w", err)
	}
	man, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		table := strings.TrimSuffix(entry.Name(), ".csv")
		if opts.Table != "" && table != opts.Table {
			continue
		}
		rows, err := seedTable(ctx, adp, man, dir, table, opts.Truncate || man.Truncate)
		if err != nil {
			return results, fmt.Errorf("failed to seed %s: %w", table, err)
		}
		results = append(results, Result{Table: table, Rows: rows})
	}

	if opts.Table != "" && len(results) == 0 {
		return nil, fmt.Errorf("no seed file for table %q", opts.Table)
	}
	return results, nil
}

func seedTable(ctx context.Context, adp adapter.Adapter, man *manifest, dir, table string, truncate bool) (int64, error) {
	path := filepath.Join(dir, table+".csv")

	exists, err := adp.TableExists(ctx, table)
	if err != nil {
		return 0, err
	}
	if spec := man.Tables[table]; !exists && len(spec.Columns) > 0 {
		if err := createTable(ctx, adp, table, path, spec.Columns); err != nil {
			return 0, err
		}
		exists = true
	}

	var before int64
	if exists {
		if truncate {
			if err := truncateTable(ctx, adp, table); err != nil {
				return 0, err
			}
		} else if before, err = countRows(ctx, adp, table); err != nil {
			return 0, err
		}
	}

	if err := adp.LoadCSV(ctx, table, path); err != nil {
		return 0, err
	}

	after, err := countRows(ctx, adp, table)
	if err != nil {
		return 0, err
	}
	return after - before, nil
}

// createTable builds the fixture table from manifest type overrides, with
// columns in CSV header order so positional loads line up. Header names must
// be valid identifiers in this mode.
func createTable(ctx context.Context, adp adapter.Adapter, table, path string, types map[string]string) error {
	header, err := readHeader(path)
	if err != nil {
		return err
	}

	d := adp.Dialect()
	defs := make([]ddl.ColumnDef, 0, len(header))
	for _, col := range header {
		native, err := resolveType(d, types[col])
		if err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
		defs = append(defs, ddl.ColumnDef{Name: col, Type: native})
	}

	schema, name := splitTable(table)
	stmt, err := ddl.NewBuilder(d).CreateTable(schema, name, defs, ddl.CreateTableOptions{})
	if err != nil {
		return err
	}
	if _, err := adp.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func truncateTable(ctx context.Context, adp adapter.Adapter, table string) error {
	schema, name := splitTable(table)
	stmt, err := ddl.NewBuilder(adp.Dialect()).Truncate(schema, name)
	if err != nil {
		return err
	}
	if _, err := adp.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to truncate: %w", err)
	}
	return nil
}

func countRows(ctx context.Context, adp adapter.Adapter, table string) (int64, error) {
	schema, name := splitTable(table)
	d := adp.Dialect()
	var n int64
	if err := adp.QueryRow(ctx, "SELECT COUNT(*) FROM "+d.QuoteQualified(schema, name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// readHeader returns the first record of a CSV file.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the seeds directory listing
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	return header, nil
}

// resolveType maps a portable type id to its native spelling; anything not
// in the type map passes through as a native type name. Columns without an
// override load as text.
func resolveType(d *dialect.Dialect, id string) (string, error) {
	if id == "" {
		id = dialect.TypeText
	}
	if _, ok := d.Types.ToNative[id]; ok {
		return d.Types.NativeType(id, dialect.TypeMods{})
	}
	return id, nil
}

// splitTable separates an optional schema qualifier; unqualified names stay
// in the connection's default schema.
func splitTable(table string) (schema, name string) {
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", table
}
