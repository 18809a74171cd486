// Package schema dumps a database's structure to executable SQL and loads
// such dumps back. Dumps are deterministic: relations are ordered by schema
// and name so repeated dumps of the same database produce identical output.
package schema

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/ddl"
)

// metadataConcurrency bounds parallel table introspection during a dump.
const metadataConcurrency = 4

// nextvalRe extracts the sequence reference from a column default such as
// nextval('users_id_seq') or nextval('"main"."users_id_seq"'::regclass).
var nextvalRe = regexp.MustCompile(`(?i)\bnextval\('([^']+)'`)

// Dump introspects every table reachable through the adapter and renders a
// SQL script that recreates the structure: sequences referenced by column
// defaults, then tables, then secondary indexes.
func Dump(ctx context.Context, adp adapter.Adapter) (string, error) {
	d := adp.Dialect()

	tables, err := adp.Tables(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Schema != tables[j].Schema {
			return tables[i].Schema < tables[j].Schema
		}
		return tables[i].Name < tables[j].Name
	})

	metas := make([]*core.TableMetadata, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataConcurrency)
	for i, t := range tables {
		g.Go(func() error {
			meta, err := adp.TableMetadata(gctx, qualifiedName(t))
			if err != nil {
				return fmt.Errorf("failed to introspect table %s: %w", t.Name, err)
			}
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	builder := ddl.NewBuilder(d)
	var b strings.Builder
	fmt.Fprintf(&b, "-- Database structure (%s)\n", d.Name)
	b.WriteString("-- Auto-generated by mallard schema dump. Do not edit by hand.\n")

	for _, schemaName := range extraSchemas(d.DefaultSchema, tables) {
		stmt, err := builder.CreateSchema(schemaName, true)
		if err != nil {
			return "", err
		}
		b.WriteString("\n" + stmt + ";\n")
	}

	for _, meta := range metas {
		if err := writeTable(&b, builder, meta); err != nil {
			return "", fmt.Errorf("failed to render table %s: %w", meta.Name, err)
		}
	}
	return b.String(), nil
}

// qualifiedName renders a table reference for introspection calls.
func qualifiedName(t core.Table) string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// extraSchemas returns the sorted non-default schemas the dump must create.
func extraSchemas(defaultSchema string, tables []core.Table) []string {
	seen := make(map[string]bool)
	var schemas []string
	for _, t := range tables {
		if t.Schema == "" || t.Schema == defaultSchema || seen[t.Schema] {
			continue
		}
		seen[t.Schema] = true
		schemas = append(schemas, t.Schema)
	}
	sort.Strings(schemas)
	return schemas
}

func writeTable(b *strings.Builder, builder *ddl.Builder, meta *core.TableMetadata) error {
	emittedSeqs := make(map[string]bool)
	for _, col := range meta.Columns {
		seqSchema, seqName, ok := sequenceFromDefault(col.Default)
		if !ok || emittedSeqs[seqName] {
			continue
		}
		emittedSeqs[seqName] = true
		stmt, err := builder.CreateSequence(seqSchema, seqName, 1, false)
		if err != nil {
			return err
		}
		b.WriteString("\n" + stmt + ";\n")
	}

	cols := make([]ddl.ColumnDef, 0, len(meta.Columns))
	for _, col := range meta.Columns {
		def := ddl.ColumnDef{Name: col.Name, Type: col.Type, NotNull: !col.Nullable}
		if col.Default != nil {
			def.Default = *col.Default
		}
		cols = append(cols, def)
	}

	opts := ddl.CreateTableOptions{PrimaryKey: meta.PrimaryKey}
	stmt, err := builder.CreateTable(meta.Schema, meta.Name, cols, opts)
	if err != nil {
		return err
	}
	b.WriteString("\n" + stmt + ";\n")

	for _, idx := range meta.Indexes {
		stmt, err := builder.CreateIndex(idx.Name, meta.Schema, meta.Name, idx.Columns, idx.Unique, false)
		if err != nil {
			return err
		}
		b.WriteString(stmt + ";\n")
	}
	return nil
}

// sequenceFromDefault parses a nextval() column default into its sequence
// schema and name. Quoting and ::regclass casts are stripped.
func sequenceFromDefault(def *string) (schema, name string, ok bool) {
	if def == nil {
		return "", "", false
	}
	m := nextvalRe.FindStringSubmatch(*def)
	if m == nil {
		return "", "", false
	}
	ref := strings.ReplaceAll(m[1], `"`, "")
	if i := strings.LastIndex(ref, "."); i >= 0 {
		return ref[:i], ref[i+1:], true
	}
	return "", ref, true
}
