package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mallardhq/mallard/internal/cli/output"
	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/schema"
)

// SchemaOptions holds options for the schema command.
type SchemaOptions struct {
	Format string
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	opts := &SchemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema [table]",
		Short: "Inspect the target's schema",
		Long: `Inspect the selected target's schema.

Without arguments, lists tables and views. With a table name, shows its
columns, primary key, and indexes.`,
		Example: `  # List tables and views
  mallard schema

  # Show one table
  mallard schema events

  # Dump DDL for the whole database
  mallard schema dump --out db/structure.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			r := rendererForFormat(cmd, c, opts.Format)

			adp, done, err := c.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if len(args) == 0 {
				return renderTableList(cmd.Context(), adp, r)
			}
			return renderTableDetail(cmd.Context(), adp, r, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")

	cmd.AddCommand(newSchemaDumpCommand())
	cmd.AddCommand(newSchemaLoadCommand())

	return cmd
}

// renderTableList lists tables and views, tables first.
func renderTableList(ctx context.Context, adp adapter.Adapter, r *output.Renderer) error {
	tables, err := adp.Tables(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	views, err := adp.Views(ctx)
	if err != nil {
		return fmt.Errorf("failed to list views: %w", err)
	}

	relations := append(tables, views...)
	sort.Slice(relations, func(i, j int) bool {
		if relations[i].Kind != relations[j].Kind {
			return relations[i].Kind < relations[j].Kind
		}
		if relations[i].Schema != relations[j].Schema {
			return relations[i].Schema < relations[j].Schema
		}
		return relations[i].Name < relations[j].Name
	})

	rows := make([][]any, 0, len(relations))
	for _, rel := range relations {
		rows = append(rows, []any{rel.Schema, rel.Name, string(rel.Kind)})
	}
	return r.Table([]string{"schema", "name", "type"}, rows)
}

// renderTableDetail shows columns, primary key, and indexes for one table.
func renderTableDetail(ctx context.Context, adp adapter.Adapter, r *output.Renderer, table string) error {
	meta, err := adp.TableMetadata(ctx, table)
	if err != nil {
		return err
	}

	r.Header(fmt.Sprintf("Table: %s", table))
	if err := r.Table([]string{"column", "type", "nullable", "default", "pk"}, columnRows(meta.Columns)); err != nil {
		return err
	}

	if len(meta.Indexes) > 0 {
		r.Println("")
		r.Header("Indexes")
		rows := make([][]any, 0, len(meta.Indexes))
		for _, idx := range meta.Indexes {
			unique := ""
			if idx.Unique {
				unique = "unique"
			}
			rows = append(rows, []any{idx.Name, strings.Join(idx.Columns, ", "), unique})
		}
		if err := r.Table([]string{"name", "columns", "unique"}, rows); err != nil {
			return err
		}
	}

	r.Println("")
	r.StatusLine("Rows", fmt.Sprintf("%d", meta.RowCount))
	return nil
}

// renderIndexes shows the indexes on one table.
func renderIndexes(ctx context.Context, adp adapter.Adapter, r *output.Renderer, table string) error {
	indexes, err := adp.Indexes(ctx, table)
	if err != nil {
		return err
	}
	rows := make([][]any, 0, len(indexes))
	for _, idx := range indexes {
		unique := ""
		if idx.Unique {
			unique = "unique"
		}
		rows = append(rows, []any{idx.Name, strings.Join(idx.Columns, ", "), unique})
	}
	return r.Table([]string{"name", "columns", "unique"}, rows)
}

func columnRows(cols []core.Column) [][]any {
	rows := make([][]any, 0, len(cols))
	for _, col := range cols {
		nullable := "YES"
		if !col.Nullable {
			nullable = "NO"
		}
		def := ""
		if col.Default != nil {
			def = *col.Default
		}
		pk := ""
		if col.PrimaryKey {
			pk = "PK"
		}
		rows = append(rows, []any{col.Name, col.Type, nullable, def, pk})
	}
	return rows
}

func newSchemaDumpCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the database structure as DDL",
		Long: `Dump the target's structure (tables, primary keys, indexes) as a DDL
script suitable for "mallard schema load".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			adp, done, err := c.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			script, err := schema.Dump(cmd.Context(), adp)
			if err != nil {
				return fmt.Errorf("failed to dump schema: %w", err)
			}

			if out == "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), script)
				return nil
			}
			if err := os.WriteFile(out, []byte(script), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			c.Renderer.Success(fmt.Sprintf("Wrote structure to %s", out))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write DDL to a file instead of stdout")
	return cmd
}

func newSchemaLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Load a structure DDL script into the target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			adp, done, err := c.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if err := schema.Load(cmd.Context(), adp, string(content)); err != nil {
				return err
			}
			c.Renderer.Success(fmt.Sprintf("Loaded structure from %s", args[0]))
			return nil
		},
	}
}
