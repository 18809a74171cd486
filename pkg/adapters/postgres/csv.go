package postgres

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/ddl"
)

// LoadCSV loads a CSV file into a table using COPY FROM STDIN. When the table
// does not exist it is created with a TEXT column per header; otherwise rows
// are appended, matched to table columns by header name.
func (a *Adapter) LoadCSV(ctx context.Context, table, path string) error {
	if !a.IsConnected() {
		return &adapter.NotConnectedError{}
	}

	schema, name := a.resolveTable(table)
	if err := ddl.ValidateIdentifier(name, 0); err != nil {
		return fmt.Errorf("invalid table name: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // path comes from the operator running the load
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	headers, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	exists, err := a.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		if err := a.createTextTable(ctx, schema, name, headers); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// COPY consumes the whole file including the header line.
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to rewind CSV file: %w", err)
	}
	if err := a.copyFrom(ctx, schema, name, headers, file); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}
	return nil
}

// createTextTable creates a table with a TEXT column per CSV header.
func (a *Adapter) createTextTable(ctx context.Context, schema, name string, headers []string) error {
	columns := make([]ddl.ColumnDef, 0, len(headers))
	for _, h := range headers {
		columns = append(columns, ddl.ColumnDef{Name: sanitizeColumnName(h), Type: "TEXT"})
	}

	stmt, err := a.builder.CreateTable(schema, name, columns, ddl.CreateTableOptions{})
	if err != nil {
		return err
	}
	_, err = a.Exec(ctx, stmt)
	return err
}

// copyFrom streams the CSV through the COPY protocol on a raw pgx connection;
// database/sql has no COPY support.
func (a *Adapter) copyFrom(ctx context.Context, schema, name string, headers []string, file *os.File) error {
	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()

		cols := make([]string, 0, len(headers))
		for _, h := range headers {
			cols = append(cols, a.dialect.QuoteIdent(sanitizeColumnName(h)))
		}
		copySQL := fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true)",
			a.dialect.QuoteQualified(schema, name), strings.Join(cols, ", "))

		_, err := pgxConn.PgConn().CopyFrom(ctx, file, copySQL)
		return err
	})
}

// sanitizeColumnName makes a CSV header safe to use as a column name.
func sanitizeColumnName(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}
