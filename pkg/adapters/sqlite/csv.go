package sqlite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/ddl"
)

// csvBatchSize bounds the number of rows per INSERT statement. The
// effective batch shrinks for wide files so a statement never carries more
// than csvMaxVariables bound parameters.
const (
	csvBatchSize    = 500
	csvMaxVariables = 900
)

// LoadCSV loads a CSV file into a table. SQLite has no native CSV reader,
// so the file is parsed with encoding/csv and inserted in batches inside a
// single transaction. When the table does not exist it is created with all
// TEXT columns named after the header row.
func (a *Adapter) LoadCSV(ctx context.Context, table, path string) error {
	if !a.IsConnected() {
		return &adapter.NotConnectedError{}
	}

	_, name := adapter.ParseQualifiedName(table, a.dialect)
	if err := ddl.ValidateIdentifier(name, 0); err != nil {
		return fmt.Errorf("invalid table name: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // path comes from the caller's own filesystem
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	exists, err := a.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		if err := a.createTextTable(ctx, name, headers); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	tx, err := a.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rowsPerBatch := csvBatchSize
	if perRow := csvMaxVariables / len(headers); perRow < rowsPerBatch {
		rowsPerBatch = max(perRow, 1)
	}

	insertPrefix := a.insertPrefix(name, len(headers))

	batch := make([]any, 0, rowsPerBatch*len(headers))
	batchRows := 0
	flush := func() error {
		if batchRows == 0 {
			return nil
		}
		stmt := insertPrefix + strings.Repeat(", "+a.rowPlaceholder(len(headers)), batchRows-1)
		if _, err := tx.ExecContext(ctx, stmt, batch...); err != nil {
			return fmt.Errorf("failed to insert CSV batch: %w", err)
		}
		batch = batch[:0]
		batchRows = 0
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}
		if len(record) != len(headers) {
			return fmt.Errorf("CSV record has %d fields, header has %d", len(record), len(headers))
		}

		for _, field := range record {
			batch = append(batch, field)
		}
		batchRows++

		if batchRows >= rowsPerBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit CSV load: %w", err)
	}
	return nil
}

// createTextTable creates a table with a TEXT column per CSV header.
func (a *Adapter) createTextTable(ctx context.Context, name string, headers []string) error {
	columns := make([]ddl.ColumnDef, 0, len(headers))
	for _, h := range headers {
		columns = append(columns, ddl.ColumnDef{Name: sanitizeColumnName(h), Type: "TEXT"})
	}

	builder := ddl.NewBuilder(a.dialect)
	stmt, err := builder.CreateTable("", name, columns, ddl.CreateTableOptions{})
	if err != nil {
		return err
	}
	_, err = a.Exec(ctx, stmt)
	return err
}

func (a *Adapter) insertPrefix(name string, fields int) string {
	return fmt.Sprintf("INSERT INTO %s VALUES %s",
		a.dialect.QuoteIdent(name), a.rowPlaceholder(fields))
}

func (a *Adapter) rowPlaceholder(fields int) string {
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", fields), ", ") + ")"
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
