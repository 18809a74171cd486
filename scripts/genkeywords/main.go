// Package main regenerates the DuckDB reserved-word table in
// pkg/dialects/duckdb from a live engine, so the list tracks the linked
// DuckDB release instead of a hand-maintained copy.
//
// Usage:
//
//	go run ./scripts/genkeywords -out=pkg/dialects/duckdb/keywords.go
package main

import (
	"bytes"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"go/format"
	"log"
	"os"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

var outFlag = flag.String("out", "pkg/dialects/duckdb/keywords.go", "output file path")

func main() {
	flag.Parse()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		log.Fatalf("failed to open duckdb: %v", err)
	}

	ctx := context.Background()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		_ = db.Close()
		log.Fatalf("failed to get version: %v", err)
	}
	log.Printf("Connected to DuckDB %s", version)

	keywords, err := extractReservedKeywords(ctx, db)
	if err != nil {
		_ = db.Close()
		log.Fatalf("failed to extract keywords: %v", err)
	}
	log.Printf("Extracted %d reserved keywords", len(keywords))

	if err := db.Close(); err != nil {
		log.Printf("warning: failed to close db: %v", err)
	}

	code := generateCode(keywords)
	formatted, err := format.Source([]byte(code))
	if err != nil {
		log.Printf("Warning: failed to format generated code: %v", err)
		formatted = []byte(code)
	}

	if err := os.WriteFile(*outFlag, formatted, 0o644); err != nil {
		log.Fatalf("failed to write output: %v", err)
	}

	log.Printf("Generated %s", *outFlag)
}

func extractReservedKeywords(ctx context.Context, db *sql.DB) ([]string, error) {
	query := `
		SELECT keyword_name
		FROM duckdb_keywords()
		WHERE keyword_category = 'reserved'
		ORDER BY keyword_name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		keywords = append(keywords, strings.ToLower(kw))
	}

	return keywords, rows.Err()
}

func generateCode(keywords []string) string {
	var buf bytes.Buffer

	buf.WriteString("package duckdb\n\n")
	buf.WriteString("// duckDBKeywords are DuckDB's reserved words: identifiers matching these\n")
	buf.WriteString("// must be quoted. Taken from duckdb_keywords() where category = 'reserved'.\n")
	buf.WriteString("var duckDBKeywords = []string{\n")
	for _, kw := range keywords {
		fmt.Fprintf(&buf, "\t%q,\n", kw)
	}
	buf.WriteString("}\n")

	return buf.String()
}
