// Package postgres provides the PostgreSQL database adapter.
//
// Unlike the embedded engines, PostgreSQL is a server: database lifecycle
// operations run over a maintenance connection to the "postgres" database,
// and bulk loading uses the COPY protocol instead of engine file functions.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/ddl"
	"github.com/mallardhq/mallard/pkg/dialect"
	pgdialect "github.com/mallardhq/mallard/pkg/dialects/postgres"
)

const (
	defaultHost = "localhost"
	defaultPort = 5432

	// maintenanceDatabase is always present on a PostgreSQL server and is
	// used for CREATE/DROP DATABASE, which cannot target the current database.
	maintenanceDatabase = "postgres"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
	dialect *dialect.Dialect
	builder *ddl.Builder
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
		dialect:        pgdialect.Postgres,
		builder:        ddl.NewBuilder(pgdialect.Postgres),
	}
}

// Dialect returns the PostgreSQL dialect configuration.
func (a *Adapter) Dialect() *dialect.Dialect {
	return a.dialect
}

// buildDSN assembles a key=value connection string from the target config.
// Host and port fall back to localhost:5432; sslmode defaults to disable and
// can be overridden through Options["sslmode"].
func buildDSN(cfg *core.TargetConfig) string {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok && mode != "" {
		sslMode = mode
	}

	parts := []string{
		"host=" + host,
		"port=" + strconv.Itoa(port),
		"dbname=" + cfg.Database,
		"sslmode=" + sslMode,
	}
	if cfg.User != "" {
		parts = append(parts, "user="+cfg.User)
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+cfg.Password)
	}
	return strings.Join(parts, " ")
}

// maintenanceDSN returns a DSN pointing at the server's maintenance database
// instead of the configured one.
func maintenanceDSN(cfg *core.TargetConfig) string {
	maint := *cfg
	maint.Database = maintenanceDatabase
	return buildDSN(&maint)
}

// Connect establishes a connection to the PostgreSQL server. When the target
// names a schema, the session search_path is set so unqualified names resolve
// there.
func (a *Adapter) Connect(ctx context.Context, cfg *core.TargetConfig) error {
	dsn := buildDSN(cfg)

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if cfg.Schema != "" {
		if err := ddl.ValidateIdentifier(cfg.Schema, 0); err != nil {
			_ = a.Close()
			a.DB = nil
			return fmt.Errorf("invalid schema name: %w", err)
		}
		stmt := fmt.Sprintf("SET search_path TO %s", a.dialect.QuoteIdent(cfg.Schema))
		if _, err := a.Exec(ctx, stmt); err != nil {
			_ = a.Close()
			a.DB = nil
			return err
		}
	}
	return nil
}

// InsertReturning executes an INSERT and returns the generated primary key
// value via a RETURNING clause.
func (a *Adapter) InsertReturning(ctx context.Context, sqlStr, pkColumn string, args ...any) (any, error) {
	return a.InsertReturningCommon(ctx, a.dialect, sqlStr, pkColumn, args...)
}

// withMaintenanceConn runs fn against a short-lived connection to the
// maintenance database. Lifecycle statements must not run on the target
// database itself.
func (a *Adapter) withMaintenanceConn(ctx context.Context, cfg *core.TargetConfig, fn func(db *sql.DB) error) error {
	db, err := sql.Open("pgx", maintenanceDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open maintenance connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres server: %w", err)
	}
	return fn(db)
}

// DatabaseExists reports whether the configured database exists on the server.
func (a *Adapter) DatabaseExists(ctx context.Context, cfg *core.TargetConfig) (bool, error) {
	var exists bool
	err := a.withMaintenanceConn(ctx, cfg, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.Database)
		return row.Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// CreateDatabase creates the configured database via the maintenance
// connection. CREATE DATABASE cannot run inside a transaction.
func (a *Adapter) CreateDatabase(ctx context.Context, cfg *core.TargetConfig) error {
	if err := ddl.ValidateIdentifier(cfg.Database, 0); err != nil {
		return fmt.Errorf("invalid database name: %w", err)
	}

	err := a.withMaintenanceConn(ctx, cfg, func(db *sql.DB) error {
		stmt := fmt.Sprintf("CREATE DATABASE %s", a.dialect.QuoteIdent(cfg.Database))
		_, err := db.ExecContext(ctx, stmt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.Database, err)
	}

	a.Logger.Info("created database", slog.String("database", cfg.Database))
	return nil
}

// DropDatabase drops the configured database via the maintenance connection.
// A missing database is not an error.
func (a *Adapter) DropDatabase(ctx context.Context, cfg *core.TargetConfig) error {
	if err := ddl.ValidateIdentifier(cfg.Database, 0); err != nil {
		return fmt.Errorf("invalid database name: %w", err)
	}

	err := a.withMaintenanceConn(ctx, cfg, func(db *sql.DB) error {
		stmt := fmt.Sprintf("DROP DATABASE IF EXISTS %s", a.dialect.QuoteIdent(cfg.Database))
		_, err := db.ExecContext(ctx, stmt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to drop database %s: %w", cfg.Database, err)
	}

	a.Logger.Info("dropped database", slog.String("database", cfg.Database))
	return nil
}

// targetSchema returns the schema introspection queries should scope to.
func (a *Adapter) targetSchema() string {
	if a.Cfg != nil && a.Cfg.Schema != "" {
		return a.Cfg.Schema
	}
	return a.dialect.DefaultSchema
}

// sortIndexes orders indexes by name for deterministic output.
func sortIndexes(indexes []core.Index) {
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
