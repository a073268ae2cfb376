// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store is the relational backend of the portfolio: connection
// setup, embedded goose migrations and hand-written row queries for the
// four content tables, users and the event log.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Dialect identifies the SQL backend.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect validates a driver name from configuration.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "sqlite", "sqlite3", "":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", s)
	}
}

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseDialect() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

func (d Dialect) migrationsDir() string {
	return "migrations/" + string(d)
}

// DB is a database handle that remembers its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
	clock   *clock
}

// DBConfig holds database configuration options.
type DBConfig struct {
	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of connections in the idle connection pool.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration
}

// DefaultDBConfig returns sensible pool defaults.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// sqlitePragmas tune SQLite for a single-process web server.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
	"PRAGMA busy_timeout=5000",  // Wait 5s when database is locked
	"PRAGMA synchronous=NORMAL", // Good balance of safety and speed
	"PRAGMA cache_size=-64000",  // 64MB cache
	"PRAGMA foreign_keys=ON",    // Enforce foreign key constraints
	"PRAGMA temp_store=MEMORY",  // Store temp tables in memory
}

// Open opens a database for the given dialect. For SQLite dsn is a file path,
// for PostgreSQL a connection URL.
func Open(dialect Dialect, dsn string) (*DB, error) {
	return OpenWithConfig(dialect, dsn, DefaultDBConfig())
}

// OpenWithConfig opens a database with a custom pool configuration.
func OpenWithConfig(dialect Dialect, dsn string, cfg DBConfig) (*DB, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if dialect == DialectSQLite {
		for _, pragma := range sqlitePragmas {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
			}
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{DB: db, Dialect: dialect, clock: &clock{}}, nil
}

// Migrate runs all pending database migrations for the handle's dialect.
func Migrate(db *DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(db.Dialect.gooseDialect()); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(db.DB, db.Dialect.migrationsDir()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
