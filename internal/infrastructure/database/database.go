// Package database opens the shared *sql.DB handle and applies the embedded
// goose migrations. Postgres is reached through pgx (driver "pgx") or lib/pq
// (driver "postgres"); sqlite3 is meant for local runs and tests.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

const sqliteDriver = "sqlite3"

// Open opens a connection pool for driver and verifies it with a ping.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver == sqliteDriver && !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == sqliteDriver {
		// a single writer avoids "database is locked" under concurrent requests
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies every pending migration for driver's dialect and returns
// the resulting schema version.
func Migrate(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	dialect, dir := "postgres", "migrations/postgres"
	if driver == sqliteDriver {
		dialect, dir = "sqlite3", "migrations/sqlite3"
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("migrate: read version: %w", err)
	}
	return version, nil
}
