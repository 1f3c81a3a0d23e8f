// Package sqlite holds the embedded single-file store used for local
// deployments and tests.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Open connects to the database at path and applies migrations.
// Pass an empty path for a private in-memory database.
func Open(path string) (*sqlx.DB, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite doesn't support concurrent writes, and an in-memory database
	// lives only as long as its single connection.
	db.SetMaxOpenConns(1)

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite database: %w", err)
	}
	return db, nil
}

func migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			birthday DATETIME NOT NULL,
			login TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			phone TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			last_login DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			year INTEGER NOT NULL,
			license_plate TEXT UNIQUE NOT NULL,
			model TEXT NOT NULL,
			color TEXT NOT NULL,
			in_use INTEGER NOT NULL DEFAULT 0,
			usage_count INTEGER NOT NULL DEFAULT 0 CHECK (usage_count >= 0),
			version INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE INDEX IF NOT EXISTS idx_vehicles_owner_id ON vehicles(owner_id)`,

		`CREATE TABLE IF NOT EXISTS idempotency_keys (
			idempotency_key TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			route TEXT NOT NULL,
			request_hash TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			content_type TEXT NOT NULL,
			body BLOB NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (idempotency_key, owner_id, route)
		)`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// UniqueViolation reports whether err is a UNIQUE constraint failure on
// table.column.
func UniqueViolation(err error, table, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+table+"."+column)
}

// Classify wraps lock contention and closed-connection failures with the
// port's unavailable sentinel and returns every other error unchanged.
func Classify(err error, unavailable error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is locked") {
		return fmt.Errorf("%w: %v", unavailable, err)
	}
	return err
}
