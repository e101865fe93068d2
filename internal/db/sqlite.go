package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the journal database at dbPath and runs schema migrations.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode so a running client and a history listing can share the file
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// runMigrations executes the database schema migrations.
func runMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		attempt INTEGER NOT NULL,
		url TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'connecting',
		started_at DATETIME NOT NULL,
		active_at DATETIME,
		closed_at DATETIME,
		close_reason TEXT,
		reconnect_delay_ms INTEGER NOT NULL DEFAULT 0,
		preview_line TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at);
	CREATE INDEX IF NOT EXISTS idx_attempts_state ON attempts(state);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// NewTestDB creates a new in-memory database for testing.
func NewTestDB() (*sql.DB, error) {
	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}

	// Every pooled connection would otherwise get its own empty database
	testDB.SetMaxOpenConns(1)

	if err := runMigrations(testDB); err != nil {
		testDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return testDB, nil
}
