package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"database/sql"

	_ "modernc.org/sqlite"
)

const schemaSQLite = `
PRAGMA busy_timeout = 5000;
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	last_seen_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
	quiz_title TEXT NOT NULL,
	score INTEGER NOT NULL,
	total INTEGER NOT NULL,
	passed INTEGER NOT NULL DEFAULT 0,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_user ON results(user_id, finished_at);
CREATE INDEX IF NOT EXISTS idx_results_quiz ON results(quiz_title);
`

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		closeAfterInitError(db)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, driver: DriverSQLite}
	if err := s.initSchema(schemaSQLite); err != nil {
		closeAfterInitError(db)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}
