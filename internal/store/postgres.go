package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	last_seen_at BIGINT NOT NULL,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
	quiz_title TEXT NOT NULL,
	score INTEGER NOT NULL,
	total INTEGER NOT NULL,
	passed BOOLEAN NOT NULL DEFAULT FALSE,
	finished_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_user ON results(user_id, finished_at);
CREATE INDEX IF NOT EXISTS idx_results_quiz ON results(quiz_title);
`

// NewPostgres creates a PostgreSQL-backed repository using the pgx stdlib driver.
func NewPostgres(ctx context.Context, dsn string) (Repository, error) {
	if dsn == "" {
		dsn = "postgres://localhost:5432/quizlabs?sslmode=disable"
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		closeAfterInitError(db)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, driver: DriverPostgres}
	if err := s.initSchema(schemaPostgres); err != nil {
		closeAfterInitError(db)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}
