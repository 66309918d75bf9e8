package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/quizlabs/internal/domain"
)

// SQLStore implements Repository on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver Driver
}

func (s *SQLStore) initSchema(schema string) error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := s.rebind(`
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := s.rebind(`
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.LastSeenAt.Unix(),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := s.rebind(`UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`)
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}
	return nil
}

// SaveResult stores a finished game.
func (s *SQLStore) SaveResult(ctx context.Context, result *domain.Result) error {
	query := s.rebind(`
	INSERT INTO results (user_id, quiz_title, score, total, passed, finished_at)
	VALUES (?, ?, ?, ?, ?, ?)
	RETURNING id`)

	err := s.db.QueryRowContext(ctx, query,
		result.UserID, result.QuizTitle, result.Score, result.Total,
		result.Passed, result.FinishedAt.Unix(),
	).Scan(&result.ID)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// ListResults returns a user's results, newest first.
func (s *SQLStore) ListResults(ctx context.Context, userID string, limit int) ([]*domain.Result, error) {
	query := s.rebind(`
		SELECT r.id, r.user_id, u.username, r.quiz_title, r.score, r.total, r.passed, r.finished_at
		FROM results r JOIN users u ON u.user_id = r.user_id
		WHERE r.user_id = ?
		ORDER BY r.finished_at DESC, r.id DESC
		LIMIT ?`)

	return s.queryResults(ctx, "list results", query, userID, normalizeLimit(limit))
}

// Leaderboard returns the best result per user for a quiz, ordered by ratio,
// then raw score, then earliest finish.
func (s *SQLStore) Leaderboard(ctx context.Context, quizTitle string, limit int) ([]*domain.Result, error) {
	query := s.rebind(`
		SELECT id, user_id, username, quiz_title, score, total, passed, finished_at
		FROM (
			SELECT r.id, r.user_id, u.username, r.quiz_title, r.score, r.total, r.passed, r.finished_at,
				ROW_NUMBER() OVER (
					PARTITION BY r.user_id
					ORDER BY (r.score * 1.0) / r.total DESC, r.score DESC, r.finished_at ASC, r.id ASC
				) AS rank_in_user
			FROM results r JOIN users u ON u.user_id = r.user_id
			WHERE r.quiz_title = ? AND r.total > 0
		) best
		WHERE rank_in_user = 1
		ORDER BY (score * 1.0) / total DESC, score DESC, finished_at ASC, id ASC
		LIMIT ?`)

	return s.queryResults(ctx, "leaderboard", query, quizTitle, normalizeLimit(limit))
}

func closeAfterInitError(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("failed to close database after init error", "error", err)
	}
}

func (s *SQLStore) queryResults(ctx context.Context, op, query string, args ...interface{}) ([]*domain.Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close result rows", "op", op, "error", closeErr)
		}
	}()

	results := make([]*domain.Result, 0)
	for rows.Next() {
		var r domain.Result
		var finishedAt int64
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Username, &r.QuizTitle,
			&r.Score, &r.Total, &r.Passed, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		r.FinishedAt = time.Unix(finishedAt, 0)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return results, nil
}

const (
	defaultLimit = 10
	maxLimit     = 100
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
