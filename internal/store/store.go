// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/quizlabs/internal/domain"
)

// Repository defines the interface for persisting players and finished games.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// SaveResult stores a finished game and sets result.ID.
	SaveResult(ctx context.Context, result *domain.Result) error

	// ListResults returns a user's results, newest first.
	ListResults(ctx context.Context, userID string, limit int) ([]*domain.Result, error)

	// Leaderboard returns the best result per user for a quiz.
	Leaderboard(ctx context.Context, quizTitle string, limit int) ([]*domain.Result, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Driver names a supported database backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens the repository for the given driver. For SQLite, dsn is a file path.
func Open(ctx context.Context, driver Driver, dsn string) (Repository, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLite(dsn)
	case DriverPostgres:
		return NewPostgres(ctx, dsn)
	default:
		return nil, &UnsupportedDriverError{Driver: driver}
	}
}

// UnsupportedDriverError is returned by Open for unknown drivers.
type UnsupportedDriverError struct {
	Driver Driver
}

func (e *UnsupportedDriverError) Error() string {
	return "unsupported driver: " + string(e.Driver)
}
