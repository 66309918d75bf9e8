package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/quizlabs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "quiz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo Repository, id, name string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, repo.UpsertUser(context.Background(), &domain.User{
		UserID: id, Username: name, LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestSQLite_UserRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	got, err := repo.GetUser(ctx, "anon_missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	seedUser(t, repo, "anon_1", "anon-1")
	got, err = repo.GetUser(ctx, "anon_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "anon-1", got.Username)

	seen := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, repo.UpdateLastSeen(ctx, "anon_1", seen))
	got, err = repo.GetUser(ctx, "anon_1")
	require.NoError(t, err)
	assert.Equal(t, seen.Unix(), got.LastSeenAt.Unix())

	require.NoError(t, repo.UpdateLastSeen(ctx, "anon_missing", seen))
	require.NoError(t, repo.Ping(ctx))
}

func TestSQLite_SaveAndListResults(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "anon_1", "anon-1")

	base := time.Now().Add(-time.Hour)
	for i, score := range []int{1, 3, 2} {
		r := &domain.Result{
			UserID: "anon_1", QuizTitle: "Animals", Score: score, Total: 4,
			Passed: 2*score > 4, FinishedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.SaveResult(ctx, r))
		assert.NotZero(t, r.ID)
	}

	results, err := repo.ListResults(ctx, "anon_1", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Score, "newest first")
	assert.Equal(t, 3, results[1].Score)
	assert.True(t, results[1].Passed)
	assert.False(t, results[0].Passed)
	assert.Equal(t, "anon-1", results[0].Username)

	none, err := repo.ListResults(ctx, "anon_2", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_Leaderboard(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "anon_a", "alice")
	seedUser(t, repo, "anon_b", "bob")
	seedUser(t, repo, "anon_c", "carol")

	now := time.Now()
	save := func(user, title string, score, total int, at time.Time) {
		require.NoError(t, repo.SaveResult(ctx, &domain.Result{
			UserID: user, QuizTitle: title, Score: score, Total: total,
			Passed: 2*score > total, FinishedAt: at,
		}))
	}
	save("anon_a", "Animals", 2, 4, now)
	save("anon_a", "Animals", 4, 4, now.Add(time.Second))
	save("anon_b", "Animals", 3, 4, now)
	save("anon_c", "Animals", 3, 4, now.Add(-time.Minute))
	save("anon_c", "Capitals", 5, 5, now)

	board, err := repo.Leaderboard(ctx, "Animals", 10)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "alice", board[0].Username)
	assert.Equal(t, 4, board[0].Score)
	assert.Equal(t, "carol", board[1].Username, "earlier finish wins ties")
	assert.Equal(t, "bob", board[2].Username)

	top, err := repo.Leaderboard(ctx, "Animals", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "alice", top[0].Username)

	// Limit applies to users, not rows: alice's weaker run must not take a slot.
	two, err := repo.Leaderboard(ctx, "Animals", 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "alice", two[0].Username)
	assert.Equal(t, "carol", two[1].Username)

	empty, err := repo.Leaderboard(ctx, "Sports", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNewSQLite_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite file, just plain text padding it out"), 0o600))

	repo, err := NewSQLite(path)
	require.Error(t, err)
	assert.Nil(t, repo)

	// The failed open must not leave the handle busy.
	require.NoError(t, os.Remove(path))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("mysql"), "")
	var unsupported *UnsupportedDriverError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, Driver("mysql"), unsupported.Driver)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, defaultLimit, normalizeLimit(0))
	assert.Equal(t, 5, normalizeLimit(5))
	assert.Equal(t, maxLimit, normalizeLimit(1000))
}
