// Package game owns the in-progress quiz sessions of every connected player.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/quizlabs/internal/domain"
	"github.com/ashureev/quizlabs/internal/playlog"
	"github.com/ashureev/quizlabs/internal/quiz"
	"github.com/ashureev/quizlabs/internal/shared"
)

// ErrNoGame is returned when the player has no game in progress.
var ErrNoGame = errors.New("no game in progress")

const saveTimeout = 10 * time.Second

// Key identifies one player tab.
type Key struct {
	UserID    string
	SessionID string
}

// ResultSaver persists finished games.
type ResultSaver interface {
	SaveResult(ctx context.Context, result *domain.Result) error
}

// RetryPolicy controls retries of conflicting result writes.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Options configures a Registry.
type Options struct {
	Results ResultSaver
	PlayLog playlog.Logger
	Retry   RetryPolicy
	Logger  *slog.Logger
}

type game struct {
	mu      sync.Mutex
	session *quiz.Session

	// lastActive is read by the sweeper without taking mu.
	lastActive atomic.Int64
}

func (g *game) touch(t time.Time) {
	g.lastActive.Store(t.UnixNano())
}

func (g *game) idleSince(threshold time.Time) bool {
	return g.lastActive.Load() < threshold.UnixNano()
}

// Registry maps player tabs to their quiz sessions. Each session is guarded by
// its own mutex so answers from the same tab are applied one at a time.
type Registry struct {
	mu      sync.RWMutex
	catalog *quiz.Catalog
	games   map[Key]*game

	results ResultSaver
	plays   playlog.Logger
	retry   RetryPolicy
	logger  *slog.Logger
	now     func() time.Time
}

// NewRegistry creates a registry serving games from catalog.
func NewRegistry(catalog *quiz.Catalog, opts Options) *Registry {
	if opts.PlayLog == nil {
		opts.PlayLog = playlog.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.MaxRetries <= 0 {
		opts.Retry.MaxRetries = 3
	}
	if opts.Retry.BaseDelay <= 0 {
		opts.Retry.BaseDelay = 50 * time.Millisecond
	}
	return &Registry{
		catalog: catalog,
		games:   make(map[Key]*game),
		results: opts.Results,
		plays:   opts.PlayLog,
		retry:   opts.Retry,
		logger:  opts.Logger,
		now:     time.Now,
	}
}

// Catalog returns the catalog used for new games.
func (r *Registry) Catalog() *quiz.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// SetCatalog replaces the catalog for new games. Games in progress keep their quiz.
func (r *Registry) SetCatalog(c *quiz.Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = c
	r.logger.Info("Quiz catalog replaced", "quizzes", c.Len())
}

// Start begins a new game for key, replacing any existing one.
func (r *Registry) Start(key Key, title string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, err := r.catalog.FindByTitle(title)
	if err != nil {
		return View{}, err
	}

	g := &game{session: quiz.NewSession(q)}
	g.touch(r.now())
	r.games[key] = g
	r.logger.Info("Game started", "user_id", key.UserID, "session_id", key.SessionID, "quiz", title)
	return viewOf(g.session), nil
}

// View returns the current state of the game for key.
func (r *Registry) View(key Key) (View, error) {
	g, err := r.get(key)
	if err != nil {
		return View{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return viewOf(g.session), nil
}

// Answer submits the answer at index for the current question. When the answer
// finishes the game, the result is stored before returning. The store write
// outlives cancellation of ctx and runs without holding the game lock.
func (r *Registry) Answer(ctx context.Context, key Key, index int, channel string) (Outcome, error) {
	g, err := r.get(key)
	if err != nil {
		return Outcome{}, err
	}

	g.mu.Lock()
	s := g.session
	position := s.Position()
	correct, err := s.SubmitAnswer(index)
	if err != nil {
		g.mu.Unlock()
		return Outcome{}, err
	}
	g.touch(r.now())

	out := Outcome{
		Correct:  correct,
		Score:    s.FinalScore(),
		Position: s.Position(),
		Total:    s.TotalQuestions(),
		Finished: s.IsFinished(),
	}
	title := s.Quiz().Title
	if out.Finished {
		summary := s.Summary()
		out.Summary = &summary
	}
	g.mu.Unlock()

	r.plays.Log(playlog.Event{
		UserID:      key.UserID,
		SessionID:   key.SessionID,
		Channel:     channel,
		QuizTitle:   title,
		Position:    position,
		AnswerIndex: index,
		Correct:     correct,
		Score:       out.Score,
		Finished:    out.Finished,
	})

	if out.Finished {
		out.Recorded = r.record(ctx, key, *out.Summary)
	}
	return out, nil
}

// Summary returns the outcome of a finished game.
func (r *Registry) Summary(key Key) (quiz.Summary, error) {
	g, err := r.get(key)
	if err != nil {
		return quiz.Summary{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.session.IsFinished() {
		return quiz.Summary{}, fmt.Errorf("summary: game in progress: %w", quiz.ErrIllegalState)
	}
	return g.session.Summary(), nil
}

// Discard drops the game for key. It reports whether a game existed.
func (r *Registry) Discard(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[key]; !ok {
		return false
	}
	delete(r.games, key)
	return true
}

// DiscardUser drops every game of a user and returns their keys.
func (r *Registry) DiscardUser(userID string) []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []Key
	for k := range r.games {
		if k.UserID == userID {
			delete(r.games, k)
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of games held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// SweepIdle discards games with no activity for longer than ttl and returns their keys.
func (r *Registry) SweepIdle(ttl time.Duration) []Key {
	threshold := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []Key
	for k, g := range r.games {
		if g.idleSince(threshold) {
			delete(r.games, k)
			expired = append(expired, k)
		}
	}
	return expired
}

func (r *Registry) get(key Key) (*game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[key]
	if !ok {
		return nil, ErrNoGame
	}
	return g, nil
}

func (r *Registry) record(ctx context.Context, key Key, summary quiz.Summary) bool {
	if r.results == nil {
		return false
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	result := domain.NewResult(key.UserID, summary, r.now())
	err := shared.RetryOnConflict(saveCtx, r.retry.MaxRetries, r.retry.BaseDelay, "save result", func() error {
		return r.results.SaveResult(saveCtx, result)
	})
	if err != nil {
		r.logger.Error("Failed to save result", "error", err, "user_id", key.UserID, "quiz", summary.Title)
		return false
	}

	r.logger.Info("Game finished",
		"user_id", key.UserID,
		"session_id", key.SessionID,
		"quiz", summary.Title,
		"score", summary.Score,
		"total", summary.Total,
		"passed", summary.Passed)
	return true
}
