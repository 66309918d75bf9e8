package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/quizlabs/internal/game"
	"github.com/ashureev/quizlabs/internal/identity"
	"github.com/go-chi/chi/v5"
)

// SocketCloser closes live play connections of abandoned games.
type SocketCloser interface {
	CloseKey(key game.Key, reason string)
	CloseUser(userID string)
}

// QuizHandler handles quiz selection, play and results endpoints.
type QuizHandler struct {
	*Handler
	sockets SocketCloser
}

// NewQuizHandler creates a new quiz handler. sockets may be nil.
func NewQuizHandler(base *Handler, sockets SocketCloser) *QuizHandler {
	return &QuizHandler{Handler: base, sockets: sockets}
}

// RegisterRoutes registers quiz routes.
func (h *QuizHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)
		r.Get("/quizzes", h.ListQuizzes)
		r.Post("/games", h.StartGame)
		r.Delete("/games", h.AbandonAll)
		r.Get("/games/current", h.CurrentGame)
		r.Post("/games/current/answers", h.SubmitAnswer)
		r.Get("/games/current/summary", h.Summary)
		r.Delete("/games/current", h.Abandon)
		r.Get("/results", h.ListResults)
		r.Get("/leaderboard", h.Leaderboard)
	})
}

func keyFromRequest(r *http.Request) game.Key {
	return game.Key{
		UserID:    identity.UserIDFromContext(r.Context()),
		SessionID: identity.SessionIDFromContext(r.Context()),
	}
}

// GetMe returns the current player's information.
func (h *QuizHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	_, viewErr := h.games.View(keyFromRequest(r))
	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  user.UserID,
		"username": user.Username,
		"playing":  viewErr == nil,
	})
}

// GetConfig returns settings the frontend needs to drive a game.
func (h *QuizHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	delayMS := int64(2000)
	if h.cfg != nil {
		delayMS = h.cfg.Game.FeedbackDelay.Milliseconds()
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"feedback_delay_ms": delayMS,
		"pass_threshold":    0.5,
	})
}

// ListQuizzes returns the quiz titles in catalog order.
func (h *QuizHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"titles": h.games.Catalog().Titles(),
	})
}

// StartGame starts a new game for the requesting tab.
func (h *QuizHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		Error(w, http.StatusBadRequest, "title is required")
		return
	}

	view, err := h.games.Start(keyFromRequest(r), req.Title)
	if err != nil {
		writeGameError(w, err)
		return
	}
	JSON(w, http.StatusCreated, view)
}

// CurrentGame returns the state of the requesting tab's game.
func (h *QuizHandler) CurrentGame(w http.ResponseWriter, r *http.Request) {
	view, err := h.games.View(keyFromRequest(r))
	if err != nil {
		writeGameError(w, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

// SubmitAnswer commits one answer and reports whether it was correct.
func (h *QuizHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		Error(w, http.StatusBadRequest, "index is required")
		return
	}

	key := keyFromRequest(r)
	out, err := h.games.Answer(r.Context(), key, *req.Index, "http")
	if err != nil {
		writeGameError(w, err)
		return
	}

	slog.Debug("Answer submitted", "user_id", key.UserID, "session_id", key.SessionID, "correct", out.Correct)
	JSON(w, http.StatusOK, out)
}

// Summary returns the outcome of a finished game.
func (h *QuizHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.games.Summary(keyFromRequest(r))
	if err != nil {
		writeGameError(w, err)
		return
	}
	JSON(w, http.StatusOK, summary)
}

// Abandon discards the requesting tab's game.
func (h *QuizHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	key := keyFromRequest(r)
	if !h.games.Discard(key) {
		Error(w, http.StatusNotFound, game.ErrNoGame.Error())
		return
	}
	if h.sockets != nil {
		h.sockets.CloseKey(key, "game abandoned")
	}
	JSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

// AbandonAll discards the games of every tab of the requesting player.
func (h *QuizHandler) AbandonAll(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	keys := h.games.DiscardUser(userID)
	if h.sockets != nil {
		h.sockets.CloseUser(userID)
	}
	slog.Info("Player abandoned all games", "user_id", userID, "games", len(keys))
	JSON(w, http.StatusOK, map[string]interface{}{"status": "abandoned", "games": len(keys)})
}

// ListResults returns the player's finished games, newest first.
func (h *QuizHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	results, err := h.repo.ListResults(r.Context(), userID, limitParam(r))
	if err != nil {
		slog.Error("Failed to list results", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// Leaderboard returns the best result per player for a quiz.
func (h *QuizHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("quiz")
	if title == "" {
		Error(w, http.StatusBadRequest, "quiz is required")
		return
	}

	board, err := h.repo.Leaderboard(r.Context(), title, limitParam(r))
	if err != nil {
		slog.Error("Failed to load leaderboard", "error", err, "quiz", title)
		Error(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"quiz": title, "entries": board})
}
