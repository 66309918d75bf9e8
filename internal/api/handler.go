// Package api provides HTTP handlers for the quiz API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/quizlabs/internal/config"
	"github.com/ashureev/quizlabs/internal/game"
	"github.com/ashureev/quizlabs/internal/quiz"
	"github.com/ashureev/quizlabs/internal/store"
)

// CatalogLoader reloads the catalog from the configured source.
type CatalogLoader func(ctx context.Context) (*quiz.Catalog, error)

// Handler provides common handler utilities.
type Handler struct {
	repo  store.Repository
	games *game.Registry
	cfg   *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, games *game.Registry, cfg *config.Config) *Handler {
	return &Handler{
		repo:  repo,
		games: games,
		cfg:   cfg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// StatusFor maps quiz and game errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, quiz.ErrNotFound), errors.Is(err, game.ErrNoGame):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quiz.ErrIllegalState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeGameError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Unexpected game error", "error", err)
		Error(w, status, "internal error")
		return
	}
	Error(w, status, err.Error())
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}
