package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/quizlabs/internal/feed"
	"github.com/ashureev/quizlabs/internal/middleware"
	"github.com/ashureev/quizlabs/internal/quiz"
	"github.com/go-chi/chi/v5"
)

const maxCatalogUpload = 8 << 20

// AdminHandler handles catalog management endpoints.
type AdminHandler struct {
	*Handler
	load CatalogLoader
}

// NewAdminHandler creates a new admin handler. load reloads the configured source.
func NewAdminHandler(base *Handler, load CatalogLoader) *AdminHandler {
	return &AdminHandler{Handler: base, load: load}
}

// RegisterRoutes registers admin routes behind basic auth.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	user, hash := "", ""
	if h.cfg != nil {
		user, hash = h.cfg.Admin.User, h.cfg.Admin.PassHash
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminAuth(user, hash))
		r.Post("/api/admin/catalog", h.ReloadCatalog)
	})
}

// ReloadCatalog replaces the catalog for new games. A non-empty body is parsed as
// a feed document (JSON, or YAML by Content-Type); otherwise the configured
// source is reloaded.
func (h *AdminHandler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCatalogUpload))
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var (
		catalog *quiz.Catalog
		source  string
	)
	if len(body) == 0 {
		source = "configured"
		catalog, err = h.load(r.Context())
	} else {
		source = "upload"
		catalog, err = feed.Parse(body, feed.FormatFromContentType(r.Header.Get("Content-Type")))
	}
	if err != nil {
		slog.Warn("Catalog reload rejected", "source", source, "error", err)
		Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.games.SetCatalog(catalog)
	JSON(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"source": source,
		"titles": catalog.Titles(),
	})
}
