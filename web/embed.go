// Package web embeds the quiz frontend (dist/) and provides an HTTP handler
// that serves it as a single-page application (SPA).
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// reservedPrefixes are never answered with the SPA shell.
var reservedPrefixes = []string{"api/", "ws/"}

// SPAHandler returns an http.Handler that serves the embedded quiz page.
// Static files are served from dist/; any other path falls back to index.html,
// except unmatched API and WebSocket paths, which get a JSON 404.
func SPAHandler() http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		for _, prefix := range reservedPrefixes {
			if strings.HasPrefix(path, prefix) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"not found"}`))
				return
			}
		}

		if path == "" || path == "index.html" {
			serveIndex(w, r, fileServer)
			return
		}

		if f, err := subFS.Open(path); err == nil {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		serveIndex(w, r, fileServer)
	})
}

// serveIndex serves the SPA shell uncached so a redeploy is picked up at once.
func serveIndex(w http.ResponseWriter, r *http.Request, fileServer http.Handler) {
	w.Header().Set("Cache-Control", "no-cache")
	r.URL.Path = "/"
	fileServer.ServeHTTP(w, r)
}
