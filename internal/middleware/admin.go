package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards a route with HTTP basic auth checked against a bcrypt hash.
// An empty hash disables the route.
func AdminAuth(user, passHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if passHash == "" {
				http.Error(w, `{"error":"admin access disabled"}`, http.StatusForbidden)
				return
			}

			u, p, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passHash), []byte(p)) != nil {
				slog.Warn("Admin authentication failed", "user", u, "remote", r.RemoteAddr)
				w.Header().Set("WWW-Authenticate", `Basic realm="quizlabs-admin"`)
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
