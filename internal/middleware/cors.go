// Package middleware provides HTTP middleware for the quiz API.
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that handles CORS headers. Credentials are only
// allowed when every origin is explicit.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			break
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Quiz-Session-ID"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
