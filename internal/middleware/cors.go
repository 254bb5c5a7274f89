package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORSMiddleware lets browser storefronts on allowedOrigins call the API with
// the session cookies set at login. Development accepts any origin and echoes
// it back, since a literal "*" is refused by browsers for credentialed calls.
func CORSMiddleware(allowedOrigins []string, isDevelopment bool) func(http.Handler) http.Handler {
	allowOrigin := func(_ *http.Request, origin string) bool {
		return slices.Contains(allowedOrigins, origin)
	}
	if isDevelopment {
		allowOrigin = func(*http.Request, string) bool { return true }
	}

	return cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
