package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// NewCORSHandler lets the storefront and admin front ends at allowedOrigins
// call the API from the browser. Origins are full scheme+host values; blank
// entries from a trailing comma in CORS_ORIGINS are dropped. With no origins
// left, cross-origin calls get no CORS headers at all.
//
// Actors authenticate with a bearer token, never a cookie, so credentials stay
// disallowed. The chi request ID is exposed so a front end can quote it in a
// support ticket.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSuffix(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
	return c.Handler
}
