package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

var devOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// CORS allows the configured storefront origins. Outside production an empty
// list falls back to local development hosts; production with no origins
// configured answers no cross-origin requests.
func CORS(app config.AppConfig) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: app.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, replayedHeader},
		MaxAge:         600,
	}
	if len(opts.AllowedOrigins) == 0 {
		if app.IsProd() {
			// an empty list means "allow all" to the cors package
			opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
		} else {
			opts.AllowedOrigins = devOrigins
		}
	}
	return cors.Handler(opts)
}
