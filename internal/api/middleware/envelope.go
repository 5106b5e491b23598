package middleware

import (
	"net/http"

	"github.com/palacemc/palace-web/internal/api/apierr"
	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/services/auth"
)

// Envelope decodes the request object into the context, rejecting bodies
// that are too large, malformed or not objects
func Envelope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields, err := request.Decode(w, r)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(request.WithFields(r.Context(), fields)))
		})
	}
}

// RateLimit spends one request of the caller's budget per request
func RateLimit(registry *auth.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := registry.Allow(r.RemoteAddr); err != nil {
				apierr.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
