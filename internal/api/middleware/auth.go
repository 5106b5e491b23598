package middleware

import (
	"net/http"
	"strings"

	"github.com/palacemc/palace-web/internal/api/apierr"
	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/services/auth"
)

// Token requires an allow-listed caller presenting its current API token.
// Must run after Envelope.
func Token(registry *auth.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if err := registry.Validate(r.RemoteAddr, token); err != nil {
				apierr.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken takes the token from the body, then the Authorization header
func extractToken(r *http.Request) string {
	if token := request.FromContext(r.Context()).Text("token"); token != "" {
		return token
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
