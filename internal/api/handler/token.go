package handler

import (
	"net/http"

	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/services/auth"
)

// TokenHandler handles the token exchange/refresh handshake
type TokenHandler struct {
	registry *auth.Registry
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(registry *auth.Registry) *TokenHandler {
	return &TokenHandler{
		registry: registry,
	}
}

// Request handles POST /api/token. The body holds either "exchange" or
// "refresh"; values that are not strings count as absent.
func (h *TokenHandler) Request(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	token, err := h.registry.RequestToken(r.RemoteAddr, f.Text("exchange"), f.Text("refresh"))
	respond(w, token, err)
}
