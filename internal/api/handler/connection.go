package handler

import (
	"net/http"

	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/services/connection"
)

// ConnectionHandler handles player connection endpoints
type ConnectionHandler struct {
	connections *connection.Service
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(connections *connection.Service) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
	}
}

// Get handles POST /api/player/connection/get
func (h *ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := requireStrings(request.FromContext(r.Context()), "type", "pair", "uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	value, err := h.connections.Get(r.Context(), v[2], v[0], v[1])
	respond(w, value, err)
}

// Set handles POST /api/player/connection
func (h *ConnectionHandler) Set(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	v, err := requireStrings(f, "type", "pair", "uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	value, err := h.connections.Set(r.Context(), connection.SetRequest{
		UUID:     v[2],
		Provider: v[0],
		Pair:     v[1],
		Value:    f.Get("value"),
		Expire:   f.Get("expire"),
	})
	respond(w, value, err)
}

// Find handles POST /api/player/connection/find
func (h *ConnectionHandler) Find(w http.ResponseWriter, r *http.Request) {
	v, err := requireStrings(request.FromContext(r.Context()), "type", "content")
	if err != nil {
		WriteError(w, err)
		return
	}

	p, err := h.connections.Find(r.Context(), v[0], v[1])
	respond(w, p, err)
}
