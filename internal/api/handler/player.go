package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/api/response"
	"github.com/palacemc/palace-web/internal/services/player"
)

// PlayerHandler handles player profile endpoints
type PlayerHandler struct {
	players *player.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(players *player.Service) *PlayerHandler {
	return &PlayerHandler{
		players: players,
	}
}

// DailyCount handles GET /api/playerCount
func (h *PlayerHandler) DailyCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.players.DailyCount(r.Context())
	respond(w, count, err)
}

// Count handles POST /api/playerCount
func (h *PlayerHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.players.Count(r.Context())
	respond(w, count, err)
}

// ByName handles GET /api/playersFromName/{name}
func (h *PlayerHandler) ByName(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.ByName(r.Context(), mux.Vars(r)["name"])
	respond(w, response.NewPlayers(players), err)
}

// ByUUID handles GET /api/playerFromUUID/{uuid}
func (h *PlayerHandler) ByUUID(w http.ResponseWriter, r *http.Request) {
	p, err := h.players.ByUUID(r.Context(), mux.Vars(r)["uuid"])
	respond(w, p, err)
}

// IgnoreList handles GET /api/player/ignoreList/{uuid}
func (h *PlayerHandler) IgnoreList(w http.ResponseWriter, r *http.Request) {
	ignored, err := h.players.Ignored(r.Context(), mux.Vars(r)["uuid"])
	respond(w, response.NewIgnored(ignored), err)
}

// Login handles POST /api/player/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}
	name, err := f.String("name")
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.players.Login(r.Context(), id, name)
	respond(w, result, err)
}

// Logout handles POST /api/player/logout
func (h *PlayerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, err := request.FromContext(r.Context()).String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	at, err := h.players.Logout(r.Context(), id)
	respond(w, response.Time{Time: at}, err)
}

// Activity handles POST /api/player/activity
func (h *PlayerHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id, err := request.FromContext(r.Context()).String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	activity, err := h.players.Activity(r.Context(), id)
	respond(w, activity, err)
}

// Ignore handles POST /api/player/ignore. A null ignore means true.
func (h *PlayerHandler) Ignore(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}
	other, err := f.String("other")
	if err != nil {
		WriteError(w, err)
		return
	}
	ignore := f.Get("ignore") == nil || f.Flag("ignore", true)

	respondOK(w, h.players.SetIgnore(r.Context(), id, other, ignore))
}

// SetData handles POST /api/player/data
func (h *PlayerHandler) SetData(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}
	key, err := f.String("key")
	if err != nil {
		WriteError(w, err)
		return
	}

	respondOK(w, h.players.SetData(r.Context(), id, key, f.Get("value")))
}

// Data handles POST /api/player/data/get
func (h *PlayerHandler) Data(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}
	key, err := f.String("key")
	if err != nil {
		WriteError(w, err)
		return
	}

	value, err := h.players.Data(r.Context(), id, key)
	respond(w, value, err)
}

// Style handles POST /api/player/style
func (h *PlayerHandler) Style(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	respondOK(w, h.players.SetNameStyle(r.Context(), id, f.Get("style")))
}
