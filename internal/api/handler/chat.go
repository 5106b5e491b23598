package handler

import (
	"net/http"

	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/api/response"
	"github.com/palacemc/palace-web/internal/services/chat"
	"github.com/palacemc/palace-web/internal/services/moderation"
)

// ChatHandler handles chat, mute and log endpoints
type ChatHandler struct {
	chat       *chat.Service
	moderation *moderation.Service
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *chat.Service, moderation *moderation.Service) *ChatHandler {
	return &ChatHandler{
		chat:       chat,
		moderation: moderation,
	}
}

// Save handles POST /api/chat
func (h *ChatHandler) Save(w http.ResponseWriter, r *http.Request) {
	c, err := request.FromContext(r.Context()).Object("chat")
	if err != nil {
		WriteError(w, err)
		return
	}

	req := chat.SaveRequest{
		Time:      c.Get("time"),
		Receivers: c.Get("receivers"),
		Sent:      c.Get("sent"),
	}
	for _, field := range []struct {
		key  string
		dest *string
	}{
		{"original", &req.Original},
		{"formatted", &req.Formatted},
		{"type", &req.Type},
		{"server", &req.Server},
		{"uuid", &req.UUID},
	} {
		if *field.dest, err = c.String(field.key); err != nil {
			WriteError(w, err)
			return
		}
	}

	respondOK(w, h.chat.Save(r.Context(), req))
}

// Get handles POST /api/chat/get
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	page, err := h.chat.Get(r.Context(), id, f.Get("since"), f.Get("offset"), f.Get("type"))
	respond(w, page, err)
}

// Mute handles POST /api/moderation/mute
func (h *ChatHandler) Mute(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	id, err := f.String("uuid")
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.moderation.Mute(r.Context(), id, f.Get("time"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if result.Queried {
		response.OKJSON(w, response.Mute{Time: result.Until})
		return
	}
	respondOK(w, nil)
}

// Log handles POST /api/log
func (h *ChatHandler) Log(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	message, err := f.String("message")
	if err != nil {
		WriteError(w, err)
		return
	}

	respondOK(w, h.moderation.SaveLog(r.Context(), message, f.Get("exception")))
}
