package handler

import (
	"net/http"

	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/api/response"
	"github.com/palacemc/palace-web/internal/services/discord"
)

// DiscordHandler handles guild, role and webhook endpoints
type DiscordHandler struct {
	discord *discord.Service
}

// NewDiscordHandler creates a new discord handler
func NewDiscordHandler(discord *discord.Service) *DiscordHandler {
	return &DiscordHandler{
		discord: discord,
	}
}

// Webhook handles POST /api/discord/webhook
func (h *DiscordHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	respondOK(w, h.discord.Send(r.Context(), discord.SendRequest{
		Kind:    f.Get("type"),
		Name:    f.Get("name"),
		Avatar:  f.Get("avatar"),
		Message: f.Get("message"),
	}))
}

// Servers handles POST /api/discord/servers
func (h *DiscordHandler) Servers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.discord.Servers(r.Context(), request.FromContext(r.Context()).Flag("tokens", false))
	respond(w, response.Servers{Count: len(servers), Servers: servers}, err)
}

// AddServer handles POST /api/discord/servers/add
func (h *DiscordHandler) AddServer(w http.ResponseWriter, r *http.Request) {
	guild, err := request.FromContext(r.Context()).String("guild")
	if err != nil {
		WriteError(w, err)
		return
	}

	respondOK(w, h.discord.AddServer(r.Context(), guild))
}

// Roles handles POST /api/discord/roles/get
func (h *DiscordHandler) Roles(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	guild, err := f.String("guild")
	if err != nil {
		WriteError(w, err)
		return
	}

	roles, err := h.discord.Roles(r.Context(), guild, f.Get("type"))
	respond(w, response.Roles(roles), err)
}

// ModifyRoles handles POST /api/discord/roles
func (h *DiscordHandler) ModifyRoles(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	v, err := requireStrings(f, "guild", "type", "action")
	if err != nil {
		WriteError(w, err)
		return
	}

	respondOK(w, h.discord.ModifyRoles(r.Context(), v[0], v[1], v[2], f.Get("roles")))
}

// Webhooks handles POST /api/discord/webhooks/get
func (h *DiscordHandler) Webhooks(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	guild, err := f.String("guild")
	if err != nil {
		WriteError(w, err)
		return
	}

	hooks, err := h.discord.Webhooks(r.Context(), guild, f.Flag("tokens", false))
	respond(w, response.Webhooks{Webhooks: hooks}, err)
}

// AddWebhook handles POST /api/discord/webhooks/add
func (h *DiscordHandler) AddWebhook(w http.ResponseWriter, r *http.Request) {
	f := request.FromContext(r.Context())
	respondOK(w, h.discord.AddWebhook(r.Context(), f.Get("webhook"), f.Get("kind")))
}

// RemoveWebhook handles POST /api/discord/webhooks/remove
func (h *DiscordHandler) RemoveWebhook(w http.ResponseWriter, r *http.Request) {
	v, err := requireStrings(request.FromContext(r.Context()), "guild", "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	respondOK(w, h.discord.RemoveWebhook(r.Context(), v[0], v[1]))
}
