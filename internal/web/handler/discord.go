package handler

import (
	"log/slog"
	"net/http"

	"github.com/palacemc/palace-web/internal/services/discord"
	"github.com/palacemc/palace-web/internal/web/templates/pages"
)

const (
	tryAgainMessage = `<br/>You can go back onto the Minecraft server and try running <code class="inline-box">/discord verify</code> to get a new verification link.<br/>If you keep seeing this error, contact staff on the server for help.`

	badStateMessage      = `The provided state is malformed or expired.` + tryAgainMessage
	discordFailedMessage = `Either discord isn't playing nice, or this link has expired.` + tryAgainMessage

	alreadyLinkedMessage = `Your account has already been linked.<br/>If you need to connect a new account, please unlink first.<br/>You can go back onto the Minecraft server and run <code class="inline-box">/discord unlink</code>, then <code class="inline-box">/discord verify</code> to get a new verification link.`
	elsewhereMessage     = `That Discord account is already linked to a different Minecraft account.<br/>Please contact staff on the server for assistance.`

	internalMessage   = `There's been an unfortunate internal error during verification, please report this error code immediately:<br/>`
	unverifiedMessage = `There's been an unfortunate internal error during verification, however, it was somewhat successful and your account has been connected. Please join the discord server and type your username into the #verification channel to complete the process.<br/>But, please report this error code immediately:</br>`
	leftoverMessage   = `There's been an unfortunate internal error during verification, however, it was somewhat successful. Your account has been connected, and you should have access to the discord now.<br/>But, please report this error code immediately:<br/>`
)

// DiscordHandler serves the account verification page
type DiscordHandler struct {
	discord *discord.Service
	logger  *slog.Logger
}

// NewDiscordHandler creates a new DiscordHandler
func NewDiscordHandler(discord *discord.Service, logger *slog.Logger) *DiscordHandler {
	return &DiscordHandler{
		discord: discord,
		logger:  logger,
	}
}

// Verify handles GET /discord
func (h *DiscordHandler) Verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result := h.discord.Verify(r.Context(), query.Get("state"), query.Get("code"))

	if result.Outcome == discord.OutcomeRedirect {
		http.Redirect(w, r, result.Redirect, http.StatusFound)
		return
	}

	data := pages.DiscordData{InviteURL: h.discord.InviteURL(), Code: result.Code}
	switch result.Outcome {
	case discord.OutcomeLinked:
		data.Linked = true
	case discord.OutcomeBadState:
		data.Message = badStateMessage
	case discord.OutcomeDiscordFailed:
		data.Message = discordFailedMessage
	case discord.OutcomeAlreadyLinked:
		data.Message = alreadyLinkedMessage
	case discord.OutcomeLinkedElsewhere:
		data.Message = elsewhereMessage
	case discord.OutcomeLinkedUnverified:
		data.Message = unverifiedMessage
	case discord.OutcomeLinkedWithErrors:
		data.Message = leftoverMessage
	default:
		data.Message = internalMessage
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.Discord(data).Render(r.Context(), w); err != nil {
		h.logger.Error("render verification page", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
