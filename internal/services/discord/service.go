// Package discord manages the Discord guilds the bot has joined, delivers
// webhook messages to them and links Minecraft players to Discord accounts.
package discord

import (
	"context"
	"log/slog"

	"github.com/palacemc/palace-web/internal/dependencies/clock"
	"github.com/palacemc/palace-web/internal/discordapi"
	"github.com/palacemc/palace-web/internal/metrics"
	"github.com/palacemc/palace-web/internal/services/connection"
	"github.com/palacemc/palace-web/internal/services/player"
	"github.com/palacemc/palace-web/internal/storage"
)

// Provider is the connection type Discord links are stored under
const Provider = "discord"

// API is the part of the Discord HTTP API the service talks to
type API interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*discordapi.Grant, error)
	CurrentUser(ctx context.Context, accessToken string) (*discordapi.User, error)
	ExecuteWebhook(ctx context.Context, id, token string, msg discordapi.WebhookMessage) error
}

// Service handles Discord guilds, webhooks and account verification
type Service struct {
	storage     storage.Storage
	connections *connection.Service
	players     *player.Service
	api         API
	clock       clock.Clock
	metrics     *metrics.Metrics
	logger      *slog.Logger
	inviteURL   string
}

// NewService creates a Discord Service. inviteURL is where players without
// a verification state are sent.
func NewService(
	storage storage.Storage,
	connections *connection.Service,
	players *player.Service,
	api API,
	clock clock.Clock,
	metrics *metrics.Metrics,
	logger *slog.Logger,
	inviteURL string,
) *Service {
	return &Service{
		storage:     storage,
		connections: connections,
		players:     players,
		api:         api,
		clock:       clock,
		metrics:     metrics,
		logger:      logger.With(slog.String("component", "discord-service")),
		inviteURL:   inviteURL,
	}
}

// InviteURL is the public invite link of the community guild
func (s *Service) InviteURL() string {
	return s.inviteURL
}
