package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/palacemc/palace-web/internal/api/apierr"
	"github.com/palacemc/palace-web/internal/api/handler"
	"github.com/palacemc/palace-web/internal/api/middleware"
	"github.com/palacemc/palace-web/internal/metrics"
	sharedmw "github.com/palacemc/palace-web/internal/middleware"
	"github.com/palacemc/palace-web/internal/services/auth"
	"github.com/palacemc/palace-web/internal/services/chat"
	"github.com/palacemc/palace-web/internal/services/connection"
	"github.com/palacemc/palace-web/internal/services/discord"
	"github.com/palacemc/palace-web/internal/services/mail"
	"github.com/palacemc/palace-web/internal/services/moderation"
	"github.com/palacemc/palace-web/internal/services/player"
	"github.com/palacemc/palace-web/internal/services/stats"
	"github.com/palacemc/palace-web/internal/services/wallet"
	"github.com/palacemc/palace-web/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Version     string
	Metrics     *metrics.Metrics
	Storage     storage.Storage
	Registry    *auth.Registry
	Players     *player.Service
	Connections *connection.Service
	Wallets     *wallet.Service
	Stats       *stats.Service
	Chat        *chat.Service
	Mail        *mail.Service
	Moderation  *moderation.Service
	Discord     *discord.Service
}

// NewRouter creates a new API router with all routes configured. The
// returned router also serves /health and /metrics.
func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	// Create handlers
	metaHandler := handler.NewMetaHandler(cfg.Version, cfg.Storage)
	tokenHandler := handler.NewTokenHandler(cfg.Registry)
	playerHandler := handler.NewPlayerHandler(cfg.Players)
	connectionHandler := handler.NewConnectionHandler(cfg.Connections)
	statsHandler := handler.NewStatsHandler(cfg.Stats, cfg.Wallets)
	chatHandler := handler.NewChatHandler(cfg.Chat, cfg.Moderation)
	mailHandler := handler.NewMailHandler(cfg.Mail)
	discordHandler := handler.NewDiscordHandler(cfg.Discord)

	// Create middleware
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	loggingMiddleware := sharedmw.Logging(cfg.Logger)
	tokenMiddleware := middleware.Token(cfg.Registry)

	r.HandleFunc("/health", metaHandler.Health).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// API subrouter with common middleware
	api := r.PathPrefix("/api").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	if cfg.Metrics != nil {
		api.Use(sharedmw.Metrics(cfg.Metrics))
	}
	api.Use(middleware.RateLimit(cfg.Registry))
	api.Use(middleware.Envelope())

	api.NotFoundHandler = recoveryMiddleware(notFound(api))
	api.MethodNotAllowedHandler = recoveryMiddleware(http.HandlerFunc(methodNotAllowed))

	api.HandleFunc("", metaHandler.Version).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/", metaHandler.Version).Methods(http.MethodGet, http.MethodPost)

	// Public routes
	api.HandleFunc("/token", tokenHandler.Request).Methods(http.MethodPost)
	api.HandleFunc("/playerCount", playerHandler.DailyCount).Methods(http.MethodGet)
	api.HandleFunc("/playersFromName/{name}", playerHandler.ByName).Methods(http.MethodGet)
	api.HandleFunc("/playerFromUUID/{uuid}", playerHandler.ByUUID).Methods(http.MethodGet)
	api.HandleFunc("/player/ignoreList/{uuid}", playerHandler.IgnoreList).Methods(http.MethodGet)

	// Token protected routes
	post := func(path string, h http.HandlerFunc) {
		api.Handle(path, tokenMiddleware(h)).Methods(http.MethodPost)
	}
	post("/playerCount", playerHandler.Count)
	post("/player/getStats", statsHandler.PublicStats)

	post("/chat", chatHandler.Save)
	post("/chat/get", chatHandler.Get)
	post("/log", chatHandler.Log)
	post("/moderation/mute", chatHandler.Mute)

	post("/mail", mailHandler.Save)
	post("/mail/to", mailHandler.To)
	post("/mail/from", mailHandler.From)
	post("/mail/read", mailHandler.Read)
	post("/mail/unread", mailHandler.Unread)
	post("/mail/delete", mailHandler.Delete)

	post("/player/login", playerHandler.Login)
	post("/player/logout", playerHandler.Logout)
	post("/player/activity", playerHandler.Activity)
	post("/player/ignore", playerHandler.Ignore)
	post("/player/data", playerHandler.SetData)
	post("/player/data/get", playerHandler.Data)
	post("/player/style", playerHandler.Style)

	post("/player/connection", connectionHandler.Set)
	post("/player/connection/get", connectionHandler.Get)
	post("/player/connection/find", connectionHandler.Find)

	post("/player/stat", statsHandler.UpdateStats)
	post("/player/stat/get", statsHandler.Stats)
	post("/player/wallet", statsHandler.UpdateWallets)
	post("/player/wallet/get", statsHandler.Wallets)

	post("/discord/webhook", discordHandler.Webhook)
	post("/discord/servers", discordHandler.Servers)
	post("/discord/servers/add", discordHandler.AddServer)
	post("/discord/roles", discordHandler.ModifyRoles)
	post("/discord/roles/get", discordHandler.Roles)
	post("/discord/webhooks/get", discordHandler.Webhooks)
	post("/discord/webhooks/add", discordHandler.AddWebhook)
	post("/discord/webhooks/remove", discordHandler.RemoveWebhook)

	return r
}

// notFound answers 405 when another method serves the path. Inside the
// subrouter a later route's /api prefix match clears an earlier method
// mismatch, so every route is asked on its own here.
func notFound(api *mux.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if methodMismatch(api, r) {
			methodNotAllowed(w, r)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/api")
		apierr.WriteError(w, apierr.New(http.StatusNotFound, fmt.Sprintf("Endpoint [ %s ] does not exist", path)))
	}
}

var errMatched = errors.New("matched")

func methodMismatch(router *mux.Router, r *http.Request) bool {
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		var match mux.RouteMatch
		if !route.Match(r, &match) && errors.Is(match.MatchErr, mux.ErrMethodMismatch) {
			return errMatched
		}
		return nil
	})
	return errors.Is(err, errMatched)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	apierr.WriteError(w, apierr.New(http.StatusMethodNotAllowed, ""))
}
