package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/palacemc/palace-web/internal/metrics"
	sharedmw "github.com/palacemc/palace-web/internal/middleware"
	"github.com/palacemc/palace-web/internal/services/discord"
	"github.com/palacemc/palace-web/internal/web/handler"
	"github.com/palacemc/palace-web/internal/web/middleware"
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Discord *discord.Service
}

// Register adds the public pages to r. Trailing slashes redirect to the
// bare path.
func Register(r *mux.Router, cfg RouterConfig) {
	discordHandler := handler.NewDiscordHandler(cfg.Discord, cfg.Logger)

	pages := r.NewRoute().Subrouter()
	pages.StrictSlash(true)
	pages.Use(middleware.Recovery(cfg.Logger))
	pages.Use(sharedmw.Logging(cfg.Logger))
	if cfg.Metrics != nil {
		pages.Use(sharedmw.Metrics(cfg.Metrics))
	}

	pages.HandleFunc("/discord", discordHandler.Verify).Methods(http.MethodGet)
}

// NewRouter creates a router serving only the public pages
func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()
	Register(r, cfg)
	return r
}
