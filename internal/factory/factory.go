package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/palacemc/palace-web/internal/dependencies/clock"
	"github.com/palacemc/palace-web/internal/dependencies/random"
	"github.com/palacemc/palace-web/internal/discordapi"
	"github.com/palacemc/palace-web/internal/metrics"
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
	"github.com/palacemc/palace-web/internal/storage/memory"
	redisstorage "github.com/palacemc/palace-web/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock   clock.Clock
	Random  random.Random
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// Services
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

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// RegistryConfig holds the API allow-list and exchange secret.
	// Zero durations fall back to auth.DefaultConfig()
	RegistryConfig auth.Config
	// Discord holds the OAuth2 application credentials
	Discord discordapi.Config
	// DiscordAPI replaces the Discord HTTP client (optional)
	DiscordAPI discord.API
	// InviteURL is the public invite link of the community guild
	InviteURL string
	// WalletCommitTimeout bounds wallet transactions (optional)
	WalletCommitTimeout time.Duration
}

// New creates a new application with all dependencies wired. The Redis
// backend is connected and pinged here; a store that cannot be reached is an
// error.
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = logger

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	app, err := newWithDependencies(store, clk, rnd, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config) (*App, error) {
	m := metrics.New()

	registry, err := auth.New(clk, rnd, cfg.Logger, m, cfg.RegistryConfig)
	if err != nil {
		return nil, err
	}

	api := cfg.DiscordAPI
	if api == nil {
		api = discordapi.New(cfg.Discord)
	}

	// Create services
	players := player.New(store, clk, cfg.Logger)
	connections := connection.New(store, clk, rnd)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Metrics:     m,
		Logger:      cfg.Logger,
		Registry:    registry,
		Players:     players,
		Connections: connections,
		Wallets:     wallet.New(store, cfg.Logger, m, cfg.WalletCommitTimeout),
		Stats:       stats.New(store),
		Chat:        chat.New(store, clk),
		Mail:        mail.New(store, clk),
		Moderation:  moderation.New(store, clk, cfg.Logger),
		Discord:     discord.NewService(store, connections, players, api, clk, m, cfg.Logger, cfg.InviteURL),
	}, nil
}

// Close releases the storage connection
func (a *App) Close() error {
	return a.Storage.Close()
}
