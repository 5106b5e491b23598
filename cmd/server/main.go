package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/palacemc/palace-web/internal/api"
	"github.com/palacemc/palace-web/internal/config"
	"github.com/palacemc/palace-web/internal/factory"
	"github.com/palacemc/palace-web/internal/services/auth"
	redisstorage "github.com/palacemc/palace-web/internal/storage/redis"
	"github.com/palacemc/palace-web/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	registryCfg := auth.DefaultConfig()
	registryCfg.Callers = cfg.Callers
	registryCfg.Secret = cfg.TokenSecret
	if cfg.TokenSecret == "" {
		logger.Warn("API_TOKEN_SECRET not set, token exchange disabled")
	}

	factoryCfg := factory.Config{
		Logger:         logger,
		StorageType:    cfg.StorageType,
		RegistryConfig: registryCfg,
		Discord:        cfg.Discord,
		InviteURL:      cfg.InviteURL,
	}

	// Configure Redis if storage type is redis
	if cfg.StorageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory, connecting the store
	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close storage", slog.String("error", err.Error()))
		}
	}()
	logger.Info("storage connected", slog.String("type", cfg.StorageType))

	// API, health and metrics, then the public pages
	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Version:     cfg.Version,
		Metrics:     app.Metrics,
		Storage:     app.Storage,
		Registry:    app.Registry,
		Players:     app.Players,
		Connections: app.Connections,
		Wallets:     app.Wallets,
		Stats:       app.Stats,
		Chat:        app.Chat,
		Mail:        app.Mail,
		Moderation:  app.Moderation,
		Discord:     app.Discord,
	})
	web.Register(router, web.RouterConfig{
		Logger:  logger,
		Metrics: app.Metrics,
		Discord: app.Discord,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = cfg.Port
	serverConfig.ReadTimeout = cfg.ReadTimeout
	serverConfig.WriteTimeout = cfg.WriteTimeout
	serverConfig.ShutdownTimeout = cfg.ShutdownTimeout
	server := api.NewServer(router, serverConfig, logger)

	// Serve until SIGINT/SIGTERM, then drain
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("server starting", slog.Int("port", cfg.Port), slog.String("version", cfg.Version))
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
