// Package config reads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/palacemc/palace-web/internal/discordapi"
)

// Defaults used when the environment leaves a setting empty
const (
	DefaultPort       = 8080
	DefaultInviteURL  = "https://discord.gg/4mzWHGE"
	DefaultVersion    = "dev"
	EnvProduction     = "production"
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// Config is the full server configuration
type Config struct {
	Env      string
	Port     int
	LogLevel slog.Level
	Version  string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	StorageType string
	RedisURL    string

	// TokenSecret is the shared API exchange secret
	TokenSecret string
	// Callers is the API allow-list, "ip:port" or bare "ip"
	Callers []string

	Discord discordapi.Config
	// InviteURL is the public invite link of the community guild
	InviteURL string
}

// Load reads the configuration. Outside production a .env file in the
// working directory is loaded first when present.
func Load() (Config, error) {
	if os.Getenv("APP_ENV") != EnvProduction {
		_ = godotenv.Load()
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from lookup, which reports a value and
// whether the variable is set
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		Env:         get("APP_ENV", "development"),
		Port:        DefaultPort,
		Version:     get("APP_VERSION", DefaultVersion),
		StorageType: get("STORAGE_TYPE", StorageTypeMemory),
		RedisURL:    get("REDIS_URL", ""),
		TokenSecret: get("API_TOKEN_SECRET", ""),
		Callers:     splitList(get("API_CALLERS", "")),
		Discord: discordapi.Config{
			ClientID:    get("DISCORD_CLIENTID", ""),
			Secret:      get("DISCORD_SECRET", ""),
			RedirectURL: get("DISCORD_REDIRECT", discordapi.DefaultRedirect),
			APIBase:     get("DISCORD_API", discordapi.DefaultAPIBase),
		},
		InviteURL: get("DISCORD_URL", DefaultInviteURL),
	}

	if port := get("PORT", ""); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", port)
		}
		cfg.Port = n
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"HTTP_READ_TIMEOUT", DefaultReadTimeout, &cfg.ReadTimeout},
		{"HTTP_WRITE_TIMEOUT", DefaultWriteTimeout, &cfg.WriteTimeout},
		{"HTTP_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		*d.dest = d.def
		raw := get(d.key, "")
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("invalid %s %q", d.key, raw)
		}
		*d.dest = v
	}

	level, err := parseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	switch cfg.StorageType {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL required when STORAGE_TYPE=%s", StorageTypeRedis)
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_TYPE %q: must be %q or %q", cfg.StorageType, StorageTypeMemory, StorageTypeRedis)
	}

	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
