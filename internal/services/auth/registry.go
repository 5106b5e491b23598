package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/crypto/bcrypt"

	"github.com/palacemc/palace-web/internal/dependencies/clock"
	"github.com/palacemc/palace-web/internal/dependencies/random"
	"github.com/palacemc/palace-web/internal/metrics"
	"github.com/palacemc/palace-web/internal/model"
)

// Token is a freshly issued API token. Refresh is the epoch-millisecond time
// the token stops being accepted; it must be refreshed before then.
type Token struct {
	Token   string `json:"token"`
	Refresh int64  `json:"refresh"`
}

// Config holds configuration for the registry
type Config struct {
	// Callers are the allow-listed caller identities, "ip:port" or a bare "ip"
	Callers []string

	// Secret is the shared exchange secret. Empty disables exchanges.
	Secret string

	TokenLifetime time.Duration
	RefreshAfter  time.Duration
	TokenBytes    int

	RateWindow   time.Duration
	RateBudget   int
	RateCapacity int
}

// DefaultConfig returns default registry configuration
func DefaultConfig() Config {
	return Config{
		TokenLifetime: 60 * time.Second,
		RefreshAfter:  30 * time.Second,
		TokenBytes:    64,
		RateWindow:    100 * time.Second,
		RateBudget:    50,
		RateCapacity:  1000,
	}
}

type credential struct {
	token    string
	issuedAt int64 // epoch millis
}

type budget struct {
	windowEnd int64 // epoch millis
	remaining int
}

// Registry issues short-lived API tokens to allow-listed callers and budgets
// requests from everyone else. One mutex guards both maps; nothing under it
// does I/O.
type Registry struct {
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	metrics *metrics.Metrics
	cfg     Config

	secretHash []byte

	callers map[string]struct{} // read-only after New

	mu          sync.Mutex
	credentials map[string]*credential
	budgets     *simplelru.LRU[string, budget]
}

// New creates a Registry. The exchange secret is kept only as a bcrypt hash.
func New(clock clock.Clock, random random.Random, logger *slog.Logger, m *metrics.Metrics, cfg Config) (*Registry, error) {
	def := DefaultConfig()
	if cfg.TokenLifetime == 0 {
		cfg.TokenLifetime = def.TokenLifetime
	}
	if cfg.RefreshAfter == 0 {
		cfg.RefreshAfter = def.RefreshAfter
	}
	if cfg.TokenBytes == 0 {
		cfg.TokenBytes = def.TokenBytes
	}
	if cfg.RateWindow == 0 {
		cfg.RateWindow = def.RateWindow
	}
	if cfg.RateBudget == 0 {
		cfg.RateBudget = def.RateBudget
	}
	if cfg.RateCapacity == 0 {
		cfg.RateCapacity = def.RateCapacity
	}

	budgets, err := simplelru.NewLRU[string, budget](cfg.RateCapacity, nil)
	if err != nil {
		return nil, fmt.Errorf("rate limit map: %w", err)
	}

	r := &Registry{
		clock:       clock,
		random:      random,
		logger:      logger,
		metrics:     m,
		cfg:         cfg,
		callers:     make(map[string]struct{}, len(cfg.Callers)),
		credentials: make(map[string]*credential, len(cfg.Callers)),
		budgets:     budgets,
	}
	for _, caller := range cfg.Callers {
		r.callers[caller] = struct{}{}
	}

	if cfg.Secret != "" {
		r.secretHash, err = bcrypt.GenerateFromPassword(prehash(cfg.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash exchange secret: %w", err)
		}
	}
	return r, nil
}

// prehash keeps arbitrarily long secrets inside bcrypt's 72 byte limit
func prehash(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(hex.EncodeToString(sum[:]))
}

// Caller resolves a remote "ip:port" address to its allow-list entry
func (r *Registry) Caller(remote string) (string, bool) {
	if _, ok := r.callers[remote]; ok {
		return remote, true
	}
	if host, _, err := net.SplitHostPort(remote); err == nil {
		if _, ok := r.callers[host]; ok {
			return host, true
		}
	}
	return "", false
}

// RequestToken runs one step of the exchange/refresh handshake for the
// caller at remote. Exactly one of exchange and refresh must be set.
func (r *Registry) RequestToken(remote, exchange, refresh string) (*Token, error) {
	caller, ok := r.Caller(remote)
	if !ok {
		return nil, model.ErrUnauthorized
	}
	if (exchange == "") == (refresh == "") {
		return nil, model.ErrUnauthorized
	}

	kind := "refresh"
	if exchange != "" {
		kind = "exchange"
	}

	// bcrypt and token generation stay outside the lock
	secretOK := exchange != "" && r.secretHash != nil &&
		bcrypt.CompareHashAndPassword(r.secretHash, prehash(exchange)) == nil
	next, err := r.random.Hex(r.cfg.TokenBytes)
	if err != nil {
		r.count(kind, "error")
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := clock.Millis(r.clock)
	lifetime := r.cfg.TokenLifetime.Milliseconds()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.credentials[caller]

	if exchange != "" {
		if entry != nil && entry.issuedAt > now-lifetime {
			r.logger.Warn("unexpected token exchange", "caller", caller)
			r.count(kind, "rejected")
			return nil, model.ErrUnauthorized
		}
		if !secretOK {
			r.logger.Warn("invalid exchange secret", "caller", caller)
			r.count(kind, "rejected")
			return nil, model.ErrUnauthorized
		}
	} else {
		// token first, it gives the least away
		if entry == nil || subtle.ConstantTimeCompare([]byte(entry.token), []byte(refresh)) != 1 {
			r.logger.Warn("invalid refresh token", "caller", caller)
			r.count(kind, "rejected")
			return nil, model.ErrUnauthorized
		}
		age := now - entry.issuedAt
		if age <= r.cfg.RefreshAfter.Milliseconds() {
			r.credentials[caller] = nil
			r.logger.Warn("token refreshed too early", "caller", caller, "age_ms", age)
			r.count(kind, "early")
			return nil, model.ErrUnauthorized
		}
		if age >= lifetime {
			r.credentials[caller] = nil
			r.count(kind, "expired")
			return nil, model.ErrUnauthorized
		}
	}

	r.credentials[caller] = &credential{token: next, issuedAt: now}
	r.count(kind, "ok")
	return &Token{Token: next, Refresh: now + lifetime}, nil
}

// Validate checks token against the one issued to the caller at remote
func (r *Registry) Validate(remote, token string) error {
	caller, ok := r.Caller(remote)
	if !ok {
		return model.ErrUnauthorized
	}

	now := clock.Millis(r.clock)

	r.mu.Lock()
	entry := r.credentials[caller]
	r.mu.Unlock()

	if entry == nil || token == "" || subtle.ConstantTimeCompare([]byte(entry.token), []byte(token)) != 1 {
		return model.ErrUnauthorized
	}
	if entry.issuedAt < now-r.cfg.TokenLifetime.Milliseconds() {
		return model.ErrTokenExpired
	}
	return nil
}

// Allow spends one request of the budget of remote's IP. Allow-listed
// callers are never limited.
func (r *Registry) Allow(remote string) error {
	if _, ok := r.Caller(remote); ok {
		return nil
	}
	ip := remote
	if host, _, err := net.SplitHostPort(remote); err == nil {
		ip = host
	}

	now := clock.Millis(r.clock)

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.budgets.Get(ip)
	switch {
	case !ok || now > b.windowEnd:
		r.budgets.Add(ip, budget{windowEnd: now + r.cfg.RateWindow.Milliseconds(), remaining: r.cfg.RateBudget - 1})
	case b.remaining > 0:
		b.remaining--
		r.budgets.Add(ip, b)
	default:
		if r.metrics != nil {
			r.metrics.RateLimited.Inc()
		}
		return model.ErrTooManyRequests
	}
	return nil
}

func (r *Registry) count(kind, result string) {
	if r.metrics != nil {
		r.metrics.TokenRequests.WithLabelValues(kind, result).Inc()
	}
}
