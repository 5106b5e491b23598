// Package connection manages the links between players and external
// providers. Each link holds three independently expiring values: the
// durable account id (content), a short verification secret (hash) and the
// provider's OAuth tokens (token).
package connection

import (
	"context"
	"fmt"

	"github.com/palacemc/palace-web/internal/dependencies/clock"
	"github.com/palacemc/palace-web/internal/dependencies/random"
	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
	"github.com/palacemc/palace-web/internal/validation"
)

// SetRequest describes a write of one connection pair. Value and Expire
// are the raw decoded JSON values; a nil Value deletes the pair.
type SetRequest struct {
	UUID     string
	Provider string
	Pair     string
	Value    any
	Expire   any
}

// Service handles player connections
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
}

// New creates a connection Service
func New(storage storage.Storage, clock clock.Clock, random random.Random) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
	}
}

func checkProvider(provider string) error {
	if !model.IsConnectionProvider(provider) {
		return validation.Errorf("Key 'type' is an invalid connection type")
	}
	return nil
}

func parsePair(pair string) (model.ConnectionPair, error) {
	p, ok := model.ParseConnectionPair(pair)
	if !ok {
		return "", validation.Errorf("Key 'pair' is an invalid pair kind")
	}
	return p, nil
}

// Get returns the raw stored pair. An absent connection or value reads as
// unset; expiry is left to the caller.
func (s *Service) Get(ctx context.Context, id, provider, pair string) (model.ConnectionValue, error) {
	if err := checkProvider(provider); err != nil {
		return model.ConnectionValue{}, err
	}
	p, err := parsePair(pair)
	if err != nil {
		return model.ConnectionValue{}, err
	}
	playerID, err := validation.ParseUUID("uuid", id)
	if err != nil {
		return model.ConnectionValue{}, err
	}

	player, err := s.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return model.ConnectionValue{}, err
	}

	c := player.Connections[provider]
	if c == nil {
		return model.UnsetConnectionValue(), nil
	}
	value, ttl := c.Pair(p)
	if value == nil {
		return model.UnsetConnectionValue(), nil
	}
	return model.ConnectionValue{Value: value, TTL: ttl}, nil
}

// Set writes one pair and its expiry together and returns what was stored.
// Hash values are always generated here; any non-nil Value only asks for a
// new one. Set never creates a player.
func (s *Service) Set(ctx context.Context, req SetRequest) (model.ConnectionValue, error) {
	if err := checkProvider(req.Provider); err != nil {
		return model.ConnectionValue{}, err
	}
	pair, err := parsePair(req.Pair)
	if err != nil {
		return model.ConnectionValue{}, err
	}
	if err := validation.FormatUUID("uuid", req.UUID); err != nil {
		return model.ConnectionValue{}, err
	}
	playerID := identity.ToBinaryID(req.UUID)
	if identity.IsNullUUID(playerID) {
		return model.ConnectionValue{}, model.ErrPlayerNotFound
	}

	var value *string
	var expire int64
	switch {
	case validation.IsNull(req.Value):
		expire = model.InstantSecondMin
	case pair == model.PairHash:
		if expire, err = s.hashExpiry(req.Expire); err != nil {
			return model.ConnectionValue{}, err
		}
		hash, err := s.random.Hex(model.HashBytes)
		if err != nil {
			return model.ConnectionValue{}, fmt.Errorf("generate hash: %w", err)
		}
		value = &hash
	default:
		str, err := checkValue(pair, req.Value)
		if err != nil {
			return model.ConnectionValue{}, err
		}
		if expire, err = valueExpiry(req.Expire); err != nil {
			return model.ConnectionValue{}, err
		}
		value = &str
	}

	player, err := s.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		if p.Connections == nil {
			p.Connections = make(map[string]*model.Connection)
		}
		c := p.Connections[req.Provider]
		if c == nil {
			c = model.NewConnection()
			p.Connections[req.Provider] = c
		}
		c.SetPair(pair, value, expire)
		return nil
	})
	if err != nil {
		return model.ConnectionValue{}, err
	}

	c := player.Connections[req.Provider]
	if c == nil {
		return model.ConnectionValue{}, fmt.Errorf("%w: connection %s missing after update", model.ErrInvariant, req.Provider)
	}
	stored, ttl := c.Pair(pair)
	return model.ConnectionValue{Value: stored, TTL: ttl}, nil
}

// hashExpiry defaults to the longest hash lifetime and clamps into it
func (s *Service) hashExpiry(raw any) (int64, error) {
	now := clock.Seconds(s.clock)
	latest := now + model.HashLifetimeSecs
	if validation.IsNull(raw) {
		return latest, nil
	}
	if !validation.IsBigInt(raw) {
		return 0, validation.Errorf("Key 'expire' must be a 64-bit integer or unset")
	}
	expire, ok := validation.ToBigInt64(raw)
	if !ok {
		return 0, validation.Errorf("Key 'expire' is not a valid 64-bit integer")
	}
	return min(max(expire, now), latest), nil
}

func checkValue(pair model.ConnectionPair, raw any) (string, error) {
	value, ok := validation.String(raw)
	if !ok {
		return "", validation.Errorf("Key 'value' must be a non-empty string or unset")
	}
	switch pair {
	case model.PairToken:
		if validation.Length(value) > model.MaxTokenLength {
			return "", validation.Errorf("Key 'value' is excessively long, cannot be more than %d characters for 'token'", model.MaxTokenLength)
		}
	case model.PairContent:
		if validation.Length(value) > model.MaxContentLength {
			return "", validation.Errorf("Key 'value' is excessively long, cannot be more than %d characters for 'content'", model.MaxContentLength)
		}
	}
	if validation.HasWhitespace(value) {
		return "", validation.Errorf("Key 'value' may not contain whitespace")
	}
	return value, nil
}

func valueExpiry(raw any) (int64, error) {
	if validation.IsNull(raw) {
		return 0, validation.Errorf("Integer 'expire' is required")
	}
	if !validation.IsBigInt(raw) {
		return 0, validation.Errorf("Key 'expire' must be a 64-bit integer")
	}
	expire, ok := validation.ToBigInt64(raw)
	if !ok {
		return 0, validation.Errorf("Key 'expire' is not a valid 64-bit integer")
	}
	return model.ClampInstant(expire), nil
}

// Find returns the player whose content for provider is content and still
// active. Expired or revoked links never resolve.
func (s *Service) Find(ctx context.Context, provider, content string) (*model.PlayerSummary, error) {
	if err := checkProvider(provider); err != nil {
		return nil, err
	}
	if validation.Length(content) > model.MaxContentLength {
		return nil, validation.Errorf("Key 'content' is excessively long, cannot be more than %d characters", model.MaxContentLength)
	}

	candidates, err := s.storage.FindPlayersByConnection(ctx, provider, content)
	if err != nil {
		return nil, err
	}

	now := clock.Seconds(s.clock)
	for _, p := range candidates {
		if c := p.Connections[provider]; c != nil && c.ActiveAt(model.PairContent, now) {
			summary := p.Summary()
			return &summary, nil
		}
	}
	return nil, model.ErrPlayerNotFound
}
