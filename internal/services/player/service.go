// Package player handles player profiles: sessions, lookups, ignore lists,
// custom settings, name styles and the public player count.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/palacemc/palace-web/internal/dependencies/clock"
	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
	"github.com/palacemc/palace-web/internal/validation"
)

const (
	// LiveCountTTL is how long a live player count is reused, in milliseconds
	LiveCountTTL = 5 * model.MinuteMillis
	// CustomValueLimit bounds string settings, in characters
	CustomValueLimit = 200
)

var mColors = strings.Split("0123456789abcdef", "")

// Service handles player profiles
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	countMu   sync.Mutex
	live      *model.PlayerCount
	daily     *model.PlayerCount
	dailyTime int64
}

// New creates a player Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "player-service")),
	}
}

// parsePlayer checks a player UUID, treating the null id as a missing player
func parsePlayer(key, id string) (uuid.UUID, error) {
	if err := validation.FormatUUID(key, id); err != nil {
		return uuid.Nil, err
	}
	playerID := identity.ToBinaryID(id)
	if identity.IsNullUUID(playerID) {
		return uuid.Nil, model.ErrPlayerNotFound
	}
	return playerID, nil
}

// Login records a player joining. The player is created on first login and
// renamed when the name changed.
func (s *Service) Login(ctx context.Context, id, name string) (*model.LoginResult, error) {
	if !validation.IsUsername(name) {
		return nil, validation.Errorf("Key 'name' is not a valid Minecraft username")
	}
	playerID, err := validation.ParseUUID("uuid", id)
	if err != nil {
		return nil, err
	}

	now := clock.Millis(s.clock)
	prev, next, err := s.storage.UpsertPlayer(ctx, playerID, func(p *model.Player, created bool) error {
		if created {
			p.FirstLogin = now
		}
		p.Name = name
		p.LastLogin = now
		p.LastLogout = nil
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", playerID, err)
	}

	result := &model.LoginResult{Time: now, FirstLogin: next.FirstLogin}
	if prev == nil {
		result.New = true
		s.logger.Info("new player", "uuid", playerID, "name", name)
	} else if prev.Name != "" && prev.Name != name {
		result.OldName = prev.Name
	}
	return result, nil
}

// Logout records a player leaving and returns the logout time
func (s *Service) Logout(ctx context.Context, id string) (int64, error) {
	playerID, err := parsePlayer("uuid", id)
	if err != nil {
		return 0, err
	}

	now := clock.Millis(s.clock)
	_, err = s.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		p.LastLogout = &now
		return nil
	})
	if err != nil {
		return 0, err
	}
	return now, nil
}

// Activity returns the last login and logout of a player
func (s *Service) Activity(ctx context.Context, id string) (*model.Activity, error) {
	playerID, err := parsePlayer("uuid", id)
	if err != nil {
		return nil, err
	}
	p, err := s.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return &model.Activity{LastLogin: p.LastLogin, LastLogout: p.LastLogout}, nil
}

// ByName returns every player currently using name. More than one account
// can share a name when an old account has not logged in since a rename.
func (s *Service) ByName(ctx context.Context, name string) ([]model.PlayerSummary, error) {
	players, err := s.storage.FindPlayersByName(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]model.PlayerSummary, 0, len(players))
	for _, p := range players {
		out = append(out, p.Summary())
	}
	return out, nil
}

// ByUUID returns the public profile of a player
func (s *Service) ByUUID(ctx context.Context, id string) (*model.PlayerSummary, error) {
	playerID, err := parsePlayer("uuid", id)
	if err != nil {
		return nil, err
	}
	p, err := s.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	summary := p.Summary()
	return &summary, nil
}

// Ignored returns the players on a player's ignore list
func (s *Service) Ignored(ctx context.Context, id string) ([]string, error) {
	playerID, err := parsePlayer("uuid", id)
	if err != nil {
		return nil, err
	}
	p, err := s.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(p.Ignore))
	for _, other := range p.Ignore {
		if canonical := identity.ToCanonicalID(other[:]); canonical != "" {
			out = append(out, canonical)
		}
	}
	return out, nil
}

// SetIgnore adds other to, or removes it from, a player's ignore list
func (s *Service) SetIgnore(ctx context.Context, id, other string, ignore bool) error {
	playerID, err := parsePlayer("uuid", id)
	if err != nil {
		return err
	}
	otherID, err := validation.ParseUUID("other", other)
	if err != nil {
		return err
	}

	p, err := s.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		kept := p.Ignore[:0]
		for _, existing := range p.Ignore {
			if existing != otherID {
				kept = append(kept, existing)
			}
		}
		if ignore {
			kept = append(kept, otherID)
		}
		if len(kept) == 0 {
			kept = nil
		}
		p.Ignore = kept
		return nil
	})
	if err != nil {
		return err
	}
	if p.Ignores(otherID) != ignore {
		return fmt.Errorf("%w: ignore of %s not applied", model.ErrInvariant, otherID)
	}
	return nil
}

func checkCustomKey(key string) error {
	if !validation.IsCustomKey(key) {
		return validation.Errorf("Key 'name' does not match /^[a-z_]{4,24}$/")
	}
	return nil
}

// Data returns a custom setting. The zero CustomValue means unset.
func (s *Service) Data(ctx context.Context, id, key string) (model.CustomValue, error) {
	if err := checkCustomKey(key); err != nil {
		return model.CustomValue{}, err
	}
	playerID, err := parsePlayer("uuid", id)
	if err != nil {
		return model.CustomValue{}, err
	}
	p, err := s.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return model.CustomValue{}, err
	}
	return p.Custom[key], nil
}

// SetData stores a custom setting. value is a string, a 64-bit integer or
// nil to delete the setting.
func (s *Service) SetData(ctx context.Context, id, key string, value any) error {
	if err := checkCustomKey(key); err != nil {
		return err
	}

	var next model.CustomValue
	if !validation.IsNull(value) {
		if str, ok := validation.String(value); ok {
			if validation.Length(str) > CustomValueLimit {
				return validation.Errorf("Key 'value' cannot be a string greater than %d characters", CustomValueLimit)
			}
			next = model.StringValue(str)
		} else if validation.IsBigInt(value) {
			n, ok := validation.ToBigInt64(value)
			if !ok {
				return validation.Errorf("Key 'value' could not be parsed as a 64-bit signed integer")
			}
			next = model.IntegerValue(n)
		} else {
			return validation.Errorf("Key 'value' must be a string or 64-bit signed integer")
		}
	}

	playerID, err := parsePlayer("uuid", id)
	if err != nil {
		return err
	}

	_, err = s.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		if next.String == nil && next.Integer == nil {
			delete(p.Custom, key)
			if len(p.Custom) == 0 {
				p.Custom = nil
			}
			return nil
		}
		if p.Custom == nil {
			p.Custom = make(map[string]model.CustomValue, 1)
		}
		p.Custom[key] = next
		return nil
	})
	return err
}

// SetNameStyle replaces a player's name style. A nil or default style
// removes it.
func (s *Service) SetNameStyle(ctx context.Context, id string, style any) error {
	next, err := parseNameStyle(style)
	if err != nil {
		return err
	}
	playerID, err := parsePlayer("uuid", id)
	if err != nil {
		return err
	}

	p, err := s.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		if next.IsDefault() {
			p.NameStyle = nil
		} else {
			p.NameStyle = next
		}
		return nil
	})
	if err != nil {
		return err
	}
	if p.NameStyle != nil && p.NameStyle.MColor != "" && p.NameStyle.Color != "" {
		return fmt.Errorf("%w: name style of %s has both color forms", model.ErrInvariant, playerID)
	}
	return nil
}

func parseNameStyle(style any) (*model.NameStyle, error) {
	if validation.IsNull(style) {
		return nil, nil
	}
	raw, ok := style.(map[string]any)
	if !ok {
		return nil, validation.Errorf("Key 'style' must be an object or unset")
	}

	out := &model.NameStyle{}
	for _, flag := range []struct {
		key string
		dst *bool
	}{
		{"bold", &out.Bold},
		{"underline", &out.Underline},
	} {
		v := raw[flag.key]
		if validation.IsNull(v) {
			continue
		}
		b, ok := v.(bool)
		if !ok {
			return nil, validation.Errorf("Property '%s' of 'style' is not a valid value: [true,false]", flag.key)
		}
		*flag.dst = b
	}

	if v := raw["mColor"]; !validation.IsNull(v) {
		c, ok := v.(string)
		if !ok || len(c) != 1 || !strings.Contains("0123456789abcdef", c) {
			return nil, validation.Errorf("Property 'mColor' of 'style' is not a valid value: [%s]", strings.Join(mColors, ","))
		}
		out.MColor = c
	}

	if v := raw["color"]; !validation.IsNull(v) {
		color, err := parseHexColor("color", v)
		if err != nil {
			return nil, err
		}
		// color always overrides mColor
		out.MColor = ""
		out.Color = color

		if v := raw["colorB"]; !validation.IsNull(v) {
			colorB, err := parseHexColor("colorB", v)
			if err != nil {
				return nil, err
			}
			out.ColorB = colorB
		}
		if out.Color == "ffffff" && (out.ColorB == "" || out.ColorB == "ffffff") {
			out.Color = ""
			out.ColorB = ""
		}
	}
	return out, nil
}

func parseHexColor(key string, v any) (string, error) {
	s, ok := validation.String(v)
	if !ok {
		return "", validation.Errorf("Property '%s' of 'style' must be a string", key)
	}
	if !validation.IsHexColor(s) {
		return "", validation.Errorf("Property '%s' of 'style' is not a valid hex color, must be like #0169AF", key)
	}
	return strings.TrimPrefix(s, "#"), nil
}

// Count returns the live player count, recalculated at most every five minutes
func (s *Service) Count(ctx context.Context) (*model.PlayerCount, error) {
	s.countMu.Lock()
	defer s.countMu.Unlock()
	return s.liveLocked(ctx)
}

// DailyCount returns the player count calculated once per UTC day
func (s *Service) DailyCount(ctx context.Context) (*model.PlayerCount, error) {
	s.countMu.Lock()
	defer s.countMu.Unlock()

	now := s.clock.Now().UTC()
	if s.daily != nil && sameDay(now, time.UnixMilli(s.dailyTime).UTC()) {
		return s.daily, nil
	}

	count, err := s.liveLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.daily = count
	s.dailyTime = now.UnixMilli()
	return count, nil
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (s *Service) liveLocked(ctx context.Context) (*model.PlayerCount, error) {
	now := clock.Millis(s.clock)
	if s.live != nil && s.live.Time > now-LiveCountTTL {
		return s.live, nil
	}

	count, err := s.storage.CountPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	players, err := s.storage.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	result := &model.PlayerCount{Time: now, Count: count}
	lastMonth, lastWeek, lastDay := now-model.MonthMillis, now-model.WeekMillis, now-model.DayMillis
	for _, p := range players {
		var logout int64
		if p.LastLogout != nil {
			logout = *p.LastLogout
		}
		if p.LastLogin < lastMonth && logout < lastMonth {
			continue
		}
		result.Month++

		last := max(p.LastLogin, logout)
		switch {
		case last >= lastDay:
			result.Recent++
			result.Week++
		case last >= lastWeek:
			result.Week++
		}
	}

	s.live = result
	s.logger.Debug("player count refreshed", "count", count, "month", result.Month)
	return result, nil
}
