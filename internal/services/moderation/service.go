// Package moderation handles player mutes and the operator log.
package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/palacemc/palace-web/internal/dependencies/clock"
	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
	"github.com/palacemc/palace-web/internal/validation"
)

// MuteQuery asks for the current mute instead of changing it
const MuteQuery = "?"

// Service handles moderation records
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a moderation Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "moderation-service")),
	}
}

// MuteResult is the outcome of Mute. Queried is set when the call only read
// the mute, in which case Until holds it.
type MuteResult struct {
	Queried bool
	Until   *int64
}

// Mute sets, clears or reads a player's mute. until is a millisecond time,
// nil to unmute, or "?" to read the current mute. Past times are accepted.
func (s *Service) Mute(ctx context.Context, id string, until any) (*MuteResult, error) {
	var at *int64
	query := false
	switch {
	case validation.IsNull(until):
	case isString(until):
		if str, _ := validation.String(until); str != MuteQuery {
			return nil, validation.Errorf("Key 'time' must be an integer, '?', or unset")
		}
		query = true
	default:
		t, ok := validation.Integer(until)
		if !ok {
			return nil, validation.Errorf("Key 'time' must be an integer or unset")
		}
		if !validation.IsReasonableTime(t) {
			return nil, validation.Errorf("Key 'time' is not a reasonable time, must be in milliseconds")
		}
		at = &t
	}

	if err := validation.FormatUUID("uuid", id); err != nil {
		return nil, err
	}
	playerID := identity.ToBinaryID(id)
	if identity.IsNullUUID(playerID) {
		return nil, model.ErrPlayerNotFound
	}

	if query {
		p, err := s.storage.GetPlayer(ctx, playerID)
		if err != nil {
			return nil, err
		}
		return &MuteResult{Queried: true, Until: p.Mute}, nil
	}

	p, err := s.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		p.Mute = at
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !sameTime(p.Mute, at) {
		return nil, fmt.Errorf("%w: mute of %s not applied", model.ErrInvariant, playerID)
	}
	s.logMute(playerID, at)
	return &MuteResult{Until: p.Mute}, nil
}

func (s *Service) logMute(id uuid.UUID, until *int64) {
	if until == nil {
		s.logger.Info("player unmuted", "uuid", id)
		return
	}
	s.logger.Info("player muted", "uuid", id, "until", *until)
}

// isString reports whether v is a non-empty string
func isString(v any) bool {
	_, ok := validation.String(v)
	return ok
}

func sameTime(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SaveLog stores an operator log line reported by a game server. The
// message and exception are truncated to the log limit.
func (s *Service) SaveLog(ctx context.Context, message string, exception any) error {
	entry := &model.LogEntry{
		Time:    clock.Millis(s.clock),
		Message: validation.Truncate(message, model.LogLimit, model.LogTruncateAbove),
	}
	if !validation.IsNull(exception) {
		str, ok := validation.String(exception)
		if !ok {
			return validation.Errorf("Key 'exception' must be a non-empty string or unset")
		}
		entry.Exception = validation.Truncate(str, model.LogLimit, model.LogTruncateAbove)
	}
	if err := s.storage.SaveLog(ctx, entry); err != nil {
		return fmt.Errorf("save log: %w", err)
	}
	return nil
}
