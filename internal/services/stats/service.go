// Package stats reads and increments player statistics. The all-zero UUID
// holds server-wide statistics.
package stats

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
	"github.com/palacemc/palace-web/internal/validation"
)

var statMessages = validation.ListMessages{
	Required:     "String or String[] 'stats' is required",
	InvalidEntry: "Array 'stats' contains invalid stat keys",
	InvalidKey:   "Key 'stats' is an invalid stat key",
}

// Service handles player statistics
type Service struct {
	storage storage.Storage
}

// New creates a stats Service
func New(storage storage.Storage) *Service {
	return &Service{storage: storage}
}

// parseOwner decodes the stats owner. Only the literal all-zero UUID may
// address the server-wide document.
func parseOwner(id string) (uuid.UUID, bool, error) {
	if err := validation.FormatUUID("uuid", id); err != nil {
		return uuid.Nil, false, err
	}
	owner := identity.ToBinaryID(id)
	if identity.IsNullUUID(owner) && id != identity.NullUUIDString {
		return uuid.Nil, false, nil
	}
	return owner, true, nil
}

// Get returns the requested stats that are set, keyed by their dotted name
func (s *Service) Get(ctx context.Context, id string, stats any) (map[string]int64, error) {
	if validation.IsNull(stats) {
		return nil, validation.Errorf("%s", statMessages.Required)
	}
	owner, ok, err := parseOwner(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrStatsNotFound
	}
	keys, err := validation.StringList("stats", stats, model.IsStat, statMessages)
	if err != nil {
		return nil, err
	}

	doc, err := s.storage.GetStats(ctx, owner)
	if err != nil {
		return nil, err
	}
	return doc.Project(keys), nil
}

// Update adds delta to every named stat, clamped per stat, and returns the
// new values of those stats
func (s *Service) Update(ctx context.Context, id string, stats, delta any) (map[string]int64, error) {
	if validation.IsNull(stats) {
		return nil, validation.Errorf("%s", statMessages.Required)
	}
	if validation.IsNull(delta) {
		return nil, validation.Errorf("Integer 'delta' is required")
	}
	n, ok := validation.Integer(delta)
	if !ok {
		return nil, validation.Errorf("Key 'delta' must be an integer")
	}
	if n == 0 {
		return nil, validation.Errorf("Key 'delta' cannot be zero")
	}
	owner, ok, err := parseOwner(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, validation.Errorf("Key 'uuid' could not be parsed, it is invalid")
	}
	keys, err := validation.StringList("stats", stats, model.IsStat, statMessages)
	if err != nil {
		return nil, err
	}

	deltas := make(map[string]int64, len(keys))
	for _, key := range keys {
		deltas[key] = model.StatRanges[key].Clamp(n)
	}
	doc, err := s.storage.IncrementStats(ctx, owner, deltas)
	if err != nil {
		return nil, fmt.Errorf("increment stats of %s: %w", owner, err)
	}
	return doc.Project(keys), nil
}
