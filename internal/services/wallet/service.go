// Package wallet applies currency changes to player wallets. Deltas are
// applied first and negative results reversed afterwards, so the common
// case of sufficient funds costs one round trip.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/metrics"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
	"github.com/palacemc/palace-web/internal/validation"
)

// DefaultCommitTimeout bounds a wallet transaction
const DefaultCommitTimeout = time.Second

var walletMessages = validation.ListMessages{
	Required:     "String or String[] 'wallets' is required",
	InvalidEntry: "Array 'wallets' contains invalid wallets",
	InvalidKey:   "Key 'wallets' is an invalid wallet",
}

// UpdateRequest is a raw wallet update as sent by callers. Delta is applied
// to every wallet named by Wallets.
type UpdateRequest struct {
	UUID          string
	Wallets       any
	Delta         any
	AllowNegative bool
	FailIfPartial bool
}

// Service handles wallet reads and updates
type Service struct {
	storage       storage.Storage
	logger        *slog.Logger
	metrics       *metrics.Metrics
	commitTimeout time.Duration
}

// New creates a wallet Service
func New(storage storage.Storage, logger *slog.Logger, m *metrics.Metrics, commitTimeout time.Duration) *Service {
	if commitTimeout == 0 {
		commitTimeout = DefaultCommitTimeout
	}
	return &Service{
		storage:       storage,
		logger:        logger,
		metrics:       m,
		commitTimeout: commitTimeout,
	}
}

// parsePlayer checks a player UUID, treating the null id as a missing player
func parsePlayer(id string) (uuid.UUID, error) {
	if err := validation.FormatUUID("uuid", id); err != nil {
		return uuid.Nil, err
	}
	playerID := identity.ToBinaryID(id)
	if identity.IsNullUUID(playerID) {
		return uuid.Nil, model.ErrPlayerNotFound
	}
	return playerID, nil
}

// Get returns the requested wallets of a player. Wallets never written are omitted.
func (s *Service) Get(ctx context.Context, id string, wallets any) (map[string]int64, error) {
	if validation.IsNull(wallets) {
		return nil, validation.Errorf("%s", walletMessages.Required)
	}
	playerID, err := parsePlayer(id)
	if err != nil {
		return nil, err
	}
	names, err := validation.StringList("wallets", wallets, model.IsWallet, walletMessages)
	if err != nil {
		return nil, err
	}

	p, err := s.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(names))
	for _, name := range names {
		if balance, ok := p.Wallet[name]; ok {
			out[name] = balance
		}
	}
	return out, nil
}

// Update validates a raw request and runs it through Apply
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*model.WalletUpdate, error) {
	if validation.IsNull(req.Wallets) {
		return nil, validation.Errorf("%s", walletMessages.Required)
	}
	if validation.IsNull(req.Delta) {
		return nil, validation.Errorf("Integer 'delta' is required")
	}
	delta, ok := validation.Integer(req.Delta)
	if !ok {
		return nil, validation.Errorf("Key 'delta' must be an integer")
	}
	if delta == 0 {
		return nil, validation.Errorf("Key 'delta' cannot be zero")
	}
	playerID, err := parsePlayer(req.UUID)
	if err != nil {
		return nil, err
	}
	names, err := validation.StringList("wallets", req.Wallets, model.IsWallet, walletMessages)
	if err != nil {
		return nil, err
	}

	deltas := make(map[string]int64, len(names))
	for _, name := range names {
		deltas[name] = delta
	}
	return s.Apply(ctx, playerID, deltas, req.AllowNegative, req.FailIfPartial)
}

// Apply adds deltas to the player's wallets in one transaction. Each delta
// is first clamped to its wallet's range.
//
// Unless allowNegative is set, every wallet this call drove negative by
// decreasing it is a rollback candidate. With failIfPartial the whole
// transaction is discarded and the pre-image of every touched wallet is
// reported; otherwise only the candidates are reversed. Wallets that were
// already negative and were not decreased are left alone.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, deltas map[string]int64, allowNegative, failIfPartial bool) (*model.WalletUpdate, error) {
	clamped := make(map[string]int64, len(deltas))
	for name, delta := range deltas {
		r, ok := model.WalletRanges[name]
		if !ok {
			return nil, validation.Errorf("Key 'wallets' is an invalid wallet")
		}
		clamped[name] = r.Clamp(delta)
	}

	var result *model.WalletUpdate
	var outcome model.WalletOutcome

	opts := storage.TxOptions{MaxCommitTime: s.commitTimeout}
	err := s.storage.RunTransaction(ctx, opts, func(ctx context.Context, tx storage.Tx) error {
		// the body may be re-run after a lost race
		result, outcome = nil, ""

		balances, err := tx.IncrementWallets(ctx, id, clamped)
		if err != nil {
			return err
		}

		result = &model.WalletUpdate{
			Wallets:  balances,
			Modified: make(map[string]bool, len(balances)),
		}
		for name := range balances {
			result.Modified[name] = true
		}

		if allowNegative {
			outcome = model.WalletCommitted
			return nil
		}

		reverse := make(map[string]int64)
		for name, balance := range balances {
			if balance < 0 && clamped[name] < 0 {
				reverse[name] = -clamped[name]
			}
		}
		if len(reverse) == 0 {
			outcome = model.WalletCommitted
			return nil
		}

		if failIfPartial {
			// reconstructed locally instead of re-reading
			for name := range result.Wallets {
				result.Wallets[name] -= clamped[name]
				result.Modified[name] = false
			}
			outcome = model.WalletAborted
			return storage.ErrRollback
		}

		reverted, err := tx.IncrementWallets(ctx, id, reverse)
		if err != nil {
			return err
		}
		for name, balance := range reverted {
			if want := balances[name] - clamped[name]; balance != want {
				return fmt.Errorf("%w: wallet %s reverted to %d, expected %d", model.ErrInvariant, name, balance, want)
			}
			result.Wallets[name] = balance
			result.Modified[name] = false
		}
		outcome = model.WalletRolledBack
		return nil
	})

	switch {
	case err == nil || errors.Is(err, storage.ErrRollback):
		s.record(outcome)
		return result, nil
	case errors.Is(err, model.ErrPlayerNotFound):
		s.record(model.WalletNotFound)
		return nil, err
	case errors.Is(err, model.ErrInvariant):
		s.record(model.WalletFailed)
		s.logger.Error("wallet invariant violated", "uuid", id, "error", err)
		return nil, err
	default:
		s.record(model.WalletFailed)
		s.logger.Error("wallet transaction failed", "uuid", id, "error", err)
		if !errors.Is(err, model.ErrTransient) {
			err = fmt.Errorf("%w: %w", model.ErrTransient, err)
		}
		return nil, err
	}
}

func (s *Service) record(outcome model.WalletOutcome) {
	if s.metrics != nil {
		s.metrics.WalletUpdates.WithLabelValues(string(outcome)).Inc()
	}
}
