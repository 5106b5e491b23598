package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Single-document read-modify-writes use WATCH/MULTI with bounded retries.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance and verifies the connection
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// watch runs fn under WATCH on keys, retrying when another client wins the race
func (s *Storage) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %v: %w", model.ErrTransient, keys, model.ErrConflict)
}

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, id uuid.UUID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return s.decodePlayer(ctx, id, data)
}

// decodePlayer decodes data, writing back the normalized document when it
// was stored in the legacy shape. The rewrite only lands if the document is
// unchanged; any other write has already normalized it.
func (s *Storage) decodePlayer(ctx context.Context, id uuid.UUID, data []byte) (*model.Player, error) {
	p, migrated, err := storage.DecodePlayer(data)
	if err != nil {
		return nil, err
	}
	if !migrated {
		return p, nil
	}

	key := playerKey(id)
	encoded, err := storage.EncodePlayer(p)
	if err != nil {
		return nil, err
	}
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		if string(current) != string(data) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}, key)
	if err != nil && !errors.Is(err, redis.TxFailedErr) && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("migrate player %s: %w", id, err)
	}
	return p, nil
}

func (s *Storage) FindPlayersByName(ctx context.Context, name string) ([]*model.Player, error) {
	ids, err := s.client.SMembers(ctx, nameIndexKey(name)).Result()
	if err != nil {
		return nil, err
	}
	return s.loadPlayers(ctx, ids, func(p *model.Player) bool { return p.Name == name })
}

func (s *Storage) FindPlayersByConnection(ctx context.Context, provider, content string) ([]*model.Player, error) {
	ids, err := s.client.SMembers(ctx, connectionIndexKey(provider, content)).Result()
	if err != nil {
		return nil, err
	}
	return s.loadPlayers(ctx, ids, func(p *model.Player) bool {
		c, ok := p.Connections[provider]
		return ok && c.Content != nil && *c.Content == content
	})
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	ids, err := s.client.SMembers(ctx, playersIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	return s.loadPlayers(ctx, ids, func(*model.Player) bool { return true })
}

func (s *Storage) CountPlayers(ctx context.Context) (int64, error) {
	return s.client.SCard(ctx, playersIndexKey()).Result()
}

// loadPlayers fetches the players with the given ids in one MGET. Index
// entries are only advisory, so each document is rechecked with match.
func (s *Storage) loadPlayers(ctx context.Context, ids []string, match func(p *model.Player) bool) ([]*model.Player, error) {
	if len(ids) == 0 {
		return []*model.Player{}, nil
	}

	keys := make([]string, 0, len(ids))
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		keys = append(keys, playerKey(id))
		parsed = append(parsed, id)
	}
	if len(keys) == 0 {
		return []*model.Player{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	for i, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Deleted since the index was read
		}
		p, err := s.decodePlayer(ctx, parsed[i], []byte(str))
		if err != nil {
			return nil, err
		}
		if match(p) {
			players = append(players, p)
		}
	}
	sort.Slice(players, func(i, j int) bool { return players[i].FirstLogin < players[j].FirstLogin })
	return players, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, id uuid.UUID, mutate storage.PlayerMutator) (*model.Player, error) {
	_, next, err := s.writePlayerWatched(ctx, id, func(current *model.Player) (*model.Player, []byte, error) {
		if current == nil {
			return nil, nil, model.ErrPlayerNotFound
		}
		if err := mutate(current); err != nil {
			return nil, nil, err
		}
		return current, nil, nil
	})
	return next, err
}

func (s *Storage) UpsertPlayer(ctx context.Context, id uuid.UUID, mutate storage.PlayerUpserter) (*model.Player, *model.Player, error) {
	return s.writePlayerWatched(ctx, id, func(current *model.Player) (*model.Player, []byte, error) {
		created := current == nil
		if created {
			current = &model.Player{UUID: id}
		}
		if err := mutate(current, created); err != nil {
			return nil, nil, err
		}
		return current, nil, nil
	})
}

func (s *Storage) PutPlayerDocument(ctx context.Context, raw []byte) error {
	p, _, err := storage.DecodePlayer(raw)
	if err != nil {
		return err
	}
	_, _, err = s.writePlayerWatched(ctx, p.UUID, func(*model.Player) (*model.Player, []byte, error) {
		return p, raw, nil
	})
	return err
}

// writePlayerWatched reads the player under WATCH, lets apply produce the
// next document and commits it with its index updates in one MULTI. apply
// may return the exact bytes to store; otherwise next is encoded.
func (s *Storage) writePlayerWatched(
	ctx context.Context,
	id uuid.UUID,
	apply func(current *model.Player) (*model.Player, []byte, error),
) (prev, next *model.Player, err error) {
	key := playerKey(id)
	err = s.watch(ctx, func(tx *redis.Tx) error {
		prev, next = nil, nil

		var current *model.Player
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if prev, _, err = storage.DecodePlayer(data); err != nil {
				return err
			}
			current, _, _ = storage.DecodePlayer(data)
		}

		updated, raw, err := apply(current)
		if err != nil {
			return err
		}
		if raw == nil {
			if raw, err = storage.EncodePlayer(updated); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.stagePlayer(ctx, pipe, prev, updated, raw)
			return nil
		})
		if err != nil {
			return err
		}
		next = updated
		return nil
	}, key)
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

// stagePlayer queues the document write and keeps the name and connection
// indexes in step with it
func (s *Storage) stagePlayer(ctx context.Context, pipe redis.Pipeliner, prev, next *model.Player, data []byte) {
	id := next.UUID.String()
	pipe.Set(ctx, playerKey(next.UUID), data, 0)
	pipe.SAdd(ctx, playersIndexKey(), id)

	if prev != nil && prev.Name != next.Name && prev.Name != "" {
		pipe.SRem(ctx, nameIndexKey(prev.Name), id)
	}
	if next.Name != "" {
		pipe.SAdd(ctx, nameIndexKey(next.Name), id)
	}

	before := connectionContents(prev)
	after := connectionContents(next)
	for provider, content := range before {
		if after[provider] != content {
			pipe.SRem(ctx, connectionIndexKey(provider, content), id)
		}
	}
	for provider, content := range after {
		pipe.SAdd(ctx, connectionIndexKey(provider, content), id)
	}
}

func connectionContents(p *model.Player) map[string]string {
	out := make(map[string]string)
	if p == nil {
		return out
	}
	for provider, c := range p.Connections {
		if c != nil && c.Content != nil && *c.Content != "" {
			out[provider] = *c.Content
		}
	}
	return out
}

// Transactions

type tx struct {
	s      *Storage
	rtx    *redis.Tx
	prev   map[uuid.UUID]*model.Player
	staged map[uuid.UUID]*model.Player
}

func (t *tx) IncrementWallets(ctx context.Context, id uuid.UUID, deltas map[string]int64) (map[string]int64, error) {
	p, ok := t.staged[id]
	if !ok {
		key := playerKey(id)
		if err := t.rtx.Watch(ctx, key).Err(); err != nil {
			return nil, err
		}
		data, err := t.rtx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, model.ErrPlayerNotFound
			}
			return nil, err
		}
		prev, _, err := storage.DecodePlayer(data)
		if err != nil {
			return nil, err
		}
		p, _, _ = storage.DecodePlayer(data)
		t.prev[id] = prev
		t.staged[id] = p
	}

	if p.Wallet == nil {
		p.Wallet = make(map[string]int64, len(deltas))
	}
	out := make(map[string]int64, len(deltas))
	for wallet, delta := range deltas {
		p.Wallet[wallet] += delta
		out[wallet] = p.Wallet[wallet]
	}
	return out, nil
}

// RunTransaction stages fn's writes and commits them with a single EXEC,
// watching every document fn read. fn is re-run from scratch when another
// client changes a watched document, so it must not leak state between runs.
func (s *Storage) RunTransaction(ctx context.Context, opts storage.TxOptions, fn func(ctx context.Context, tx storage.Tx) error) error {
	if opts.MaxCommitTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.MaxCommitTime)
		defer cancel()
	}

	err := s.watch(ctx, func(rtx *redis.Tx) error {
		t := &tx{
			s:      s,
			rtx:    rtx,
			prev:   make(map[uuid.UUID]*model.Player),
			staged: make(map[uuid.UUID]*model.Player),
		}
		if err := fn(ctx, t); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: commit: %w", model.ErrTransient, err)
		}
		if len(t.staged) == 0 {
			return nil
		}
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for id, p := range t.staged {
				data, err := storage.EncodePlayer(p)
				if err != nil {
					return err
				}
				s.stagePlayer(ctx, pipe, t.prev[id], p, data)
			}
			return nil
		})
		return err
	})
	if err != nil && ctx.Err() != nil && !errors.Is(err, model.ErrTransient) {
		return fmt.Errorf("%w: commit: %w", model.ErrTransient, err)
	}
	return err
}
