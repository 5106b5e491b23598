package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
)

// Storage is an in-memory implementation of the storage interface. Documents
// are held encoded so every read goes through the same codec as Redis.
type Storage struct {
	mu sync.RWMutex

	players map[uuid.UUID][]byte
	stats   map[uuid.UUID]map[string]int64
	chats   []model.Chat
	mail    map[primitive.ObjectID][]byte
	logs    []model.LogEntry
	guilds  map[string][]byte
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players: make(map[uuid.UUID][]byte),
		stats:   make(map[uuid.UUID]map[string]int64),
		mail:    make(map[primitive.ObjectID][]byte),
		guilds:  make(map[string][]byte),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Ping(ctx context.Context) error { return nil }

func (s *Storage) Close() error { return nil }

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, id uuid.UUID) (*model.Player, error) {
	s.mu.RLock()
	raw, ok := s.players[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.decodePlayer(id, raw)
}

func (s *Storage) FindPlayersByName(ctx context.Context, name string) ([]*model.Player, error) {
	return s.filterPlayers(func(p *model.Player) bool { return p.Name == name })
}

func (s *Storage) FindPlayersByConnection(ctx context.Context, provider, content string) ([]*model.Player, error) {
	return s.filterPlayers(func(p *model.Player) bool {
		c, ok := p.Connections[provider]
		return ok && c.Content != nil && *c.Content == content
	})
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	return s.filterPlayers(func(*model.Player) bool { return true })
}

func (s *Storage) CountPlayers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.players)), nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, id uuid.UUID, mutate storage.PlayerMutator) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p, _, err := storage.DecodePlayer(raw)
	if err != nil {
		return nil, err
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	if err := s.putPlayerLocked(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Storage) UpsertPlayer(ctx context.Context, id uuid.UUID, mutate storage.PlayerUpserter) (*model.Player, *model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.players[id]
	if !ok {
		next := &model.Player{UUID: id}
		if err := mutate(next, true); err != nil {
			return nil, nil, err
		}
		if err := s.putPlayerLocked(next); err != nil {
			return nil, nil, err
		}
		return nil, next, nil
	}

	prev, _, err := storage.DecodePlayer(raw)
	if err != nil {
		return nil, nil, err
	}
	next, _, _ := storage.DecodePlayer(raw)
	if err := mutate(next, false); err != nil {
		return nil, nil, err
	}
	if err := s.putPlayerLocked(next); err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

func (s *Storage) PutPlayerDocument(ctx context.Context, raw []byte) error {
	p, _, err := storage.DecodePlayer(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.UUID] = bytes.Clone(raw)
	return nil
}

func (s *Storage) putPlayerLocked(p *model.Player) error {
	data, err := storage.EncodePlayer(p)
	if err != nil {
		return err
	}
	s.players[p.UUID] = data
	return nil
}

// decodePlayer decodes raw and writes back the normalized document when it
// still holds the legacy shape and nobody changed it in the meantime
func (s *Storage) decodePlayer(id uuid.UUID, raw []byte) (*model.Player, error) {
	p, migrated, err := storage.DecodePlayer(raw)
	if err != nil {
		return nil, err
	}
	if migrated {
		s.mu.Lock()
		if current, ok := s.players[id]; ok && bytes.Equal(current, raw) {
			if err := s.putPlayerLocked(p); err != nil {
				s.mu.Unlock()
				return nil, err
			}
		}
		s.mu.Unlock()
	}
	return p, nil
}

func (s *Storage) filterPlayers(match func(p *model.Player) bool) ([]*model.Player, error) {
	s.mu.RLock()
	snapshot := make(map[uuid.UUID][]byte, len(s.players))
	for id, raw := range s.players {
		snapshot[id] = raw
	}
	s.mu.RUnlock()

	var out []*model.Player
	for id, raw := range snapshot {
		p, err := s.decodePlayer(id, raw)
		if err != nil {
			return nil, err
		}
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstLogin < out[j].FirstLogin })
	return out, nil
}

// Transactions

type tx struct {
	s      *Storage
	staged map[uuid.UUID]*model.Player
}

func (t *tx) IncrementWallets(ctx context.Context, id uuid.UUID, deltas map[string]int64) (map[string]int64, error) {
	p, ok := t.staged[id]
	if !ok {
		raw, exists := t.s.players[id]
		if !exists {
			return nil, model.ErrPlayerNotFound
		}
		decoded, _, err := storage.DecodePlayer(raw)
		if err != nil {
			return nil, err
		}
		p = decoded
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

// RunTransaction holds the write lock for the duration of fn, so staged
// writes are isolated and applied all at once
func (s *Storage) RunTransaction(ctx context.Context, opts storage.TxOptions, fn func(ctx context.Context, tx storage.Tx) error) error {
	if opts.MaxCommitTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.MaxCommitTime)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s, staged: make(map[uuid.UUID]*model.Player)}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: commit: %v", model.ErrTransient, err)
	}
	for _, p := range t.staged {
		if err := s.putPlayerLocked(p); err != nil {
			return err
		}
	}
	return nil
}

// Stats operations

func (s *Storage) GetStats(ctx context.Context, id uuid.UUID) (*model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values, ok := s.stats[id]
	if !ok {
		return nil, model.ErrStatsNotFound
	}
	return &model.Stats{UUID: id, Values: cloneValues(values)}, nil
}

func (s *Storage) IncrementStats(ctx context.Context, id uuid.UUID, deltas map[string]int64) (*model.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.stats[id]
	if !ok {
		values = make(map[string]int64)
		s.stats[id] = values
	}
	for key, delta := range deltas {
		values[key] += delta
	}
	return &model.Stats{UUID: id, Values: cloneValues(values)}, nil
}

func cloneValues(values map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// Chat operations

func (s *Storage) SaveChat(ctx context.Context, chat *model.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, *chat)
	return nil
}

func (s *Storage) QueryChats(ctx context.Context, q model.ChatQuery) ([]*model.Chat, int64, error) {
	s.mu.RLock()
	var matched []*model.Chat
	for i := range s.chats {
		if q.Matches(&s.chats[i]) {
			c := s.chats[i]
			matched = append(matched, &c)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Time > matched[j].Time })
	return page(matched, q.Offset, q.Limit), int64(len(matched)), nil
}

// Mail operations

func (s *Storage) SaveMail(ctx context.Context, mail *model.Mail) error {
	data, err := json.Marshal(mail)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mail[mail.ID] = data
	return nil
}

func (s *Storage) QueryMail(ctx context.Context, q model.MailQuery) ([]*model.Mail, int64, int64, error) {
	s.mu.RLock()
	var matched []*model.Mail
	for _, raw := range s.mail {
		var m model.Mail
		if err := json.Unmarshal(raw, &m); err != nil {
			s.mu.RUnlock()
			return nil, 0, 0, err
		}
		if q.Matches(&m) {
			matched = append(matched, &m)
		}
	}
	s.mu.RUnlock()

	var unread int64
	for _, m := range matched {
		if m.Read == nil || !*m.Read {
			unread++
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Time != matched[j].Time {
			return matched[i].Time > matched[j].Time
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})
	return page(matched, q.Offset, q.Limit), int64(len(matched)), unread, nil
}

func (s *Storage) UpdateMail(ctx context.Context, id primitive.ObjectID, to uuid.UUID, mutate func(m *model.Mail) error) (*model.Mail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.mail[id]
	if !ok {
		return nil, model.ErrMailNotFound
	}
	var m model.Mail
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m.To != to {
		return nil, model.ErrMailNotFound
	}
	if err := mutate(&m); err != nil {
		return nil, err
	}
	data, err := json.Marshal(&m)
	if err != nil {
		return nil, err
	}
	s.mail[id] = data
	return &m, nil
}

// Log operations

func (s *Storage) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *entry)
	return nil
}

// Logs returns a copy of the saved log entries, oldest first
func (s *Storage) Logs() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.LogEntry(nil), s.logs...)
}

// Guild operations

func (s *Storage) GetGuild(ctx context.Context, guild string) (*model.Guild, error) {
	s.mu.RLock()
	raw, ok := s.guilds[guild]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrGuildNotFound
	}
	var g model.Guild
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Storage) SaveGuild(ctx context.Context, guild *model.Guild) error {
	data, err := json.Marshal(guild)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[guild.Guild] = data
	return nil
}

func (s *Storage) UpdateGuild(ctx context.Context, guild string, mutate func(g *model.Guild) error) (*model.Guild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.guilds[guild]
	if !ok {
		return nil, model.ErrGuildNotFound
	}
	var g model.Guild
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	if err := mutate(&g); err != nil {
		return nil, err
	}
	data, err := json.Marshal(&g)
	if err != nil {
		return nil, err
	}
	s.guilds[guild] = data
	return &g, nil
}

func (s *Storage) ListGuilds(ctx context.Context) ([]*model.Guild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Guild, 0, len(s.guilds))
	for _, raw := range s.guilds {
		var g model.Guild
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Guild < out[j].Guild })
	return out, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
