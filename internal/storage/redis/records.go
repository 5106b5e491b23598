package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/palacemc/palace-web/internal/model"
)

// Stats operations

func (s *Storage) GetStats(ctx context.Context, id uuid.UUID) (*model.Stats, error) {
	fields, err := s.client.HGetAll(ctx, statsKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrStatsNotFound
	}
	return decodeStats(id, fields)
}

func (s *Storage) IncrementStats(ctx context.Context, id uuid.UUID, deltas map[string]int64) (*model.Stats, error) {
	key := statsKey(id)
	var all *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for field, delta := range deltas {
			pipe.HIncrBy(ctx, key, field, delta)
		}
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeStats(id, all.Val())
}

func decodeStats(id uuid.UUID, fields map[string]string) (*model.Stats, error) {
	values := make(map[string]int64, len(fields))
	for field, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		values[field] = n
	}
	return &model.Stats{UUID: id, Values: values}, nil
}

// Chat operations

// storedChat carries a unique id so identical messages stay distinct ZSET members
type storedChat struct {
	ID string `json:"id"`
	model.Chat
}

func (s *Storage) SaveChat(ctx context.Context, chat *model.Chat) error {
	data, err := json.Marshal(storedChat{ID: primitive.NewObjectID().Hex(), Chat: *chat})
	if err != nil {
		return err
	}
	return s.client.ZAdd(ctx, chatKey(chat.UUID), redis.Z{
		Score:  float64(chat.Time),
		Member: string(data),
	}).Err()
}

func (s *Storage) QueryChats(ctx context.Context, q model.ChatQuery) ([]*model.Chat, int64, error) {
	members, err := s.client.ZRevRangeByScore(ctx, chatKey(q.UUID), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.Since, 10),
	}).Result()
	if err != nil {
		return nil, 0, err
	}

	matched := make([]*model.Chat, 0, len(members))
	for _, member := range members {
		var stored storedChat
		if err := json.Unmarshal([]byte(member), &stored); err != nil {
			return nil, 0, err
		}
		if q.Matches(&stored.Chat) {
			c := stored.Chat
			matched = append(matched, &c)
		}
	}
	return page(matched, q.Offset, q.Limit), int64(len(matched)), nil
}

// Mail operations

func (s *Storage) SaveMail(ctx context.Context, mail *model.Mail) error {
	data, err := json.Marshal(mail)
	if err != nil {
		return err
	}
	id := mail.ID.Hex()
	score := float64(mail.Time)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, mailKey(mail.ID), data, 0)
		pipe.ZAdd(ctx, mailboxKey(string(model.MailBoxTo), mail.To), redis.Z{Score: score, Member: id})
		pipe.ZAdd(ctx, mailboxKey(string(model.MailBoxFrom), mail.From), redis.Z{Score: score, Member: id})
		return nil
	})
	return err
}

func (s *Storage) QueryMail(ctx context.Context, q model.MailQuery) ([]*model.Mail, int64, int64, error) {
	ids, err := s.client.ZRevRange(ctx, mailboxKey(string(q.Box), q.UUID), 0, -1).Result()
	if err != nil {
		return nil, 0, 0, err
	}
	if len(ids) == 0 {
		return nil, 0, 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, hex := range ids {
		oid, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			continue
		}
		keys = append(keys, mailKey(oid))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, 0, err
	}

	var matched []*model.Mail
	var unread int64
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var m model.Mail
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			return nil, 0, 0, err
		}
		if !q.Matches(&m) {
			continue
		}
		if m.Read == nil || !*m.Read {
			unread++
		}
		matched = append(matched, &m)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Time != matched[j].Time {
			return matched[i].Time > matched[j].Time
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})
	return page(matched, q.Offset, q.Limit), int64(len(matched)), unread, nil
}

func (s *Storage) UpdateMail(ctx context.Context, id primitive.ObjectID, to uuid.UUID, mutate func(m *model.Mail) error) (*model.Mail, error) {
	key := mailKey(id)
	var updated *model.Mail
	err := s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrMailNotFound
			}
			return err
		}
		var m model.Mail
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		if m.To != to {
			return model.ErrMailNotFound
		}
		if err := mutate(&m); err != nil {
			return err
		}
		encoded, err := json.Marshal(&m)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err == nil {
			updated = &m
		}
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Log operations

func (s *Storage) SaveLog(ctx context.Context, entry *model.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, logsKey(), data)
		if s.cfg.LogRetention > 0 {
			pipe.LTrim(ctx, logsKey(), 0, s.cfg.LogRetention-1)
		}
		return nil
	})
	return err
}

// Guild operations

func (s *Storage) GetGuild(ctx context.Context, guild string) (*model.Guild, error) {
	data, err := s.client.Get(ctx, guildKey(guild)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGuildNotFound
		}
		return nil, err
	}
	var g model.Guild
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Storage) SaveGuild(ctx context.Context, guild *model.Guild) error {
	data, err := json.Marshal(guild)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, guildKey(guild.Guild), data, 0)
	pipe.SAdd(ctx, guildsIndexKey(), guild.Guild)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) UpdateGuild(ctx context.Context, guild string, mutate func(g *model.Guild) error) (*model.Guild, error) {
	key := guildKey(guild)
	var updated *model.Guild
	err := s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrGuildNotFound
			}
			return err
		}
		var g model.Guild
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		if err := mutate(&g); err != nil {
			return err
		}
		encoded, err := json.Marshal(&g)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err == nil {
			updated = &g
		}
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Storage) ListGuilds(ctx context.Context) ([]*model.Guild, error) {
	ids, err := s.client.SMembers(ctx, guildsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Guild{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = guildKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*model.Guild, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var g model.Guild
		if err := json.Unmarshal([]byte(str), &g); err != nil {
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
