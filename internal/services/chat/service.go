// Package chat stores chat messages and serves a player's chat history.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/palacemc/palace-web/internal/dependencies/clock"
	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
	"github.com/palacemc/palace-web/internal/validation"
)

// TypePrivate is the chat type of a private message
const TypePrivate = "pm"

// SaveRequest is a chat message as sent by a game server. The string fields
// are already known to be non-empty; Time, Receivers and Sent are the raw
// decoded JSON values.
type SaveRequest struct {
	UUID      string
	Original  string
	Formatted string
	Type      string
	Server    string
	Time      any
	Receivers any
	Sent      any
}

// Service handles chat messages
type Service struct {
	storage storage.Storage
	clock   clock.Clock
}

// New creates a chat Service
func New(storage storage.Storage, clock clock.Clock) *Service {
	return &Service{storage: storage, clock: clock}
}

func isGroup(chatType string) bool {
	return strings.HasPrefix(chatType, "group")
}

// Save validates and stores a chat message. Its time is pulled to within a
// second of now.
func (s *Service) Save(ctx context.Context, req SaveRequest) error {
	now := clock.Millis(s.clock)
	at := now
	if !validation.IsNull(req.Time) {
		t, ok := validation.Integer(req.Time)
		if !ok {
			return validation.Errorf("Key 'time' must be an integer or unset")
		}
		at = min(max(t, now-model.ChatTimeSkewMs), now+model.ChatTimeSkewMs)
	}

	chat := &model.Chat{
		Time:      at,
		Message:   validation.Truncate(req.Original, model.ChatMessageLimit, model.ChatTruncateAbove),
		Formatted: validation.Truncate(req.Formatted, model.ChatMessageLimit, model.ChatTruncateAbove),
		Type:      req.Type,
		Server:    req.Server,
	}
	if err := s.parseReceivers(chat, req.Receivers); err != nil {
		return err
	}

	id, err := validation.ParseUUID("uuid", req.UUID)
	if err != nil {
		return err
	}
	chat.UUID = id

	if !validation.IsNull(req.Sent) && !validation.Truthy(req.Sent) {
		sent := false
		chat.Sent = &sent
	}

	if err := s.storage.SaveChat(ctx, chat); err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

// parseReceivers stores a private message recipient as To and any other
// recipients as Receivers
func (s *Service) parseReceivers(chat *model.Chat, receivers any) error {
	if validation.IsNull(receivers) {
		switch {
		case chat.Type == TypePrivate:
			return validation.Errorf("Key 'receivers' is required for 'type' = 'pm', must be a non-empty string")
		case isGroup(chat.Type):
			return validation.Errorf("Key 'receivers' is required for 'type' = 'group', must be a string array")
		}
		return nil
	}

	if arr, ok := receivers.([]any); ok {
		if chat.Type == TypePrivate {
			return validation.Errorf("Key 'receivers' is expected to be a string for 'type' = 'pm'")
		}
		ids := make([]uuid.UUID, 0, len(arr))
		for _, item := range arr {
			str, ok := validation.String(item)
			if !ok || !validation.IsUUID(str) {
				return validation.Errorf("Array 'receivers' contains an invalid UUID string, must be like xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx")
			}
			id := identity.ToBinaryID(str)
			if identity.IsNullUUID(id) {
				return validation.Errorf("Array 'receivers' failed to parse a UUID string, it is invalid")
			}
			ids = append(ids, id)
		}
		chat.Receivers = ids
		return nil
	}

	if isGroup(chat.Type) {
		return validation.Errorf("Key 'receivers' is expected to be a string array for 'type' = 'group'")
	}
	str, ok := validation.String(receivers)
	if !ok {
		return validation.Errorf("Key 'receivers' must be a non-empty string, string array, or unset")
	}
	id, err := validation.ParseUUID("receivers", str)
	if err != nil {
		return err
	}
	if chat.Type == TypePrivate {
		chat.To = &id
	} else {
		chat.Receivers = []uuid.UUID{id}
	}
	return nil
}

// Get returns a page of a player's sent chat at or before since, newest
// first. A chatType starting with '!' excludes that type instead.
func (s *Service) Get(ctx context.Context, id string, since, offset any, chatType any) (*model.ChatPage, error) {
	q := model.ChatQuery{Since: clock.Millis(s.clock), Limit: model.ChatPageSize}

	if !validation.IsNull(since) {
		t, ok := validation.Integer(since)
		if !ok {
			return nil, validation.Errorf("Key 'since' must be an integer or unset")
		}
		if !validation.IsReasonableTime(t) {
			return nil, validation.Errorf("Key 'since' is not a reasonable time, must be in milliseconds")
		}
		q.Since = t
	}

	if !validation.IsNull(offset) {
		n, ok := validation.Integer(offset)
		if !ok {
			return nil, validation.Errorf("Key 'offset' must be an integer or unset")
		}
		if n < 0 || n > model.ChatMaxOffset {
			return nil, validation.Errorf("Key 'offset' must be between 0-%d", model.ChatMaxOffset)
		}
		q.Offset = int(n)
	}

	if t, ok := validation.String(chatType); ok {
		if rest, negated := strings.CutPrefix(t, "!"); negated {
			q.NotType = rest
		} else {
			q.Type = t
		}
	}

	playerID, err := validation.ParseUUID("uuid", id)
	if err != nil {
		return nil, err
	}
	q.UUID = playerID

	chats, total, err := s.storage.QueryChats(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}

	page := &model.ChatPage{Total: total, Chats: make([]model.ChatView, 0, len(chats))}
	for _, c := range chats {
		page.Chats = append(page.Chats, view(c))
	}
	page.Count = len(page.Chats)
	return page, nil
}

// view projects a stored chat. Private messages report only the recipient
// and group messages only their type.
func view(c *model.Chat) model.ChatView {
	v := model.ChatView{
		Time:    c.Time,
		UUID:    c.UUID.String(),
		Message: c.Formatted,
	}
	switch {
	case c.Type == TypePrivate:
		// older private messages kept the recipient in receivers
		if len(c.Receivers) > 0 {
			v.To = c.Receivers[0].String()
		} else if c.To != nil {
			v.To = c.To.String()
		}
	case isGroup(c.Type):
		v.Type = c.Type
	default:
		v.Server = c.Server
		v.Type = c.Type
	}

	if len(c.Receivers) > 0 && c.Time > model.ReceiversSince {
		v.Receivers = make([]string, 0, len(c.Receivers))
		for _, r := range c.Receivers {
			v.Receivers = append(v.Receivers, r.String())
		}
	}
	return v
}
