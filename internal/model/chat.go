package model

import "github.com/google/uuid"

// Chat limits
const (
	ChatMessageLimit  = 300
	ChatTruncateAbove = 303
	ChatTimeSkewMs    = 1000
	ChatPageSize      = 10
	ChatMaxOffset     = 100
)

// ReceiversSince is the time after which stored receivers are reported back.
// Older rows used receivers for private messages.
const ReceiversSince int64 = 1653172810813

// Chat is a stored chat message. Sent is only stored when false.
type Chat struct {
	Time      int64       `json:"time"`
	UUID      uuid.UUID   `json:"uuid"`
	Message   string      `json:"message"`
	Formatted string      `json:"formatted"`
	Type      string      `json:"type"`
	Server    string      `json:"server"`
	To        *uuid.UUID  `json:"to,omitempty"`
	Receivers []uuid.UUID `json:"receivers,omitempty"`
	Sent      *bool       `json:"sent,omitempty"`
}

// WasSent reports whether the message reached anyone
func (c *Chat) WasSent() bool {
	return c.Sent == nil || *c.Sent
}

// ChatQuery selects a page of a player's chat, newest first
type ChatQuery struct {
	UUID    uuid.UUID
	Since   int64 // inclusive upper bound on time
	Offset  int
	Limit   int
	Type    string // exact type match when set
	NotType string // excluded type when set
}

// Matches reports whether c is selected by the query, ignoring paging
func (q ChatQuery) Matches(c *Chat) bool {
	if c.UUID != q.UUID || c.Time > q.Since || !c.WasSent() {
		return false
	}
	if q.Type != "" && c.Type != q.Type {
		return false
	}
	if q.NotType != "" && c.Type == q.NotType {
		return false
	}
	return true
}

// ChatView is a chat message as reported to callers
type ChatView struct {
	Time      int64    `json:"time"`
	UUID      string   `json:"uuid"`
	Message   string   `json:"message"`
	To        string   `json:"to,omitempty"`
	Server    string   `json:"server,omitempty"`
	Type      string   `json:"type,omitempty"`
	Receivers []string `json:"receivers,omitempty"`
}

// ChatPage is one page of chat history
type ChatPage struct {
	Total int64      `json:"total"`
	Count int        `json:"count"`
	Chats []ChatView `json:"chats"`
}
