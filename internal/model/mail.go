package model

import (
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mail limits
const (
	MailMessageLimit = 200
	MailPageSize     = 5
)

// MailBox selects which side of the mail a query is for
type MailBox string

const (
	MailBoxTo   MailBox = "to"
	MailBoxFrom MailBox = "from"
)

// Mail is a stored mail record. Read is absent until first read and Deleted
// hides the mail from the recipient only.
type Mail struct {
	ID      primitive.ObjectID `json:"id"`
	Time    int64              `json:"time"`
	To      uuid.UUID          `json:"to"`
	From    uuid.UUID          `json:"from"`
	Origin  string             `json:"origin"`
	Message string             `json:"message"`
	Read    *bool              `json:"read,omitempty"`
	Deleted bool               `json:"deleted,omitempty"`
}

// MailQuery selects a page of a mailbox, newest first
type MailQuery struct {
	Box    MailBox
	UUID   uuid.UUID
	Offset int
	Limit  int
}

// Matches reports whether m belongs to the queried box
func (q MailQuery) Matches(m *Mail) bool {
	if q.Box == MailBoxFrom {
		return m.From == q.UUID
	}
	return m.To == q.UUID && !m.Deleted
}

// MailView is a mail record as reported to callers
type MailView struct {
	ID      string `json:"id"`
	Time    int64  `json:"time"`
	To      string `json:"to,omitempty"`
	From    string `json:"from,omitempty"`
	Origin  string `json:"origin"`
	Message string `json:"message"`
	Read    *bool  `json:"read,omitempty"`
}

// MailPage is one page of a mailbox. Unread is only reported for the to box.
type MailPage struct {
	Total  int64      `json:"total"`
	Unread *int64     `json:"unread,omitempty"`
	Mail   []MailView `json:"mail"`
}
