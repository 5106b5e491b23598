// Package mail stores player mail and serves mailboxes.
package mail

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/palacemc/palace-web/internal/dependencies/clock"
	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
	"github.com/palacemc/palace-web/internal/validation"
)

// Service handles mail
type Service struct {
	storage storage.Storage
	clock   clock.Clock
}

// New creates a mail Service
func New(storage storage.Storage, clock clock.Clock) *Service {
	return &Service{storage: storage, clock: clock}
}

// Save stores a new mail. Messages longer than the limit are cut.
func (s *Service) Save(ctx context.Context, to, from, origin, message string) (*model.Mail, error) {
	if err := validation.FormatUUID("to", to); err != nil {
		return nil, err
	}
	if err := validation.FormatUUID("from", from); err != nil {
		return nil, err
	}
	toID, err := validation.ParseUUID("to", to)
	if err != nil {
		return nil, err
	}
	fromID, err := validation.ParseUUID("from", from)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	m := &model.Mail{
		ID:      identity.NewObjectID(now),
		Time:    now.UnixMilli(),
		To:      toID,
		From:    fromID,
		Origin:  origin,
		Message: validation.Cut(message, model.MailMessageLimit),
	}
	if err := s.storage.SaveMail(ctx, m); err != nil {
		return nil, fmt.Errorf("save mail: %w", err)
	}
	return m, nil
}

// Get returns a page of the to or from mailbox of a player. The to box
// hides deleted mail and reports how much is unread.
func (s *Service) Get(ctx context.Context, box, id string, offset any) (*model.MailPage, error) {
	q := model.MailQuery{Box: model.MailBox(box), Limit: model.MailPageSize}
	if q.Box != model.MailBoxTo && q.Box != model.MailBoxFrom {
		return nil, validation.Errorf(`Key 'key' must be either "to" or "from"`)
	}
	if !validation.IsNull(offset) {
		n, ok := validation.Integer(offset)
		if !ok {
			return nil, validation.Errorf("Key 'offset' must be an integer")
		}
		if n < 0 {
			return nil, validation.Errorf("Key 'offset' must be positive")
		}
		q.Offset = int(n)
	}
	playerID, err := validation.ParseUUID("uuid", id)
	if err != nil {
		return nil, err
	}
	q.UUID = playerID

	mail, total, unread, err := s.storage.QueryMail(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s mail: %w", q.Box, err)
	}

	page := &model.MailPage{Total: total, Mail: make([]model.MailView, 0, len(mail))}
	if q.Box == model.MailBoxTo {
		page.Unread = &unread
	}
	for _, m := range mail {
		v := model.MailView{
			ID:      m.ID.Hex(),
			Time:    m.Time,
			Origin:  m.Origin,
			Message: m.Message,
			Read:    m.Read,
		}
		if q.Box == model.MailBoxFrom {
			v.To = m.To.String()
		} else {
			v.From = m.From.String()
		}
		page.Mail = append(page.Mail, v)
	}
	return page, nil
}

func parseMailID(id string) (primitive.ObjectID, error) {
	if !validation.IsObjectID(id) {
		return identity.NullObjectID, validation.Errorf("Key 'id' is not a valid ObjectId, must be like xxxxxxxxxxxxxxxxxxxxxxxx")
	}
	mailID := identity.ToObjectID(id)
	if identity.IsNullObjectID(mailID) {
		return identity.NullObjectID, validation.Errorf("Key 'id' could not be parsed, it is invalid")
	}
	return mailID, nil
}

// update applies mutate to mail id addressed to the player
func (s *Service) update(ctx context.Context, playerID, id string, mutate func(m *model.Mail)) error {
	mailID, err := parseMailID(id)
	if err != nil {
		return err
	}
	to, err := validation.ParseUUID("uuid", playerID)
	if err != nil {
		return err
	}
	_, err = s.storage.UpdateMail(ctx, mailID, to, func(m *model.Mail) error {
		mutate(m)
		return nil
	})
	return err
}

// Read marks mail addressed to the player as read or unread
func (s *Service) Read(ctx context.Context, playerID, id string, read bool) error {
	return s.update(ctx, playerID, id, func(m *model.Mail) {
		m.Read = &read
	})
}

// Delete hides mail from the player it is addressed to. The sender still sees it.
func (s *Service) Delete(ctx context.Context, playerID, id string) error {
	return s.update(ctx, playerID, id, func(m *model.Mail) {
		m.Deleted = true
	})
}
