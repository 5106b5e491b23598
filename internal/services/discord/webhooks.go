package discord

import (
	"context"
	"fmt"

	"github.com/palacemc/palace-web/internal/discordapi"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/validation"
)

// SendRequest is a webhook message with its raw decoded fields
type SendRequest struct {
	Kind    any
	Name    any
	Avatar  any
	Message any
}

func parseSend(req SendRequest) (model.WebhookKind, discordapi.WebhookMessage, error) {
	var msg discordapi.WebhookMessage
	if validation.IsNull(req.Kind) {
		return "", msg, validation.Errorf("String 'kind' is required")
	}
	k, ok := validation.String(req.Kind)
	if !ok {
		return "", msg, validation.Errorf("Key 'kind' must be a non-empty string")
	}
	kind, ok := model.ParseWebhookKind(k)
	if !ok {
		return "", msg, validation.Errorf(`Key 'kind' must be one of "chat", "verify", or "moderation"`)
	}

	if !validation.IsNull(req.Name) {
		name, ok := validation.String(req.Name)
		if !ok {
			return "", msg, validation.Errorf("Key 'name' must be a non-empty string or unset")
		}
		msg.Username = validation.Cut(name, model.WebhookNameLimit)
	}

	if !validation.IsNull(req.Avatar) {
		avatar, ok := validation.String(req.Avatar)
		if !ok {
			return "", msg, validation.Errorf("Key 'avatar' must be a non-empty string or unset")
		}
		if validation.Length(avatar) > model.WebhookAvatarLimit {
			return "", msg, validation.Errorf("Key 'avatar' is too long, cannot be more than %d characters", model.WebhookAvatarLimit)
		}
		msg.AvatarURL = avatar
	}

	if validation.IsNull(req.Message) {
		return "", msg, validation.Errorf("String 'message' is required")
	}
	content, ok := validation.String(req.Message)
	if !ok {
		return "", msg, validation.Errorf("Key 'message' must be a non-empty string")
	}
	msg.Content = validation.Cut(content, model.WebhookMessageLimit)
	msg.AllowedMentions.Parse = []string{}
	return kind, msg, nil
}

// Send delivers a message to every webhook of the requested kind across all
// guilds. Deliveries are best effort: failures are logged and counted but
// do not fail the call.
func (s *Service) Send(ctx context.Context, req SendRequest) error {
	kind, msg, err := parseSend(req)
	if err != nil {
		return err
	}

	guilds, err := s.storage.ListGuilds(ctx)
	if err != nil {
		return fmt.Errorf("list guilds: %w", err)
	}
	if len(guilds) == 0 {
		return validation.Errorf("No servers exist, no where to send to")
	}

	for _, g := range guilds {
		for _, w := range g.Webhooks {
			if w.Kind != kind {
				continue
			}
			if err := s.api.ExecuteWebhook(ctx, w.ID, w.Token, msg); err != nil {
				s.metrics.WebhookDeliveries.WithLabelValues(string(kind), "failed").Inc()
				s.logger.Warn("webhook delivery failed",
					"guild", g.Guild,
					"webhook", w.ID,
					"kind", kind,
					"error", err,
				)
				continue
			}
			s.metrics.WebhookDeliveries.WithLabelValues(string(kind), "delivered").Inc()
		}
	}
	return nil
}
