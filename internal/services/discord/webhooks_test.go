package discord

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func (s *ServiceSuite) TestSendFansOutByKind() {
	s.addGuild()
	s.addWebhook(hookID, "chat")
	s.addWebhook("400000000000000002", "moderation")
	s.addWebhook("400000000000000003", "chat")

	err := s.service.Send(s.ctx, SendRequest{Kind: "chat", Name: "Steve", Message: "hello"})
	s.Require().NoError(err)

	s.Require().Len(s.api.deliveries, 2)
	s.Equal(hookID, s.api.deliveries[0].id)
	s.Equal("secret-"+hookID, s.api.deliveries[0].token)
	s.Equal("hello", s.api.deliveries[0].msg.Content)
	s.Equal("Steve", s.api.deliveries[0].msg.Username)
	s.Empty(s.api.deliveries[0].msg.AvatarURL)
	s.False(s.api.deliveries[0].msg.TTS)
	s.Equal([]string{}, s.api.deliveries[0].msg.AllowedMentions.Parse)
	s.Equal("400000000000000003", s.api.deliveries[1].id)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.WebhookDeliveries.WithLabelValues("chat", "delivered")))
}

func (s *ServiceSuite) TestSendCutsLongFields() {
	s.addGuild()
	s.addWebhook(hookID, "chat")

	err := s.service.Send(s.ctx, SendRequest{
		Kind:    "chat",
		Name:    strings.Repeat("n", 30),
		Message: strings.Repeat("m", 2500),
	})
	s.Require().NoError(err)
	s.Require().Len(s.api.deliveries, 1)
	s.Len(s.api.deliveries[0].msg.Username, 20)
	s.Len(s.api.deliveries[0].msg.Content, 2000)
}

func (s *ServiceSuite) TestSendFailuresAreCounted() {
	s.addGuild()
	s.addWebhook(hookID, "chat")
	s.api.failHooks[hookID] = true

	s.Require().NoError(s.service.Send(s.ctx, SendRequest{Kind: "chat", Message: "hello"}))
	s.Empty(s.api.deliveries)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WebhookDeliveries.WithLabelValues("chat", "failed")))
}

func (s *ServiceSuite) TestSendWithoutGuilds() {
	err := s.service.Send(s.ctx, SendRequest{Kind: "chat", Message: "hello"})
	s.requireMessage(err, "No servers exist, no where to send to")
}

func (s *ServiceSuite) TestSendValidation() {
	s.addGuild()

	tests := []struct {
		name    string
		req     SendRequest
		message string
	}{
		{"missing kind", SendRequest{Message: "hi"}, "String 'kind' is required"},
		{"empty kind", SendRequest{Kind: "", Message: "hi"}, "Key 'kind' must be a non-empty string"},
		{"unknown kind", SendRequest{Kind: "spam", Message: "hi"}, `Key 'kind' must be one of "chat", "verify", or "moderation"`},
		{"bad name", SendRequest{Kind: "chat", Name: 3, Message: "hi"}, "Key 'name' must be a non-empty string or unset"},
		{"bad avatar", SendRequest{Kind: "chat", Avatar: "", Message: "hi"}, "Key 'avatar' must be a non-empty string or unset"},
		{"long avatar", SendRequest{Kind: "chat", Avatar: strings.Repeat("a", 1001), Message: "hi"}, "Key 'avatar' is too long, cannot be more than 1000 characters"},
		{"missing message", SendRequest{Kind: "chat"}, "String 'message' is required"},
		{"empty message", SendRequest{Kind: "chat", Message: ""}, "Key 'message' must be a non-empty string"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.requireMessage(s.service.Send(s.ctx, tt.req), tt.message)
		})
	}
}
