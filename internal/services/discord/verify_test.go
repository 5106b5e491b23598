package discord

import (
	"errors"
	"time"

	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/services/connection"
)

const hash = "0123456789abcdef0123456789abcdef"

// issueHash hands out a verification secret the way the game server does
func (s *ServiceSuite) issueHash() string {
	s.random.QueueHex(hash)
	_, err := s.connections.Set(s.ctx, connection.SetRequest{UUID: steve, Provider: Provider, Pair: "hash", Value: "x"})
	s.Require().NoError(err)
	return steve + ";" + hash
}

func (s *ServiceSuite) verifiable() string {
	s.addGuild()
	s.addWebhook(hookID, "verify")
	return s.issueHash()
}

func (s *ServiceSuite) TestVerifyWithoutStateGoesToInvite() {
	for _, state := range []string{"", "no-separator"} {
		res := s.service.Verify(s.ctx, state, "code")
		s.Equal(Result{Outcome: OutcomeRedirect, Redirect: "https://discord.gg/invite"}, res)
	}
}

func (s *ServiceSuite) TestVerifyWithoutCodeGoesToAuthorize() {
	res := s.service.Verify(s.ctx, steve+";abc;extra", "")
	s.Equal(OutcomeRedirect, res.Outcome)
	s.Equal("https://discord.test/authorize?state="+steve+";abc", res.Redirect)
}

func (s *ServiceSuite) TestVerifyLinksAccount() {
	state := s.verifiable()

	res := s.service.Verify(s.ctx, state, "the-code")
	s.Equal(Result{Outcome: OutcomeLinked}, res)
	s.Equal([]string{"the-code"}, s.api.codes)

	content, err := s.connections.Get(s.ctx, steve, Provider, "content")
	s.Require().NoError(err)
	s.Equal(userID, *content.Value)
	s.Equal(model.InstantSecondMax, content.TTL)

	token, err := s.connections.Get(s.ctx, steve, Provider, "token")
	s.Require().NoError(err)
	s.Equal("access,refresh", *token.Value)
	s.Equal(s.clock.Now().Unix()+604800, token.TTL)

	secret, err := s.connections.Get(s.ctx, steve, Provider, "hash")
	s.Require().NoError(err)
	s.Equal(model.UnsetConnectionValue(), secret)

	s.Require().Len(s.api.deliveries, 1)
	s.Equal("Steve", s.api.deliveries[0].msg.Content)

	found, err := s.connections.Find(s.ctx, Provider, userID)
	s.Require().NoError(err)
	s.Equal(steve, found.UUID)
}

func (s *ServiceSuite) TestVerifyAlreadyLinked() {
	state := s.verifiable()
	s.Require().Equal(OutcomeLinked, s.service.Verify(s.ctx, state, "code").Outcome)

	res := s.service.Verify(s.ctx, state, "code")
	s.Equal(OutcomeAlreadyLinked, res.Outcome)
	s.Len(s.api.codes, 1, "no second exchange")
}

func (s *ServiceSuite) TestVerifyBadState() {
	s.verifiable()

	tests := []struct {
		name  string
		state string
	}{
		{"bad uuid", "nope;" + hash},
		{"null uuid", "00000000-0000-0000-0000-000000000000;" + hash},
		{"wrong hash", steve + ";ffffffffffffffffffffffffffffffff"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Equal(OutcomeBadState, s.service.Verify(s.ctx, tt.state, "code").Outcome)
		})
	}
	s.Empty(s.api.codes)
}

func (s *ServiceSuite) TestVerifyExpiredHash() {
	state := s.verifiable()
	s.clock.Advance(6 * time.Minute)

	s.Equal(OutcomeBadState, s.service.Verify(s.ctx, state, "code").Outcome)
}

func (s *ServiceSuite) TestVerifyHashLapsesAtItsTTL() {
	s.addGuild()
	s.addWebhook(hookID, "verify")
	s.random.QueueHex(hash)
	_, err := s.connections.Set(s.ctx, connection.SetRequest{
		UUID: steve, Provider: Provider, Pair: "hash", Value: "x", Expire: s.clock.Now().Unix() + 60,
	})
	s.Require().NoError(err)
	state := steve + ";" + hash

	s.clock.Advance(60 * time.Second)

	s.Equal(OutcomeBadState, s.service.Verify(s.ctx, state, "code").Outcome)
	s.Empty(s.api.codes)
}

func (s *ServiceSuite) TestVerifyDiscordFailures() {
	state := s.verifiable()

	s.api.grantErr = errors.New("invalid_grant")
	s.Equal(OutcomeDiscordFailed, s.service.Verify(s.ctx, state, "code").Outcome)

	s.api.grantErr = nil
	s.api.userErr = errors.New("401: Unauthorized")
	s.Equal(OutcomeDiscordFailed, s.service.Verify(s.ctx, state, "code").Outcome)

	content, err := s.connections.Get(s.ctx, steve, Provider, "content")
	s.Require().NoError(err)
	s.Nil(content.Value)
}

func (s *ServiceSuite) TestVerifyLinkedElsewhere() {
	state := s.verifiable()
	alex := "c06f8906-4c8a-4911-9c29-ea1dbd1aab82"
	_, err := s.service.players.Login(s.ctx, alex, "Alex")
	s.Require().NoError(err)
	_, err = s.connections.Set(s.ctx, connection.SetRequest{
		UUID: alex, Provider: Provider, Pair: "content", Value: userID, Expire: model.InstantSecondMax,
	})
	s.Require().NoError(err)

	s.Equal(OutcomeLinkedElsewhere, s.service.Verify(s.ctx, state, "code").Outcome)
}

func (s *ServiceSuite) TestVerifyWithoutVerifyWebhookGuild() {
	state := s.issueHash()

	res := s.service.Verify(s.ctx, state, "code")
	s.Equal(Result{Outcome: OutcomeLinkedUnverified, Code: CodeWebhook}, res)

	content, err := s.connections.Get(s.ctx, steve, Provider, "content")
	s.Require().NoError(err)
	s.Equal(userID, *content.Value, "content is kept")
}

func (s *ServiceSuite) TestVerifyTokenSaveFailure() {
	state := s.verifiable()
	s.api.grant.RefreshToken = "has space"

	res := s.service.Verify(s.ctx, state, "code")
	s.Equal(Result{Outcome: OutcomeLinkedWithErrors, Code: CodeToken}, res)
}

func (s *ServiceSuite) TestVerifyRelinksLapsedContent() {
	state := s.verifiable()
	_, err := s.connections.Set(s.ctx, connection.SetRequest{
		UUID: steve, Provider: Provider, Pair: "content", Value: "999999999999999999", Expire: s.clock.Now().Unix() - 1,
	})
	s.Require().NoError(err)

	s.Equal(OutcomeLinked, s.service.Verify(s.ctx, state, "code").Outcome)
}
