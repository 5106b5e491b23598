package discord

import (
	"context"
	"errors"
	"strings"

	"github.com/palacemc/palace-web/internal/dependencies/clock"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/services/connection"
)

// Outcome is how a verification attempt ended
type Outcome int

const (
	// OutcomeRedirect sends the browser elsewhere, see Result.Redirect
	OutcomeRedirect Outcome = iota
	OutcomeLinked
	OutcomeBadState
	OutcomeDiscordFailed
	OutcomeAlreadyLinked
	OutcomeLinkedElsewhere
	// OutcomeInternalError left the player unlinked
	OutcomeInternalError
	// OutcomeLinkedUnverified linked the player but the guild was not told
	OutcomeLinkedUnverified
	// OutcomeLinkedWithErrors linked the player but left cleanup undone
	OutcomeLinkedWithErrors
)

// Error codes reported to players for internal failures
const (
	CodeFind    = "FIND"
	CodeContent = "CONTENT"
	CodeName    = "USERNAME"
	CodeWebhook = "WEBHOOK"
	CodeToken   = "TOKEN"
	CodeHash    = "THE HASH-SLINGING SLASHER"
)

// Result of a verification step. Code is set for the internal error
// outcomes.
type Result struct {
	Outcome  Outcome
	Redirect string
	Code     string
}

func redirect(to string) Result { return Result{Outcome: OutcomeRedirect, Redirect: to} }

func failed(outcome Outcome, code string) Result { return Result{Outcome: outcome, Code: code} }

// Verify runs one step of linking a player to a Discord account. state is
// "uuid;hash" as handed out in game and code is the OAuth2 code Discord
// returns with. Without a code the browser is sent to authorize first.
func (s *Service) Verify(ctx context.Context, state, code string) Result {
	parts := strings.SplitN(state, ";", 3)
	if len(parts) < 2 {
		return redirect(s.inviteURL)
	}
	id, hash := parts[0], parts[1]
	if code == "" {
		return redirect(s.api.AuthCodeURL(id + ";" + hash))
	}

	now := clock.Seconds(s.clock)
	content, err := s.connections.Get(ctx, id, Provider, string(model.PairContent))
	if err != nil {
		return failed(OutcomeBadState, "")
	}
	// a lapsed link counts as unset
	linked := model.Connection{Content: content.Value, TTL: content.TTL}
	if linked.ActiveAt(model.PairContent, now) {
		return failed(OutcomeAlreadyLinked, "")
	}

	secret, err := s.connections.Get(ctx, id, Provider, string(model.PairHash))
	if err != nil {
		return failed(OutcomeBadState, "")
	}
	issued := model.Connection{Hash: secret.Value, HashTTL: secret.TTL}
	if !issued.ActiveAt(model.PairHash, now) || *secret.Value != hash {
		return failed(OutcomeBadState, "")
	}

	grant, err := s.api.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("discord code exchange failed", "error", err)
		return failed(OutcomeDiscordFailed, "")
	}
	user, err := s.api.CurrentUser(ctx, grant.AccessToken)
	if err != nil {
		s.logger.Warn("discord user lookup failed", "error", err)
		return failed(OutcomeDiscordFailed, "")
	}

	_, err = s.connections.Find(ctx, Provider, user.ID)
	switch {
	case err == nil:
		return failed(OutcomeLinkedElsewhere, "")
	case !errors.Is(err, model.ErrPlayerNotFound):
		s.logger.Error("verification lookup failed", "discord", user.ID, "error", err)
		return failed(OutcomeInternalError, CodeFind)
	}

	stored, err := s.connections.Set(ctx, connection.SetRequest{
		UUID:     id,
		Provider: Provider,
		Pair:     string(model.PairContent),
		Value:    user.ID,
		Expire:   model.InstantSecondMax,
	})
	if err == nil && stored.Value == nil {
		err = errors.New("content missing after save")
	}
	if err != nil {
		s.logger.Error("verification save failed", "uuid", id, "discord", user.ID, "error", err)
		return failed(OutcomeInternalError, CodeContent)
	}

	p, err := s.players.ByUUID(ctx, id)
	if err != nil {
		s.logger.Error("verification name lookup failed", "uuid", id, "error", err)
		return failed(OutcomeInternalError, CodeName)
	}

	err = s.Send(ctx, SendRequest{Kind: string(model.WebhookVerify), Message: p.Name})
	if err != nil {
		s.logger.Error("verification webhook failed", "uuid", id, "error", err)
		return failed(OutcomeLinkedUnverified, CodeWebhook)
	}

	_, err = s.connections.Set(ctx, connection.SetRequest{
		UUID:     id,
		Provider: Provider,
		Pair:     string(model.PairToken),
		Value:    grant.AccessToken + "," + grant.RefreshToken,
		Expire:   now + grant.ExpiresIn,
	})
	if err != nil {
		s.logger.Error("verification token save failed", "uuid", id, "error", err)
		return failed(OutcomeLinkedWithErrors, CodeToken)
	}

	_, err = s.connections.Set(ctx, connection.SetRequest{
		UUID:     id,
		Provider: Provider,
		Pair:     string(model.PairHash),
	})
	if err != nil {
		s.logger.Error("verification hash cleanup failed", "uuid", id, "error", err)
		return failed(OutcomeLinkedWithErrors, CodeHash)
	}

	s.logger.Info("discord account linked", "uuid", id, "discord", user.ID)
	return Result{Outcome: OutcomeLinked}
}
