// Package storagetest holds behavior every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/palacemc/palace-web/internal/identity"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/storage"
)

// Suite runs the storage contract against Storage. Embed it in a backend's
// test suite and set Storage and Ctx in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var (
	alice = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	bob   = uuid.MustParse("22222222-2222-4222-8222-222222222222")
)

func (s *Suite) createPlayer(id uuid.UUID, name string, firstLogin int64) *model.Player {
	_, p, err := s.Storage.UpsertPlayer(s.Ctx, id, func(p *model.Player, created bool) error {
		p.Name = name
		p.FirstLogin = firstLogin
		p.LastLogin = firstLogin
		return nil
	})
	s.Require().NoError(err)
	return p
}

func strPtr(v string) *string { return &v }

// Player tests

func (s *Suite) TestUpsertCreatesPlayer() {
	prev, next, err := s.Storage.UpsertPlayer(s.Ctx, alice, func(p *model.Player, created bool) error {
		s.True(created)
		s.Equal(alice, p.UUID)
		p.Name = "Alice"
		p.FirstLogin = 1000
		return nil
	})
	s.Require().NoError(err)
	s.Nil(prev)
	s.Equal("Alice", next.Name)

	got, err := s.Storage.GetPlayer(s.Ctx, alice)
	s.Require().NoError(err)
	s.Equal("Alice", got.Name)
	s.Equal(int64(1000), got.FirstLogin)
}

func (s *Suite) TestUpsertReturnsPreviousImage() {
	s.createPlayer(alice, "Alice", 1000)

	prev, next, err := s.Storage.UpsertPlayer(s.Ctx, alice, func(p *model.Player, created bool) error {
		s.False(created)
		p.Name = "Alicia"
		return nil
	})
	s.Require().NoError(err)
	s.Require().NotNil(prev)
	s.Equal("Alice", prev.Name)
	s.Equal("Alicia", next.Name)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, alice)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestUpdatePlayerNeverCreates() {
	_, err := s.Storage.UpdatePlayer(s.Ctx, alice, func(p *model.Player) error { return nil })
	s.ErrorIs(err, model.ErrPlayerNotFound)

	count, err := s.Storage.CountPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *Suite) TestUpdatePlayerMutatorErrorDiscardsEdit() {
	s.createPlayer(alice, "Alice", 1000)
	boom := errors.New("boom")

	_, err := s.Storage.UpdatePlayer(s.Ctx, alice, func(p *model.Player) error {
		p.Name = "Changed"
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.Storage.GetPlayer(s.Ctx, alice)
	s.Require().NoError(err)
	s.Equal("Alice", got.Name)
}

func (s *Suite) TestFindPlayersByName() {
	s.createPlayer(alice, "Steve", 2000)
	s.createPlayer(bob, "Steve", 1000)

	players, err := s.Storage.FindPlayersByName(s.Ctx, "Steve")
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal(bob, players[0].UUID, "ordered by first login")

	// Renaming drops the player from the old name
	_, err = s.Storage.UpdatePlayer(s.Ctx, alice, func(p *model.Player) error {
		p.Name = "Alex"
		return nil
	})
	s.Require().NoError(err)

	players, err = s.Storage.FindPlayersByName(s.Ctx, "Steve")
	s.Require().NoError(err)
	s.Len(players, 1)

	players, err = s.Storage.FindPlayersByName(s.Ctx, "steve")
	s.Require().NoError(err)
	s.Empty(players, "names match exactly")
}

func (s *Suite) TestFindPlayersByConnection() {
	s.createPlayer(alice, "Alice", 1000)
	_, err := s.Storage.UpdatePlayer(s.Ctx, alice, func(p *model.Player) error {
		c := model.NewConnection()
		c.SetPair(model.PairContent, strPtr("123456789012345678"), model.InstantSecondMax)
		p.Connections = map[string]*model.Connection{"discord": c}
		return nil
	})
	s.Require().NoError(err)

	players, err := s.Storage.FindPlayersByConnection(s.Ctx, "discord", "123456789012345678")
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.Equal(alice, players[0].UUID)

	// Clearing the content removes the match
	_, err = s.Storage.UpdatePlayer(s.Ctx, alice, func(p *model.Player) error {
		p.Connections["discord"].SetPair(model.PairContent, nil, model.InstantSecondMin)
		return nil
	})
	s.Require().NoError(err)

	players, err = s.Storage.FindPlayersByConnection(s.Ctx, "discord", "123456789012345678")
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *Suite) TestListAndCountPlayers() {
	s.createPlayer(alice, "Alice", 1000)
	s.createPlayer(bob, "Bob", 2000)

	players, err := s.Storage.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Len(players, 2)

	count, err := s.Storage.CountPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

func (s *Suite) TestLegacyConnectionsNormalizedOnRead() {
	raw := fmt.Sprintf(`{
		"uuid": %q,
		"name": "Alice",
		"firstLogin": 1000,
		"lastLogout": null,
		"connections": [
			{"type": "discord", "content": "123456789012345678", "ttl": "%d", "hash": null, "hash_ttl": null}
		]
	}`, alice, model.InstantSecondMax)
	s.Require().NoError(s.Storage.PutPlayerDocument(s.Ctx, []byte(raw)))

	p, err := s.Storage.GetPlayer(s.Ctx, alice)
	s.Require().NoError(err)
	s.Require().Contains(p.Connections, "discord")
	c := p.Connections["discord"]
	s.Equal("123456789012345678", *c.Content)
	s.Equal(model.InstantSecondMax, c.TTL)
	s.Nil(c.Hash)
	s.Equal(model.InstantSecondMin, c.HashTTL)
	s.Equal(model.InstantSecondMin, c.TokenTTL)

	// The legacy document is found through its connection too
	players, err := s.Storage.FindPlayersByConnection(s.Ctx, "discord", "123456789012345678")
	s.Require().NoError(err)
	s.Len(players, 1)

	// A second read sees the same normalized document
	again, err := s.Storage.GetPlayer(s.Ctx, alice)
	s.Require().NoError(err)
	s.Equal(p, again)
}

// Transaction tests

func (s *Suite) TestTransactionCommitsAllWrites() {
	s.createPlayer(alice, "Alice", 1000)
	s.createPlayer(bob, "Bob", 1000)

	err := s.Storage.RunTransaction(s.Ctx, storage.TxOptions{MaxCommitTime: time.Second}, func(ctx context.Context, tx storage.Tx) error {
		balances, err := tx.IncrementWallets(ctx, alice, map[string]int64{"primary": 10})
		if err != nil {
			return err
		}
		s.Equal(int64(10), balances["primary"])

		balances, err = tx.IncrementWallets(ctx, alice, map[string]int64{"primary": 5})
		if err != nil {
			return err
		}
		s.Equal(int64(15), balances["primary"], "reads observe staged writes")

		_, err = tx.IncrementWallets(ctx, bob, map[string]int64{"creative": -3})
		return err
	})
	s.Require().NoError(err)

	a, err := s.Storage.GetPlayer(s.Ctx, alice)
	s.Require().NoError(err)
	s.Equal(int64(15), a.Wallet["primary"])

	b, err := s.Storage.GetPlayer(s.Ctx, bob)
	s.Require().NoError(err)
	s.Equal(int64(-3), b.Wallet["creative"])
}

func (s *Suite) TestTransactionErrorDiscardsAllWrites() {
	s.createPlayer(alice, "Alice", 1000)

	err := s.Storage.RunTransaction(s.Ctx, storage.TxOptions{}, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.IncrementWallets(ctx, alice, map[string]int64{"primary": 10}); err != nil {
			return err
		}
		return storage.ErrRollback
	})
	s.ErrorIs(err, storage.ErrRollback)

	a, err := s.Storage.GetPlayer(s.Ctx, alice)
	s.Require().NoError(err)
	s.Zero(a.Wallet["primary"])
}

func (s *Suite) TestTransactionMissingPlayer() {
	err := s.Storage.RunTransaction(s.Ctx, storage.TxOptions{}, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.IncrementWallets(ctx, alice, map[string]int64{"primary": 1})
		return err
	})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestTransactionDeadlineIsTransient() {
	s.createPlayer(alice, "Alice", 1000)

	err := s.Storage.RunTransaction(s.Ctx, storage.TxOptions{MaxCommitTime: time.Millisecond}, func(ctx context.Context, tx storage.Tx) error {
		<-ctx.Done()
		return nil
	})
	s.ErrorIs(err, model.ErrTransient)
}

// Stats tests

func (s *Suite) TestStats() {
	_, err := s.Storage.GetStats(s.Ctx, alice)
	s.ErrorIs(err, model.ErrStatsNotFound)

	stats, err := s.Storage.IncrementStats(s.Ctx, alice, map[string]int64{"playtime.all": 5, "general.messages": 1})
	s.Require().NoError(err)
	s.Equal(int64(5), stats.Values["playtime.all"])

	stats, err = s.Storage.IncrementStats(s.Ctx, alice, map[string]int64{"playtime.all": 2})
	s.Require().NoError(err)
	s.Equal(int64(7), stats.Values["playtime.all"])
	s.Equal(int64(1), stats.Values["general.messages"])

	got, err := s.Storage.GetStats(s.Ctx, alice)
	s.Require().NoError(err)
	s.Equal(stats.Values, got.Values)

	server, err := s.Storage.IncrementStats(s.Ctx, identity.NullUUID, map[string]int64{"playtime.all": 1})
	s.Require().NoError(err)
	s.Equal(int64(1), server.Values["playtime.all"])
}

// Chat tests

func (s *Suite) TestQueryChats() {
	unsent := false
	chats := []model.Chat{
		{Time: 100, UUID: alice, Message: "one", Type: "chat", Server: "hub"},
		{Time: 200, UUID: alice, Message: "two", Type: "pm", To: &bob},
		{Time: 300, UUID: alice, Message: "three", Type: "chat", Server: "hub"},
		{Time: 400, UUID: alice, Message: "lost", Type: "chat", Sent: &unsent},
		{Time: 500, UUID: bob, Message: "other", Type: "chat"},
		{Time: 600, UUID: alice, Message: "future", Type: "chat"},
	}
	for i := range chats {
		s.Require().NoError(s.Storage.SaveChat(s.Ctx, &chats[i]))
	}

	got, total, err := s.Storage.QueryChats(s.Ctx, model.ChatQuery{UUID: alice, Since: 500, Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(got, 3)
	s.Equal("three", got[0].Message)
	s.Equal("one", got[2].Message)

	got, total, err = s.Storage.QueryChats(s.Ctx, model.ChatQuery{UUID: alice, Since: 500, Limit: 10, Type: "pm"})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(got, 1)
	s.Equal(bob, *got[0].To)

	got, total, err = s.Storage.QueryChats(s.Ctx, model.ChatQuery{UUID: alice, Since: 500, Limit: 10, NotType: "pm"})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(got, 2)

	got, total, err = s.Storage.QueryChats(s.Ctx, model.ChatQuery{UUID: alice, Since: 500, Offset: 1, Limit: 1})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(got, 1)
	s.Equal("two", got[0].Message)
}

func (s *Suite) TestDuplicateChatsKept() {
	c := model.Chat{Time: 100, UUID: alice, Message: "hi", Type: "chat"}
	s.Require().NoError(s.Storage.SaveChat(s.Ctx, &c))
	s.Require().NoError(s.Storage.SaveChat(s.Ctx, &c))

	_, total, err := s.Storage.QueryChats(s.Ctx, model.ChatQuery{UUID: alice, Since: 100, Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}

// Mail tests

func (s *Suite) saveMail(t int64, from, to uuid.UUID, message string) *model.Mail {
	m := &model.Mail{
		ID:      identity.NewObjectID(time.UnixMilli(t)),
		Time:    t,
		To:      to,
		From:    from,
		Origin:  "hub",
		Message: message,
	}
	s.Require().NoError(s.Storage.SaveMail(s.Ctx, m))
	return m
}

func (s *Suite) TestQueryMail() {
	s.saveMail(1000, bob, alice, "first")
	second := s.saveMail(2000, bob, alice, "second")
	s.saveMail(3000, alice, bob, "reply")

	mail, total, unread, err := s.Storage.QueryMail(s.Ctx, model.MailQuery{Box: model.MailBoxTo, UUID: alice, Limit: 5})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Equal(int64(2), unread)
	s.Require().Len(mail, 2)
	s.Equal(second.ID, mail[0].ID)

	mail, total, _, err = s.Storage.QueryMail(s.Ctx, model.MailQuery{Box: model.MailBoxFrom, UUID: alice, Limit: 5})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(mail, 1)
	s.Equal("reply", mail[0].Message)

	mail, _, _, err = s.Storage.QueryMail(s.Ctx, model.MailQuery{Box: model.MailBoxTo, UUID: alice, Offset: 1, Limit: 5})
	s.Require().NoError(err)
	s.Require().Len(mail, 1)
	s.Equal("first", mail[0].Message)
}

func (s *Suite) TestUpdateMail() {
	m := s.saveMail(1000, bob, alice, "hello")

	_, err := s.Storage.UpdateMail(s.Ctx, m.ID, bob, func(m *model.Mail) error { return nil })
	s.ErrorIs(err, model.ErrMailNotFound, "only the recipient may update")

	_, err = s.Storage.UpdateMail(s.Ctx, identity.NewObjectID(time.UnixMilli(5)), alice, func(m *model.Mail) error { return nil })
	s.ErrorIs(err, model.ErrMailNotFound)

	updated, err := s.Storage.UpdateMail(s.Ctx, m.ID, alice, func(m *model.Mail) error {
		read := true
		m.Read = &read
		return nil
	})
	s.Require().NoError(err)
	s.True(*updated.Read)

	_, _, unread, err := s.Storage.QueryMail(s.Ctx, model.MailQuery{Box: model.MailBoxTo, UUID: alice, Limit: 5})
	s.Require().NoError(err)
	s.Zero(unread)

	_, err = s.Storage.UpdateMail(s.Ctx, m.ID, alice, func(m *model.Mail) error {
		m.Deleted = true
		return nil
	})
	s.Require().NoError(err)

	_, total, _, err := s.Storage.QueryMail(s.Ctx, model.MailQuery{Box: model.MailBoxTo, UUID: alice, Limit: 5})
	s.Require().NoError(err)
	s.Zero(total, "deleted mail leaves the inbox")

	_, total, _, err = s.Storage.QueryMail(s.Ctx, model.MailQuery{Box: model.MailBoxFrom, UUID: bob, Limit: 5})
	s.Require().NoError(err)
	s.Equal(int64(1), total, "but stays in the sender's box")
}

// Log tests

func (s *Suite) TestSaveLog() {
	s.NoError(s.Storage.SaveLog(s.Ctx, &model.LogEntry{Time: 1, Message: "hello", Exception: "trace"}))
}

// Guild tests

func (s *Suite) TestGuilds() {
	_, err := s.Storage.GetGuild(s.Ctx, "100000000000000001")
	s.ErrorIs(err, model.ErrGuildNotFound)

	_, err = s.Storage.UpdateGuild(s.Ctx, "100000000000000001", func(g *model.Guild) error { return nil })
	s.ErrorIs(err, model.ErrGuildNotFound)

	s.Require().NoError(s.Storage.SaveGuild(s.Ctx, &model.Guild{Guild: "200000000000000002"}))
	s.Require().NoError(s.Storage.SaveGuild(s.Ctx, &model.Guild{Guild: "100000000000000001"}))

	updated, err := s.Storage.UpdateGuild(s.Ctx, "100000000000000001", func(g *model.Guild) error {
		g.Roles.Set(model.RoleAdmin, []string{"300000000000000003"})
		return nil
	})
	s.Require().NoError(err)
	s.Equal([]string{"300000000000000003"}, updated.Roles.Admin)

	guilds, err := s.Storage.ListGuilds(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(guilds, 2)
	s.Equal("100000000000000001", guilds[0].Guild)
	s.Equal([]string{"300000000000000003"}, guilds[0].Roles.Admin)
	s.Nil(guilds[1].Roles.Admin)
}

func (s *Suite) TestPing() {
	s.NoError(s.Storage.Ping(s.Ctx))
}
