package discord

import (
	"github.com/palacemc/palace-web/internal/model"
)

func (s *ServiceSuite) TestAddServerIsIdempotent() {
	s.addGuild()
	s.Require().NoError(s.service.ModifyRoles(s.ctx, guildID, "member", "add", "600000000000000001"))
	s.addGuild()

	roles, err := s.service.Roles(s.ctx, guildID, "member")
	s.Require().NoError(err)
	s.Equal([]string{"600000000000000001"}, roles[model.RoleMember])
}

func (s *ServiceSuite) TestAddServerRejectsBadSnowflake() {
	s.requireMessage(s.service.AddServer(s.ctx, "abc"), "Key 'guild' must be a valid Discord Snowflake")
}

func (s *ServiceSuite) TestRolesAllDefaultsToEmpty() {
	s.addGuild()

	roles, err := s.service.Roles(s.ctx, guildID, nil)
	s.Require().NoError(err)
	s.Equal(map[model.RoleType][]string{
		model.RoleMember:    {},
		model.RoleModerator: {},
		model.RoleAdmin:     {},
	}, roles)
}

func (s *ServiceSuite) TestRolesUnknownGuild() {
	_, err := s.service.Roles(s.ctx, guildID, "all")
	s.ErrorIs(err, model.ErrGuildNotFound)
}

func (s *ServiceSuite) TestRolesValidation() {
	s.addGuild()

	_, err := s.service.Roles(s.ctx, guildID, 5)
	s.requireMessage(err, "Key 'type' must be a non-empty string or unset")
	_, err = s.service.Roles(s.ctx, guildID, "owner")
	s.requireMessage(err, `Key 'type' must be one of "member", "moderator", "admin", or "all"`)
}

func (s *ServiceSuite) TestModifyRolesAddAndRemove() {
	s.addGuild()

	s.Require().NoError(s.service.ModifyRoles(s.ctx, guildID, "admin", "add",
		[]any{"600000000000000001", "600000000000000002"}))
	s.Require().NoError(s.service.ModifyRoles(s.ctx, guildID, "admin", "add", "600000000000000001"))
	s.Require().NoError(s.service.ModifyRoles(s.ctx, guildID, "admin", "remove", "600000000000000002"))

	roles, err := s.service.Roles(s.ctx, guildID, "admin")
	s.Require().NoError(err)
	s.Equal(map[model.RoleType][]string{model.RoleAdmin: {"600000000000000001"}}, roles)
}

func (s *ServiceSuite) TestModifyRolesReset() {
	s.addGuild()
	s.Require().NoError(s.service.ModifyRoles(s.ctx, guildID, "member", "add", "600000000000000001"))
	s.Require().NoError(s.service.ModifyRoles(s.ctx, guildID, "moderator", "add", "600000000000000002"))

	s.Require().NoError(s.service.ModifyRoles(s.ctx, guildID, "member", "reset", nil))
	roles, err := s.service.Roles(s.ctx, guildID, "all")
	s.Require().NoError(err)
	s.Empty(roles[model.RoleMember])
	s.Equal([]string{"600000000000000002"}, roles[model.RoleModerator])

	s.Require().NoError(s.service.ModifyRoles(s.ctx, guildID, "all", "reset", nil))
	servers, err := s.service.Servers(s.ctx, false)
	s.Require().NoError(err)
	s.Require().Len(servers, 1)
	s.Len(servers[0].Roles, 3, "reset types count as configured")
}

func (s *ServiceSuite) TestModifyRolesValidation() {
	s.addGuild()

	tests := []struct {
		name     string
		roleType string
		action   string
		roles    any
		message  string
	}{
		{"bad action", "member", "toggle", nil, `Key 'action' must be one of "add", "remove", or "reset"`},
		{"bad type", "owner", "add", nil, `Key 'type' must be one of "member", "moderator", "admin", or "all"`},
		{"all needs reset", "all", "add", "600000000000000001", "Type 'all' is only supported with action 'reset'"},
		{"missing roles", "member", "add", nil, "String or String[] 'roles' is required for this action"},
		{"bad entry", "member", "add", []any{"600000000000000001", "x"}, "Array 'roles' contains an invalid Discord Snowflake"},
		{"bad single", "member", "remove", "x", "Key 'roles' must be a valid Discord Snowflake"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.requireMessage(s.service.ModifyRoles(s.ctx, guildID, tt.roleType, tt.action, tt.roles), tt.message)
		})
	}
}

func (s *ServiceSuite) TestModifyRolesUnknownGuild() {
	err := s.service.ModifyRoles(s.ctx, guildID, "member", "reset", nil)
	s.ErrorIs(err, model.ErrGuildNotFound)
}

func (s *ServiceSuite) TestWebhooksHideTokens() {
	s.addGuild()
	s.addWebhook(hookID, "chat")

	hooks, err := s.service.Webhooks(s.ctx, guildID, false)
	s.Require().NoError(err)
	s.Equal([]model.WebhookView{{Channel: channel, Name: "Palace Bot", Kind: model.WebhookChat}}, hooks)

	hooks, err = s.service.Webhooks(s.ctx, guildID, true)
	s.Require().NoError(err)
	s.Require().Len(hooks, 1)
	s.Equal(hookID, hooks[0].ID)
	s.Equal("secret-"+hookID, hooks[0].Token)
}

func (s *ServiceSuite) TestAddWebhookStoresLowercaseName() {
	s.addGuild()
	s.addWebhook(hookID, "verify")

	g, err := s.storage.GetGuild(s.ctx, guildID)
	s.Require().NoError(err)
	s.Require().Len(g.Webhooks, 1)
	s.Equal("palace bot", g.Webhooks[0].NameI)
	s.Equal(model.WebhookVerify, g.Webhooks[0].Kind)
}

func (s *ServiceSuite) TestAddWebhookRejectsMalformed() {
	s.addGuild()
	valid := func() map[string]any {
		return map[string]any{
			"type":       int64(1),
			"id":         hookID,
			"name":       "Palace Bot",
			"channel_id": channel,
			"guild_id":   guildID,
			"token":      "secret",
		}
	}

	tests := []struct {
		name   string
		mutate func(m map[string]any)
		kind   any
	}{
		{"bad kind", func(map[string]any) {}, "spam"},
		{"missing kind", func(map[string]any) {}, nil},
		{"wrong type", func(m map[string]any) { m["type"] = int64(2) }, "chat"},
		{"bad id", func(m map[string]any) { m["id"] = "nope" }, "chat"},
		{"empty name", func(m map[string]any) { m["name"] = "" }, "chat"},
		{"missing token", func(m map[string]any) { delete(m, "token") }, "chat"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			hook := valid()
			tt.mutate(hook)
			s.requireMessage(s.service.AddWebhook(s.ctx, hook, tt.kind), "Operation failed, internal error occurred.")
		})
	}

	s.requireMessage(s.service.AddWebhook(s.ctx, "not an object", "chat"), "Operation failed, internal error occurred.")
}

func (s *ServiceSuite) TestAddWebhookUnknownGuild() {
	err := s.service.AddWebhook(s.ctx, map[string]any{
		"type":       int64(1),
		"id":         hookID,
		"name":       "Palace Bot",
		"channel_id": channel,
		"guild_id":   guildID,
		"token":      "secret",
	}, "chat")
	s.requireMessage(err, "Strange, I know not of this guild...")
}

func (s *ServiceSuite) TestRemoveWebhook() {
	s.addGuild()
	s.addWebhook(hookID, "chat")
	s.addWebhook("400000000000000002", "chat")

	s.Require().NoError(s.service.RemoveWebhook(s.ctx, guildID, hookID))

	g, err := s.storage.GetGuild(s.ctx, guildID)
	s.Require().NoError(err)
	s.Require().Len(g.Webhooks, 1)
	s.Equal("400000000000000002", g.Webhooks[0].ID)
}

func (s *ServiceSuite) TestRemoveWebhookValidation() {
	s.requireMessage(s.service.RemoveWebhook(s.ctx, guildID, "x"), "Key 'id' must be a valid Discord Snowflake")
	s.requireMessage(s.service.RemoveWebhook(s.ctx, guildID, hookID), "Strange, I know not of this guild...")
}

func (s *ServiceSuite) TestServersOmitsUnconfigured() {
	s.addGuild()

	servers, err := s.service.Servers(s.ctx, false)
	s.Require().NoError(err)
	s.Equal([]model.ServerView{{Guild: guildID}}, servers)

	s.addWebhook(hookID, "moderation")
	servers, err = s.service.Servers(s.ctx, true)
	s.Require().NoError(err)
	s.Require().Len(servers[0].Webhooks, 1)
	s.Equal("secret-"+hookID, servers[0].Webhooks[0].Token)
}
