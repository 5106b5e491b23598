package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/validation"
)

var roleMessages = validation.ListMessages{
	Required:     "String or String[] 'roles' is required for this action",
	InvalidEntry: "Array 'roles' contains an invalid Discord Snowflake",
	InvalidKey:   "Key 'roles' must be a valid Discord Snowflake",
}

var (
	// errOperationFailed hides why a webhook registration was rejected
	errOperationFailed = validation.Errorf("Operation failed, internal error occurred.")
	errUnknownGuild    = validation.Errorf("Strange, I know not of this guild...")
)

func checkSnowflake(key, s string) error {
	if !validation.IsSnowflake(s) {
		return validation.Errorf("Key '%s' must be a valid Discord Snowflake", key)
	}
	return nil
}

func parseRoleType(s string) (model.RoleType, error) {
	t, ok := model.ParseRoleType(s)
	if !ok {
		return "", validation.Errorf(`Key 'type' must be one of "member", "moderator", "admin", or "all"`)
	}
	return t, nil
}

// AddServer registers a guild the bot has joined. Registering a known guild
// is a no-op.
func (s *Service) AddServer(ctx context.Context, guild string) error {
	if err := checkSnowflake("guild", guild); err != nil {
		return err
	}
	_, err := s.storage.GetGuild(ctx, guild)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrGuildNotFound) {
		return err
	}
	if err := s.storage.SaveGuild(ctx, &model.Guild{Guild: guild}); err != nil {
		return fmt.Errorf("save guild %s: %w", guild, err)
	}
	s.logger.Info("guild registered", "guild", guild)
	return nil
}

// Roles returns the roles of one type, or of every type for "all". Types
// never configured read as empty. roleType may be nil for "all".
func (s *Service) Roles(ctx context.Context, guild string, roleType any) (map[model.RoleType][]string, error) {
	if err := checkSnowflake("guild", guild); err != nil {
		return nil, err
	}
	t := model.RoleAll
	if !validation.IsNull(roleType) {
		str, ok := validation.String(roleType)
		if !ok {
			return nil, validation.Errorf("Key 'type' must be a non-empty string or unset")
		}
		var err error
		if t, err = parseRoleType(str); err != nil {
			return nil, err
		}
	}

	g, err := s.storage.GetGuild(ctx, guild)
	if err != nil {
		return nil, err
	}

	types := []model.RoleType{t}
	if t == model.RoleAll {
		types = []model.RoleType{model.RoleMember, model.RoleModerator, model.RoleAdmin}
	}
	out := make(map[model.RoleType][]string, len(types))
	for _, rt := range types {
		out[rt] = append([]string{}, g.Roles.Get(rt)...)
	}
	return out, nil
}

// ModifyRoles adds roles to, removes roles from, or resets a role type.
// Only reset accepts the "all" type.
func (s *Service) ModifyRoles(ctx context.Context, guild, roleType, action string, roles any) error {
	if err := checkSnowflake("guild", guild); err != nil {
		return err
	}
	if action != "add" && action != "remove" && action != "reset" {
		return validation.Errorf(`Key 'action' must be one of "add", "remove", or "reset"`)
	}
	t, err := parseRoleType(roleType)
	if err != nil {
		return err
	}

	var ids []string
	if action != "reset" {
		if t == model.RoleAll {
			return validation.Errorf("Type 'all' is only supported with action 'reset'")
		}
		if ids, err = validation.StringList("roles", roles, validation.IsSnowflake, roleMessages); err != nil {
			return err
		}
	}

	_, err = s.storage.UpdateGuild(ctx, guild, func(g *model.Guild) error {
		switch action {
		case "add":
			current := g.Roles.Get(t)
			for _, id := range ids {
				if !slices.Contains(current, id) {
					current = append(current, id)
				}
			}
			g.Roles.Set(t, current)
		case "remove":
			current := g.Roles.Get(t)
			if current == nil {
				return nil
			}
			g.Roles.Set(t, slices.DeleteFunc(current, func(id string) bool {
				return slices.Contains(ids, id)
			}))
		case "reset":
			if t == model.RoleAll {
				g.Roles = model.GuildRoles{Member: []string{}, Moderator: []string{}, Admin: []string{}}
			} else {
				g.Roles.Set(t, []string{})
			}
		}
		return nil
	})
	return err
}

// Webhooks lists the webhooks of a guild. Ids and tokens are only included
// when tokens is set.
func (s *Service) Webhooks(ctx context.Context, guild string, tokens bool) ([]model.WebhookView, error) {
	if err := checkSnowflake("guild", guild); err != nil {
		return nil, err
	}
	g, err := s.storage.GetGuild(ctx, guild)
	if err != nil {
		return nil, err
	}
	out := make([]model.WebhookView, 0, len(g.Webhooks))
	for _, w := range g.Webhooks {
		out = append(out, w.View(tokens))
	}
	return out, nil
}

// AddWebhook registers a webhook object as returned by Discord when one is
// created. Malformed webhooks are logged and reported with a generic
// failure; the token never reaches the log.
func (s *Service) AddWebhook(ctx context.Context, webhook, kind any) error {
	k, ok := validation.String(kind)
	if !ok {
		s.logger.Error("webhook kind missing or not a string")
		return errOperationFailed
	}
	webhookKind, ok := model.ParseWebhookKind(k)
	if !ok {
		s.logger.Error("webhook kind invalid", "kind", k)
		return errOperationFailed
	}

	raw, ok := webhook.(map[string]any)
	if !ok {
		s.logger.Error("webhook is not an object")
		return errOperationFailed
	}
	if n, ok := validation.Integer(raw["type"]); !ok || n != 1 {
		s.logger.Error("webhook has wrong type", "type", raw["type"])
		return errOperationFailed
	}

	field := func(key string, snowflake bool) (string, bool) {
		v, ok := validation.String(raw[key])
		if !ok || (snowflake && !validation.IsSnowflake(v)) {
			s.logger.Error("webhook has bad "+key, "id", raw["id"], "guild", raw["guild_id"])
			return "", false
		}
		return v, true
	}
	id, ok := field("id", true)
	if !ok {
		return errOperationFailed
	}
	name, ok := field("name", false)
	if !ok {
		return errOperationFailed
	}
	channel, ok := field("channel_id", true)
	if !ok {
		return errOperationFailed
	}
	guild, ok := field("guild_id", true)
	if !ok {
		return errOperationFailed
	}
	token, ok := field("token", false)
	if !ok {
		return errOperationFailed
	}

	_, err := s.storage.UpdateGuild(ctx, guild, func(g *model.Guild) error {
		g.Webhooks = append(g.Webhooks, model.Webhook{
			ID:      id,
			Name:    name,
			NameI:   strings.ToLower(name),
			Kind:    webhookKind,
			Channel: channel,
			Token:   token,
		})
		return nil
	})
	if errors.Is(err, model.ErrGuildNotFound) {
		s.logger.Error("webhook added for unknown guild", "guild", guild)
		return errUnknownGuild
	}
	return err
}

// RemoveWebhook forgets a webhook of a guild
func (s *Service) RemoveWebhook(ctx context.Context, guild, id string) error {
	if err := checkSnowflake("guild", guild); err != nil {
		return err
	}
	if err := checkSnowflake("id", id); err != nil {
		return err
	}
	_, err := s.storage.UpdateGuild(ctx, guild, func(g *model.Guild) error {
		g.Webhooks = slices.DeleteFunc(g.Webhooks, func(w model.Webhook) bool {
			return w.ID == id
		})
		return nil
	})
	if errors.Is(err, model.ErrGuildNotFound) {
		s.logger.Error("webhook removed from unknown guild", "guild", guild)
		return errUnknownGuild
	}
	return err
}

// Servers lists every registered guild. Role types never configured are
// left out, as are webhook ids and tokens unless tokens is set.
func (s *Service) Servers(ctx context.Context, tokens bool) ([]model.ServerView, error) {
	guilds, err := s.storage.ListGuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list guilds: %w", err)
	}
	out := make([]model.ServerView, 0, len(guilds))
	for _, g := range guilds {
		v := model.ServerView{Guild: g.Guild}
		if roles := g.Roles.Configured(); len(roles) > 0 {
			v.Roles = roles
		}
		if g.Webhooks != nil {
			v.Webhooks = make([]model.WebhookView, 0, len(g.Webhooks))
			for _, w := range g.Webhooks {
				v.Webhooks = append(v.Webhooks, w.View(tokens))
			}
		}
		out = append(out, v)
	}
	return out, nil
}
