package model

// RoleType names a group of guild roles
type RoleType string

const (
	RoleMember    RoleType = "member"
	RoleModerator RoleType = "moderator"
	RoleAdmin     RoleType = "admin"
	RoleAll       RoleType = "all"
)

// ParseRoleType returns the role type named by s
func ParseRoleType(s string) (RoleType, bool) {
	switch RoleType(s) {
	case RoleMember, RoleModerator, RoleAdmin, RoleAll:
		return RoleType(s), true
	}
	return "", false
}

// WebhookKind names what a webhook is used for
type WebhookKind string

const (
	WebhookVerify     WebhookKind = "verify"
	WebhookChat       WebhookKind = "chat"
	WebhookModeration WebhookKind = "moderation"
)

// ParseWebhookKind returns the webhook kind named by s
func ParseWebhookKind(s string) (WebhookKind, bool) {
	switch WebhookKind(s) {
	case WebhookVerify, WebhookChat, WebhookModeration:
		return WebhookKind(s), true
	}
	return "", false
}

// Webhook limits
const (
	WebhookNameLimit    = 20
	WebhookAvatarLimit  = 1000
	WebhookMessageLimit = 2000
)

// GuildRoles are the role ids mapped to each role type. A nil slice means
// the type was never configured.
type GuildRoles struct {
	Member    []string `json:"member"`
	Moderator []string `json:"moderator"`
	Admin     []string `json:"admin"`
}

// Get returns the roles of a single type
func (r *GuildRoles) Get(t RoleType) []string {
	switch t {
	case RoleMember:
		return r.Member
	case RoleModerator:
		return r.Moderator
	case RoleAdmin:
		return r.Admin
	}
	return nil
}

// Set replaces the roles of a single type
func (r *GuildRoles) Set(t RoleType, roles []string) {
	switch t {
	case RoleMember:
		r.Member = roles
	case RoleModerator:
		r.Moderator = roles
	case RoleAdmin:
		r.Admin = roles
	}
}

// Configured returns the role types that were ever set, keyed by name
func (r *GuildRoles) Configured() map[RoleType][]string {
	out := make(map[RoleType][]string, 3)
	for _, t := range []RoleType{RoleMember, RoleModerator, RoleAdmin} {
		if roles := r.Get(t); roles != nil {
			out[t] = append([]string{}, roles...)
		}
	}
	return out
}

// Webhook is a Discord webhook tracked for a guild. The token must never be
// reported unless explicitly requested.
type Webhook struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	NameI   string      `json:"nameI"`
	Kind    WebhookKind `json:"kind"`
	Channel string      `json:"channel"`
	Token   string      `json:"token"`
}

// Guild is a Discord server the bot has joined
type Guild struct {
	Guild    string     `json:"guild"`
	Roles    GuildRoles `json:"roles"`
	Webhooks []Webhook  `json:"webhooks,omitempty"`
}

// WebhookView is a webhook as reported to callers
type WebhookView struct {
	ID      string      `json:"id,omitempty"`
	Token   string      `json:"token,omitempty"`
	Channel string      `json:"channel"`
	Name    string      `json:"name"`
	Kind    WebhookKind `json:"kind"`
}

// View projects w, including the id and token only when tokens is set
func (w Webhook) View(tokens bool) WebhookView {
	v := WebhookView{Channel: w.Channel, Name: w.Name, Kind: w.Kind}
	if tokens {
		v.ID = w.ID
		v.Token = w.Token
	}
	return v
}

// ServerView is a guild as reported to callers
type ServerView struct {
	Guild    string                `json:"guild"`
	Roles    map[RoleType][]string `json:"roles,omitempty"`
	Webhooks []WebhookView         `json:"webhooks,omitempty"`
}
