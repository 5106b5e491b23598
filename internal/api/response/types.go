package response

import (
	"github.com/palacemc/palace-web/internal/model"
)

// Success is the body of operations that return nothing else
type Success struct {
	Success int `json:"success"`
}

// OK is the shared success body
var OK = Success{Success: 1}

// Empty is the body for entities that do not exist
type Empty struct{}

// Version answers the API root
type Version struct {
	Version string `json:"version"`
}

// Players lists players sharing a name
type Players struct {
	Count   int                   `json:"count"`
	Players []model.PlayerSummary `json:"players"`
}

// NewPlayers wraps a player list
func NewPlayers(players []model.PlayerSummary) Players {
	if players == nil {
		players = []model.PlayerSummary{}
	}
	return Players{Count: len(players), Players: players}
}

// Ignored lists the players a player ignores
type Ignored struct {
	Count   int      `json:"count"`
	Ignored []string `json:"ignored"`
}

// NewIgnored wraps an ignore list
func NewIgnored(ignored []string) Ignored {
	if ignored == nil {
		ignored = []string{}
	}
	return Ignored{Count: len(ignored), Ignored: ignored}
}

// Time reports the time an operation took effect
type Time struct {
	Time int64 `json:"time"`
}

// Mute reports the current mute of a player, null when not muted
type Mute struct {
	Time *int64 `json:"time"`
}

// Stats holds flattened stat values
type Stats struct {
	Stats map[string]int64 `json:"stats"`
}

// Wallets holds wallet balances
type Wallets struct {
	Wallets map[string]int64 `json:"wallets"`
}

// Roles maps role types to role ids
type Roles map[model.RoleType][]string

// Webhooks lists the webhooks of a guild
type Webhooks struct {
	Webhooks []model.WebhookView `json:"webhooks"`
}

// Servers lists every registered guild
type Servers struct {
	Count   int                `json:"count"`
	Servers []model.ServerView `json:"servers"`
}

// Health reports server and storage health
type Health struct {
	Status string `json:"status"`
}
