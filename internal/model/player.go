package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Player is the stored profile of one game account. Only UUID, Name and
// FirstLogin are guaranteed; everything else may be absent.
type Player struct {
	UUID        uuid.UUID              `json:"uuid"`
	Name        string                 `json:"name"`
	FirstLogin  int64                  `json:"firstLogin"`
	LastLogin   int64                  `json:"lastLogin,omitempty"`
	LastLogout  *int64                 `json:"lastLogout"` // nil while online
	NameStyle   *NameStyle             `json:"nameStyle,omitempty"`
	Mute        *int64                 `json:"mute,omitempty"`
	Ignore      []uuid.UUID            `json:"ignore,omitempty"`
	Custom      map[string]CustomValue `json:"custom,omitempty"`
	Wallet      map[string]int64       `json:"wallet,omitempty"`
	Connections map[string]*Connection `json:"connections,omitempty"`
}

// PlayerSummary is the public projection of a player
type PlayerSummary struct {
	UUID       string     `json:"uuid"`
	FirstLogin int64      `json:"firstLogin"`
	Name       string     `json:"name"`
	NameStyle  *NameStyle `json:"nameStyle"`
}

// Summary projects the player to its public form. NameStyle is never nil so
// it always encodes as an object.
func (p *Player) Summary() PlayerSummary {
	style := p.NameStyle
	if style == nil {
		style = &NameStyle{}
	}
	return PlayerSummary{
		UUID:       p.UUID.String(),
		FirstLogin: p.FirstLogin,
		Name:       p.Name,
		NameStyle:  style,
	}
}

// Ignores reports whether other is on the player's ignore list
func (p *Player) Ignores(other uuid.UUID) bool {
	for _, id := range p.Ignore {
		if id == other {
			return true
		}
	}
	return false
}

// NameStyle describes how a player's name is rendered. Color and MColor are
// mutually exclusive in storage, ColorB only exists alongside Color, and
// false members are never stored.
type NameStyle struct {
	Bold      bool   `json:"bold,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	MColor    string `json:"mColor,omitempty"`
	Color     string `json:"color,omitempty"`
	ColorB    string `json:"colorB,omitempty"`
}

// IsDefault reports whether the style is indistinguishable from an unstyled name
func (s *NameStyle) IsDefault() bool {
	return s == nil || (!s.Bold && !s.Underline && s.MColor == "" && s.Color == "")
}

// CustomValue holds a player setting, either a string or a 64-bit integer
type CustomValue struct {
	String  *string
	Integer *int64
}

// StringValue wraps s as a CustomValue
func StringValue(s string) CustomValue {
	return CustomValue{String: &s}
}

// IntegerValue wraps n as a CustomValue
func IntegerValue(n int64) CustomValue {
	return CustomValue{Integer: &n}
}

func (v CustomValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.String != nil:
		return json.Marshal(*v.String)
	case v.Integer != nil:
		return []byte(strconv.FormatInt(*v.Integer, 10)), nil
	default:
		return []byte("null"), nil
	}
}

func (v *CustomValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = CustomValue{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("custom value is not a string or 64-bit integer: %w", err)
	}
	*v = IntegerValue(n)
	return nil
}

// PlayerCount is a snapshot of how many players exist and how many were
// recently active
type PlayerCount struct {
	Time   int64 `json:"time"`
	Count  int64 `json:"count"`
	Recent int64 `json:"recent"`
	Week   int64 `json:"week"`
	Month  int64 `json:"month"`
}

// LoginResult is returned when a player joins
type LoginResult struct {
	Time       int64  `json:"time"`
	FirstLogin int64  `json:"firstLogin"`
	New        bool   `json:"new,omitempty"`
	OldName    string `json:"oldName,omitempty"`
}

// Activity is the last login and logout of a player
type Activity struct {
	LastLogin  int64  `json:"lastLogin"`
	LastLogout *int64 `json:"lastLogout"`
}
