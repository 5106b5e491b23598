package model

import "github.com/google/uuid"

// StatRanges are the stats that may be read or updated, with the delta each
// accepts per update. Session playtime is reset with a large negative delta.
var StatRanges = map[string]Range{
	"playtime.all":        {Min: 1, Max: 2000},
	"playtime.session":    {Min: -2147483648, Max: 2000},
	"playtime.creative":   {Min: 1, Max: 2000},
	"playtime.survival":   {Min: 1, Max: 2000},
	"survival.beta.kills": {Min: -1, Max: 1},
	"general.messages":    {Min: 0, Max: 1},
}

// IsStat reports whether key is a known stat
func IsStat(key string) bool {
	_, ok := StatRanges[key]
	return ok
}

// Stats is the stat document of a player, or of the server when UUID is all zero
type Stats struct {
	UUID   uuid.UUID        `json:"uuid"`
	Values map[string]int64 `json:"values"` // flat dotted keys
}

// Project returns only the requested keys that are set
func (s *Stats) Project(keys []string) map[string]int64 {
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		if v, ok := s.Values[k]; ok {
			out[k] = v
		}
	}
	return out
}
