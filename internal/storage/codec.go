package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/palacemc/palace-web/internal/model"
)

// EncodePlayer serializes a player document. Connections are always written
// in the keyed form.
func EncodePlayer(p *model.Player) ([]byte, error) {
	return json.Marshal(p)
}

// DecodePlayer parses a stored player document. Connections stored in the
// legacy array shape are normalized to the keyed form and migrated is true;
// the caller should write the normalized document back.
func DecodePlayer(data []byte) (p *model.Player, migrated bool, err error) {
	p = &model.Player{}
	doc := playerDocument{playerAlias: (*playerAlias)(p)}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("decode player: %w", err)
	}
	p.Connections = doc.Connections.normalize()
	return p, doc.Connections.Legacy != nil, nil
}

type playerAlias model.Player

// playerDocument shadows Connections so it decodes as a union
type playerDocument struct {
	*playerAlias
	Connections connectionsUnion `json:"connections"`
}

// connectionsUnion holds whichever connection shape a document carried
type connectionsUnion struct {
	Legacy  []legacyConnectionDocument
	Current map[string]connectionDocument
}

func (u *connectionsUnion) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		u.Legacy = []legacyConnectionDocument{}
		return json.Unmarshal(trimmed, &u.Legacy)
	case '{':
		return json.Unmarshal(trimmed, &u.Current)
	default:
		return fmt.Errorf("connections must be an array or object")
	}
}

func (u connectionsUnion) normalize() map[string]*model.Connection {
	if u.Legacy == nil && u.Current == nil {
		return nil
	}
	out := make(map[string]*model.Connection, len(u.Legacy)+len(u.Current))
	for _, l := range u.Legacy {
		if l.Type == "" {
			continue
		}
		out[l.Type] = l.connectionDocument.toModel()
	}
	for provider, c := range u.Current {
		out[provider] = c.toModel()
	}
	return out
}

// connectionDocument keeps ttls raw so numbers and numeric strings are both accepted
type connectionDocument struct {
	Content  *string         `json:"content"`
	TTL      json.RawMessage `json:"ttl"`
	Hash     *string         `json:"hash"`
	HashTTL  json.RawMessage `json:"hash_ttl"`
	Token    *string         `json:"token"`
	TokenTTL json.RawMessage `json:"token_ttl"`
}

type legacyConnectionDocument struct {
	Type string `json:"type"`
	connectionDocument
}

// toModel pairs each value with its ttl. A ttl that cannot be read leaves
// its pair unset.
func (d connectionDocument) toModel() *model.Connection {
	c := model.NewConnection()
	pairs := []struct {
		pair  model.ConnectionPair
		value *string
		ttl   json.RawMessage
	}{
		{model.PairContent, d.Content, d.TTL},
		{model.PairHash, d.Hash, d.HashTTL},
		{model.PairToken, d.Token, d.TokenTTL},
	}
	for _, p := range pairs {
		ttl, ok := decodeTTL(p.ttl)
		if !ok || p.value == nil {
			c.SetPair(p.pair, nil, model.InstantSecondMin)
			continue
		}
		c.SetPair(p.pair, p.value, ttl)
	}
	return c
}

func decodeTTL(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
