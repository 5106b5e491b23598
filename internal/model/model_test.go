package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampInstant(t *testing.T) {
	assert.Equal(t, InstantSecondMax, ClampInstant(InstantSecondMax+1))
	assert.Equal(t, InstantSecondMin, ClampInstant(InstantSecondMin-1))
	assert.Equal(t, int64(42), ClampInstant(42))
}

func TestConnectionPairs(t *testing.T) {
	c := NewConnection()
	for _, p := range []ConnectionPair{PairContent, PairHash, PairToken} {
		value, ttl := c.Pair(p)
		assert.Nil(t, value)
		assert.Equal(t, InstantSecondMin, ttl)
	}

	v := "1234567890"
	c.SetPair(PairHash, &v, 100)
	value, ttl := c.Pair(PairHash)
	require.NotNil(t, value)
	assert.Equal(t, v, *value)
	assert.Equal(t, int64(100), ttl)

	content, _ := c.Pair(PairContent)
	assert.Nil(t, content)

	assert.Equal(t, "ttl", PairContent.TTLField())
	assert.Equal(t, "hash_ttl", PairHash.TTLField())
	assert.Equal(t, "token_ttl", PairToken.TTLField())
}

func TestConnectionActiveAt(t *testing.T) {
	id := "123456789012345678"
	tests := []struct {
		name string
		ttl  int64
		now  int64
		want bool
	}{
		{"never expires", InstantSecondMax, 1000, true},
		{"unset", InstantSecondMin, 1000, false},
		{"in the future", 1001, 1000, true},
		{"exactly now", 1000, 1000, false},
		{"in the past", 999, 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConnection()
			c.SetPair(PairContent, &id, tt.ttl)
			assert.Equal(t, tt.want, c.ActiveAt(PairContent, tt.now))
		})
	}

	empty := ""
	c := NewConnection()
	c.SetPair(PairContent, &empty, InstantSecondMax)
	assert.False(t, c.ActiveAt(PairContent, 0))
}

func TestCustomValueJSON(t *testing.T) {
	var values map[string]CustomValue
	err := json.Unmarshal([]byte(`{"lang":"en_us","coins":9223372036854775807,"gone":null}`), &values)
	require.NoError(t, err)

	require.NotNil(t, values["lang"].String)
	assert.Equal(t, "en_us", *values["lang"].String)
	require.NotNil(t, values["coins"].Integer)
	assert.Equal(t, int64(9223372036854775807), *values["coins"].Integer)
	assert.Nil(t, values["gone"].String)
	assert.Nil(t, values["gone"].Integer)

	out, err := json.Marshal(map[string]CustomValue{"coins": IntegerValue(-9223372036854775808)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"coins":-9223372036854775808}`, string(out))

	var bad CustomValue
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &bad))
}

func TestPlayerSummaryNameStyle(t *testing.T) {
	p := &Player{Name: "Notch", FirstLogin: 1600000000000}
	out, err := json.Marshal(p.Summary())
	require.NoError(t, err)
	assert.JSONEq(t, `{"uuid":"00000000-0000-0000-0000-000000000000","firstLogin":1600000000000,"name":"Notch","nameStyle":{}}`, string(out))
}

func TestRangeClamp(t *testing.T) {
	r := WalletRanges["primary"]
	assert.Equal(t, int64(-100), r.Clamp(-5000))
	assert.Equal(t, int64(100), r.Clamp(5000))
	assert.Equal(t, int64(-50), r.Clamp(-50))
}

func TestWebhookView(t *testing.T) {
	w := Webhook{ID: "1234567", Name: "Chat", Kind: WebhookChat, Channel: "7654321", Token: "secret"}

	hidden := w.View(false)
	assert.Empty(t, hidden.ID)
	assert.Empty(t, hidden.Token)

	shown := w.View(true)
	assert.Equal(t, "1234567", shown.ID)
	assert.Equal(t, "secret", shown.Token)
}
