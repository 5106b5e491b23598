package model

// ConnectionPair names one of the three value/expiry pairs of a connection
type ConnectionPair string

const (
	PairContent ConnectionPair = "content" // durable external account id
	PairHash    ConnectionPair = "hash"    // short-lived verification secret
	PairToken   ConnectionPair = "token"   // external OAuth access,refresh tokens
)

// Limits on caller supplied connection values
const (
	MaxContentLength = 200
	MaxTokenLength   = 515
	HashBytes        = 16
	HashLifetimeSecs = 300
)

// ConnectionProviders is the closed set of external providers a player can link
var ConnectionProviders = map[string]bool{
	"discord": true,
}

// IsConnectionProvider reports whether provider is an allowed connection type
func IsConnectionProvider(provider string) bool {
	return ConnectionProviders[provider]
}

// ParseConnectionPair returns the pair named by s
func ParseConnectionPair(s string) (ConnectionPair, bool) {
	switch ConnectionPair(s) {
	case PairContent, PairHash, PairToken:
		return ConnectionPair(s), true
	}
	return "", false
}

// TTLField is the stored name of the expiry paired with p
func (p ConnectionPair) TTLField() string {
	if p == PairContent {
		return "ttl"
	}
	return string(p) + "_ttl"
}

// Connection is one player's link to one external provider. Each value has
// an independent epoch-second expiry; InstantSecondMin means unset and
// InstantSecondMax means it never expires.
type Connection struct {
	Content  *string `json:"content"`
	TTL      int64   `json:"ttl"`
	Hash     *string `json:"hash"`
	HashTTL  int64   `json:"hash_ttl"`
	Token    *string `json:"token"`
	TokenTTL int64   `json:"token_ttl"`
}

// NewConnection returns a connection with every pair unset
func NewConnection() *Connection {
	return &Connection{
		TTL:      InstantSecondMin,
		HashTTL:  InstantSecondMin,
		TokenTTL: InstantSecondMin,
	}
}

// Pair returns the raw stored value and ttl of p
func (c *Connection) Pair(p ConnectionPair) (*string, int64) {
	switch p {
	case PairHash:
		return c.Hash, c.HashTTL
	case PairToken:
		return c.Token, c.TokenTTL
	default:
		return c.Content, c.TTL
	}
}

// SetPair sets the value and ttl of p together
func (c *Connection) SetPair(p ConnectionPair, value *string, ttl int64) {
	switch p {
	case PairHash:
		c.Hash, c.HashTTL = value, ttl
	case PairToken:
		c.Token, c.TokenTTL = value, ttl
	default:
		c.Content, c.TTL = value, ttl
	}
}

// ActiveAt reports whether the value of p is set and unexpired at nowSeconds
func (c *Connection) ActiveAt(p ConnectionPair, nowSeconds int64) bool {
	value, ttl := c.Pair(p)
	if value == nil || *value == "" || ttl == InstantSecondMin {
		return false
	}
	return ttl == InstantSecondMax || ttl > nowSeconds
}

// ConnectionValue is the result of reading or writing a single pair
type ConnectionValue struct {
	Value *string `json:"value"`
	TTL   int64   `json:"ttl"`
}

// UnsetConnectionValue is what an absent or null pair reads as
func UnsetConnectionValue() ConnectionValue {
	return ConnectionValue{Value: nil, TTL: InstantSecondMin}
}

// LegacyConnection is the old array element shape of a player's connections.
// Documents carrying it are rewritten to the keyed form on first read.
type LegacyConnection struct {
	Type string `json:"type"`
	Connection
}
