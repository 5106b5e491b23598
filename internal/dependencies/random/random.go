package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Random provides secret generation that can be mocked for testing
type Random interface {
	// Hex returns n random bytes encoded as 2n lowercase hex characters
	Hex(n int) (string, error)
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Hex returns n cryptographically random bytes as a hex string
func (r *CryptoRandom) Hex(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
