package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/palacemc/palace-web/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	mu sync.Mutex

	// HexResults is a queue of results to return from Hex
	HexResults []string
	hexIndex   int

	// counter backs deterministic fallback values once the queue is drained
	counter int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Hex returns the next queued result. When the queue is empty it returns a
// distinct deterministic value of the requested length.
func (r *MockRandom) Hex(n int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hexIndex < len(r.HexResults) {
		result := r.HexResults[r.hexIndex]
		r.hexIndex++
		return result, nil
	}

	r.counter++
	seed := fmt.Sprintf("%08x", r.counter)
	return strings.Repeat(seed, (2*n)/len(seed)+1)[:2*n], nil
}

// QueueHex adds values to the Hex result queue
func (r *MockRandom) QueueHex(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HexResults = append(r.HexResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HexResults = nil
	r.hexIndex = 0
	r.counter = 0
}
