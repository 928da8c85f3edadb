package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/chessgame-go/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Queued values are returned in order; once a queue is drained it falls
// back to deterministic sequential values so ids stay unique.
type MockRandom struct {
	mu sync.Mutex

	StringResults []string
	stringIndex   int

	UUIDResults []string
	uuidIndex   int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// String returns the next queued result, or a padded counter
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stringIndex++
	if r.stringIndex <= len(r.StringResults) {
		return r.StringResults[r.stringIndex-1]
	}
	return fmt.Sprintf("G%0*d", max(length-1, 1), r.stringIndex)
}

// UUID returns the next queued result, or a sequential uuid-shaped value
func (r *MockRandom) UUID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uuidIndex++
	if r.uuidIndex <= len(r.UUIDResults) {
		return r.UUIDResults[r.uuidIndex-1]
	}
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", r.uuidIndex)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StringResults = append(r.StringResults, values...)
}

// QueueUUID adds values to the UUID result queue
func (r *MockRandom) QueueUUID(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UUIDResults = append(r.UUIDResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StringResults = nil
	r.stringIndex = 0
	r.UUIDResults = nil
	r.uuidIndex = 0
}
