package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces unique identifiers and can be mocked for testing
type Generator interface {
	NewID() string
}

// ULIDGenerator produces monotonic ULIDs
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a new ULIDGenerator
func New() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewID returns a new ULID string
func (g *ULIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// Valid reports whether s parses as a ULID
func Valid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}
