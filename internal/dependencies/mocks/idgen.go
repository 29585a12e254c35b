package mocks

import (
	"fmt"
	"sync"

	"github.com/hoopstat/scorekeeper/internal/dependencies/idgen"
)

// MockIDGenerator is a mock implementation of Generator for testing
type MockIDGenerator struct {
	mu sync.Mutex

	// Results is a queue of IDs to return from NewID
	Results []string
	index   int
	counter int
}

// Ensure MockIDGenerator implements Generator
var _ idgen.Generator = (*MockIDGenerator)(nil)

// NewMockIDGenerator creates a new MockIDGenerator
func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

// NewID returns the next queued ID, or a sequential "id-N" once the queue is empty
func (g *MockIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index < len(g.Results) {
		result := g.Results[g.index]
		g.index++
		return result
	}
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}

// Queue adds values to the result queue
func (g *MockIDGenerator) Queue(values ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Results = append(g.Results, values...)
}

// Reset clears all queued results
func (g *MockIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Results = nil
	g.index = 0
	g.counter = 0
}
