package mocks

import (
	"sync"
	"time"

	"github.com/hoopstat/scorekeeper/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Tickers it creates only fire when the test calls Fire.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	tickers     []*MockTicker
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// Advance moves the clock forward by the given duration
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentTime = c.CurrentTime.Add(d)
}

// Set sets the clock to the given time
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentTime = t
}

// NewTicker records and returns a manually driven ticker
func (c *MockClock) NewTicker(d time.Duration) clock.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &MockTicker{
		Interval: d,
		ch:       make(chan time.Time),
		stopped:  make(chan struct{}),
		clock:    c,
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Tickers returns every ticker created so far
func (c *MockClock) Tickers() []*MockTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*MockTicker, len(c.tickers))
	copy(out, c.tickers)
	return out
}

// TickerCount returns the number of tickers created so far
func (c *MockClock) TickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// LastTicker returns the most recently created ticker, or nil
func (c *MockClock) LastTicker() *MockTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

// ActiveTickers returns the number of tickers not yet stopped
func (c *MockClock) ActiveTickers() int {
	n := 0
	for _, t := range c.Tickers() {
		if !t.Stopped() {
			n++
		}
	}
	return n
}

// MockTicker delivers ticks on an unbuffered channel. Fire blocks until the
// consumer receives the tick, so after Fire returns every earlier tick has
// been fully handled by a sequential consumer.
type MockTicker struct {
	Interval time.Duration

	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
	clock    *MockClock
}

// C returns the tick channel
func (t *MockTicker) C() <-chan time.Time {
	return t.ch
}

// Stop stops the ticker. Pending and future Fire calls return false.
func (t *MockTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

// Stopped reports whether Stop has been called
func (t *MockTicker) Stopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// Fire advances the owning clock by one interval and delivers a tick.
// It returns false if the ticker was stopped before the tick was received.
func (t *MockTicker) Fire() bool {
	if t.Stopped() {
		return false
	}
	t.clock.Advance(t.Interval)
	select {
	case t.ch <- t.clock.Now():
		return true
	case <-t.stopped:
		return false
	}
}

// FireN fires up to n ticks and returns how many were delivered
func (t *MockTicker) FireN(n int) int {
	delivered := 0
	for i := 0; i < n; i++ {
		if !t.Fire() {
			break
		}
		delivered++
	}
	return delivered
}
