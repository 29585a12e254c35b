// Package realtime carries game events between scorekeeper sessions.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hoopstat/scorekeeper/internal/model"
)

// DefaultBufferSize is the per-subscriber event buffer
const DefaultBufferSize = 64

// Notifier publishes game events and delivers events published by others.
// Subscribers must treat an event as a hint to re-read state, not as a delta.
type Notifier interface {
	Publish(ctx context.Context, event model.Event) error

	// Subscribe returns a channel of events for a game and a function that
	// ends the subscription. The channel is closed once the subscription ends.
	Subscribe(ctx context.Context, gameID model.GameID) (<-chan model.Event, func(), error)
}

// Loopback is an in-process Notifier that fans events out to every
// subscriber of the same game
type Loopback struct {
	mu         sync.RWMutex
	subs       map[model.GameID]map[*subscription]struct{}
	bufferSize int
	logger     *slog.Logger
}

type subscription struct {
	events chan model.Event
}

// Ensure Loopback implements Notifier
var _ Notifier = (*Loopback)(nil)

// NewLoopback creates a Loopback notifier
func NewLoopback(logger *slog.Logger) *Loopback {
	return &Loopback{
		subs:       make(map[model.GameID]map[*subscription]struct{}),
		bufferSize: DefaultBufferSize,
		logger:     logger.With(slog.String("component", "realtime_loopback")),
	}
}

// Publish delivers the event to every subscriber of its game. Slow
// subscribers miss events rather than block the publisher.
func (l *Loopback) Publish(ctx context.Context, event model.Event) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	dropped := 0
	for sub := range l.subs[event.GameID] {
		select {
		case sub.events <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		l.logger.Warn("realtime event dropped, subscriber buffer full",
			slog.String("game_id", string(event.GameID)),
			slog.String("type", string(event.Type)),
			slog.Int("dropped", dropped),
		)
	}
	return nil
}

// Subscribe registers a subscriber for a game
func (l *Loopback) Subscribe(ctx context.Context, gameID model.GameID) (<-chan model.Event, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sub := &subscription{events: make(chan model.Event, l.bufferSize)}

	l.mu.Lock()
	if l.subs[gameID] == nil {
		l.subs[gameID] = make(map[*subscription]struct{})
	}
	l.subs[gameID][sub] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs[gameID], sub)
			if len(l.subs[gameID]) == 0 {
				delete(l.subs, gameID)
			}
			close(sub.events)
		})
	}
	return sub.events, unsubscribe, nil
}

// SubscriberCount returns the number of subscribers for a game
func (l *Loopback) SubscriberCount(gameID model.GameID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs[gameID])
}
