package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// Broadcaster forwards session events to the SSE clients watching the game.
// It implements session.Listener.
type Broadcaster struct {
	streams *Registry
	logger  *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(streams *Registry, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		streams: streams,
		logger:  logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Notify encodes the event as JSON and sends it under its type name.
// Events for games nobody is watching are discarded.
func (b *Broadcaster) Notify(event model.Event) {
	hub := b.streams.Lookup(event.GameID)
	if hub == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		errutil.LogError(b.logger, "sse failed to encode event", err,
			slog.String("game_id", string(event.GameID)),
			slog.String("event_type", string(event.Type)))
		return
	}
	hub.Send(event.Type, data)
}
