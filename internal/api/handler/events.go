package handler

import (
	"net/http"

	"github.com/hoopstat/scorekeeper/internal/api/middleware"
	"github.com/hoopstat/scorekeeper/internal/api/sse"
	"github.com/hoopstat/scorekeeper/internal/services/session"
)

// EventsHandler streams session events to UI clients over SSE
type EventsHandler struct {
	sessions *session.Manager
	streams  *sse.Registry
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(sessions *session.Manager, streams *sse.Registry) *EventsHandler {
	return &EventsHandler{
		sessions: sessions,
		streams:  streams,
	}
}

// Stream handles GET /api/v1/games/{game_id}/events. The caller must have the
// game open.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	gameID := gameIDFrom(r)

	if _, err := h.sessions.Get(gameID, user.ID); err != nil {
		WriteError(w, err)
		return
	}

	sse.ServeSSE(w, r, h.streams, gameID, user.ID)
}
