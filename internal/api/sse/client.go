package sse

import (
	"net/http"
	"time"

	"github.com/hoopstat/scorekeeper/internal/model"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one open event stream
type Client struct {
	hub         *Hub
	userID      model.UserID
	send        chan []byte
	connectedAt time.Time
}

func newClient(hub *Hub, userID model.UserID) *Client {
	return &Client{
		hub:         hub,
		userID:      userID,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams the game's events to one HTTP client until it disconnects
// or the registry closes
func ServeSSE(w http.ResponseWriter, r *http.Request, streams *Registry, gameID model.GameID, userID model.UserID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client, ok := streams.Subscribe(gameID, userID)
	if !ok {
		http.Error(w, "Game stream closed", http.StatusGone)
		return
	}
	defer streams.Unsubscribe(client)

	_, _ = w.Write(encodeFrame("connected", []byte(`{"status":"connected"}`)))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
