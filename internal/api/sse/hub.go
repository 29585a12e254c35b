package sse

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"github.com/hoopstat/scorekeeper/internal/metrics"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// Hub fans one game's events out to the clients streaming it. Clients join
// and leave through the Registry.
type Hub struct {
	gameID model.GameID
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func newHub(gameID model.GameID, logger *slog.Logger) *Hub {
	return &Hub{
		gameID:  gameID,
		logger:  logger.With(slog.String("game_id", string(gameID))),
		clients: make(map[*Client]struct{}),
	}
}

// Send frames the event and queues it for every client. A client whose
// queue is full misses the event rather than holding up the game.
func (h *Hub) Send(eventType model.EventType, data []byte) {
	frame := encodeFrame(string(eventType), data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			metrics.StreamDropped.Inc()
			h.logger.Warn("sse client too slow, event dropped",
				slog.String("user_id", string(c.userID)),
				slog.String("event_type", string(eventType)))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	metrics.StreamClients.Inc()
	return len(h.clients)
}

// remove drops c and closes its queue. It returns how many clients are left.
func (h *Hub) remove(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.StreamClients.Dec()
	}
	return len(h.clients)
}

func (h *Hub) disconnectAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.clients)
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		metrics.StreamClients.Dec()
	}
	return n
}

// Registry keeps a hub for every game that has at least one open stream
type Registry struct {
	logger *slog.Logger

	mu     sync.Mutex
	hubs   map[model.GameID]*Hub
	closed bool
}

// NewRegistry creates an empty Registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger.With(slog.String("component", "sse")),
		hubs:   make(map[model.GameID]*Hub),
	}
}

// Subscribe connects a client for the user to the game's hub, creating the
// hub on first use. It returns false once the registry is closed.
func (r *Registry) Subscribe(gameID model.GameID, userID model.UserID) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false
	}

	hub, ok := r.hubs[gameID]
	if !ok {
		hub = newHub(gameID, r.logger)
		r.hubs[gameID] = hub
	}
	c := newClient(hub, userID)
	n := hub.add(c)

	hub.logger.Info("sse client connected",
		slog.String("user_id", string(userID)),
		slog.Int("clients", n))
	return c, true
}

// Unsubscribe disconnects c. A game's hub goes away with its last client.
// Safe to call after Close.
func (r *Registry) Unsubscribe(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := c.hub.remove(c)
	if left == 0 && r.hubs[c.hub.gameID] == c.hub {
		delete(r.hubs, c.hub.gameID)
	}

	c.hub.logger.Info("sse client disconnected",
		slog.String("user_id", string(c.userID)),
		slog.Duration("connected_for", time.Since(c.connectedAt)),
		slog.Int("clients", left))
}

// Lookup returns the game's hub, or nil when nobody is streaming it
func (r *Registry) Lookup(gameID model.GameID) *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hubs[gameID]
}

// Close disconnects every client and refuses new subscriptions
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	disconnected := 0
	for id, hub := range r.hubs {
		disconnected += hub.disconnectAll()
		delete(r.hubs, id)
	}
	if disconnected > 0 {
		r.logger.Info("sse streams closed", slog.Int("disconnected_clients", disconnected))
	}
}

// encodeFrame renders one SSE event. Every line of data gets its own data
// field; carriage returns are dropped and a final newline is ignored.
func encodeFrame(name string, data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte("\r"), nil)
	data = bytes.TrimSuffix(data, []byte("\n"))

	var b bytes.Buffer
	b.WriteString("event: ")
	b.WriteString(name)
	b.WriteByte('\n')
	for _, line := range bytes.Split(data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}
