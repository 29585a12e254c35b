package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/oops"

	"github.com/hoopstat/scorekeeper/internal/backend"
	"github.com/hoopstat/scorekeeper/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	dialTimeout = 10 * time.Second
)

// WebSocket is a Notifier backed by the remote backend's realtime endpoint.
// Each subscription holds one connection per game and caller token, which is
// also used to publish that caller's events.
type WebSocket struct {
	baseURL string
	dialer  *websocket.Dialer
	logger  *slog.Logger

	mu    sync.Mutex
	conns map[connKey]*gameConn
}

type connKey struct {
	gameID model.GameID
	token  string
}

type gameConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	events  chan model.Event
	done    chan struct{}
}

// Ensure WebSocket implements Notifier
var _ Notifier = (*WebSocket)(nil)

// NewWebSocket creates a WebSocket notifier. baseURL is the ws:// or wss://
// root of the realtime endpoint.
func NewWebSocket(baseURL string, logger *slog.Logger) *WebSocket {
	return &WebSocket{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
		logger: logger.With(slog.String("component", "realtime_websocket")),
		conns:  make(map[connKey]*gameConn),
	}
}

// Subscribe opens the game's realtime connection
func (w *WebSocket) Subscribe(ctx context.Context, gameID model.GameID) (<-chan model.Event, func(), error) {
	token, _ := backend.TokenFrom(ctx)
	key := connKey{gameID: gameID, token: token}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	target := w.baseURL + "/games/" + url.PathEscape(string(gameID))
	conn, _, err := w.dialer.DialContext(ctx, target, header)
	if err != nil {
		return nil, nil, oops.In("realtime").
			Code("NETWORK_FAILURE").
			With("game_id", gameID).
			With("url", target).
			Wrap(fmt.Errorf("%w: %v", model.ErrNetworkFailure, err))
	}

	gc := &gameConn{
		conn:   conn,
		events: make(chan model.Event, DefaultBufferSize),
		done:   make(chan struct{}),
	}

	w.mu.Lock()
	if _, ok := w.conns[key]; ok {
		w.mu.Unlock()
		_ = conn.Close()
		return nil, nil, oops.In("realtime").
			Code("ALREADY_SUBSCRIBED").
			With("game_id", gameID).
			Errorf("caller already subscribed to game %s", gameID)
	}
	w.conns[key] = gc
	w.mu.Unlock()

	go w.readLoop(gameID, gc)

	w.logger.Info("realtime connected", slog.String("game_id", string(gameID)))

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			w.mu.Lock()
			if w.conns[key] == gc {
				delete(w.conns, key)
			}
			w.mu.Unlock()

			gc.writeMu.Lock()
			_ = gc.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			gc.writeMu.Unlock()
			_ = gc.conn.Close()
			<-gc.done
		})
	}
	return gc.events, unsubscribe, nil
}

// Publish sends the event on the caller's connection for the event's game
func (w *WebSocket) Publish(ctx context.Context, event model.Event) error {
	token, _ := backend.TokenFrom(ctx)
	w.mu.Lock()
	gc, ok := w.conns[connKey{gameID: event.GameID, token: token}]
	w.mu.Unlock()
	if !ok {
		return oops.In("realtime").
			Code("NOT_SUBSCRIBED").
			With("game_id", event.GameID).
			Wrap(model.ErrSessionNotOpen)
	}

	gc.writeMu.Lock()
	defer gc.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = gc.conn.SetWriteDeadline(deadline)
	if err := gc.conn.WriteJSON(event); err != nil {
		return oops.In("realtime").
			Code("NETWORK_FAILURE").
			With("game_id", event.GameID).
			With("type", event.Type).
			Wrap(fmt.Errorf("%w: %v", model.ErrNetworkFailure, err))
	}
	return nil
}

func (w *WebSocket) readLoop(gameID model.GameID, gc *gameConn) {
	defer close(gc.done)
	defer close(gc.events)

	for {
		var event model.Event
		if err := gc.conn.ReadJSON(&event); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Debug("realtime read ended",
					slog.String("game_id", string(gameID)),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		select {
		case gc.events <- event:
		default:
			w.logger.Warn("realtime event dropped, buffer full",
				slog.String("game_id", string(gameID)),
				slog.String("type", string(event.Type)),
			)
		}
	}
}
