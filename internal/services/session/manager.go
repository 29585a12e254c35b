// Package session coordinates one user's live view of one game: it owns the
// lineup, the game clock and the plus/minus ledger for the game and keeps them
// in step with the backend.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/hoopstat/scorekeeper/internal/backend"
	"github.com/hoopstat/scorekeeper/internal/dependencies/clock"
	"github.com/hoopstat/scorekeeper/internal/dependencies/idgen"
	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/metrics"
	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/realtime"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
	"github.com/hoopstat/scorekeeper/internal/services/permission"
	"github.com/hoopstat/scorekeeper/internal/storage"
)

// backgroundTimeout bounds backend calls made outside a caller's request
const backgroundTimeout = 10 * time.Second

// Listener receives every event a session produces or observes.
// Notify must not block.
type Listener interface {
	Notify(event model.Event)
}

// Dependencies are the collaborators shared by all sessions
type Dependencies struct {
	Games       backend.GameRepository
	Permissions backend.PermissionRepository
	Notifier    realtime.Notifier
	Cache       storage.SessionCache
	Clock       clock.Clock
	IDs         idgen.Generator
	Listener    Listener // optional
	Logger      *slog.Logger
}

// Config holds configuration for sessions
type Config struct {
	SyncQueueSize int
}

type sessionKey struct {
	gameID model.GameID
	userID model.UserID
}

// Manager tracks the open game sessions. There is at most one session per
// game and user.
type Manager struct {
	deps     Dependencies
	cfg      Config
	resolver *permission.Resolver
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

// NewManager creates a new session Manager
func NewManager(deps Dependencies, cfg Config) *Manager {
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		resolver: permission.NewResolver(deps.Logger),
		logger:   deps.Logger.With(slog.String("component", "session")),
		sessions: make(map[sessionKey]*Session),
	}
}

// Open mounts a game for the user. Opening an already open game returns the
// existing session.
func (m *Manager) Open(ctx context.Context, user *auth.Session, gameID model.GameID) (*Session, error) {
	key := sessionKey{gameID: gameID, userID: user.User.ID}

	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	s, err := m.open(ctx, user, gameID)
	if err != nil {
		return nil, err
	}
	return m.keep(key, s), nil
}

// keep registers s unless a concurrent Open got there first, in which case s
// is discarded and the registered session returned.
func (m *Manager) keep(key sessionKey, s *Session) *Session {
	m.mu.Lock()
	existing, ok := m.sessions[key]
	if !ok {
		m.sessions[key] = s
	}
	m.mu.Unlock()

	if ok {
		s.discard()
		return existing
	}
	return s
}

func (m *Manager) open(ctx context.Context, user *auth.Session, gameID model.GameID) (*Session, error) {
	ctx = user.Context(ctx)
	logger := m.logger.With(
		slog.String("game_id", string(gameID)),
		slog.String("user_id", string(user.User.ID)),
	)

	game, err := m.deps.Games.GetGame(ctx, gameID)
	if err != nil {
		errutil.LogError(logger, "failed to load game", err)
		return nil, err
	}

	join, err := m.deps.Permissions.JoinGame(ctx, gameID)
	if err != nil {
		errutil.LogError(logger, "failed to join game", err)
		return nil, err
	}

	cached, err := m.deps.Cache.GetSnapshot(ctx, gameID, user.User.ID)
	switch {
	case err == nil:
		logger.Info("returning to game", slog.Time("last_saved", cached.SavedAt))
	case errors.Is(err, model.ErrCacheMiss):
		logger.Info("first load of game")
	default:
		errutil.LogWarn(logger, "session cache lookup failed", err)
	}

	s, err := newSession(m, user, game, join, logger)
	if err != nil {
		return nil, err
	}

	metrics.OpenSessions.Inc()
	logger.Info("session opened",
		slog.Int("quarter", game.Quarter),
		slog.Bool("game_creator", join.IsGameCreator),
	)
	return s, nil
}

// Get returns the open session for the game and user
func (m *Manager) Get(gameID model.GameID, userID model.UserID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionKey{gameID: gameID, userID: userID}]
	if !ok {
		return nil, oops.In("session").
			Code("SESSION_NOT_OPEN").
			With("game_id", gameID).
			With("user_id", userID).
			Wrap(model.ErrSessionNotOpen)
	}
	return s, nil
}

// List returns the open sessions of a user, ordered by game ID
func (m *Manager) List(userID model.UserID) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for key, s := range m.sessions {
		if key.userID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID() < out[j].GameID() })
	return out
}

// Close unmounts a game for the user
func (m *Manager) Close(ctx context.Context, gameID model.GameID, userID model.UserID) error {
	key := sessionKey{gameID: gameID, userID: userID}

	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if !ok {
		return oops.In("session").
			Code("SESSION_NOT_OPEN").
			With("game_id", gameID).
			With("user_id", userID).
			Wrap(model.ErrSessionNotOpen)
	}
	s.Close(ctx)
	return nil
}

// CloseAll closes every session of the user. Called on logout.
func (m *Manager) CloseAll(ctx context.Context, userID model.UserID) int {
	m.mu.Lock()
	var closing []*Session
	for key, s := range m.sessions {
		if key.userID == userID {
			closing = append(closing, s)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, s := range closing {
		s.Close(ctx)
	}
	if len(closing) > 0 {
		m.logger.Info("closed user sessions",
			slog.String("user_id", string(userID)),
			slog.Int("count", len(closing)),
		)
	}
	return len(closing)
}

// Shutdown closes every open session
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	closing := make([]*Session, 0, len(m.sessions))
	for key, s := range m.sessions {
		closing = append(closing, s)
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	for _, s := range closing {
		s.Close(ctx)
	}
}
