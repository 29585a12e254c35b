package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hoopstat/scorekeeper/internal/backend"
	"github.com/hoopstat/scorekeeper/internal/dependencies/clock"
	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// Errors
var (
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Session is the authenticated user operating the scorekeeper. It is passed
// explicitly to every component that acts on the user's behalf.
type Session struct {
	Token     string
	User      model.User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Context returns ctx carrying the session's backend token
func (s *Session) Context(ctx context.Context) context.Context {
	return backend.WithToken(ctx, s.Token)
}

// LogoutHook runs after a session is invalidated
type LogoutHook func(ctx context.Context, session *Session)

// Service handles authentication and session management
type Service struct {
	repo   backend.AuthRepository
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	hooks    []LogoutHook

	sessionDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 12 * time.Hour,
	}
}

// New creates a new auth Service
func New(repo backend.AuthRepository, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		repo:            repo,
		clock:           clock,
		logger:          logger.With(slog.String("component", "auth")),
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
	}
}

// OnLogout registers a hook that runs whenever a session is logged out
func (s *Service) OnLogout(hook LogoutHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Login authenticates against the backend and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	result, err := s.repo.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &Session{
		Token:     result.Token,
		User:      result.User,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	s.logger.Info("user logged in",
		slog.String("user_id", string(session.User.ID)),
		slog.String("role", string(session.User.Role)),
	)
	return session, nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// Logout invalidates the session, tells the backend, and runs logout hooks.
// The local session is removed even if the backend call fails.
func (s *Service) Logout(ctx context.Context, token string) error {
	s.mu.Lock()
	session, ok := s.sessions[token]
	delete(s.sessions, token)
	hooks := append([]LogoutHook(nil), s.hooks...)
	s.mu.Unlock()

	if !ok {
		return ErrInvalidSession
	}

	for _, hook := range hooks {
		hook(ctx, session)
	}

	if err := s.repo.Logout(ctx, token); err != nil {
		errutil.LogWarn(s.logger, "backend logout failed", err,
			slog.String("user_id", string(session.User.ID)))
	}

	s.logger.Info("user logged out", slog.String("user_id", string(session.User.ID)))
	return nil
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
