package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/metrics"
	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
	"github.com/hoopstat/scorekeeper/internal/services/gameclock"
	"github.com/hoopstat/scorekeeper/internal/services/lineup"
	"github.com/hoopstat/scorekeeper/internal/services/permission"
	"github.com/hoopstat/scorekeeper/internal/services/plusminus"
)

// Session is one user's open view of one game.
//
// Writes are serialized by writeMu and follow write-then-confirm: they are
// validated against local state, sent to the backend, and committed locally
// only once the backend accepts them.
type Session struct {
	id       string
	gameID   model.GameID
	user     *auth.Session
	deps     Dependencies
	resolver *permission.Resolver
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	lineup    *lineup.Manager
	tracker   *gameclock.Tracker
	plusMinus *plusminus.Attributor

	writeMu sync.Mutex

	mu           sync.RWMutex
	game         *model.Game
	serverPerms  *model.PermissionSet
	isCreator    bool
	clockQuarter int
	closed       bool

	unsubscribe  func()
	listenerDone chan struct{}
	handlers     sync.WaitGroup
	closeOnce    sync.Once
}

func newSession(m *Manager, user *auth.Session, game *model.Game, join *model.JoinResult, logger *slog.Logger) (*Session, error) {
	baseCtx, cancel := context.WithCancel(user.Context(context.Background()))

	s := &Session{
		id:           m.deps.IDs.NewID(),
		gameID:       game.ID,
		user:         user,
		deps:         m.deps,
		resolver:     m.resolver,
		logger:       logger,
		baseCtx:      baseCtx,
		cancel:       cancel,
		game:         game.Clone(),
		isCreator:    join.IsGameCreator,
		listenerDone: make(chan struct{}),
	}
	if join.Permissions != nil {
		perms := *join.Permissions
		s.serverPerms = &perms
	}

	s.lineup = lineup.New(game.Home, game.Away, logger)
	s.plusMinus = plusminus.New(s.lineup.OnCourtIDs, logger)
	if game.PlusMinus != nil {
		s.plusMinus.Reconcile(game.PlusMinus)
	}
	s.tracker = gameclock.New(baseCtx, gameclock.Config{
		GameID:               game.ID,
		QuarterLengthSeconds: game.PeriodLengthSeconds(),
		RemainingSeconds:     game.RemainingSeconds,
		SyncQueueSize:        m.cfg.SyncQueueSize,
		Ledger:               model.TimeLedger(game.PlayerMinutes),
	}, m.deps.Clock, m.deps.Games, s.onCourt, gameclock.Hooks{
		OnTick:         s.onTick,
		OnQuarterEnded: s.onQuarterEnded,
	}, logger)

	events, unsubscribe, err := m.deps.Notifier.Subscribe(baseCtx, game.ID)
	if err != nil {
		errutil.LogError(logger, "failed to subscribe to game events", err)
		s.tracker.Close()
		if leaveErr := m.deps.Permissions.LeaveGame(baseCtx, game.ID); leaveErr != nil {
			errutil.LogWarn(logger, "failed to leave game", leaveErr)
		}
		cancel()
		return nil, err
	}
	s.unsubscribe = unsubscribe
	go s.listen(events)

	s.saveSnapshot()
	s.emit(model.EventSessionState, s.View(), false)
	return s, nil
}

// ID identifies the session in realtime events it publishes
func (s *Session) ID() string {
	return s.id
}

// GameID returns the game the session is open on
func (s *Session) GameID() model.GameID {
	return s.gameID
}

// User returns the user operating the session
func (s *Session) User() model.User {
	return s.user.User
}

// Game returns a copy of the last known game state with the local lineup and
// clock applied
func (s *Session) Game() *model.Game {
	s.mu.RLock()
	game := s.game.Clone()
	s.mu.RUnlock()

	game.Home, game.Away = s.lineup.Teams()
	game.RemainingSeconds = s.tracker.Remaining()
	game.ClockRunning = s.tracker.Running()
	game.PlayerMinutes = s.tracker.Ledger()
	game.PlusMinus = s.plusMinus.Ledger()
	return game
}

// View returns the session's local state
func (s *Session) View() *model.SessionSnapshot {
	s.mu.RLock()
	snapshot := &model.SessionSnapshot{
		GameID:        s.gameID,
		UserID:        s.user.User.ID,
		State:         s.game.State,
		Quarter:       s.game.Quarter,
		HomeScore:     s.game.HomeScore,
		AwayScore:     s.game.AwayScore,
		Permissions:   permission.Resolve(s.permContextLocked()),
		IsGameCreator: s.isCreator,
	}
	s.mu.RUnlock()

	snapshot.RemainingSeconds = s.tracker.Remaining()
	snapshot.ClockRunning = s.tracker.Running()
	snapshot.HomeOnCourt = s.lineup.OnCourtIDs(model.SideHome)
	snapshot.AwayOnCourt = s.lineup.OnCourtIDs(model.SideAway)
	snapshot.PlayerMinutes = s.tracker.Ledger()
	snapshot.PlusMinus = s.plusMinus.Ledger()
	snapshot.SavedAt = s.deps.Clock.Now()
	return snapshot
}

// Permissions returns the user's effective permissions in this game
func (s *Session) Permissions() model.PermissionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return permission.Resolve(s.permContextLocked())
}

// HasPermission reports whether the user holds the capability in this game
func (s *Session) HasPermission(p model.Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return permission.HasPermission(s.permContextLocked(), p)
}

// IsGameCreator reports whether the user created the game
func (s *Session) IsGameCreator() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isCreator
}

// Close unmounts the game: the clock stops without a flush, the realtime
// subscription is dropped and the backend is told the user left.
// Must not be called while holding a write.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.teardown()
		if err := s.deps.Permissions.LeaveGame(s.user.Context(ctx), s.gameID); err != nil {
			errutil.LogWarn(s.logger, "failed to leave game", err)
		}
		s.cancel()

		s.emit(model.EventSessionEnded, nil, false)
		metrics.OpenSessions.Dec()
		s.logger.Info("session closed")
	})
}

// discard drops a duplicate session. The user is still in the game through
// another session, so the backend keeps them as a viewer and no
// session_ended event is sent.
func (s *Session) discard() {
	s.closeOnce.Do(func() {
		s.teardown()
		s.cancel()

		metrics.OpenSessions.Dec()
		s.logger.Debug("duplicate session discarded")
	})
}

func (s *Session) teardown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.tracker.Close()
	s.unsubscribe()
	<-s.listenerDone
	s.handlers.Wait()
}

func (s *Session) permContextLocked() permission.Context {
	return permission.Context{
		User:              s.user.User,
		IsGameCreator:     s.isCreator,
		ServerPermissions: s.serverPerms,
	}
}

func (s *Session) require(p model.Permission) error {
	s.mu.RLock()
	ctx := s.permContextLocked()
	s.mu.RUnlock()
	return s.resolver.Require(ctx, s.gameID, p)
}

func (s *Session) ensureOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return oops.In("session").
			Code("SESSION_NOT_OPEN").
			With("game_id", s.gameID).
			Wrap(model.ErrSessionNotOpen)
	}
	return nil
}

func (s *Session) requireInProgress() error {
	s.mu.RLock()
	state := s.game.State
	s.mu.RUnlock()

	switch state {
	case model.GameStateInProgress:
		return nil
	case model.GameStateFinished:
		return oops.In("session").
			Code("GAME_FINISHED").
			With("game_id", s.gameID).
			Wrap(model.ErrGameFinished)
	default:
		return oops.In("session").
			Code("GAME_NOT_IN_PROGRESS").
			With("game_id", s.gameID).
			With("state", state).
			Wrap(model.ErrGameNotInProgress)
	}
}

// requireStartable admits a scheduled game as well as one in progress and
// reports whether the game is still scheduled.
func (s *Session) requireStartable() (bool, error) {
	s.mu.RLock()
	state := s.game.State
	s.mu.RUnlock()

	if state == model.GameStateScheduled {
		return true, nil
	}
	return false, s.requireInProgress()
}

func (s *Session) requireOnCourt(playerID model.PlayerID) error {
	if _, ok := s.lineup.SideOf(playerID); !ok {
		return oops.In("session").
			Code("PLAYER_NOT_FOUND").
			With("player_id", playerID).
			Wrap(model.ErrPlayerNotFound)
	}
	if !s.lineup.IsOnCourt(playerID) {
		return oops.In("session").
			Code("PLAYER_NOT_ON_COURT").
			With("player_id", playerID).
			Wrap(model.ErrPlayerNotOnCourt)
	}
	return nil
}

func (s *Session) onCourt() []model.PlayerID {
	return append(s.lineup.OnCourtIDs(model.SideHome), s.lineup.OnCourtIDs(model.SideAway)...)
}

// saveSnapshot writes the local state through to the session cache
func (s *Session) saveSnapshot() {
	ctx, cancel := context.WithTimeout(s.baseCtx, backgroundTimeout)
	defer cancel()
	if err := s.deps.Cache.SaveSnapshot(ctx, s.View()); err != nil {
		errutil.LogWarn(s.logger, "failed to save session snapshot", err)
	}
}
