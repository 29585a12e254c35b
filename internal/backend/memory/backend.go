// Package memory is an in-process reference backend. It validates and
// authorizes every write the way the remote service does, and is used for
// local demo mode and tests.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/hoopstat/scorekeeper/internal/backend"
	"github.com/hoopstat/scorekeeper/internal/dependencies/clock"
	"github.com/hoopstat/scorekeeper/internal/dependencies/idgen"
	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/services/lineup"
	"github.com/hoopstat/scorekeeper/internal/services/permission"
	"github.com/hoopstat/scorekeeper/internal/services/plusminus"
)

// ErrUsernameExists is returned when registering a taken username
var ErrUsernameExists = errors.New("username already exists")

// SubstitutionRecord is one entry of the substitution audit trail
type SubstitutionRecord struct {
	Request model.SubstitutionRequest
	UserID  model.UserID
	Quarter int
}

// Backend is an in-memory implementation of backend.Backend
type Backend struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.RegisteredUser
	usernameIndex map[string]model.UserID
	tokens        map[string]model.UserID
	games         map[model.GameID]*model.Game
	permissions   map[model.GameID]map[model.UserID]model.PermissionSet
	viewers       map[model.GameID]map[model.UserID]bool
	stats         map[model.GameID]map[model.PlayerID]map[model.StatKind]int
	shots         map[model.GameID][]model.ShotRecord
	substitutions map[model.GameID][]SubstitutionRecord

	clock  clock.Clock
	ids    idgen.Generator
	logger *slog.Logger
}

// Ensure Backend implements the interface
var _ backend.Backend = (*Backend)(nil)

// New creates an empty in-memory backend
func New(clk clock.Clock, ids idgen.Generator, logger *slog.Logger) *Backend {
	return &Backend{
		users:         make(map[model.UserID]*model.RegisteredUser),
		usernameIndex: make(map[string]model.UserID),
		tokens:        make(map[string]model.UserID),
		games:         make(map[model.GameID]*model.Game),
		permissions:   make(map[model.GameID]map[model.UserID]model.PermissionSet),
		viewers:       make(map[model.GameID]map[model.UserID]bool),
		stats:         make(map[model.GameID]map[model.PlayerID]map[model.StatKind]int),
		shots:         make(map[model.GameID][]model.ShotRecord),
		substitutions: make(map[model.GameID][]SubstitutionRecord),
		clock:         clk,
		ids:           ids,
		logger:        logger.With(slog.String("component", "memory_backend")),
	}
}

// Administration (not part of the remote surface)

// RegisterUser creates a user account with a bcrypt-hashed password
func (b *Backend) RegisterUser(username, password, displayName string, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.usernameIndex[username]; ok {
		return nil, ErrUsernameExists
	}

	user := model.User{
		ID:          model.UserID("u_" + b.ids.NewID()),
		Username:    username,
		DisplayName: displayName,
		Role:        role,
	}
	b.users[user.ID] = &model.RegisteredUser{User: user, PasswordHash: string(hash)}
	b.usernameIndex[username] = user.ID
	return &user, nil
}

// AddGame stores a copy of the game
func (b *Backend) AddGame(game *model.Game) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := game.Clone()
	if g.PlayerMinutes == nil {
		g.PlayerMinutes = make(map[model.PlayerID]int64)
	}
	if g.PlusMinus == nil {
		g.PlusMinus = make(map[model.PlayerID]int)
	}
	b.games[g.ID] = g
}

// GrantPermissions stores a server-issued permission set for a user in a game
func (b *Backend) GrantPermissions(gameID model.GameID, userID model.UserID, set model.PermissionSet) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.grantLocked(gameID, userID, set)
}

// Stats returns the recorded stat counts for a game
func (b *Backend) Stats(gameID model.GameID) map[model.PlayerID]map[model.StatKind]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[model.PlayerID]map[model.StatKind]int, len(b.stats[gameID]))
	for id, kinds := range b.stats[gameID] {
		out[id] = make(map[model.StatKind]int, len(kinds))
		for k, v := range kinds {
			out[id][k] = v
		}
	}
	return out
}

// Shots returns the recorded shots for a game
func (b *Backend) Shots(gameID model.GameID) []model.ShotRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.ShotRecord(nil), b.shots[gameID]...)
}

// Substitutions returns the substitution audit trail for a game
func (b *Backend) Substitutions(gameID model.GameID) []SubstitutionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]SubstitutionRecord(nil), b.substitutions[gameID]...)
}

// IsViewing reports whether a user currently has the game open
func (b *Backend) IsViewing(gameID model.GameID, userID model.UserID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.viewers[gameID][userID]
}

// AuthRepository

func (b *Backend) Login(ctx context.Context, username, password string) (*model.LoginResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.usernameIndex[username]
	if !ok {
		return nil, model.ErrInvalidCredentials
	}
	ru := b.users[id]
	if err := bcrypt.CompareHashAndPassword([]byte(ru.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	token := "tok_" + b.ids.NewID()
	b.tokens[token] = id

	b.logger.Info("user logged in", slog.String("user_id", string(id)))
	return &model.LoginResult{User: ru.User, Token: token}, nil
}

func (b *Backend) Logout(ctx context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
	return nil
}

// GameRepository

func (b *Backend) GetGame(ctx context.Context, gameID model.GameID) (*model.Game, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, err := b.callerLocked(ctx); err != nil {
		return nil, err
	}
	game, err := b.gameLocked(gameID)
	if err != nil {
		return nil, err
	}
	return game.Clone(), nil
}

func (b *Backend) UpdateGameTime(ctx context.Context, gameID model.GameID, elapsedSeconds int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, game, err := b.authorizeLocked(ctx, gameID, model.PermControlClock)
	if err != nil {
		return err
	}
	if err := requireInProgress(game); err != nil {
		return err
	}

	length := game.PeriodLengthSeconds()
	remaining := length - elapsedSeconds
	if remaining < 0 {
		remaining = 0
	}
	if remaining > length {
		remaining = length
	}
	game.RemainingSeconds = remaining
	game.UpdatedAt = b.clock.Now()
	return nil
}

func (b *Backend) UpdateScore(ctx context.Context, gameID model.GameID, home, away int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, game, err := b.authorizeLocked(ctx, gameID, model.PermEditPoints)
	if err != nil {
		return err
	}
	if err := requireInProgress(game); err != nil {
		return err
	}
	if home < 0 || away < 0 {
		return oops.In("backend").
			Code("INVALID_SCORE").
			With("home", home).
			With("away", away).
			Wrap(model.ErrInvalidScore)
	}

	attributor := plusminus.New(func(side model.TeamSide) []model.PlayerID {
		return onCourtIDs(game.Team(side))
	}, b.logger)
	attributor.Reconcile(game.PlusMinus)
	attributor.OnScoreChange(game.HomeScore, game.AwayScore, home, away)

	game.PlusMinus = attributor.Ledger()
	game.HomeScore = home
	game.AwayScore = away
	game.UpdatedAt = b.clock.Now()
	return nil
}

func (b *Backend) SetStarters(ctx context.Context, gameID model.GameID, home, away []model.PlayerID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, game, err := b.authorizeLocked(ctx, gameID, model.PermSetStarters)
	if err != nil {
		return err
	}
	starting := game.State == model.GameStateScheduled
	if !starting {
		if err := requireInProgress(game); err != nil {
			return err
		}
	}

	m := lineup.New(game.Home, game.Away, b.logger)
	if err := m.SetStarters(home, away); err != nil {
		return err
	}
	game.Home, game.Away = m.Teams()
	if starting {
		game.State = model.GameStateInProgress
		game.PlayerMinutes = make(map[model.PlayerID]int64)
		game.PlusMinus = make(map[model.PlayerID]int)
		b.logger.Info("game started", slog.String("game_id", string(gameID)))
	}
	game.UpdatedAt = b.clock.Now()
	return nil
}

func (b *Backend) Substitute(ctx context.Context, req model.SubstitutionRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, game, err := b.authorizeLocked(ctx, req.GameID, model.PermMakeSubstitutions)
	if err != nil {
		return err
	}
	if err := requireInProgress(game); err != nil {
		return err
	}

	m := lineup.New(game.Home, game.Away, b.logger)
	if err := m.Substitute(req.TeamSide, req.PlayerOutID, req.PlayerInID); err != nil {
		return err
	}
	game.Home, game.Away = m.Teams()
	game.UpdatedAt = b.clock.Now()

	b.substitutions[game.ID] = append(b.substitutions[game.ID], SubstitutionRecord{
		Request: req,
		UserID:  user.ID,
		Quarter: game.Quarter,
	})
	return nil
}

func (b *Backend) UpdatePlayerMinutes(ctx context.Context, gameID model.GameID, minutes model.TimeLedger) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, game, err := b.authorizeLocked(ctx, gameID, model.PermControlClock)
	if err != nil {
		return err
	}
	for id, ms := range minutes {
		if _, ok := game.SideOf(id); !ok {
			return oops.In("backend").
				Code("PLAYER_NOT_FOUND").
				With("player_id", id).
				Wrap(model.ErrPlayerNotFound)
		}
		game.PlayerMinutes[id] = ms
	}
	game.UpdatedAt = b.clock.Now()
	return nil
}

// AdvanceQuarter closes the current period. A tied score after regulation
// goes to overtime; any other score at or after regulation finishes the game.
func (b *Backend) AdvanceQuarter(ctx context.Context, gameID model.GameID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, game, err := b.authorizeLocked(ctx, gameID, model.PermEndQuarter)
	if err != nil && errors.Is(err, model.ErrPermissionDenied) {
		user, game, err = b.authorizeLocked(ctx, gameID, model.PermControlClock)
	}
	if err != nil {
		return err
	}
	if err := requireInProgress(game); err != nil {
		return err
	}

	regulation := game.RegulationQuarters
	if regulation <= 0 {
		regulation = model.DefaultRegulationQuarters
	}

	game.ClockRunning = false
	if game.Quarter >= regulation && game.HomeScore != game.AwayScore {
		game.State = model.GameStateFinished
		game.RemainingSeconds = 0
	} else {
		game.Quarter++
		game.RemainingSeconds = game.PeriodLengthSeconds()
	}
	game.UpdatedAt = b.clock.Now()

	b.logger.Info("quarter advanced",
		slog.String("game_id", string(gameID)),
		slog.String("user_id", string(user.ID)),
		slog.Int("quarter", game.Quarter),
		slog.String("state", string(game.State)),
	)
	return nil
}

func (b *Backend) RecordStat(ctx context.Context, gameID model.GameID, playerID model.PlayerID, kind model.StatKind) error {
	perm, ok := kind.RequiredPermission()
	if !ok {
		return oops.In("backend").
			Code("UNKNOWN_STAT").
			With("kind", kind).
			Wrap(model.ErrUnknownStat)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, game, err := b.authorizeLocked(ctx, gameID, perm)
	if err != nil {
		return err
	}
	if err := requireInProgress(game); err != nil {
		return err
	}
	if err := requireOnCourt(game, playerID); err != nil {
		return err
	}

	if b.stats[gameID] == nil {
		b.stats[gameID] = make(map[model.PlayerID]map[model.StatKind]int)
	}
	if b.stats[gameID][playerID] == nil {
		b.stats[gameID][playerID] = make(map[model.StatKind]int)
	}
	b.stats[gameID][playerID][kind]++
	return nil
}

func (b *Backend) RecordShot(ctx context.Context, gameID model.GameID, shot model.ShotRecord) error {
	if shot.ShotType.Points() == 0 {
		return oops.In("backend").
			Code("UNKNOWN_STAT").
			With("shot_type", shot.ShotType).
			Wrap(model.ErrUnknownStat)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, game, err := b.authorizeLocked(ctx, gameID, shot.ShotType.RequiredPermission())
	if err != nil {
		return err
	}
	if err := requireInProgress(game); err != nil {
		return err
	}
	if err := requireOnCourt(game, shot.PlayerID); err != nil {
		return err
	}

	b.shots[gameID] = append(b.shots[gameID], shot)
	return nil
}

// PermissionRepository

func (b *Backend) JoinGame(ctx context.Context, gameID model.GameID) (*model.JoinResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, err := b.callerLocked(ctx)
	if err != nil {
		return nil, err
	}
	game, err := b.gameLocked(gameID)
	if err != nil {
		return nil, err
	}

	if b.viewers[gameID] == nil {
		b.viewers[gameID] = make(map[model.UserID]bool)
	}
	b.viewers[gameID][user.ID] = true

	result := &model.JoinResult{IsGameCreator: game.CreatedBy == user.ID}
	if set, ok := b.permissions[gameID][user.ID]; ok {
		result.Permissions = &set
	}
	return result, nil
}

func (b *Backend) LeaveGame(ctx context.Context, gameID model.GameID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, err := b.callerLocked(ctx)
	if err != nil {
		return err
	}
	delete(b.viewers[gameID], user.ID)
	return nil
}

// GetMyPermissions returns the caller's server-issued permissions, falling
// back to the caller's role defaults when none were issued.
func (b *Backend) GetMyPermissions(ctx context.Context, gameID model.GameID) (*model.UserGamePermissions, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	user, err := b.callerLocked(ctx)
	if err != nil {
		return nil, err
	}
	game, err := b.gameLocked(gameID)
	if err != nil {
		return nil, err
	}

	set, ok := b.permissions[gameID][user.ID]
	if !ok {
		set = permission.DefaultsFor(user.Role)
	}
	return &model.UserGamePermissions{
		GameID:        gameID,
		UserID:        user.ID,
		Permissions:   set,
		IsGameCreator: game.CreatedBy == user.ID,
	}, nil
}

func (b *Backend) SetUserPermissions(ctx context.Context, gameID model.GameID, userID model.UserID, patch model.PermissionPatch) error {
	if err := patch.Validate(); err != nil {
		return oops.In("backend").
			Code("INVALID_PERMISSION").
			With("game_id", gameID).
			Wrap(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, _, err := b.authorizeLocked(ctx, gameID, model.PermManagePermissions); err != nil {
		return err
	}
	target, ok := b.users[userID]
	if !ok {
		return oops.In("backend").
			Code("USER_NOT_FOUND").
			With("user_id", userID).
			Wrap(model.ErrUserNotFound)
	}

	base, ok := b.permissions[gameID][userID]
	if !ok {
		base = permission.DefaultsFor(target.User.Role)
	}
	b.grantLocked(gameID, userID, base.Apply(patch))
	return nil
}

// Helpers

func (b *Backend) grantLocked(gameID model.GameID, userID model.UserID, set model.PermissionSet) {
	if b.permissions[gameID] == nil {
		b.permissions[gameID] = make(map[model.UserID]model.PermissionSet)
	}
	b.permissions[gameID][userID] = set
}

func (b *Backend) callerLocked(ctx context.Context) (*model.User, error) {
	token, ok := backend.TokenFrom(ctx)
	if !ok {
		return nil, model.ErrNotAuthenticated
	}
	id, ok := b.tokens[token]
	if !ok {
		return nil, model.ErrNotAuthenticated
	}
	return &b.users[id].User, nil
}

func (b *Backend) gameLocked(gameID model.GameID) (*model.Game, error) {
	game, ok := b.games[gameID]
	if !ok {
		return nil, oops.In("backend").
			Code("GAME_NOT_FOUND").
			With("game_id", gameID).
			Wrap(model.ErrGameNotFound)
	}
	return game, nil
}

// authorizeLocked resolves the caller's permissions exactly as the client does
func (b *Backend) authorizeLocked(ctx context.Context, gameID model.GameID, p model.Permission) (*model.User, *model.Game, error) {
	user, err := b.callerLocked(ctx)
	if err != nil {
		return nil, nil, err
	}
	game, err := b.gameLocked(gameID)
	if err != nil {
		return nil, nil, err
	}

	pctx := permission.Context{
		User:          *user,
		IsGameCreator: game.CreatedBy == user.ID,
	}
	if set, ok := b.permissions[gameID][user.ID]; ok {
		pctx.ServerPermissions = &set
	}
	if !permission.HasPermission(pctx, p) {
		return nil, nil, oops.In("backend").
			Code("PERMISSION_DENIED").
			With("game_id", gameID).
			With("user_id", user.ID).
			With("permission", p).
			Wrap(model.ErrPermissionDenied)
	}
	return user, game, nil
}

func requireInProgress(game *model.Game) error {
	switch game.State {
	case model.GameStateInProgress:
		return nil
	case model.GameStateFinished:
		return oops.In("backend").
			Code("GAME_FINISHED").
			With("game_id", game.ID).
			Wrap(model.ErrGameFinished)
	default:
		return oops.In("backend").
			Code("GAME_NOT_IN_PROGRESS").
			With("game_id", game.ID).
			With("state", game.State).
			Wrap(model.ErrGameNotInProgress)
	}
}

func requireOnCourt(game *model.Game, playerID model.PlayerID) error {
	side, ok := game.SideOf(playerID)
	if !ok {
		return oops.In("backend").
			Code("PLAYER_NOT_FOUND").
			With("player_id", playerID).
			Wrap(model.ErrPlayerNotFound)
	}
	if !game.Team(side).Player(playerID).IsOnCourt {
		return oops.In("backend").
			Code("PLAYER_NOT_ON_COURT").
			With("player_id", playerID).
			Wrap(model.ErrPlayerNotOnCourt)
	}
	return nil
}

func onCourtIDs(team *model.Team) []model.PlayerID {
	var ids []model.PlayerID
	for _, p := range team.Players {
		if p.IsOnCourt {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
