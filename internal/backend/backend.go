// Package backend defines the remote system of record the scorekeeper talks to.
//
// Calls are made on behalf of the authenticated user whose token is carried in
// the context (see WithToken).
package backend

import (
	"context"

	"github.com/hoopstat/scorekeeper/internal/model"
)

// GameRepository reads and writes live game state
type GameRepository interface {
	GetGame(ctx context.Context, gameID model.GameID) (*model.Game, error)
	UpdateGameTime(ctx context.Context, gameID model.GameID, elapsedSeconds int) error
	UpdateScore(ctx context.Context, gameID model.GameID, home, away int) error
	SetStarters(ctx context.Context, gameID model.GameID, home, away []model.PlayerID) error
	Substitute(ctx context.Context, req model.SubstitutionRequest) error
	UpdatePlayerMinutes(ctx context.Context, gameID model.GameID, minutes model.TimeLedger) error
	AdvanceQuarter(ctx context.Context, gameID model.GameID) error
	RecordStat(ctx context.Context, gameID model.GameID, playerID model.PlayerID, kind model.StatKind) error
	RecordShot(ctx context.Context, gameID model.GameID, shot model.ShotRecord) error
}

// PermissionRepository manages per-game permissions for the calling user
type PermissionRepository interface {
	JoinGame(ctx context.Context, gameID model.GameID) (*model.JoinResult, error)
	LeaveGame(ctx context.Context, gameID model.GameID) error
	GetMyPermissions(ctx context.Context, gameID model.GameID) (*model.UserGamePermissions, error)
	SetUserPermissions(ctx context.Context, gameID model.GameID, userID model.UserID, patch model.PermissionPatch) error
}

// AuthRepository authenticates users
type AuthRepository interface {
	Login(ctx context.Context, username, password string) (*model.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Backend is the full remote surface
type Backend interface {
	GameRepository
	PermissionRepository
	AuthRepository
}

type tokenKey struct{}

// WithToken returns a context carrying the caller's auth token
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the auth token carried by ctx, if any
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}
