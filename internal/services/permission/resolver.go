package permission

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/hoopstat/scorekeeper/internal/metrics"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// Context is everything the resolver needs to evaluate a user's permissions in one game.
// It is built fresh for every check; nothing is cached across contexts.
type Context struct {
	User          model.User
	IsGameCreator bool

	// ServerPermissions is nil until the backend has issued permissions for this game
	ServerPermissions *model.PermissionSet
}

// Resolver applies the precedence chain: game creator, then ADMIN role,
// then server-issued permissions verbatim, then role defaults.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a new Resolver
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{
		logger: logger.With(slog.String("component", "permission")),
	}
}

// Resolve returns the effective permission set for the context
func Resolve(ctx Context) model.PermissionSet {
	if ctx.IsGameCreator || ctx.User.Role == model.RoleAdmin {
		return model.AllGranted()
	}
	if ctx.ServerPermissions != nil {
		return *ctx.ServerPermissions
	}
	return DefaultsFor(ctx.User.Role)
}

// HasPermission answers a point query against the precedence chain
func HasPermission(ctx Context, p model.Permission) bool {
	if ctx.IsGameCreator {
		return true
	}
	if ctx.User.Role == model.RoleAdmin {
		return true
	}
	if ctx.ServerPermissions != nil {
		return ctx.ServerPermissions.Has(p)
	}
	return DefaultsFor(ctx.User.Role).Has(p)
}

// Resolve returns the effective permission set for the context
func (r *Resolver) Resolve(ctx Context) model.PermissionSet {
	return Resolve(ctx)
}

// HasPermission answers a point query against the precedence chain
func (r *Resolver) HasPermission(ctx Context, p model.Permission) bool {
	return HasPermission(ctx, p)
}

// Require returns ErrPermissionDenied if the context lacks the capability
func (r *Resolver) Require(ctx Context, gameID model.GameID, p model.Permission) error {
	if HasPermission(ctx, p) {
		return nil
	}

	metrics.RecordPermissionDenied(string(p))
	r.logger.Info("permission denied",
		slog.String("game_id", string(gameID)),
		slog.String("user_id", string(ctx.User.ID)),
		slog.String("role", string(ctx.User.Role)),
		slog.String("permission", string(p)),
		slog.Bool("server_permissions_loaded", ctx.ServerPermissions != nil),
	)

	return oops.In("permission").
		Code("PERMISSION_DENIED").
		With("game_id", gameID).
		With("permission", p).
		Wrap(model.ErrPermissionDenied)
}
