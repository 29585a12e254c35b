package model

import "errors"

// Common errors used across the application
var (
	// Validation errors (recoverable locally, never sent to the backend)
	ErrInvalidLineupSize    = errors.New("lineup must contain exactly 5 players")
	ErrCrossTeamPlayer      = errors.New("player does not belong to the team roster")
	ErrPlayerNotOnCourt     = errors.New("player is not on court")
	ErrPlayerAlreadyOnCourt = errors.New("player is already on court")
	ErrTeamMismatch         = errors.New("substitution players do not match the team")
	ErrInvalidTeamSide      = errors.New("invalid team side")
	ErrGameNotInProgress    = errors.New("game is not in progress")
	ErrGameFinished         = errors.New("game is finished")
	ErrInvalidScore         = errors.New("invalid score")
	ErrUnknownStat          = errors.New("unknown stat kind")
	ErrInvalidPermission    = errors.New("unknown permission")

	// Authorization errors
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Transport errors
	ErrNetworkFailure  = errors.New("network failure")
	ErrBackendRejected = errors.New("backend rejected the request")

	// Lookup errors
	ErrGameNotFound   = errors.New("game not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrSessionNotOpen = errors.New("game session is not open")
	ErrCacheMiss      = errors.New("session cache entry not found")
)

var validationErrors = []error{
	ErrInvalidLineupSize,
	ErrCrossTeamPlayer,
	ErrPlayerNotOnCourt,
	ErrPlayerAlreadyOnCourt,
	ErrTeamMismatch,
	ErrInvalidTeamSide,
	ErrGameNotInProgress,
	ErrGameFinished,
	ErrInvalidScore,
	ErrUnknownStat,
	ErrInvalidPermission,
}

// IsValidationError reports whether err is a locally recoverable validation failure
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
