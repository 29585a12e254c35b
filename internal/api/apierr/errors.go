package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
	"github.com/hoopstat/scorekeeper/internal/services/gameclock"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeNotAuthenticated     = "NOT_AUTHENTICATED"
	CodePermissionDenied     = "PERMISSION_DENIED"
	CodeGameNotFound         = "GAME_NOT_FOUND"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeSessionNotOpen       = "SESSION_NOT_OPEN"
	CodeCacheMiss            = "CACHE_MISS"
	CodeInvalidLineupSize    = "INVALID_LINEUP_SIZE"
	CodeCrossTeamPlayer      = "CROSS_TEAM_PLAYER"
	CodePlayerNotOnCourt     = "PLAYER_NOT_ON_COURT"
	CodePlayerAlreadyOnCourt = "PLAYER_ALREADY_ON_COURT"
	CodeTeamMismatch         = "TEAM_MISMATCH"
	CodeInvalidTeamSide      = "INVALID_TEAM_SIDE"
	CodeGameNotInProgress    = "GAME_NOT_IN_PROGRESS"
	CodeGameFinished         = "GAME_FINISHED"
	CodeInvalidScore         = "INVALID_SCORE"
	CodeUnknownStat          = "UNKNOWN_STAT"
	CodeInvalidPermission    = "INVALID_PERMISSION"
	CodeQuarterOver          = "QUARTER_OVER"
	CodeBackendRejected      = "BACKEND_REJECTED"
	CodeBackendUnavailable   = "BACKEND_UNAVAILABLE"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// StatusOf returns the HTTP status an error maps to
func StatusOf(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Lookup errors
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrSessionNotOpen):
		return &httpError{http.StatusNotFound, APIError{CodeSessionNotOpen, "No open session for this game"}}
	case errors.Is(err, model.ErrCacheMiss):
		return &httpError{http.StatusNotFound, APIError{CodeCacheMiss, "No cached state for this game"}}

	// Validation errors
	case errors.Is(err, model.ErrInvalidLineupSize):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeInvalidLineupSize, "Each lineup must have exactly 5 players"}}
	case errors.Is(err, model.ErrCrossTeamPlayer):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeCrossTeamPlayer, "Player is not on that team's roster"}}
	case errors.Is(err, model.ErrPlayerNotOnCourt):
		return &httpError{http.StatusConflict, APIError{CodePlayerNotOnCourt, "Player is not on court"}}
	case errors.Is(err, model.ErrPlayerAlreadyOnCourt):
		return &httpError{http.StatusConflict, APIError{CodePlayerAlreadyOnCourt, "Player is already on court"}}
	case errors.Is(err, model.ErrTeamMismatch):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeTeamMismatch, "Players do not belong to the given team"}}
	case errors.Is(err, model.ErrInvalidTeamSide):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTeamSide, "Team side must be home or away"}}
	case errors.Is(err, model.ErrGameFinished):
		return &httpError{http.StatusConflict, APIError{CodeGameFinished, "Game is finished"}}
	case errors.Is(err, model.ErrGameNotInProgress):
		return &httpError{http.StatusConflict, APIError{CodeGameNotInProgress, "Game is not in progress"}}
	case errors.Is(err, model.ErrInvalidScore):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeInvalidScore, "Scores must not be negative"}}
	case errors.Is(err, model.ErrUnknownStat):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownStat, "Unknown stat or shot type"}}
	case errors.Is(err, model.ErrInvalidPermission):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPermission, "Unknown permission"}}
	case errors.Is(err, gameclock.ErrQuarterOver):
		return &httpError{http.StatusConflict, APIError{CodeQuarterOver, "No time remaining in the period"}}

	// Authorization errors
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, model.ErrNotAuthenticated):
		return &httpError{http.StatusUnauthorized, APIError{CodeNotAuthenticated, "Backend session is not authenticated"}}
	case errors.Is(err, model.ErrPermissionDenied):
		return &httpError{http.StatusForbidden, APIError{CodePermissionDenied, "You do not have permission to do that"}}

	// Transport errors
	case errors.Is(err, model.ErrBackendRejected):
		return &httpError{http.StatusBadGateway, APIError{CodeBackendRejected, "Backend rejected the request"}}
	case errors.Is(err, model.ErrNetworkFailure):
		return &httpError{http.StatusBadGateway, APIError{CodeBackendUnavailable, "Backend is unavailable"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
