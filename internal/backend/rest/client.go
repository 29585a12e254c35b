// Package rest talks to the remote scoring backend over HTTP+JSON.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/hoopstat/scorekeeper/internal/backend"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// Config holds configuration for the REST client
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	ReadRetries uint64
	RetryBase   time.Duration
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		ReadRetries: 3,
		RetryBase:   100 * time.Millisecond,
	}
}

// Client implements backend.Backend against the remote HTTP API.
// Reads are retried with exponential backoff; writes are sent once.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	readRetries uint64
	retryBase   time.Duration
	logger      *slog.Logger
}

// Ensure Client implements the interface
var _ backend.Backend = (*Client)(nil)

// New creates a new REST backend client
func New(cfg Config, logger *slog.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = defaults.RetryBase
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		readRetries: cfg.ReadRetries,
		retryBase:   cfg.RetryBase,
		logger:      logger.With(slog.String("component", "rest_backend")),
	}
}

// APIError is the error body returned by the backend
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an API error
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// codeErrors maps backend error codes to sentinels
var codeErrors = map[string]error{
	"INVALID_LINEUP_SIZE":     model.ErrInvalidLineupSize,
	"CROSS_TEAM_PLAYER":       model.ErrCrossTeamPlayer,
	"PLAYER_NOT_ON_COURT":     model.ErrPlayerNotOnCourt,
	"PLAYER_ALREADY_ON_COURT": model.ErrPlayerAlreadyOnCourt,
	"TEAM_MISMATCH":           model.ErrTeamMismatch,
	"INVALID_TEAM_SIDE":       model.ErrInvalidTeamSide,
	"GAME_NOT_IN_PROGRESS":    model.ErrGameNotInProgress,
	"GAME_FINISHED":           model.ErrGameFinished,
	"INVALID_SCORE":           model.ErrInvalidScore,
	"UNKNOWN_STAT":            model.ErrUnknownStat,
	"INVALID_PERMISSION":      model.ErrInvalidPermission,
	"PERMISSION_DENIED":       model.ErrPermissionDenied,
	"UNAUTHORIZED":            model.ErrNotAuthenticated,
	"INVALID_CREDENTIALS":     model.ErrInvalidCredentials,
	"GAME_NOT_FOUND":          model.ErrGameNotFound,
	"PLAYER_NOT_FOUND":        model.ErrPlayerNotFound,
	"USER_NOT_FOUND":          model.ErrUserNotFound,
}

// AuthRepository

func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var result model.LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(backend.WithToken(ctx, token), http.MethodPost, "/auth/logout", nil, nil)
}

// GameRepository

func (c *Client) GetGame(ctx context.Context, gameID model.GameID) (*model.Game, error) {
	var game model.Game
	if err := c.read(ctx, gamePath(gameID), &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func (c *Client) UpdateGameTime(ctx context.Context, gameID model.GameID, elapsedSeconds int) error {
	body := map[string]int{"elapsedSeconds": elapsedSeconds}
	return c.do(ctx, http.MethodPut, gamePath(gameID)+"/time", body, nil)
}

func (c *Client) UpdateScore(ctx context.Context, gameID model.GameID, home, away int) error {
	body := map[string]int{"homeScore": home, "awayScore": away}
	return c.do(ctx, http.MethodPut, gamePath(gameID)+"/score", body, nil)
}

// SetStarters sends both lineups. The service starts a scheduled game when it
// accepts them, so callers read the new state back with GetGame.
func (c *Client) SetStarters(ctx context.Context, gameID model.GameID, home, away []model.PlayerID) error {
	body := model.LineupPayload{Home: home, Away: away}
	return c.do(ctx, http.MethodPut, gamePath(gameID)+"/starters", body, nil)
}

func (c *Client) Substitute(ctx context.Context, req model.SubstitutionRequest) error {
	return c.do(ctx, http.MethodPost, gamePath(req.GameID)+"/substitutions", req, nil)
}

func (c *Client) UpdatePlayerMinutes(ctx context.Context, gameID model.GameID, minutes model.TimeLedger) error {
	body := map[string]model.TimeLedger{"playerMinutes": minutes}
	return c.do(ctx, http.MethodPut, gamePath(gameID)+"/player-minutes", body, nil)
}

func (c *Client) AdvanceQuarter(ctx context.Context, gameID model.GameID) error {
	return c.do(ctx, http.MethodPost, gamePath(gameID)+"/quarter/advance", nil, nil)
}

func (c *Client) RecordStat(ctx context.Context, gameID model.GameID, playerID model.PlayerID, kind model.StatKind) error {
	body := model.StatPayload{PlayerID: playerID, Kind: kind}
	return c.do(ctx, http.MethodPost, gamePath(gameID)+"/stats", body, nil)
}

func (c *Client) RecordShot(ctx context.Context, gameID model.GameID, shot model.ShotRecord) error {
	return c.do(ctx, http.MethodPost, gamePath(gameID)+"/shots", shot, nil)
}

// PermissionRepository

func (c *Client) JoinGame(ctx context.Context, gameID model.GameID) (*model.JoinResult, error) {
	var result model.JoinResult
	if err := c.do(ctx, http.MethodPost, gamePath(gameID)+"/join", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) LeaveGame(ctx context.Context, gameID model.GameID) error {
	return c.do(ctx, http.MethodPost, gamePath(gameID)+"/leave", nil, nil)
}

func (c *Client) GetMyPermissions(ctx context.Context, gameID model.GameID) (*model.UserGamePermissions, error) {
	var result model.UserGamePermissions
	if err := c.read(ctx, gamePath(gameID)+"/permissions/me", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SetUserPermissions(ctx context.Context, gameID model.GameID, userID model.UserID, patch model.PermissionPatch) error {
	path := gamePath(gameID) + "/permissions/" + url.PathEscape(string(userID))
	return c.do(ctx, http.MethodPatch, path, patch, nil)
}

// Transport

func gamePath(gameID model.GameID) string {
	return "/games/" + url.PathEscape(string(gameID))
}

// read performs an idempotent GET, retrying transport failures and 5xx responses
func (c *Client) read(ctx context.Context, path string, result any) error {
	b := retry.WithMaxRetries(c.readRetries, retry.NewExponential(c.retryBase))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := c.do(ctx, http.MethodGet, path, nil, result)
		if err != nil && isRetryable(err) {
			c.logger.Debug("retrying backend read",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return retry.RetryableError(err)
		}
		return err
	})
}

type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d", e.status)
}

func isRetryable(err error) bool {
	var se *serverError
	return errors.Is(err, model.ErrNetworkFailure) || errors.As(err, &se)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	errb := oops.In("rest_backend").With("method", method).With("path", path)

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errb.Code("ENCODE_FAILED").Wrap(err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return errb.Code("REQUEST_FAILED").Wrap(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := backend.TokenFrom(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errb.Code("NETWORK_FAILURE").Wrap(fmt.Errorf("%w: %v", model.ErrNetworkFailure, err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errb.Code("NETWORK_FAILURE").Wrap(fmt.Errorf("%w: %v", model.ErrNetworkFailure, err))
	}

	if resp.StatusCode >= 400 {
		return c.statusError(errb, resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return errb.Code("DECODE_FAILED").Wrap(err)
		}
	}
	return nil
}

// statusError maps an error response to a sentinel, preferring the backend's
// error code and falling back to the HTTP status
func (c *Client) statusError(errb oops.OopsErrorBuilder, status int, body []byte) error {
	errb = errb.With("status", status)

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code != "" {
		errb = errb.With("message", errResp.Error.Message)
		if sentinel, ok := codeErrors[errResp.Error.Code]; ok {
			return errb.Code(errResp.Error.Code).Wrap(sentinel)
		}
	}

	switch {
	case status == http.StatusUnauthorized:
		return errb.Code("UNAUTHORIZED").Wrap(model.ErrNotAuthenticated)
	case status == http.StatusForbidden:
		return errb.Code("PERMISSION_DENIED").Wrap(model.ErrPermissionDenied)
	case status == http.StatusNotFound:
		return errb.Code("GAME_NOT_FOUND").Wrap(model.ErrGameNotFound)
	case status >= 500:
		return errb.Code("SERVER_ERROR").Wrap(&serverError{status: status})
	default:
		return errb.Code("REJECTED").Wrap(model.ErrBackendRejected)
	}
}
