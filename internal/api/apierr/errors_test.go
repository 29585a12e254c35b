package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
	"github.com/hoopstat/scorekeeper/internal/services/gameclock"
)

func TestWriteErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"game not found", model.ErrGameNotFound, http.StatusNotFound, CodeGameNotFound},
		{"session not open", model.ErrSessionNotOpen, http.StatusNotFound, CodeSessionNotOpen},
		{"lineup size", model.ErrInvalidLineupSize, http.StatusUnprocessableEntity, CodeInvalidLineupSize},
		{"not on court", model.ErrPlayerNotOnCourt, http.StatusConflict, CodePlayerNotOnCourt},
		{"finished", model.ErrGameFinished, http.StatusConflict, CodeGameFinished},
		{"quarter over", gameclock.ErrQuarterOver, http.StatusConflict, CodeQuarterOver},
		{"permission denied", model.ErrPermissionDenied, http.StatusForbidden, CodePermissionDenied},
		{"bad credentials", model.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
		{"expired session", auth.ErrInvalidSession, http.StatusUnauthorized, CodeUnauthorized},
		{"network", model.ErrNetworkFailure, http.StatusBadGateway, CodeBackendUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
		{"invalid request", NewInvalidRequestError("bad body"), http.StatusBadRequest, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestWriteErrorSeesThroughOopsWrapping(t *testing.T) {
	err := oops.In("session").
		Code("PERMISSION_DENIED").
		With("permission", model.PermControlClock).
		Wrap(model.ErrPermissionDenied)

	assert.Equal(t, http.StatusForbidden, StatusOf(err))
}
