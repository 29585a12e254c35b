package cli

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDecodesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"PERMISSION_DENIED","message":"Missing permission"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "tok").Post("/api/v1/games/demo/stats", map[string]string{}, nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "PERMISSION_DENIED", apiErr.Code)
	assert.Equal(t, "Missing permission (PERMISSION_DENIED)", err.Error())
}

func TestClientSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var result HealthResult
	require.NoError(t, NewClient(srv.URL+"/", "tok").Put("/x", map[string]int{"home": 1}, &result))
	assert.Equal(t, "ok", result.Status)
}

func TestClientGetRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.retryBase = time.Millisecond

	var result HealthResult
	require.NoError(t, c.Get("/api/v1/health", &result))
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryWrites(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "warming up", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Post("/api/v1/games/demo/clock/start", nil, nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "HTTP_503", apiErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParsePermissionPatch(t *testing.T) {
	patch, err := parsePermissionPatch([]string{"canEditShots=true", "canControlClock=false"})
	require.NoError(t, err)
	assert.Equal(t, true, patch["canEditShots"])
	assert.Equal(t, false, patch["canControlClock"])

	_, err = parsePermissionPatch([]string{"canEditShots"})
	assert.Error(t, err)

	_, err = parsePermissionPatch([]string{"canEditShots=maybe"})
	assert.Error(t, err)
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{600, "10:00"},
		{59, "0:59"},
		{61, "1:01"},
		{0, "0:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSeconds(tt.secs))
	}
}
