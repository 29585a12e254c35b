package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopstat/scorekeeper/internal/metrics"
	logtest "github.com/hoopstat/scorekeeper/internal/testutil"
)

func newRouter(t *testing.T, handler http.HandlerFunc) (*mux.Router, *logtest.LogBuffer) {
	t.Helper()
	logger, logs := logtest.CaptureLogger()

	r := mux.NewRouter()
	r.Use(Recovery(logger, DefaultPanicHandler))
	r.Use(Logging(logger))
	r.HandleFunc("/games/{game_id}", handler)
	return r, logs
}

func TestRecoveryReturns500AndLogs(t *testing.T) {
	r, logs := newRouter(t, func(w http.ResponseWriter, r *http.Request) {
		panic("scorer spilled coffee")
	})
	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/games/{game_id}", "5xx"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/games/g1", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, logs.String(), `"msg":"panic recovered"`)
	assert.Contains(t, logs.String(), "scorer spilled coffee")
	assert.Contains(t, logs.String(), `"code":"PANIC"`)

	after := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/games/{game_id}", "5xx"))
	assert.Equal(t, before+1, after)
}

func TestRecoveryRepanicsAbortHandler(t *testing.T) {
	r, _ := newRouter(t, func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/games/g1", nil))
	})
}

func TestLoggingRecordsRouteTemplate(t *testing.T) {
	r, logs := newRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})
	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/games/{game_id}", "4xx"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/games/g42", nil))
	require.Equal(t, http.StatusTeapot, rr.Code)

	out := logs.String()
	assert.Contains(t, out, `"route":"/games/{game_id}"`)
	assert.Contains(t, out, `"path":"/games/g42"`)
	assert.Contains(t, out, `"size":15`)
	assert.Contains(t, out, `"component":"http"`)

	after := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/games/{game_id}", "4xx"))
	assert.Equal(t, before+1, after)
}
