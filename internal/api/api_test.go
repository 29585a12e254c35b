package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hoopstat/scorekeeper/internal/api/apierr"
	"github.com/hoopstat/scorekeeper/internal/api/response"
	"github.com/hoopstat/scorekeeper/internal/factory"
	"github.com/hoopstat/scorekeeper/internal/model"
)

const (
	demoGame      = "/api/v1/games/" + string(factory.DemoGameID)
	scheduledGame = "/api/v1/games/" + string(factory.ScheduledGameID)
)

var (
	homeStarters = []string{"home-1", "home-2", "home-3", "home-4", "home-5"}
	awayStarters = []string{"away-1", "away-2", "away-3", "away-4", "away-5"}
)

type APISuite struct {
	suite.Suite
	app     *factory.TestApp
	handler http.Handler
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	app, err := factory.NewTestApp()
	s.Require().NoError(err)
	s.app = app
	s.handler = app.Router()
}

func (s *APISuite) TearDownTest() {
	s.app.Close(context.Background())
}

func (s *APISuite) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *APISuite) login(username string) string {
	rr := s.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": username + "-pass",
	}, "")
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var resp response.AuthResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.SessionToken
}

func (s *APISuite) open(token string) response.GameState {
	rr := s.request(http.MethodPost, demoGame+"/session", nil, token)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	var state response.GameState
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &state))
	return state
}

func (s *APISuite) setStarters(token string) {
	rr := s.request(http.MethodPut, demoGame+"/starters", map[string]any{
		"home": homeStarters,
		"away": awayStarters,
	}, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
}

func (s *APISuite) errorCode(rr *httptest.ResponseRecorder) string {
	var resp apierr.ErrorResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp.Error.Code
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (s *APISuite) TestHealthCheck() {
	rr := s.request(http.MethodGet, "/api/v1/health", nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "ok")
}

func (s *APISuite) TestLogin() {
	rr := s.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "coach",
		"password": "coach-pass",
	}, "")
	s.Require().Equal(http.StatusOK, rr.Code)

	resp := decode[response.AuthResponse](s.T(), rr)
	s.Equal("coach", resp.User.Username)
	s.Equal(string(model.RoleUser), resp.User.Role)
	s.NotEmpty(resp.SessionToken)
}

func (s *APISuite) TestLoginWrongPassword() {
	rr := s.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "coach",
		"password": "nope",
	}, "")
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Equal(apierr.CodeInvalidCredentials, s.errorCode(rr))
}

func (s *APISuite) TestLoginMissingFields() {
	rr := s.request(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "coach"}, "")
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(apierr.CodeInvalidRequest, s.errorCode(rr))
}

func (s *APISuite) TestProtectedRoutesRequireToken() {
	rr := s.request(http.MethodGet, "/api/v1/auth/me", nil, "")
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/auth/me", nil, "not-a-token")
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Equal(apierr.CodeUnauthorized, s.errorCode(rr))
}

func (s *APISuite) TestMe() {
	token := s.login("scorer")

	rr := s.request(http.MethodGet, "/api/v1/auth/me", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code)
	user := decode[response.User](s.T(), rr)
	s.Equal("scorer", user.Username)
	s.Equal(string(model.RoleScorer), user.Role)
}

func (s *APISuite) TestOpenSessionReturnsStateAndPermissions() {
	token := s.login("coach")

	state := s.open(token)
	s.Equal(string(factory.DemoGameID), state.GameID)
	s.Equal(1, state.Clock.Quarter)
	s.Equal(600, state.Clock.RemainingSeconds)
	s.False(state.Clock.Running)
	s.True(state.Permissions.IsGameCreator)
	s.Len(state.Permissions.Granted, len(model.AllPermissions()))

	rr := s.request(http.MethodGet, "/api/v1/games", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code)
	list := decode[response.SessionList](s.T(), rr)
	s.Require().Len(list.Sessions, 1)
	s.Equal(string(factory.DemoGameID), list.Sessions[0].GameID)
}

func (s *APISuite) TestOpenUnknownGame() {
	token := s.login("coach")

	rr := s.request(http.MethodPost, "/api/v1/games/nope/session", nil, token)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal(apierr.CodeGameNotFound, s.errorCode(rr))
}

func (s *APISuite) TestActionsRequireOpenSession() {
	token := s.login("coach")

	rr := s.request(http.MethodPost, demoGame+"/clock/start", nil, token)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal(apierr.CodeSessionNotOpen, s.errorCode(rr))
}

func (s *APISuite) TestRolePermissions() {
	token := s.login("boards")
	s.open(token)

	rr := s.request(http.MethodGet, demoGame+"/permissions", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code)
	perms := decode[response.Permissions](s.T(), rr)
	s.False(perms.IsGameCreator)
	s.True(perms.Flags[string(model.PermEditRebounds)])
	s.True(perms.Flags[string(model.PermEditAssists)])
	s.False(perms.Flags[string(model.PermEditPoints)])
}

func (s *APISuite) TestStartersSubstitutionAndScore() {
	token := s.login("coach")
	s.open(token)
	s.setStarters(token)

	rr := s.request(http.MethodPost, demoGame+"/substitutions", map[string]string{
		"side":          "home",
		"player_out_id": "home-1",
		"player_in_id":  "home-6",
	}, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	state := decode[response.GameState](s.T(), rr)
	onCourt := map[string]bool{}
	for _, p := range state.Home.Players {
		if p.OnCourt {
			onCourt[p.ID] = true
		}
	}
	s.Len(onCourt, 5)
	s.True(onCourt["home-6"])
	s.False(onCourt["home-1"])

	rr = s.request(http.MethodPut, demoGame+"/score", map[string]int{"home": 3, "away": 0}, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	state = decode[response.GameState](s.T(), rr)
	s.Equal(3, state.Home.Score)
	for _, p := range state.Home.Players {
		if onCourt[p.ID] {
			s.Equal(3, p.PlusMinus, p.ID)
		}
	}
}

func (s *APISuite) TestSubstitutionValidationErrors() {
	token := s.login("coach")
	s.open(token)
	s.setStarters(token)

	rr := s.request(http.MethodPost, demoGame+"/substitutions", map[string]string{
		"side":          "home",
		"player_out_id": "home-7",
		"player_in_id":  "home-8",
	}, token)
	s.Equal(http.StatusConflict, rr.Code)
	s.Equal(apierr.CodePlayerNotOnCourt, s.errorCode(rr))

	rr = s.request(http.MethodPost, demoGame+"/substitutions", map[string]string{
		"side":          "sideline",
		"player_out_id": "home-1",
		"player_in_id":  "home-6",
	}, token)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(apierr.CodeInvalidTeamSide, s.errorCode(rr))
}

func (s *APISuite) TestStartersWrongSize() {
	token := s.login("coach")
	s.open(token)

	rr := s.request(http.MethodPut, demoGame+"/starters", map[string]any{
		"home": homeStarters[:4],
		"away": awayStarters,
	}, token)
	s.Equal(http.StatusUnprocessableEntity, rr.Code)
	s.Equal(apierr.CodeInvalidLineupSize, s.errorCode(rr))
}

func (s *APISuite) TestStartersStartScheduledGame() {
	token := s.login("coach")

	rr := s.request(http.MethodPost, scheduledGame+"/session", nil, token)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.Equal(string(model.GameStateScheduled), decode[response.GameState](s.T(), rr).State)

	rr = s.request(http.MethodPost, scheduledGame+"/clock/start", nil, token)
	s.Equal(http.StatusConflict, rr.Code)
	s.Equal(apierr.CodeGameNotInProgress, s.errorCode(rr))

	rr = s.request(http.MethodPut, scheduledGame+"/starters", map[string]any{
		"home": homeStarters,
		"away": awayStarters,
	}, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Equal(string(model.GameStateInProgress), decode[response.GameState](s.T(), rr).State)

	rr = s.request(http.MethodPost, scheduledGame+"/clock/start", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.True(decode[response.Clock](s.T(), rr).Running)

	rr = s.request(http.MethodPost, scheduledGame+"/clock/pause", nil, token)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *APISuite) TestFanCannotScore() {
	token := s.login("fan")
	s.open(token)

	rr := s.request(http.MethodPut, demoGame+"/score", map[string]int{"home": 2, "away": 0}, token)
	s.Equal(http.StatusForbidden, rr.Code)
	s.Equal(apierr.CodePermissionDenied, s.errorCode(rr))
}

func (s *APISuite) TestScoreRequiresBothSides() {
	token := s.login("coach")
	s.open(token)

	rr := s.request(http.MethodPut, demoGame+"/score", map[string]int{"home": 2}, token)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(apierr.CodeInvalidRequest, s.errorCode(rr))
}

func (s *APISuite) TestClockStartAndPause() {
	token := s.login("coach")
	s.open(token)

	rr := s.request(http.MethodPost, demoGame+"/clock/start", nil, token)
	s.Equal(http.StatusUnprocessableEntity, rr.Code)
	s.Equal(apierr.CodeInvalidLineupSize, s.errorCode(rr))

	s.setStarters(token)

	rr = s.request(http.MethodPost, demoGame+"/clock/start", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.True(decode[response.Clock](s.T(), rr).Running)

	s.app.MockClock.LastTicker().FireN(10)
	s.Eventually(func() bool {
		rr := s.request(http.MethodGet, demoGame, nil, token)
		return decode[response.GameState](s.T(), rr).Clock.RemainingSeconds == 590
	}, time.Second, 5*time.Millisecond)

	rr = s.request(http.MethodPost, demoGame+"/clock/pause", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code)
	clock := decode[response.Clock](s.T(), rr)
	s.False(clock.Running)
	s.Equal(590, clock.RemainingSeconds)
}

func (s *APISuite) TestRecordShotAndStat() {
	token := s.login("coach")
	s.open(token)
	s.setStarters(token)

	rr := s.request(http.MethodPost, demoGame+"/shots", map[string]any{
		"player_id": "away-2",
		"shot_type": "three_point",
		"made":      true,
	}, token)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	shot := decode[response.Shot](s.T(), rr)
	s.Equal(3, shot.Points)

	rr = s.request(http.MethodGet, demoGame, nil, token)
	s.Equal(3, decode[response.GameState](s.T(), rr).Away.Score)

	rr = s.request(http.MethodPost, demoGame+"/stats", map[string]string{
		"player_id": "away-2",
		"kind":      "rebound",
	}, token)
	s.Equal(http.StatusNoContent, rr.Code, rr.Body.String())

	rr = s.request(http.MethodPost, demoGame+"/stats", map[string]string{
		"player_id": "away-9",
		"kind":      "rebound",
	}, token)
	s.Equal(http.StatusConflict, rr.Code)
	s.Equal(apierr.CodePlayerNotOnCourt, s.errorCode(rr))

	rr = s.request(http.MethodPost, demoGame+"/stats", map[string]string{
		"player_id": "away-2",
		"kind":      "dunk_contest",
	}, token)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(apierr.CodeUnknownStat, s.errorCode(rr))
}

func (s *APISuite) TestPermissionPatch() {
	coach := s.login("coach")
	fan := s.login("fan")
	s.open(coach)
	s.open(fan)

	fanUser := decode[response.User](s.T(), s.request(http.MethodGet, "/api/v1/auth/me", nil, fan))

	rr := s.request(http.MethodPatch, demoGame+"/permissions/"+fanUser.ID, map[string]bool{
		string(model.PermControlClock): true,
	}, coach)
	s.Require().Equal(http.StatusNoContent, rr.Code, rr.Body.String())

	rr = s.request(http.MethodPost, demoGame+"/permissions/refresh", nil, fan)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.True(decode[response.Permissions](s.T(), rr).Flags[string(model.PermControlClock)])

	rr = s.request(http.MethodPatch, demoGame+"/permissions/"+fanUser.ID, map[string]bool{
		"canFly": true,
	}, coach)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(apierr.CodeInvalidPermission, s.errorCode(rr))

	rr = s.request(http.MethodPatch, demoGame+"/permissions/"+fanUser.ID, map[string]bool{
		string(model.PermEditPoints): true,
	}, fan)
	s.Equal(http.StatusForbidden, rr.Code)
}

func (s *APISuite) TestEndQuarter() {
	token := s.login("coach")
	s.open(token)

	rr := s.request(http.MethodPost, demoGame+"/quarter/end", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	state := decode[response.GameState](s.T(), rr)
	s.Equal(2, state.Clock.Quarter)
	s.Equal(600, state.Clock.RemainingSeconds)
}

func (s *APISuite) TestReload() {
	token := s.login("coach")
	s.open(token)

	rr := s.request(http.MethodPost, demoGame+"/reload", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(string(factory.DemoGameID), decode[response.GameState](s.T(), rr).GameID)
}

func (s *APISuite) TestLocalSnapshotSurvivesClose() {
	token := s.login("coach")
	s.open(token)
	s.setStarters(token)

	rr := s.request(http.MethodDelete, demoGame+"/session", nil, token)
	s.Require().Equal(http.StatusNoContent, rr.Code)

	rr = s.request(http.MethodGet, demoGame, nil, token)
	s.Equal(http.StatusNotFound, rr.Code)

	rr = s.request(http.MethodGet, demoGame+"/local", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	local := decode[response.LocalSnapshot](s.T(), rr)
	s.Equal(homeStarters, local.HomeOnCourt)
	s.Equal(awayStarters, local.AwayOnCourt)
}

func (s *APISuite) TestLocalSnapshotMissing() {
	token := s.login("coach")

	rr := s.request(http.MethodGet, demoGame+"/local", nil, token)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal(apierr.CodeCacheMiss, s.errorCode(rr))
}

func (s *APISuite) TestLogoutClosesSessions() {
	token := s.login("coach")
	s.open(token)

	rr := s.request(http.MethodPost, "/api/v1/auth/logout", nil, token)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(1, decode[response.LogoutResponse](s.T(), rr).ClosedSessions)

	rr = s.request(http.MethodGet, "/api/v1/auth/me", nil, token)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *APISuite) TestEventsStream() {
	server := httptest.NewServer(s.handler)
	defer server.Close()

	token := s.login("coach")
	s.open(token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+demoGame+"/events", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	s.Require().Equal("connected", readEventName(s.T(), reader))

	rr := s.request(http.MethodPut, demoGame+"/score", map[string]int{"home": 2, "away": 0}, token)
	s.Require().Equal(http.StatusOK, rr.Code)

	s.Equal(string(model.EventScoreUpdated), readEventName(s.T(), reader))
}

func (s *APISuite) TestEventsRequireOpenSession() {
	token := s.login("coach")

	rr := s.request(http.MethodGet, demoGame+"/events", nil, token)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal(apierr.CodeSessionNotOpen, s.errorCode(rr))
}

func (s *APISuite) TestMetricsEndpoint() {
	rr := s.request(http.MethodGet, "/metrics", nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "scorekeeper_open_sessions")
}

// readEventName reads SSE lines until the next event name
func readEventName(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if name, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "event: "); ok {
			return name
		}
	}
}
