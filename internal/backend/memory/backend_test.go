package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/hoopstat/scorekeeper/internal/backend"
	"github.com/hoopstat/scorekeeper/internal/dependencies/mocks"
	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/testutil"
)

type BackendSuite struct {
	suite.Suite
	backend *Backend
	clock   *mocks.MockClock
	ctx     context.Context

	creatorCtx context.Context
	scorerCtx  context.Context
	reboundCtx context.Context
	viewerCtx  context.Context
	viewer     *model.User
	gameID     model.GameID
}

func TestBackendSuite(t *testing.T) {
	suite.Run(t, new(BackendSuite))
}

func (s *BackendSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.backend = New(s.clock, mocks.NewMockIDGenerator(), testutil.NopLogger())

	creator := s.register("coach", model.RoleUser)
	s.register("scorer", model.RoleScorer)
	s.register("rebounder", model.RoleRebounderAssists)
	s.viewer = s.register("viewer", model.RoleUser)

	game := testutil.NewGameWithStarters()
	game.CreatedBy = creator.ID
	s.gameID = game.ID
	s.backend.AddGame(game)

	s.creatorCtx = s.login("coach")
	s.scorerCtx = s.login("scorer")
	s.reboundCtx = s.login("rebounder")
	s.viewerCtx = s.login("viewer")
}

func (s *BackendSuite) register(username string, role model.Role) *model.User {
	user, err := s.backend.RegisterUser(username, username+"-pw", username, role)
	s.Require().NoError(err)
	return user
}

func (s *BackendSuite) login(username string) context.Context {
	result, err := s.backend.Login(s.ctx, username, username+"-pw")
	s.Require().NoError(err)
	return backend.WithToken(s.ctx, result.Token)
}

func (s *BackendSuite) game() *model.Game {
	g, err := s.backend.GetGame(s.creatorCtx, s.gameID)
	s.Require().NoError(err)
	return g
}

// Auth tests

func (s *BackendSuite) TestLoginRejectsWrongPassword() {
	_, err := s.backend.Login(s.ctx, "coach", "nope")
	s.ErrorIs(err, model.ErrInvalidCredentials)

	_, err = s.backend.Login(s.ctx, "nobody", "nope")
	s.ErrorIs(err, model.ErrInvalidCredentials)
}

func (s *BackendSuite) TestRegisterRejectsDuplicateUsername() {
	_, err := s.backend.RegisterUser("coach", "x", "Coach", model.RoleUser)
	s.ErrorIs(err, ErrUsernameExists)
}

func (s *BackendSuite) TestLogoutInvalidatesToken() {
	token, _ := backend.TokenFrom(s.viewerCtx)
	s.Require().NoError(s.backend.Logout(s.ctx, token))

	_, err := s.backend.GetGame(s.viewerCtx, s.gameID)
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *BackendSuite) TestGetGameRequiresAuthentication() {
	_, err := s.backend.GetGame(s.ctx, s.gameID)
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *BackendSuite) TestGetGameNotFound() {
	_, err := s.backend.GetGame(s.viewerCtx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
	errutil.AssertErrorCode(s.T(), err, "GAME_NOT_FOUND")
}

// Permission tests

func (s *BackendSuite) TestJoinGameReportsCreator() {
	result, err := s.backend.JoinGame(s.creatorCtx, s.gameID)
	s.Require().NoError(err)

	s.True(result.IsGameCreator)
	s.Nil(result.Permissions)
}

func (s *BackendSuite) TestJoinGameReturnsIssuedPermissions() {
	s.backend.GrantPermissions(s.gameID, s.viewer.ID, model.PermissionSet{CanEditSteals: true})

	result, err := s.backend.JoinGame(s.viewerCtx, s.gameID)
	s.Require().NoError(err)

	s.False(result.IsGameCreator)
	s.Require().NotNil(result.Permissions)
	s.True(result.Permissions.CanEditSteals)
	s.True(s.backend.IsViewing(s.gameID, s.viewer.ID))
}

func (s *BackendSuite) TestLeaveGame() {
	_, err := s.backend.JoinGame(s.viewerCtx, s.gameID)
	s.Require().NoError(err)

	s.Require().NoError(s.backend.LeaveGame(s.viewerCtx, s.gameID))
	s.False(s.backend.IsViewing(s.gameID, s.viewer.ID))
}

func (s *BackendSuite) TestGetMyPermissionsFallsBackToRole() {
	perms, err := s.backend.GetMyPermissions(s.scorerCtx, s.gameID)
	s.Require().NoError(err)

	s.True(perms.Permissions.CanEditPoints)
	s.False(perms.Permissions.CanControlClock)
}

func (s *BackendSuite) TestSetUserPermissionsPatchesOnlyPresentKeys() {
	err := s.backend.SetUserPermissions(s.creatorCtx, s.gameID, s.viewer.ID, model.PermissionPatch{
		model.PermEditRebounds: true,
	})
	s.Require().NoError(err)

	perms, err := s.backend.GetMyPermissions(s.viewerCtx, s.gameID)
	s.Require().NoError(err)
	s.Equal([]model.Permission{model.PermEditRebounds}, perms.Permissions.Granted())
}

func (s *BackendSuite) TestSetUserPermissionsRequiresManagePermission() {
	err := s.backend.SetUserPermissions(s.scorerCtx, s.gameID, s.viewer.ID, model.PermissionPatch{
		model.PermEditRebounds: true,
	})
	s.ErrorIs(err, model.ErrPermissionDenied)
}

func (s *BackendSuite) TestSetUserPermissionsRejectsUnknownFlag() {
	err := s.backend.SetUserPermissions(s.creatorCtx, s.gameID, s.viewer.ID, model.PermissionPatch{
		"canFly": true,
	})
	s.ErrorIs(err, model.ErrInvalidPermission)
}

func (s *BackendSuite) TestSetUserPermissionsUnknownUser() {
	err := s.backend.SetUserPermissions(s.creatorCtx, s.gameID, "u_ghost", model.PermissionPatch{
		model.PermEditRebounds: true,
	})
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Lineup tests

func (s *BackendSuite) TestSubstituteRecordsAudit() {
	req := model.SubstitutionRequest{
		GameID:          s.gameID,
		TeamSide:        model.SideHome,
		PlayerOutID:     testutil.HomePlayer(1),
		PlayerInID:      testutil.HomePlayer(6),
		GameTimeElapsed: 42,
	}
	s.Require().NoError(s.backend.Substitute(s.creatorCtx, req))

	g := s.game()
	s.False(g.Home.Player(testutil.HomePlayer(1)).IsOnCourt)
	s.True(g.Home.Player(testutil.HomePlayer(6)).IsOnCourt)

	audit := s.backend.Substitutions(s.gameID)
	s.Require().Len(audit, 1)
	s.Equal(req, audit[0].Request)
	s.Equal(1, audit[0].Quarter)
}

func (s *BackendSuite) TestSubstituteDeniedForViewer() {
	err := s.backend.Substitute(s.viewerCtx, model.SubstitutionRequest{
		GameID:      s.gameID,
		TeamSide:    model.SideHome,
		PlayerOutID: testutil.HomePlayer(1),
		PlayerInID:  testutil.HomePlayer(6),
	})

	s.ErrorIs(err, model.ErrPermissionDenied)
	s.True(s.game().Home.Player(testutil.HomePlayer(1)).IsOnCourt)
	s.Empty(s.backend.Substitutions(s.gameID))
}

func (s *BackendSuite) TestSetStartersValidatesLineup() {
	err := s.backend.SetStarters(s.creatorCtx, s.gameID,
		testutil.Starters(testutil.HomePlayer)[:4],
		testutil.Starters(testutil.AwayPlayer),
	)
	s.ErrorIs(err, model.ErrInvalidLineupSize)
}

func (s *BackendSuite) addScheduledGame() model.GameID {
	game := testutil.NewScheduledGame()
	game.ID = "scheduled"
	game.CreatedBy = s.game().CreatedBy
	game.PlayerMinutes = map[model.PlayerID]int64{testutil.HomePlayer(2): 30_000}
	game.PlusMinus = map[model.PlayerID]int{testutil.AwayPlayer(2): -3}
	s.backend.AddGame(game)
	return game.ID
}

func (s *BackendSuite) TestSetStartersStartsScheduledGame() {
	gameID := s.addScheduledGame()
	s.clock.Advance(time.Minute)

	err := s.backend.SetStarters(s.creatorCtx, gameID,
		testutil.Starters(testutil.HomePlayer),
		testutil.Starters(testutil.AwayPlayer),
	)
	s.Require().NoError(err)

	g, err := s.backend.GetGame(s.creatorCtx, gameID)
	s.Require().NoError(err)
	s.Equal(model.GameStateInProgress, g.State)
	s.Empty(g.PlayerMinutes)
	s.Empty(g.PlusMinus)
	s.Equal(model.LineupSize, g.Home.OnCourtCount())
	s.Equal(s.clock.Now(), g.UpdatedAt)
}

func (s *BackendSuite) TestScheduledGameAcceptsOnlyStarters() {
	gameID := s.addScheduledGame()

	err := s.backend.UpdateScore(s.scorerCtx, gameID, 2, 0)
	s.ErrorIs(err, model.ErrGameNotInProgress)
	errutil.AssertErrorCode(s.T(), err, "GAME_NOT_IN_PROGRESS")

	err = s.backend.SetStarters(s.creatorCtx, gameID,
		testutil.Starters(testutil.HomePlayer)[:4],
		testutil.Starters(testutil.AwayPlayer),
	)
	s.ErrorIs(err, model.ErrInvalidLineupSize)

	err = s.backend.SetStarters(s.viewerCtx, gameID,
		testutil.Starters(testutil.HomePlayer),
		testutil.Starters(testutil.AwayPlayer),
	)
	s.ErrorIs(err, model.ErrPermissionDenied)

	g, err := s.backend.GetGame(s.creatorCtx, gameID)
	s.Require().NoError(err)
	s.Equal(model.GameStateScheduled, g.State)
	s.Equal(int64(30_000), g.PlayerMinutes[testutil.HomePlayer(2)])
}

func (s *BackendSuite) TestSetStartersOnFinishedGame() {
	s.Require().NoError(s.backend.UpdateScore(s.scorerCtx, s.gameID, 2, 0))
	for i := 0; i < 4; i++ {
		s.Require().NoError(s.backend.AdvanceQuarter(s.creatorCtx, s.gameID))
	}
	s.Require().Equal(model.GameStateFinished, s.game().State)

	err := s.backend.SetStarters(s.creatorCtx, s.gameID,
		testutil.Starters(testutil.HomePlayer),
		testutil.Starters(testutil.AwayPlayer),
	)
	s.ErrorIs(err, model.ErrGameFinished)
}

// Score and stats tests

func (s *BackendSuite) TestUpdateScoreComputesPlusMinus() {
	s.Require().NoError(s.backend.UpdateScore(s.scorerCtx, s.gameID, 2, 0))

	g := s.game()
	s.Equal(2, g.HomeScore)
	s.Equal(2, g.PlusMinus[testutil.HomePlayer(1)])
	s.Equal(-2, g.PlusMinus[testutil.AwayPlayer(1)])
	s.Equal(0, g.PlusMinus[testutil.HomePlayer(6)])
}

func (s *BackendSuite) TestUpdateScoreRejectsNegative() {
	err := s.backend.UpdateScore(s.scorerCtx, s.gameID, -1, 0)
	s.ErrorIs(err, model.ErrInvalidScore)
}

func (s *BackendSuite) TestRecordStatChecksCategoryPermission() {
	err := s.backend.RecordStat(s.scorerCtx, s.gameID, testutil.HomePlayer(1), model.StatRebound)
	s.ErrorIs(err, model.ErrPermissionDenied)

	err = s.backend.RecordStat(s.reboundCtx, s.gameID, testutil.HomePlayer(1), model.StatRebound)
	s.Require().NoError(err)
	s.Equal(1, s.backend.Stats(s.gameID)[testutil.HomePlayer(1)][model.StatRebound])
}

func (s *BackendSuite) TestRecordStatRequiresOnCourtPlayer() {
	err := s.backend.RecordStat(s.reboundCtx, s.gameID, testutil.HomePlayer(7), model.StatAssist)
	s.ErrorIs(err, model.ErrPlayerNotOnCourt)
}

func (s *BackendSuite) TestRecordStatRejectsUnknownKind() {
	err := s.backend.RecordStat(s.reboundCtx, s.gameID, testutil.HomePlayer(1), "dunk")
	s.ErrorIs(err, model.ErrUnknownStat)
}

func (s *BackendSuite) TestRecordShot() {
	shot := model.ShotRecord{PlayerID: testutil.AwayPlayer(2), ShotType: model.ShotFreeThrow, Made: true, GameTime: 30}
	s.Require().NoError(s.backend.RecordShot(s.scorerCtx, s.gameID, shot))

	s.Equal([]model.ShotRecord{shot}, s.backend.Shots(s.gameID))
}

// Clock tests

func (s *BackendSuite) TestUpdateGameTimeSetsRemaining() {
	s.Require().NoError(s.backend.UpdateGameTime(s.creatorCtx, s.gameID, 45))
	s.Equal(555, s.game().RemainingSeconds)

	s.Require().NoError(s.backend.UpdateGameTime(s.creatorCtx, s.gameID, 9999))
	s.Equal(0, s.game().RemainingSeconds)
}

func (s *BackendSuite) TestUpdateGameTimeRequiresClockControl() {
	err := s.backend.UpdateGameTime(s.scorerCtx, s.gameID, 45)
	s.ErrorIs(err, model.ErrPermissionDenied)
}

func (s *BackendSuite) TestUpdatePlayerMinutes() {
	ledger := model.TimeLedger{testutil.HomePlayer(1): 61000}
	s.Require().NoError(s.backend.UpdatePlayerMinutes(s.creatorCtx, s.gameID, ledger))

	s.Equal(int64(61000), s.game().PlayerMinutes[testutil.HomePlayer(1)])

	err := s.backend.UpdatePlayerMinutes(s.creatorCtx, s.gameID, model.TimeLedger{"ghost": 1})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *BackendSuite) TestAdvanceQuarterInRegulation() {
	s.Require().NoError(s.backend.AdvanceQuarter(s.creatorCtx, s.gameID))

	g := s.game()
	s.Equal(2, g.Quarter)
	s.Equal(600, g.RemainingSeconds)
	s.Equal(model.GameStateInProgress, g.State)
}

func (s *BackendSuite) TestAdvanceQuarterTiedGoesToOvertime() {
	for i := 0; i < 4; i++ {
		s.Require().NoError(s.backend.AdvanceQuarter(s.creatorCtx, s.gameID))
	}

	g := s.game()
	s.Equal(5, g.Quarter)
	s.True(g.IsOvertime())
	s.Equal(300, g.RemainingSeconds)
}

func (s *BackendSuite) TestAdvanceQuarterFinishesDecidedGame() {
	s.Require().NoError(s.backend.UpdateScore(s.scorerCtx, s.gameID, 80, 75))
	for i := 0; i < 4; i++ {
		s.Require().NoError(s.backend.AdvanceQuarter(s.creatorCtx, s.gameID))
	}

	s.Equal(model.GameStateFinished, s.game().State)

	err := s.backend.UpdateScore(s.scorerCtx, s.gameID, 82, 75)
	s.ErrorIs(err, model.ErrGameFinished)
}

func (s *BackendSuite) TestAdvanceQuarterDeniedForScorer() {
	err := s.backend.AdvanceQuarter(s.scorerCtx, s.gameID)
	s.ErrorIs(err, model.ErrPermissionDenied)
}
