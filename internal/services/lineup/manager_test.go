package lineup

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/testutil"
)

type ManagerSuite struct {
	suite.Suite
	manager *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	g := testutil.NewGame()
	s.manager = New(g.Home, g.Away, testutil.NopLogger())
}

func (s *ManagerSuite) setStarters() {
	s.Require().NoError(s.manager.SetStarters(
		testutil.Starters(testutil.HomePlayer),
		testutil.Starters(testutil.AwayPlayer),
	))
}

// SetStarters tests

func (s *ManagerSuite) TestSetStartersMarksExactlyFiveOnCourt() {
	s.setStarters()

	s.Equal(testutil.Starters(testutil.HomePlayer), s.manager.OnCourtIDs(model.SideHome))
	s.Equal(testutil.Starters(testutil.AwayPlayer), s.manager.OnCourtIDs(model.SideAway))
	s.Len(s.manager.Bench(model.SideHome), 3)
	s.True(s.manager.HasFullLineups())
}

func (s *ManagerSuite) TestSetStartersReplacesPreviousLineup() {
	s.setStarters()

	home := []model.PlayerID{
		testutil.HomePlayer(4), testutil.HomePlayer(5), testutil.HomePlayer(6),
		testutil.HomePlayer(7), testutil.HomePlayer(8),
	}
	s.Require().NoError(s.manager.SetStarters(home, testutil.Starters(testutil.AwayPlayer)))

	s.Equal(home, s.manager.OnCourtIDs(model.SideHome))
	s.False(s.manager.IsOnCourt(testutil.HomePlayer(1)))
}

func (s *ManagerSuite) TestSetStartersRejectsFourPlayers() {
	home := testutil.Starters(testutil.HomePlayer)[:4]

	err := s.manager.SetStarters(home, testutil.Starters(testutil.AwayPlayer))

	s.ErrorIs(err, model.ErrInvalidLineupSize)
	errutil.AssertErrorCode(s.T(), err, "INVALID_LINEUP_SIZE")
	s.Empty(s.manager.OnCourt(model.SideHome))
	s.Empty(s.manager.OnCourt(model.SideAway))
}

func (s *ManagerSuite) TestSetStartersRejectsSixPlayers() {
	away := append(testutil.Starters(testutil.AwayPlayer), testutil.AwayPlayer(6))

	err := s.manager.SetStarters(testutil.Starters(testutil.HomePlayer), away)

	s.ErrorIs(err, model.ErrInvalidLineupSize)
	errutil.AssertErrorContext(s.T(), err, "team", model.SideAway)
	s.Empty(s.manager.OnCourt(model.SideHome))
}

func (s *ManagerSuite) TestSetStartersCountsDuplicatesOnce() {
	home := testutil.Starters(testutil.HomePlayer)[:4]
	home = append(home, testutil.HomePlayer(1))

	err := s.manager.SetStarters(home, testutil.Starters(testutil.AwayPlayer))

	s.ErrorIs(err, model.ErrInvalidLineupSize)
}

func (s *ManagerSuite) TestSetStartersRejectsCrossTeamPlayer() {
	home := testutil.Starters(testutil.HomePlayer)[:4]
	home = append(home, testutil.AwayPlayer(8))

	err := s.manager.SetStarters(home, testutil.Starters(testutil.AwayPlayer))

	s.ErrorIs(err, model.ErrCrossTeamPlayer)
	errutil.AssertErrorCode(s.T(), err, "CROSS_TEAM_PLAYER")
	s.Empty(s.manager.OnCourt(model.SideHome))
}

func (s *ManagerSuite) TestValidateStartersDoesNotApply() {
	err := s.manager.ValidateStarters(
		testutil.Starters(testutil.HomePlayer),
		testutil.Starters(testutil.AwayPlayer),
	)

	s.NoError(err)
	s.False(s.manager.HasFullLineups())
}

// Substitute tests

func (s *ManagerSuite) TestSubstituteSwapsPlayers() {
	s.setStarters()

	err := s.manager.Substitute(model.SideHome, testutil.HomePlayer(1), testutil.HomePlayer(6))

	s.Require().NoError(err)
	s.False(s.manager.IsOnCourt(testutil.HomePlayer(1)))
	s.True(s.manager.IsOnCourt(testutil.HomePlayer(6)))
	s.Len(s.manager.OnCourt(model.SideHome), model.LineupSize)
	s.Len(s.manager.Bench(model.SideHome), 3)
}

func (s *ManagerSuite) TestSubstituteKeepsFiveAfterManySwaps() {
	s.setStarters()

	s.Require().NoError(s.manager.Substitute(model.SideAway, testutil.AwayPlayer(1), testutil.AwayPlayer(6)))
	s.Require().NoError(s.manager.Substitute(model.SideAway, testutil.AwayPlayer(2), testutil.AwayPlayer(7)))
	s.Require().NoError(s.manager.Substitute(model.SideAway, testutil.AwayPlayer(6), testutil.AwayPlayer(1)))

	s.Len(s.manager.OnCourt(model.SideAway), model.LineupSize)
	s.True(s.manager.IsOnCourt(testutil.AwayPlayer(1)))
	s.True(s.manager.IsOnCourt(testutil.AwayPlayer(7)))
}

func (s *ManagerSuite) TestSubstituteRejectsBenchForBench() {
	s.setStarters()

	err := s.manager.Substitute(model.SideHome, testutil.HomePlayer(6), testutil.HomePlayer(7))

	s.ErrorIs(err, model.ErrPlayerNotOnCourt)
	errutil.AssertErrorCode(s.T(), err, "PLAYER_NOT_ON_COURT")
	s.False(s.manager.IsOnCourt(testutil.HomePlayer(7)))
	s.Len(s.manager.OnCourt(model.SideHome), model.LineupSize)
}

func (s *ManagerSuite) TestSubstituteRejectsIncomingAlreadyOnCourt() {
	s.setStarters()

	err := s.manager.Substitute(model.SideHome, testutil.HomePlayer(1), testutil.HomePlayer(2))

	s.ErrorIs(err, model.ErrPlayerAlreadyOnCourt)
	s.True(s.manager.IsOnCourt(testutil.HomePlayer(1)))
	s.True(s.manager.IsOnCourt(testutil.HomePlayer(2)))
}

func (s *ManagerSuite) TestSubstituteRejectsOtherTeamsPlayer() {
	s.setStarters()

	err := s.manager.Substitute(model.SideHome, testutil.HomePlayer(1), testutil.AwayPlayer(6))

	s.ErrorIs(err, model.ErrTeamMismatch)
	errutil.AssertErrorCode(s.T(), err, "TEAM_MISMATCH")
	s.True(s.manager.IsOnCourt(testutil.HomePlayer(1)))
	s.False(s.manager.IsOnCourt(testutil.AwayPlayer(6)))
}

func (s *ManagerSuite) TestSubstituteRejectsSamePlayer() {
	s.setStarters()

	err := s.manager.Substitute(model.SideHome, testutil.HomePlayer(1), testutil.HomePlayer(1))

	s.ErrorIs(err, model.ErrTeamMismatch)
}

func (s *ManagerSuite) TestSubstituteRejectsInvalidSide() {
	s.setStarters()

	err := s.manager.Substitute("middle", testutil.HomePlayer(1), testutil.HomePlayer(6))

	s.ErrorIs(err, model.ErrInvalidTeamSide)
}

func (s *ManagerSuite) TestSubstituteRejectsWithoutStarters() {
	err := s.manager.Substitute(model.SideHome, testutil.HomePlayer(1), testutil.HomePlayer(6))

	s.ErrorIs(err, model.ErrPlayerNotOnCourt)
}

func (s *ManagerSuite) TestValidateSubstitutionDoesNotApply() {
	s.setStarters()

	s.NoError(s.manager.ValidateSubstitution(model.SideHome, testutil.HomePlayer(1), testutil.HomePlayer(6)))
	s.True(s.manager.IsOnCourt(testutil.HomePlayer(1)))
}

// Queries

func (s *ManagerSuite) TestSideOf() {
	side, ok := s.manager.SideOf(testutil.AwayPlayer(3))
	s.True(ok)
	s.Equal(model.SideAway, side)

	_, ok = s.manager.SideOf("nobody")
	s.False(ok)
}

func (s *ManagerSuite) TestReplaceOverwritesRosters() {
	s.setStarters()

	g := testutil.NewGame()
	s.manager.Replace(g.Home, g.Away)

	s.Empty(s.manager.OnCourt(model.SideHome))
	s.False(s.manager.HasFullLineups())
}

func (s *ManagerSuite) TestTeamsReturnsCopies() {
	s.setStarters()

	home, _ := s.manager.Teams()
	home.Players[0].IsOnCourt = false

	s.True(s.manager.IsOnCourt(testutil.HomePlayer(1)))
}
