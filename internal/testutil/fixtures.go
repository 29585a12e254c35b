package testutil

import (
	"fmt"
	"time"

	"github.com/hoopstat/scorekeeper/internal/model"
)

// Fixed IDs used by NewGame
const (
	GameID    model.GameID = "game-1"
	CreatorID model.UserID = "user-creator"
	HomeID    model.TeamID = "team-home"
	AwayID    model.TeamID = "team-away"
)

// HomePlayer returns the ID of the n-th (1-indexed) home roster player
func HomePlayer(n int) model.PlayerID {
	return model.PlayerID(fmt.Sprintf("home-%d", n))
}

// AwayPlayer returns the ID of the n-th (1-indexed) away roster player
func AwayPlayer(n int) model.PlayerID {
	return model.PlayerID(fmt.Sprintf("away-%d", n))
}

// Roster builds a team with the given number of players, all on the bench
func Roster(id model.TeamID, name string, size int, idFn func(int) model.PlayerID) model.Team {
	team := model.Team{ID: id, Name: name, Players: make([]model.Player, 0, size)}
	for i := 1; i <= size; i++ {
		team.Players = append(team.Players, model.Player{
			ID:     idFn(i),
			TeamID: id,
			Name:   fmt.Sprintf("%s #%d", name, i),
			Number: i,
		})
	}
	return team
}

// NewGame returns an in-progress first-quarter game with eight players per side,
// none of them on court.
func NewGame() *model.Game {
	return &model.Game{
		ID:                    GameID,
		CreatedBy:             CreatorID,
		State:                 model.GameStateInProgress,
		Quarter:               1,
		QuarterLengthSeconds:  model.DefaultQuarterLengthSeconds,
		OvertimeLengthSeconds: model.DefaultOvertimeLengthSeconds,
		RegulationQuarters:    model.DefaultRegulationQuarters,
		RemainingSeconds:      model.DefaultQuarterLengthSeconds,
		Home:                  Roster(HomeID, "Home", 8, HomePlayer),
		Away:                  Roster(AwayID, "Away", 8, AwayPlayer),
		UpdatedAt:             time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// NewGameWithStarters returns NewGame with players 1-5 of each side on court
func NewGameWithStarters() *model.Game {
	g := NewGame()
	for i := range g.Home.Players[:model.LineupSize] {
		g.Home.Players[i].IsOnCourt = true
		g.Away.Players[i].IsOnCourt = true
	}
	return g
}

// NewScheduledGame returns NewGame before tip-off
func NewScheduledGame() *model.Game {
	g := NewGame()
	g.State = model.GameStateScheduled
	return g
}

// Starters returns the IDs of players 1-5 produced by idFn
func Starters(idFn func(int) model.PlayerID) []model.PlayerID {
	ids := make([]model.PlayerID, model.LineupSize)
	for i := range ids {
		ids[i] = idFn(i + 1)
	}
	return ids
}
