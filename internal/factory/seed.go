package factory

import (
	"fmt"
	"time"

	"github.com/hoopstat/scorekeeper/internal/backend/memory"
	"github.com/hoopstat/scorekeeper/internal/config"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// Games created by SeedDemo. DemoGameID is already under way, ScheduledGameID
// starts once its starters are set.
const (
	DemoGameID      model.GameID = "demo"
	ScheduledGameID model.GameID = "exhibition"
)

// DemoUser is an account created by SeedDemo
type DemoUser struct {
	Username string
	Password string
	Name     string
	Role     model.Role
}

// DemoUsers are the accounts created by SeedDemo. The first one creates the
// demo game.
var DemoUsers = []DemoUser{
	{Username: "coach", Password: "coach-pass", Name: "Head Coach", Role: model.RoleUser},
	{Username: "scorer", Password: "scorer-pass", Name: "Table Scorer", Role: model.RoleScorer},
	{Username: "boards", Password: "boards-pass", Name: "Rebound Tracker", Role: model.RoleRebounderAssists},
	{Username: "admin", Password: "admin-pass", Name: "League Admin", Role: model.RoleAdmin},
	{Username: "fan", Password: "fan-pass", Name: "Fan", Role: model.RoleUser},
}

const demoRosterSize = 10

// SeedDemo fills the reference backend with the demo accounts, one
// in-progress game and one scheduled game, each with two full benches
func SeedDemo(b *memory.Backend, cfg config.GameConfig) error {
	var creator model.UserID
	for i, u := range DemoUsers {
		user, err := b.RegisterUser(u.Username, u.Password, u.Name, u.Role)
		if err != nil {
			return fmt.Errorf("register %s: %w", u.Username, err)
		}
		if i == 0 {
			creator = user.ID
		}
	}

	b.AddGame(demoGame(DemoGameID, model.GameStateInProgress, creator, cfg))
	b.AddGame(demoGame(ScheduledGameID, model.GameStateScheduled, creator, cfg))
	return nil
}

func demoGame(id model.GameID, state model.GameState, creator model.UserID, cfg config.GameConfig) *model.Game {
	return &model.Game{
		ID:                    id,
		CreatedBy:             creator,
		State:                 state,
		Quarter:               1,
		QuarterLengthSeconds:  cfg.QuarterLength,
		OvertimeLengthSeconds: cfg.OvertimeLength,
		RegulationQuarters:    cfg.RegulationQuarters,
		RemainingSeconds:      cfg.QuarterLength,
		Home:                  demoTeam("home", "Harbor Hawks"),
		Away:                  demoTeam("away", "Valley Vipers"),
		UpdatedAt:             time.Now().UTC(),
	}
}

func demoTeam(prefix, name string) model.Team {
	team := model.Team{
		ID:      model.TeamID(prefix),
		Name:    name,
		Players: make([]model.Player, 0, demoRosterSize),
	}
	for n := 1; n <= demoRosterSize; n++ {
		team.Players = append(team.Players, model.Player{
			ID:     model.PlayerID(fmt.Sprintf("%s-%d", prefix, n)),
			TeamID: team.ID,
			Name:   fmt.Sprintf("%s #%d", name, n),
			Number: n,
		})
	}
	return team
}
