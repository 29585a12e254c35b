package model

import "time"

// GameID uniquely identifies a game
type GameID string

// GameState is the lifecycle phase of a game
type GameState string

const (
	GameStateScheduled  GameState = "scheduled"
	GameStateInProgress GameState = "in_progress"
	GameStateFinished   GameState = "finished"
)

// Default timing for a game
const (
	DefaultQuarterLengthSeconds  = 600
	DefaultOvertimeLengthSeconds = 300
	DefaultRegulationQuarters    = 4
	LineupSize                   = 5
)

// Game is a snapshot of a game as held by the backend
type Game struct {
	ID        GameID    `json:"id"`
	CreatedBy UserID    `json:"createdBy"`
	State     GameState `json:"state"`

	Quarter               int `json:"quarter"` // 1-indexed; 5+ is overtime
	QuarterLengthSeconds  int `json:"quarterLengthSeconds"`
	OvertimeLengthSeconds int `json:"overtimeLengthSeconds"`
	RegulationQuarters    int `json:"regulationQuarters"`

	// Clock as last reported to the backend
	RemainingSeconds int  `json:"remainingSeconds"`
	ClockRunning     bool `json:"clockRunning"`

	HomeScore int  `json:"homeScore"`
	AwayScore int  `json:"awayScore"`
	Home      Team `json:"home"`
	Away      Team `json:"away"`

	// Backend-computed ledgers. Nil when the backend has not computed them.
	PlayerMinutes map[PlayerID]int64 `json:"playerMinutes,omitempty"`
	PlusMinus     map[PlayerID]int   `json:"plusMinus,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Team returns the roster for a side
func (g *Game) Team(side TeamSide) *Team {
	if side == SideAway {
		return &g.Away
	}
	return &g.Home
}

// SideOf returns the side a player is rostered on
func (g *Game) SideOf(id PlayerID) (TeamSide, bool) {
	if g.Home.Has(id) {
		return SideHome, true
	}
	if g.Away.Has(id) {
		return SideAway, true
	}
	return "", false
}

// IsOvertime reports whether the current period is past regulation
func (g *Game) IsOvertime() bool {
	return g.Quarter > g.regulationQuarters()
}

// PeriodLengthSeconds returns the configured length of the current period
func (g *Game) PeriodLengthSeconds() int {
	return g.PeriodLengthFor(g.Quarter)
}

// PeriodLengthFor returns the configured length of the given period
func (g *Game) PeriodLengthFor(quarter int) int {
	if quarter > g.regulationQuarters() {
		if g.OvertimeLengthSeconds > 0 {
			return g.OvertimeLengthSeconds
		}
		return DefaultOvertimeLengthSeconds
	}
	if g.QuarterLengthSeconds > 0 {
		return g.QuarterLengthSeconds
	}
	return DefaultQuarterLengthSeconds
}

func (g *Game) regulationQuarters() int {
	if g.RegulationQuarters > 0 {
		return g.RegulationQuarters
	}
	return DefaultRegulationQuarters
}

// Score returns the score for a side
func (g *Game) Score(side TeamSide) int {
	if side == SideAway {
		return g.AwayScore
	}
	return g.HomeScore
}

// Clone returns a deep copy of the snapshot
func (g *Game) Clone() *Game {
	out := *g
	out.Home = g.Home.Clone()
	out.Away = g.Away.Clone()
	if g.PlayerMinutes != nil {
		out.PlayerMinutes = make(map[PlayerID]int64, len(g.PlayerMinutes))
		for k, v := range g.PlayerMinutes {
			out.PlayerMinutes[k] = v
		}
	}
	if g.PlusMinus != nil {
		out.PlusMinus = make(map[PlayerID]int, len(g.PlusMinus))
		for k, v := range g.PlusMinus {
			out.PlusMinus[k] = v
		}
	}
	return &out
}

// SubstitutionRequest asks the backend to swap one on-court player for a bench player
type SubstitutionRequest struct {
	GameID          GameID   `json:"gameId"`
	TeamSide        TeamSide `json:"teamSide"`
	PlayerOutID     PlayerID `json:"playerOutId"`
	PlayerInID      PlayerID `json:"playerInId"`
	GameTimeElapsed int      `json:"gameTimeElapsed"` // seconds into the current period
}
