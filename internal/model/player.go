package model

// PlayerID uniquely identifies a rostered player
type PlayerID string

// TeamID uniquely identifies a team
type TeamID string

// TeamSide selects one of the two teams in a game
type TeamSide string

const (
	SideHome TeamSide = "home"
	SideAway TeamSide = "away"
)

// Valid reports whether the side is home or away
func (s TeamSide) Valid() bool {
	return s == SideHome || s == SideAway
}

// Opponent returns the other side
func (s TeamSide) Opponent() TeamSide {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

// Player is a rostered player. IsOnCourt is only meaningful while a game is in progress.
type Player struct {
	ID        PlayerID `json:"id"`
	TeamID    TeamID   `json:"teamId"`
	Name      string   `json:"name"`
	Number    int      `json:"number"`
	IsOnCourt bool     `json:"isOnCourt"`
}

// Team is one side's roster
type Team struct {
	ID      TeamID   `json:"id"`
	Name    string   `json:"name"`
	Players []Player `json:"players"`
}

// Player returns the rostered player with the given ID, or nil
func (t *Team) Player(id PlayerID) *Player {
	for i := range t.Players {
		if t.Players[i].ID == id {
			return &t.Players[i]
		}
	}
	return nil
}

// Has reports whether the player is on this roster
func (t *Team) Has(id PlayerID) bool {
	return t.Player(id) != nil
}

// OnCourtCount returns the number of players flagged on court
func (t *Team) OnCourtCount() int {
	n := 0
	for _, p := range t.Players {
		if p.IsOnCourt {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the team
func (t Team) Clone() Team {
	players := make([]Player, len(t.Players))
	copy(players, t.Players)
	t.Players = players
	return t
}
