package response

import (
	"sort"
	"time"

	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
)

// User represents the authenticated user in API responses
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u model.User) User {
	return User{
		ID:          string(u.ID),
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
	}
}

// AuthResponse is the response for the login endpoint
type AuthResponse struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:         UserFromModel(s.User),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// LogoutResponse reports how many game sessions were closed by a logout
type LogoutResponse struct {
	ClosedSessions int `json:"closed_sessions"`
}

// Player represents a rostered player
type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Number        int    `json:"number"`
	OnCourt       bool   `json:"on_court"`
	MillisOnCourt int64  `json:"millis_on_court"`
	PlusMinus     int    `json:"plus_minus"`
}

// Team represents one side of a game
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Score   int      `json:"score"`
	Players []Player `json:"players"`
}

// Clock represents the local game clock
type Clock struct {
	Quarter          int  `json:"quarter"`
	RemainingSeconds int  `json:"remaining_seconds"`
	Running          bool `json:"running"`
	Overtime         bool `json:"overtime"`
}

// ClockFromPayload converts a clock event payload
func ClockFromPayload(p model.ClockPayload, overtime bool) Clock {
	return Clock{
		Quarter:          p.Quarter,
		RemainingSeconds: p.RemainingSeconds,
		Running:          p.Running,
		Overtime:         overtime,
	}
}

// Permissions represents the caller's effective permissions in a game
type Permissions struct {
	IsGameCreator bool            `json:"is_game_creator"`
	Granted       []string        `json:"granted"`
	Flags         map[string]bool `json:"flags"`
}

// PermissionsFromModel converts a resolved permission set
func PermissionsFromModel(ps model.PermissionSet, isCreator bool) Permissions {
	resp := Permissions{
		IsGameCreator: isCreator,
		Granted:       []string{},
		Flags:         make(map[string]bool),
	}
	for _, p := range model.AllPermissions() {
		has := ps.Has(p)
		resp.Flags[string(p)] = has
		if has {
			resp.Granted = append(resp.Granted, string(p))
		}
	}
	return resp
}

// GameState is the full local view of a game
type GameState struct {
	GameID      string      `json:"game_id"`
	State       string      `json:"state"`
	Clock       Clock       `json:"clock"`
	Home        Team        `json:"home"`
	Away        Team        `json:"away"`
	Permissions Permissions `json:"permissions"`
}

// GameStateFromModel builds a GameState from the session's game view
func GameStateFromModel(g *model.Game, ps model.PermissionSet, isCreator bool) GameState {
	return GameState{
		GameID: string(g.ID),
		State:  string(g.State),
		Clock: Clock{
			Quarter:          g.Quarter,
			RemainingSeconds: g.RemainingSeconds,
			Running:          g.ClockRunning,
			Overtime:         g.IsOvertime(),
		},
		Home:        teamFromModel(g, model.SideHome),
		Away:        teamFromModel(g, model.SideAway),
		Permissions: PermissionsFromModel(ps, isCreator),
	}
}

func teamFromModel(g *model.Game, side model.TeamSide) Team {
	team := g.Team(side)
	resp := Team{
		ID:      string(team.ID),
		Name:    team.Name,
		Score:   g.Score(side),
		Players: make([]Player, 0, len(team.Players)),
	}
	for _, p := range team.Players {
		resp.Players = append(resp.Players, Player{
			ID:            string(p.ID),
			Name:          p.Name,
			Number:        p.Number,
			OnCourt:       p.IsOnCourt,
			MillisOnCourt: g.PlayerMinutes[p.ID],
			PlusMinus:     g.PlusMinus[p.ID],
		})
	}
	return resp
}

// SessionSummary describes one open game session
type SessionSummary struct {
	GameID           string `json:"game_id"`
	State            string `json:"state"`
	Quarter          int    `json:"quarter"`
	RemainingSeconds int    `json:"remaining_seconds"`
	ClockRunning     bool   `json:"clock_running"`
	HomeScore        int    `json:"home_score"`
	AwayScore        int    `json:"away_score"`
}

// SessionSummaryFromSnapshot converts a session snapshot
func SessionSummaryFromSnapshot(s *model.SessionSnapshot) SessionSummary {
	return SessionSummary{
		GameID:           string(s.GameID),
		State:            string(s.State),
		Quarter:          s.Quarter,
		RemainingSeconds: s.RemainingSeconds,
		ClockRunning:     s.ClockRunning,
		HomeScore:        s.HomeScore,
		AwayScore:        s.AwayScore,
	}
}

// SessionList is the response for listing open sessions
type SessionList struct {
	Sessions []SessionSummary `json:"sessions"`
}

// LocalSnapshot is the cached write-through mirror of a session
type LocalSnapshot struct {
	SessionSummary
	HomeOnCourt   []string         `json:"home_on_court"`
	AwayOnCourt   []string         `json:"away_on_court"`
	PlayerMinutes map[string]int64 `json:"player_minutes"`
	PlusMinus     map[string]int   `json:"plus_minus"`
	Permissions   Permissions      `json:"permissions"`
	SavedAt       time.Time        `json:"saved_at"`
}

// LocalSnapshotFromModel converts a cached session snapshot
func LocalSnapshotFromModel(s *model.SessionSnapshot) LocalSnapshot {
	resp := LocalSnapshot{
		SessionSummary: SessionSummaryFromSnapshot(s),
		HomeOnCourt:    playerIDs(s.HomeOnCourt),
		AwayOnCourt:    playerIDs(s.AwayOnCourt),
		PlayerMinutes:  make(map[string]int64, len(s.PlayerMinutes)),
		PlusMinus:      make(map[string]int, len(s.PlusMinus)),
		Permissions:    PermissionsFromModel(s.Permissions, s.IsGameCreator),
		SavedAt:        s.SavedAt,
	}
	for id, ms := range s.PlayerMinutes {
		resp.PlayerMinutes[string(id)] = ms
	}
	for id, pm := range s.PlusMinus {
		resp.PlusMinus[string(id)] = pm
	}
	return resp
}

// Shot represents a recorded shot attempt
type Shot struct {
	PlayerID     string `json:"player_id"`
	ShotType     string `json:"shot_type"`
	Made         bool   `json:"made"`
	Points       int    `json:"points"`
	GameTime     int    `json:"game_time"`
	PlayerTimeMs int64  `json:"player_time_ms"`
}

// ShotFromModel converts a shot record
func ShotFromModel(s *model.ShotRecord) Shot {
	points := 0
	if s.Made {
		points = s.ShotType.Points()
	}
	return Shot{
		PlayerID:     string(s.PlayerID),
		ShotType:     string(s.ShotType),
		Made:         s.Made,
		Points:       points,
		GameTime:     s.GameTime,
		PlayerTimeMs: s.PlayerTimeMs,
	}
}

func playerIDs(ids []model.PlayerID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}
