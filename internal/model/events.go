package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Realtime events exchanged with the backend
	EventSubstitution  EventType = "substitution"
	EventStatRecorded  EventType = "stat_recorded"
	EventShotRecorded  EventType = "shot_recorded"
	EventScoreUpdated  EventType = "score_updated"
	EventLineupSet     EventType = "lineup_set"
	EventQuarterEnded  EventType = "quarter_ended"
	EventPermissions   EventType = "permissions_changed"
	EventGameRefreshed EventType = "game_refreshed"

	// Local session events sent to UI clients
	EventClockTick    EventType = "clock_tick"
	EventClockStarted EventType = "clock_started"
	EventClockPaused  EventType = "clock_paused"
	EventSessionState EventType = "session_state"
	EventSessionEnded EventType = "session_ended"
)

// Event is the base structure for all events
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	GameID    GameID    `json:"gameId"`
	UserID    UserID    `json:"userId,omitempty"` // The user who triggered the event
	Source    string    `json:"source,omitempty"` // The session that produced the event
	Payload   any       `json:"payload,omitempty"`
}

// SubstitutionPayload contains data for substitution events
type SubstitutionPayload struct {
	TeamSide    TeamSide `json:"teamSide"`
	PlayerOutID PlayerID `json:"playerOutId"`
	PlayerInID  PlayerID `json:"playerInId"`
	GameTime    int      `json:"gameTime"`
}

// StatPayload contains data for stat recorded events
type StatPayload struct {
	PlayerID PlayerID `json:"playerId"`
	Kind     StatKind `json:"kind"`
}

// ShotPayload contains data for shot recorded events
type ShotPayload struct {
	Shot ShotRecord `json:"shot"`
}

// ScorePayload contains data for score updated events
type ScorePayload struct {
	HomeScore int `json:"homeScore"`
	AwayScore int `json:"awayScore"`
}

// LineupPayload contains data for lineup set events
type LineupPayload struct {
	Home []PlayerID `json:"home"`
	Away []PlayerID `json:"away"`
}

// QuarterEndedPayload contains data for quarter ended events
type QuarterEndedPayload struct {
	Quarter int `json:"quarter"`
}

// ClockPayload contains data for local clock events
type ClockPayload struct {
	Quarter          int  `json:"quarter"`
	RemainingSeconds int  `json:"remainingSeconds"`
	Running          bool `json:"running"`
}

// PermissionsPayload contains data for permission change events
type PermissionsPayload struct {
	UserID UserID          `json:"userId"`
	Patch  PermissionPatch `json:"patch"`
}
