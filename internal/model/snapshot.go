package model

import "time"

// SessionSnapshot mirrors one user's local view of a game. It is written
// through to the session cache after every local change.
type SessionSnapshot struct {
	GameID           GameID          `json:"gameId"`
	UserID           UserID          `json:"userId"`
	State            GameState       `json:"state"`
	Quarter          int             `json:"quarter"`
	RemainingSeconds int             `json:"remainingSeconds"`
	ClockRunning     bool            `json:"clockRunning"`
	HomeScore        int             `json:"homeScore"`
	AwayScore        int             `json:"awayScore"`
	HomeOnCourt      []PlayerID      `json:"homeOnCourt"`
	AwayOnCourt      []PlayerID      `json:"awayOnCourt"`
	PlayerMinutes    TimeLedger      `json:"playerMinutes"`
	PlusMinus        PlusMinusLedger `json:"plusMinus"`
	Permissions      PermissionSet   `json:"permissions"`
	IsGameCreator    bool            `json:"isGameCreator"`
	SavedAt          time.Time       `json:"savedAt"`
}
