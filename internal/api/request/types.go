package request

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SetStartersRequest is the request body for setting both starting lineups
type SetStartersRequest struct {
	Home []string `json:"home"`
	Away []string `json:"away"`
}

// SubstitutionRequest is the request body for a substitution
type SubstitutionRequest struct {
	Side        string `json:"side"`
	PlayerOutID string `json:"player_out_id"`
	PlayerInID  string `json:"player_in_id"`
}

// UpdateScoreRequest is the request body for setting the score.
// Pointers distinguish a missing field from zero.
type UpdateScoreRequest struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// RecordStatRequest is the request body for recording a stat
type RecordStatRequest struct {
	PlayerID string `json:"player_id"`
	Kind     string `json:"kind"`
}

// RecordShotRequest is the request body for recording a shot attempt
type RecordShotRequest struct {
	PlayerID string `json:"player_id"`
	ShotType string `json:"shot_type"`
	Made     bool   `json:"made"`
}

// PermissionPatchRequest maps permission names to their new values.
// Only the keys present are changed.
type PermissionPatchRequest map[string]bool
