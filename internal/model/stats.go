package model

// StatKind is a countable, non-scoring stat category
type StatKind string

const (
	StatRebound      StatKind = "rebound"
	StatAssist       StatKind = "assist"
	StatSteal        StatKind = "steal"
	StatBlock        StatKind = "block"
	StatTurnover     StatKind = "turnover"
	StatPersonalFoul StatKind = "personal_foul"
)

// RequiredPermission returns the capability needed to record the stat
func (k StatKind) RequiredPermission() (Permission, bool) {
	switch k {
	case StatRebound:
		return PermEditRebounds, true
	case StatAssist:
		return PermEditAssists, true
	case StatSteal:
		return PermEditSteals, true
	case StatBlock:
		return PermEditBlocks, true
	case StatTurnover:
		return PermEditTurnovers, true
	case StatPersonalFoul:
		return PermEditPersonalFouls, true
	default:
		return "", false
	}
}

// ShotType classifies a shot attempt
type ShotType string

const (
	ShotTwoPoint   ShotType = "two_point"
	ShotThreePoint ShotType = "three_point"
	ShotFreeThrow  ShotType = "free_throw"
)

// Points returns the value of a made shot, or 0 for an unknown type
func (t ShotType) Points() int {
	switch t {
	case ShotTwoPoint:
		return 2
	case ShotThreePoint:
		return 3
	case ShotFreeThrow:
		return 1
	default:
		return 0
	}
}

// RequiredPermission returns the capability needed to record the shot
func (t ShotType) RequiredPermission() Permission {
	if t == ShotFreeThrow {
		return PermEditFreeThrows
	}
	return PermEditShots
}

// ShotRecord is a single shot attempt sent to the backend
type ShotRecord struct {
	PlayerID PlayerID `json:"playerId"`
	ShotType ShotType `json:"shotType"`
	Made     bool     `json:"made"`
	GameTime int      `json:"gameTime"` // seconds into the current period

	// Accumulated on-court milliseconds of the shooter when the shot was taken
	PlayerTimeMs int64 `json:"playerTimeMs"`
}
