package model

// Permission names a single capability in a PermissionSet
type Permission string

const (
	// Stat-edit permissions
	PermEditPoints        Permission = "canEditPoints"
	PermEditRebounds      Permission = "canEditRebounds"
	PermEditAssists       Permission = "canEditAssists"
	PermEditSteals        Permission = "canEditSteals"
	PermEditBlocks        Permission = "canEditBlocks"
	PermEditTurnovers     Permission = "canEditTurnovers"
	PermEditShots         Permission = "canEditShots"
	PermEditFreeThrows    Permission = "canEditFreeThrows"
	PermEditPersonalFouls Permission = "canEditPersonalFouls"

	// Game-control permissions
	PermControlClock      Permission = "canControlClock"
	PermMakeSubstitutions Permission = "canMakeSubstitutions"
	PermEndQuarter        Permission = "canEndQuarter"
	PermSetStarters       Permission = "canSetStarters"

	// Admin permissions
	PermManagePermissions Permission = "canManagePermissions"
	PermViewAllStats      Permission = "canViewAllStats"
)

// AllPermissions returns the 15 capabilities in declaration order
func AllPermissions() []Permission {
	return []Permission{
		PermEditPoints,
		PermEditRebounds,
		PermEditAssists,
		PermEditSteals,
		PermEditBlocks,
		PermEditTurnovers,
		PermEditShots,
		PermEditFreeThrows,
		PermEditPersonalFouls,
		PermControlClock,
		PermMakeSubstitutions,
		PermEndQuarter,
		PermSetStarters,
		PermManagePermissions,
		PermViewAllStats,
	}
}

// PermissionSet is the fixed record of capabilities a user holds in a game.
// The zero value grants nothing.
type PermissionSet struct {
	CanEditPoints        bool `json:"canEditPoints"`
	CanEditRebounds      bool `json:"canEditRebounds"`
	CanEditAssists       bool `json:"canEditAssists"`
	CanEditSteals        bool `json:"canEditSteals"`
	CanEditBlocks        bool `json:"canEditBlocks"`
	CanEditTurnovers     bool `json:"canEditTurnovers"`
	CanEditShots         bool `json:"canEditShots"`
	CanEditFreeThrows    bool `json:"canEditFreeThrows"`
	CanEditPersonalFouls bool `json:"canEditPersonalFouls"`

	CanControlClock      bool `json:"canControlClock"`
	CanMakeSubstitutions bool `json:"canMakeSubstitutions"`
	CanEndQuarter        bool `json:"canEndQuarter"`
	CanSetStarters       bool `json:"canSetStarters"`

	CanManagePermissions bool `json:"canManagePermissions"`
	CanViewAllStats      bool `json:"canViewAllStats"`
}

// AllGranted returns a set with every capability enabled
func AllGranted() PermissionSet {
	var ps PermissionSet
	for _, p := range AllPermissions() {
		ps.Set(p, true)
	}
	return ps
}

// Has reports whether the capability is granted. Unknown names are never granted.
func (ps PermissionSet) Has(p Permission) bool {
	if f := ps.field(p); f != nil {
		return *f
	}
	return false
}

// Set updates a single capability. Unknown names are ignored.
func (ps *PermissionSet) Set(p Permission, v bool) {
	if f := ps.field(p); f != nil {
		*f = v
	}
}

// Granted lists the capabilities that are enabled, in declaration order
func (ps PermissionSet) Granted() []Permission {
	var out []Permission
	for _, p := range AllPermissions() {
		if ps.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Apply returns a copy of the set with the patch's present fields overwritten
func (ps PermissionSet) Apply(patch PermissionPatch) PermissionSet {
	out := ps
	for p, v := range patch {
		out.Set(p, v)
	}
	return out
}

// IsKnown reports whether p names one of the 15 capabilities
func (p Permission) IsKnown() bool {
	var ps PermissionSet
	return ps.field(p) != nil
}

// Validate returns ErrInvalidPermission if the patch names an unknown capability
func (patch PermissionPatch) Validate() error {
	for p := range patch {
		if !p.IsKnown() {
			return ErrInvalidPermission
		}
	}
	return nil
}

func (ps *PermissionSet) field(p Permission) *bool {
	switch p {
	case PermEditPoints:
		return &ps.CanEditPoints
	case PermEditRebounds:
		return &ps.CanEditRebounds
	case PermEditAssists:
		return &ps.CanEditAssists
	case PermEditSteals:
		return &ps.CanEditSteals
	case PermEditBlocks:
		return &ps.CanEditBlocks
	case PermEditTurnovers:
		return &ps.CanEditTurnovers
	case PermEditShots:
		return &ps.CanEditShots
	case PermEditFreeThrows:
		return &ps.CanEditFreeThrows
	case PermEditPersonalFouls:
		return &ps.CanEditPersonalFouls
	case PermControlClock:
		return &ps.CanControlClock
	case PermMakeSubstitutions:
		return &ps.CanMakeSubstitutions
	case PermEndQuarter:
		return &ps.CanEndQuarter
	case PermSetStarters:
		return &ps.CanSetStarters
	case PermManagePermissions:
		return &ps.CanManagePermissions
	case PermViewAllStats:
		return &ps.CanViewAllStats
	default:
		return nil
	}
}

// PermissionPatch is a partial update; only present keys are changed
type PermissionPatch map[Permission]bool

// UserGamePermissions is the server-issued permission record for one user in one game
type UserGamePermissions struct {
	GameID        GameID        `json:"gameId"`
	UserID        UserID        `json:"userId"`
	Permissions   PermissionSet `json:"permissions"`
	IsGameCreator bool          `json:"isGameCreator"`
}

// JoinResult is returned by the backend when a user joins a game view
type JoinResult struct {
	Permissions   *PermissionSet `json:"permissions,omitempty"`
	IsGameCreator bool           `json:"isGameCreator"`
}
