package model

import "strings"

// Role is the coarse role assigned to a user at registration
type Role string

const (
	RoleUser             Role = "USER"
	RoleAdmin            Role = "ADMIN"
	RoleScorer           Role = "SCORER"
	RoleRebounderAssists Role = "REBOUNDER_ASSISTS"
	RoleStealsBlocks     Role = "STEALS_BLOCKS"
	RoleAllAround        Role = "ALL_AROUND"
)

// AllRoles returns every known role
func AllRoles() []Role {
	return []Role{
		RoleUser,
		RoleAdmin,
		RoleScorer,
		RoleRebounderAssists,
		RoleStealsBlocks,
		RoleAllAround,
	}
}

// ParseRole normalizes a role string. Unknown values are returned as-is and
// resolve to an all-false permission set.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// IsKnown reports whether the role is one of the defined roles
func (r Role) IsKnown() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}
