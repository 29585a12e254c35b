package permission

import "github.com/hoopstat/scorekeeper/internal/model"

// DefaultsFor returns the baseline permission set for a role.
// It is total: unrecognized roles get an all-false set.
func DefaultsFor(role model.Role) model.PermissionSet {
	switch role {
	case model.RoleAdmin:
		return model.AllGranted()

	case model.RoleScorer:
		return model.PermissionSet{
			CanEditPoints:     true,
			CanEditShots:      true,
			CanEditFreeThrows: true,
			CanViewAllStats:   true,
		}

	case model.RoleRebounderAssists:
		return model.PermissionSet{
			CanEditRebounds:  true,
			CanEditAssists:   true,
			CanEditTurnovers: true,
			CanViewAllStats:  true,
		}

	case model.RoleStealsBlocks:
		return model.PermissionSet{
			CanEditSteals:   true,
			CanEditBlocks:   true,
			CanViewAllStats: true,
		}

	case model.RoleAllAround:
		// Full stat access without clock authority
		return model.PermissionSet{
			CanEditPoints:        true,
			CanEditRebounds:      true,
			CanEditAssists:       true,
			CanEditSteals:        true,
			CanEditBlocks:        true,
			CanEditTurnovers:     true,
			CanEditShots:         true,
			CanEditFreeThrows:    true,
			CanEditPersonalFouls: true,
			CanViewAllStats:      true,
		}

	case model.RoleUser:
		return model.PermissionSet{}

	default:
		return model.PermissionSet{}
	}
}
