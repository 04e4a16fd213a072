package rbac

import "referral-platform/internal/users"

// RoleSet is a fixed-size bitmask over the enumerated roles.
// Membership is one AND regardless of how many roles are allowed.
type RoleSet uint8

func bit(r users.Role) RoleSet {
	switch r {
	case users.RoleEmployee:
		return 1 << 0
	case users.RoleHR:
		return 1 << 1
	case users.RoleAdmin:
		return 1 << 2
	default:
		return 0
	}
}

// NewRoleSet builds a set from an explicit list. Unknown roles are ignored.
// There is no hierarchy: admin is not implied by HR, every permitted role must be listed.
func NewRoleSet(roles ...users.Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= bit(r)
	}
	return s
}

func (s RoleSet) Contains(r users.Role) bool { return s&bit(r) != 0 }
