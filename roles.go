package storefront

// UserRole is the principal's role
type UserRole = string

const (
	// RoleStandard is a regular shopper
	RoleStandard UserRole = "standard"
	// RoleModerator can curate catalog content
	RoleModerator UserRole = "moderator"
	// RoleAdmin can manage principals and orders
	RoleAdmin UserRole = "admin"
)

// ParseRole validates a raw role string
func ParseRole(raw string) (UserRole, bool) {
	switch raw {
	case RoleStandard, RoleModerator, RoleAdmin:
		return raw, true
	default:
		return "", false
	}
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	_, ok := ParseRole(r)
	return ok
}

// RoleIsAtLeast checks if a role meets the minimum required level
func RoleIsAtLeast(r, minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleStandard:  0,
		RoleModerator: 1,
		RoleAdmin:     2,
	}

	level, ok := roleHierarchy[r]
	if !ok {
		return false
	}

	minLevel, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}

	return level >= minLevel
}
