package domain

// Role is the staff role hierarchy: host < security < admin.
type Role string

const (
	RoleHost     Role = "host"
	RoleSecurity Role = "security"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleHost:     1,
	RoleSecurity: 2,
	RoleAdmin:    3,
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleHost, RoleSecurity, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// AtLeast reports whether r sits at or above min in the hierarchy.
// Unknown roles rank below everything.
func (r Role) AtLeast(min Role) bool {
	rank, ok := roleRank[r]
	return ok && rank >= roleRank[min]
}

// CanOverride reports whether the role may bypass capacity policy.
func (r Role) CanOverride() bool {
	return r.AtLeast(RoleSecurity)
}

// Actor is the authenticated staff member driving a check-in request.
type Actor struct {
	UserID int64
	Email  string
	Role   Role
}
