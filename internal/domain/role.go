package domain

import "strings"

// Role is the access level carried in the credential's role claim.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDataAnalyst  Role = "data analyst"
	RoleBusinessUser Role = "business user"
	RoleViewer       Role = "viewer"
)

// AllowedRoles is the fixed set of roles the voice API accepts, in display order.
var AllowedRoles = []Role{RoleAdmin, RoleDataAnalyst, RoleBusinessUser, RoleViewer}

// EnrollRoles may enroll a voice profile.
var EnrollRoles = []Role{RoleAdmin, RoleDataAnalyst, RoleBusinessUser}

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllowedRoles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
