package models

// Role is a workspace permission level.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// roleHierarchy is ordered lowest to highest.
var roleHierarchy = []Role{RoleViewer, RoleMember, RoleAdmin, RoleOwner}

// Rank returns the position of r in the hierarchy, or -1 for unknown roles.
func (r Role) Rank() int {
	for i, candidate := range roleHierarchy {
		if candidate == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// AtLeast reports whether r grants everything required grants.
func (r Role) AtLeast(required Role) bool {
	have, need := r.Rank(), required.Rank()
	if have < 0 || need < 0 {
		return false
	}
	return have >= need
}

// Roles returns the hierarchy, lowest first.
func Roles() []Role {
	out := make([]Role, len(roleHierarchy))
	copy(out, roleHierarchy)
	return out
}
