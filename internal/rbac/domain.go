package rbac

import "time"

// Permission represents an atomic capability as an (action, subject) pair.
type Permission struct {
	ID      string
	Action  string
	Subject string
	Label   string
}

// Role represents a named, reusable set of permissions.
type Role struct {
	ID            int64
	Name          string
	Description   string
	IsSystem      bool
	Permissions   []Permission
	AssignedUsers int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RoleGrant is the slice of a role an authenticated user carries around:
// the role name plus its granted permission set.
type RoleGrant struct {
	Name        string
	IsSystem    bool
	Permissions []Permission
}

// Identity describes the authenticated actor as consumed by the evaluator
// and the guard. A nil Role means the user holds no grants at all.
type Identity struct {
	ID       int64
	Email    string
	Name     string
	BranchID *int64
	Role     *RoleGrant
}

// RoleInput carries role create/update form values into the service.
type RoleInput struct {
	Name          string
	Description   string
	PermissionIDs []string
}

// Grant converts a full Role into the grant attached to an Identity.
func (r Role) Grant() *RoleGrant {
	perms := make([]Permission, len(r.Permissions))
	copy(perms, r.Permissions)
	return &RoleGrant{Name: r.Name, IsSystem: r.IsSystem, Permissions: perms}
}
