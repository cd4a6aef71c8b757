package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akademia-app/akademia/internal/rbac"
)

func teacherIdentity() *rbac.Identity {
	return &rbac.Identity{
		ID:    7,
		Email: "guru@akademia.test",
		Role: &rbac.RoleGrant{
			Name: "TEACHER",
			Permissions: []rbac.Permission{
				{ID: "read:course", Action: "read", Subject: "course"},
			},
		},
	}
}

func TestHasPermissionExactMatch(t *testing.T) {
	identity := teacherIdentity()

	assert.True(t, rbac.HasPermission(identity, "read", "course"))
	assert.False(t, rbac.HasPermission(identity, "manage", "course"))
	assert.False(t, rbac.HasPermission(identity, "read", "finance"))
	assert.False(t, rbac.HasPermission(identity, "delete", "course"))
}

func TestHasPermissionNormalisesInput(t *testing.T) {
	identity := teacherIdentity()

	assert.True(t, rbac.HasPermission(identity, " Read ", "COURSE"))
	assert.False(t, rbac.HasPermission(identity, "", "course"))
	assert.False(t, rbac.HasPermission(identity, "read", "  "))
}

func TestHasPermissionWithoutRole(t *testing.T) {
	identity := &rbac.Identity{ID: 9, Email: "tamu@akademia.test"}

	for _, p := range rbac.Catalog() {
		assert.False(t, rbac.HasPermission(identity, p.Action, p.Subject),
			"no-role identity must be denied %s", p.ID)
	}
	assert.False(t, rbac.HasPermission(nil, "read", "course"))
}

func TestHasPermissionEmptyPermissionSet(t *testing.T) {
	identity := &rbac.Identity{ID: 3, Role: &rbac.RoleGrant{Name: "EMPTY"}}

	assert.False(t, rbac.HasPermission(identity, "read", "course"))
	assert.False(t, rbac.HasPermission(identity, "manage", "settings"))
}

func TestHasPermissionUnknownPair(t *testing.T) {
	identity := teacherIdentity()

	// Strings outside the registry never match, and never panic.
	assert.False(t, rbac.HasPermission(identity, "teleport", "course"))
	assert.False(t, rbac.HasPermission(identity, "read", "starship"))
}
