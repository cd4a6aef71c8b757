package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademia-app/akademia/internal/rbac"
	"github.com/akademia-app/akademia/internal/shared"
)

type mockRepo struct {
	roles    map[int64]rbac.Role
	assigned map[int64]int
	nextID   int64
	calls    int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		roles:    make(map[int64]rbac.Role),
		assigned: make(map[int64]int),
		nextID:   1,
	}
}

func (m *mockRepo) seed(role rbac.Role, assignedUsers int) rbac.Role {
	role.ID = m.nextID
	m.nextID++
	m.roles[role.ID] = role
	m.assigned[role.ID] = assignedUsers
	return role
}

func (m *mockRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	m.calls++
	out := make([]rbac.Role, 0, len(m.roles))
	for _, role := range m.roles {
		role.AssignedUsers = m.assigned[role.ID]
		out = append(out, role)
	}
	return out, nil
}

func (m *mockRepo) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	m.calls++
	role, ok := m.roles[id]
	if !ok {
		return rbac.Role{}, shared.ErrNotFound
	}
	role.AssignedUsers = m.assigned[id]
	return role, nil
}

func (m *mockRepo) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	m.calls++
	return rbac.Catalog(), nil
}

func (m *mockRepo) CreateRole(ctx context.Context, input rbac.RoleInput) (rbac.Role, error) {
	m.calls++
	for _, role := range m.roles {
		if role.Name == input.Name {
			return rbac.Role{}, shared.ErrDuplicate
		}
	}
	role := rbac.Role{
		ID:          m.nextID,
		Name:        input.Name,
		Description: input.Description,
		Permissions: resolvePerms(input.PermissionIDs),
	}
	m.nextID++
	m.roles[role.ID] = role
	return role, nil
}

func (m *mockRepo) UpdateRole(ctx context.Context, id int64, input rbac.RoleInput) (rbac.Role, error) {
	m.calls++
	role, ok := m.roles[id]
	if !ok {
		return rbac.Role{}, shared.ErrNotFound
	}
	role.Name = input.Name
	role.Description = input.Description
	role.Permissions = resolvePerms(input.PermissionIDs)
	m.roles[id] = role
	return role, nil
}

func (m *mockRepo) DeleteRole(ctx context.Context, id int64) error {
	m.calls++
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *mockRepo) CountUsersByRole(ctx context.Context, roleID int64) (int, error) {
	m.calls++
	return m.assigned[roleID], nil
}

func resolvePerms(ids []string) []rbac.Permission {
	perms := make([]rbac.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := rbac.Lookup(id); ok {
			perms = append(perms, p)
		}
	}
	return perms
}

type recordedAudit struct {
	entries []shared.AuditLog
}

func (r *recordedAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func adminActor() *rbac.Identity {
	return &rbac.Identity{ID: 1, Email: "admin@akademia.test"}
}

func TestCreateRole(t *testing.T) {
	repo := newMockRepo()
	audit := &recordedAudit{}
	service := rbac.NewService(repo, audit, nil)

	role, err := service.CreateRole(context.Background(), rbac.RoleInput{
		Name:          "Kepala Cabang",
		Description:   "Branch lead",
		PermissionIDs: []string{"read:course", "manage:batch", "read:course"},
	}, adminActor())
	require.NoError(t, err)

	assert.False(t, role.IsSystem)
	require.Len(t, role.Permissions, 2, "duplicate permission IDs must collapse")
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "role.create", audit.entries[0].Action)
	assert.Equal(t, int64(1), audit.entries[0].ActorID)
}

func TestCreateRoleValidatesName(t *testing.T) {
	service := rbac.NewService(newMockRepo(), nil, nil)

	for _, name := range []string{"", "   ", "ab"} {
		_, err := service.CreateRole(context.Background(), rbac.RoleInput{Name: name}, nil)
		var verr *rbac.ValidationError
		require.ErrorAs(t, err, &verr, "name %q", name)
		assert.Equal(t, "name", verr.Field)
	}
}

func TestCreateRoleUnknownPermission(t *testing.T) {
	repo := newMockRepo()
	service := rbac.NewService(repo, nil, nil)

	_, err := service.CreateRole(context.Background(), rbac.RoleInput{
		Name:          "Staf Keuangan",
		PermissionIDs: []string{"read:finance", "fly:rocket"},
	}, adminActor())

	var verr *rbac.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "permissions", verr.Field)
	assert.Empty(t, repo.roles, "validation failure must not create a partial role")
	assert.Zero(t, repo.calls, "repository must not be reached on validation failure")
}

func TestCreateRoleDuplicateName(t *testing.T) {
	repo := newMockRepo()
	repo.seed(rbac.Role{Name: "Admisi"}, 0)
	service := rbac.NewService(repo, nil, nil)

	_, err := service.CreateRole(context.Background(), rbac.RoleInput{Name: "Admisi"}, nil)

	var verr *rbac.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestUpdateRole(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.seed(rbac.Role{Name: "Marketing"}, 0)
	service := rbac.NewService(repo, nil, nil)

	updated, err := service.UpdateRole(context.Background(), seeded.ID, rbac.RoleInput{
		Name:          "Marketing Lead",
		PermissionIDs: []string{"manage:marketing"},
	}, adminActor())
	require.NoError(t, err)
	assert.Equal(t, "Marketing Lead", updated.Name)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, "manage:marketing", updated.Permissions[0].ID)
}

func TestUpdateRoleSystemRoleImmutable(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.seed(rbac.Role{Name: "ADMIN", IsSystem: true}, 0)
	service := rbac.NewService(repo, nil, nil)

	_, err := service.UpdateRole(context.Background(), seeded.ID, rbac.RoleInput{
		Name:          "Renamed",
		PermissionIDs: []string{"read:course"},
	}, adminActor())

	var verr *rbac.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ADMIN", repo.roles[seeded.ID].Name, "system role must stay untouched")
}

func TestDeleteRole(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.seed(rbac.Role{Name: "Temporary"}, 0)
	audit := &recordedAudit{}
	service := rbac.NewService(repo, audit, nil)

	require.NoError(t, service.DeleteRole(context.Background(), seeded.ID, adminActor()))
	assert.NotContains(t, repo.roles, seeded.ID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "role.delete", audit.entries[0].Action)
}

func TestDeleteRoleSystemRoleProtected(t *testing.T) {
	repo := newMockRepo()
	// Zero assigned users: the system flag alone must block deletion.
	seeded := repo.seed(rbac.Role{Name: "SYSTEM_AUDITOR", IsSystem: true}, 0)
	service := rbac.NewService(repo, nil, nil)

	err := service.DeleteRole(context.Background(), seeded.ID, adminActor())

	var verr *rbac.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, repo.roles, seeded.ID)
}

func TestDeleteRoleWithAssignedUsers(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.seed(rbac.Role{Name: "Pengajar"}, 4)
	service := rbac.NewService(repo, nil, nil)

	err := service.DeleteRole(context.Background(), seeded.ID, adminActor())

	var verr *rbac.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "4 user(s)")
	assert.Contains(t, repo.roles, seeded.ID)
}

func TestDeleteSystemRoleWithUsers(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.seed(rbac.Role{Name: "ADMIN", IsSystem: true}, 3)
	service := rbac.NewService(repo, nil, nil)

	err := service.DeleteRole(context.Background(), seeded.ID, adminActor())

	var verr *rbac.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, repo.roles, seeded.ID, "ADMIN must still be present")
}
