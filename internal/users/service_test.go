package users_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademia-app/akademia/internal/rbac"
	"github.com/akademia-app/akademia/internal/shared"
	"github.com/akademia-app/akademia/internal/users"
)

type mockRepo struct {
	users map[int64]users.User
}

func (m *mockRepo) ListUsers(ctx context.Context) ([]users.User, error) {
	out := make([]users.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockRepo) ListRoleOptions(ctx context.Context) ([]users.RoleOption, error) {
	return []users.RoleOption{{ID: 1, Name: "ADMIN"}, {ID: 2, Name: "TEACHER"}}, nil
}

func (m *mockRepo) AssignRole(ctx context.Context, userID int64, roleID *int64) error {
	u, ok := m.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	u.RoleID = roleID
	m.users[userID] = u
	return nil
}

type captureAudit struct {
	entries []shared.AuditLog
}

func (c *captureAudit) Record(ctx context.Context, log shared.AuditLog) error {
	c.entries = append(c.entries, log)
	return nil
}

func TestAssignRole(t *testing.T) {
	repo := &mockRepo{users: map[int64]users.User{5: {ID: 5, Email: "guru@akademia.test"}}}
	audit := &captureAudit{}
	service := users.NewService(repo, audit, nil)

	roleID := int64(2)
	err := service.AssignRole(context.Background(), 5, &roleID, &rbac.Identity{ID: 1})
	require.NoError(t, err)

	require.NotNil(t, repo.users[5].RoleID)
	assert.Equal(t, int64(2), *repo.users[5].RoleID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "user.assign_role", audit.entries[0].Action)
	assert.Equal(t, "5", audit.entries[0].EntityID)
}

func TestAssignRoleClears(t *testing.T) {
	roleID := int64(2)
	repo := &mockRepo{users: map[int64]users.User{5: {ID: 5, RoleID: &roleID}}}
	service := users.NewService(repo, nil, nil)

	require.NoError(t, service.AssignRole(context.Background(), 5, nil, nil))
	assert.Nil(t, repo.users[5].RoleID)
}

func TestAssignRoleUnknownUser(t *testing.T) {
	repo := &mockRepo{users: map[int64]users.User{}}
	audit := &captureAudit{}
	service := users.NewService(repo, audit, nil)

	err := service.AssignRole(context.Background(), 404, nil, nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, audit.entries, "failed assignment must not be audited")
}
