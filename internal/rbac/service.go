package rbac

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/akademia-app/akademia/internal/shared"
)

// minRoleNameLen is the minimum accepted role name length after trimming.
const minRoleNameLen = 3

// ValidationError is a recoverable input problem. It is returned (never
// panicked) so form handlers can branch on it with errors.As and render
// the message inline instead of aborting the request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Repository defines the persistence operations the role management
// service depends on. Create and update replace the permission set
// wholesale and must be atomic: no partial role may survive a failure.
type Repository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	CreateRole(ctx context.Context, input RoleInput) (Role, error)
	UpdateRole(ctx context.Context, id int64, input RoleInput) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	CountUsersByRole(ctx context.Context, roleID int64) (int, error)
}

// AuditRecorder receives an audit entry for every role mutation.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages roles and their permission assignments. Authorization
// is enforced by the callers through the Guard; the service itself only
// validates input and protects the role invariants: system roles are
// fully immutable, and a role with assigned users cannot be deleted.
//
// Concurrent updates to the same role are last-write-wins; there is no
// optimistic concurrency token on roles.
type Service struct {
	repo   Repository
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService constructs a role management Service. audit may be nil.
func NewService(repo Repository, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListRoles returns all roles with permission sets and assigned-user counts.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// ListPermissions returns the seeded permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreateRole validates and persists a new role. User-created roles are
// never system roles.
func (s *Service) CreateRole(ctx context.Context, input RoleInput, actor *Identity) (Role, error) {
	normalized, err := s.validateInput(input)
	if err != nil {
		return Role{}, err
	}
	role, err := s.repo.CreateRole(ctx, normalized)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Role{}, invalid("name", "a role with this name already exists")
		}
		return Role{}, err
	}
	s.record(ctx, actor, "role.create", role)
	return role, nil
}

// UpdateRole validates and replaces a role's name, description and
// permission set. System roles are rejected outright: they are immutable
// through the management service, not merely delete-protected.
func (s *Service) UpdateRole(ctx context.Context, id int64, input RoleInput, actor *Identity) (Role, error) {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if existing.IsSystem {
		return Role{}, invalid("role", "system roles cannot be modified")
	}
	normalized, err := s.validateInput(input)
	if err != nil {
		return Role{}, err
	}
	role, err := s.repo.UpdateRole(ctx, id, normalized)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Role{}, invalid("name", "a role with this name already exists")
		}
		return Role{}, err
	}
	s.record(ctx, actor, "role.update", role)
	return role, nil
}

// DeleteRole removes a role and its permission associations. It refuses
// system roles and roles that still have users assigned.
func (s *Service) DeleteRole(ctx context.Context, id int64, actor *Identity) error {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return invalid("role", "system roles cannot be deleted")
	}
	assigned, err := s.repo.CountUsersByRole(ctx, id)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return invalid("role", fmt.Sprintf("role is still assigned to %d user(s)", assigned))
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "role.delete", existing)
	return nil
}

// validateInput trims the input and verifies every permission ID against
// the registry. One unknown ID fails the whole request.
func (s *Service) validateInput(input RoleInput) (RoleInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Name == "" {
		return RoleInput{}, invalid("name", "name is required")
	}
	if len(input.Name) < minRoleNameLen {
		return RoleInput{}, invalid("name", fmt.Sprintf("name must be at least %d characters", minRoleNameLen))
	}

	seen := make(map[string]struct{}, len(input.PermissionIDs))
	ids := make([]string, 0, len(input.PermissionIDs))
	for _, raw := range input.PermissionIDs {
		perm, ok := Lookup(raw)
		if !ok {
			return RoleInput{}, invalid("permissions", "unknown permission: "+strings.TrimSpace(raw))
		}
		if _, dup := seen[perm.ID]; dup {
			continue
		}
		seen[perm.ID] = struct{}{}
		ids = append(ids, perm.ID)
	}
	input.PermissionIDs = ids
	return input, nil
}

func (s *Service) record(ctx context.Context, actor *Identity, action string, role Role) {
	if s.audit == nil {
		return
	}
	var actorID int64
	if actor != nil {
		actorID = actor.ID
	}
	entry := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(role.ID, 10),
		Meta:     map[string]any{"name": role.Name},
	}
	if err := s.audit.Record(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warn("record role audit", slog.Any("error", err))
	}
}
