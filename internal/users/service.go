package users

import (
	"context"
	"strconv"

	"log/slog"

	"github.com/akademia-app/akademia/internal/rbac"
	"github.com/akademia-app/akademia/internal/shared"
)

// Service handles user management business logic.
type Service struct {
	repo   RepositoryPort
	audit  rbac.AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit rbac.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// ListRoleOptions returns roles available for assignment.
func (s *Service) ListRoleOptions(ctx context.Context) ([]RoleOption, error) {
	return s.repo.ListRoleOptions(ctx)
}

// AssignRole sets or clears a user's role and records the change.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleID *int64, actor *rbac.Identity) error {
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	if s.audit != nil {
		var actorID int64
		if actor != nil {
			actorID = actor.ID
		}
		meta := map[string]any{}
		if roleID != nil {
			meta["role_id"] = *roleID
		}
		entry := shared.AuditLog{
			ActorID:  actorID,
			Action:   "user.assign_role",
			Entity:   "user",
			EntityID: strconv.FormatInt(userID, 10),
			Meta:     meta,
		}
		if err := s.audit.Record(ctx, entry); err != nil && s.logger != nil {
			s.logger.Warn("record user audit", slog.Any("error", err))
		}
	}
	return nil
}
