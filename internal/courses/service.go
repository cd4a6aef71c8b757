package courses

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/akademia-app/akademia/internal/rbac"
	"github.com/akademia-app/akademia/internal/shared"
)

// ValidationError signals a rejected course or batch input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Service handles course and batch business logic.
type Service struct {
	repo   RepositoryPort
	audit  rbac.AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit rbac.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListCourses returns all courses.
func (s *Service) ListCourses(ctx context.Context) ([]Course, error) {
	return s.repo.ListCourses(ctx)
}

// GetCourse returns one course with its batches.
func (s *Service) GetCourse(ctx context.Context, id int64) (Course, error) {
	return s.repo.GetCourse(ctx, id)
}

// CreateCourse validates and stores a new course.
func (s *Service) CreateCourse(ctx context.Context, input CourseInput, actor *rbac.Identity) (Course, error) {
	normalized, err := validateCourse(input)
	if err != nil {
		return Course{}, err
	}
	created, err := s.repo.CreateCourse(ctx, normalized)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Course{}, invalid("code", "course code is already in use")
		}
		return Course{}, err
	}
	s.record(ctx, actor, "course.create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// UpdateCourse validates and stores changes to an existing course.
func (s *Service) UpdateCourse(ctx context.Context, id int64, input CourseInput, actor *rbac.Identity) (Course, error) {
	normalized, err := validateCourse(input)
	if err != nil {
		return Course{}, err
	}
	updated, err := s.repo.UpdateCourse(ctx, id, normalized)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Course{}, invalid("code", "course code is already in use")
		}
		return Course{}, err
	}
	s.record(ctx, actor, "course.update", updated.ID, map[string]any{"code": updated.Code})
	return updated, nil
}

// ArchiveCourse deactivates a course so it no longer accepts batches.
func (s *Service) ArchiveCourse(ctx context.Context, id int64, actor *rbac.Identity) error {
	if err := s.repo.SetCourseActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, actor, "course.archive", id, nil)
	return nil
}

// RestoreCourse reactivates an archived course.
func (s *Service) RestoreCourse(ctx context.Context, id int64, actor *rbac.Identity) error {
	if err := s.repo.SetCourseActive(ctx, id, true); err != nil {
		return err
	}
	s.record(ctx, actor, "course.restore", id, nil)
	return nil
}

// ScheduleBatch validates and stores a new batch under an active course.
func (s *Service) ScheduleBatch(ctx context.Context, input BatchInput, actor *rbac.Identity) (Batch, error) {
	normalized, err := validateBatch(input)
	if err != nil {
		return Batch{}, err
	}
	course, err := s.repo.GetCourse(ctx, normalized.CourseID)
	if err != nil {
		return Batch{}, err
	}
	if !course.IsActive {
		return Batch{}, invalid("course", "archived courses cannot accept new batches")
	}
	created, err := s.repo.CreateBatch(ctx, normalized)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Batch{}, invalid("code", "batch code is already in use")
		}
		return Batch{}, err
	}
	s.record(ctx, actor, "batch.create", created.ID, map[string]any{"course_id": created.CourseID, "code": created.Code})
	return created, nil
}

func (s *Service) record(ctx context.Context, actor *rbac.Identity, action string, entityID int64, meta map[string]any) {
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
		Entity:   strings.SplitN(action, ".", 2)[0],
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warn("record course audit", slog.Any("error", err))
	}
}

func validateCourse(input CourseInput) (CourseInput, error) {
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Code == "" {
		return input, invalid("code", "course code is required")
	}
	if input.Name == "" {
		return input, invalid("name", "course name is required")
	}
	return input, nil
}

func validateBatch(input BatchInput) (BatchInput, error) {
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" {
		return input, invalid("code", "batch code is required")
	}
	if input.StartsOn.IsZero() {
		return input, invalid("starts_on", "start date is required")
	}
	if input.EndsOn != nil && input.EndsOn.Before(input.StartsOn) {
		return input, invalid("ends_on", "end date must not precede start date")
	}
	if input.Capacity < 0 {
		return input, invalid("capacity", "capacity must not be negative")
	}
	return input, nil
}
