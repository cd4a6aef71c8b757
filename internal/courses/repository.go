package courses

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademia-app/akademia/internal/shared"
)

// RepositoryPort defines data access methods for courses and batches.
type RepositoryPort interface {
	ListCourses(ctx context.Context) ([]Course, error)
	GetCourse(ctx context.Context, id int64) (Course, error)
	CreateCourse(ctx context.Context, input CourseInput) (Course, error)
	UpdateCourse(ctx context.Context, id int64, input CourseInput) (Course, error)
	SetCourseActive(ctx context.Context, id int64, active bool) error
	CreateBatch(ctx context.Context, input BatchInput) (Batch, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

// ListCourses returns all courses ordered by code.
func (r *Repository) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, description, is_active, created_at, updated_at
		FROM courses ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCourse fetches a course with its batches.
func (r *Repository) GetCourse(ctx context.Context, id int64) (Course, error) {
	var c Course
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, description, is_active, created_at, updated_at
		FROM courses WHERE id = $1`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Course{}, shared.ErrNotFound
		}
		return Course{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, course_id, code, name, starts_on, ends_on, capacity, created_at
		FROM batches WHERE course_id = $1 ORDER BY starts_on DESC`, id)
	if err != nil {
		return Course{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.CourseID, &b.Code, &b.Name, &b.StartsOn, &b.EndsOn, &b.Capacity, &b.CreatedAt); err != nil {
			return Course{}, err
		}
		c.Batches = append(c.Batches, b)
	}
	return c, rows.Err()
}

// CreateCourse inserts a new active course.
func (r *Repository) CreateCourse(ctx context.Context, input CourseInput) (Course, error) {
	var c Course
	err := r.pool.QueryRow(ctx, `INSERT INTO courses (code, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		RETURNING id, code, name, description, is_active, created_at, updated_at`,
		input.Code, input.Name, input.Description).
		Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Course{}, translateConstraint(err)
	}
	return c, nil
}

// UpdateCourse updates course master data.
func (r *Repository) UpdateCourse(ctx context.Context, id int64, input CourseInput) (Course, error) {
	var c Course
	err := r.pool.QueryRow(ctx, `UPDATE courses SET code = $2, name = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, code, name, description, is_active, created_at, updated_at`,
		id, input.Code, input.Name, input.Description).
		Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Course{}, shared.ErrNotFound
		}
		return Course{}, translateConstraint(err)
	}
	return c, nil
}

// SetCourseActive toggles the archive flag.
func (r *Repository) SetCourseActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE courses SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateBatch inserts a new batch for a course.
func (r *Repository) CreateBatch(ctx context.Context, input BatchInput) (Batch, error) {
	var b Batch
	err := r.pool.QueryRow(ctx, `INSERT INTO batches (course_id, code, name, starts_on, ends_on, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, course_id, code, name, starts_on, ends_on, capacity, created_at`,
		input.CourseID, input.Code, input.Name, input.StartsOn, input.EndsOn, input.Capacity).
		Scan(&b.ID, &b.CourseID, &b.Code, &b.Name, &b.StartsOn, &b.EndsOn, &b.Capacity, &b.CreatedAt)
	if err != nil {
		return Batch{}, translateConstraint(err)
	}
	return b, nil
}

func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}
