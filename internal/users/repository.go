package users

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademia-app/akademia/internal/shared"
)

// RepositoryPort defines data access methods for user management.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListRoleOptions(ctx context.Context) ([]RoleOption, error)
	AssignRole(ctx context.Context, userID int64, roleID *int64) error
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

// ListUsers returns all users with their role name, if any.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.email, u.name, u.is_active, u.role_id,
			COALESCE(r.name, ''), u.branch_id, u.created_at, u.updated_at
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		ORDER BY u.name, u.email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.IsActive, &user.RoleID,
			&user.RoleName, &user.BranchID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListRoleOptions returns all roles available for assignment.
func (r *Repository) ListRoleOptions(ctx context.Context) ([]RoleOption, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var options []RoleOption
	for rows.Next() {
		var opt RoleOption
		if err := rows.Scan(&opt.ID, &opt.Name); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// AssignRole sets or clears a user's role.
func (r *Repository) AssignRole(ctx context.Context, userID int64, roleID *int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
