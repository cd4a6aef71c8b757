package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademia-app/akademia/internal/rbac"
	"github.com/akademia-app/akademia/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	GetIdentity(ctx context.Context, userID int64) (*rbac.Identity, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, password_hash, is_active, role_id, branch_id, created_at, updated_at
		FROM users WHERE email = $1`, email).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsActive,
			&user.RoleID, &user.BranchID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetIdentity loads the user together with its role grant and permission
// set. Deactivated or missing users yield shared.ErrNotFound so callers
// treat them as unauthenticated.
func (r *PGRepository) GetIdentity(ctx context.Context, userID int64) (*rbac.Identity, error) {
	var (
		identity rbac.Identity
		isActive bool
		roleID   *int64
		roleName *string
		isSystem *bool
	)
	err := r.pool.QueryRow(ctx, `SELECT u.id, u.email, u.name, u.is_active, u.branch_id, u.role_id, r.name, r.is_system
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`, userID).
		Scan(&identity.ID, &identity.Email, &identity.Name, &isActive, &identity.BranchID, &roleID, &roleName, &isSystem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if !isActive {
		return nil, shared.ErrNotFound
	}
	if roleID == nil || roleName == nil {
		return &identity, nil
	}

	grant := &rbac.RoleGrant{Name: *roleName}
	if isSystem != nil {
		grant.IsSystem = *isSystem
	}
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.action, p.subject, p.label
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1`, *roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Subject, &p.Label); err != nil {
			return nil, err
		}
		grant.Permissions = append(grant.Permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	identity.Role = grant
	return &identity, nil
}

// CreateSession persists a login session record for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`,
		id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
