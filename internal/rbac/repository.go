package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/akademia-app/akademia/internal/platform/db"
	"github.com/akademia-app/akademia/internal/shared"
)

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const roleColumns = `r.id, r.name, r.description, r.is_system, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM users u WHERE u.role_id = r.id) AS assigned_users`

type rolePermission struct {
	roleID int64
	perm   Permission
}

// ListRoles returns all roles with their permission sets and assigned-user
// counts. The two queries run concurrently against the pool.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	var (
		roles []Role
		perms []rolePermission
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, `SELECT `+roleColumns+` FROM roles r ORDER BY r.is_system DESC, r.name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var role Role
			if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem,
				&role.CreatedAt, &role.UpdatedAt, &role.AssignedUsers); err != nil {
				return err
			}
			roles = append(roles, role)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, `SELECT rp.role_id, p.id, p.action, p.subject, p.label
			FROM role_permissions rp
			JOIN permissions p ON p.id = rp.permission_id
			ORDER BY p.subject, p.action`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var rp rolePermission
			if err := rows.Scan(&rp.roleID, &rp.perm.ID, &rp.perm.Action, &rp.perm.Subject, &rp.perm.Label); err != nil {
				return err
			}
			perms = append(perms, rp)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := make(map[int64]int, len(roles))
	for i, role := range roles {
		index[role.ID] = i
	}
	for _, rp := range perms {
		if i, ok := index[rp.roleID]; ok {
			roles[i].Permissions = append(roles[i].Permissions, rp.perm)
		}
	}
	return roles, nil
}

// GetRole fetches a role by ID with permissions and assigned-user count.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem,
			&role.CreatedAt, &role.UpdatedAt, &role.AssignedUsers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	perms, err := r.rolePermissions(ctx, id)
	if err != nil {
		return Role{}, err
	}
	role.Permissions = perms
	return role, nil
}

// ListPermissions returns the seeded permission catalog ordered by subject.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, action, subject, label FROM permissions ORDER BY subject, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Subject, &p.Label); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreateRole inserts a role and its permission set in one transaction.
func (r *PGRepository) CreateRole(ctx context.Context, input RoleInput) (Role, error) {
	var created Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO roles (name, description, is_system, created_at, updated_at)
			VALUES ($1, $2, FALSE, NOW(), NOW())
			RETURNING id, name, description, is_system, created_at, updated_at`,
			input.Name, input.Description).
			Scan(&created.ID, &created.Name, &created.Description, &created.IsSystem,
				&created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			return translateConstraint(err)
		}
		return attachPermissions(ctx, tx, created.ID, input.PermissionIDs)
	})
	if err != nil {
		return Role{}, err
	}
	perms, err := r.rolePermissions(ctx, created.ID)
	if err != nil {
		return Role{}, err
	}
	created.Permissions = perms
	return created, nil
}

// UpdateRole replaces a role's name, description and permission set.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, input RoleInput) (Role, error) {
	var updated Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING id, name, description, is_system, created_at, updated_at`,
			id, input.Name, input.Description).
			Scan(&updated.ID, &updated.Name, &updated.Description, &updated.IsSystem,
				&updated.CreatedAt, &updated.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return translateConstraint(err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		return attachPermissions(ctx, tx, id, input.PermissionIDs)
	})
	if err != nil {
		return Role{}, err
	}
	perms, err := r.rolePermissions(ctx, id)
	if err != nil {
		return Role{}, err
	}
	updated.Permissions = perms
	return updated, nil
}

// DeleteRole removes a role and its permission associations.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountUsersByRole returns the number of users currently assigned the role.
func (r *PGRepository) CountUsersByRole(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&count)
	return count, err
}

func (r *PGRepository) rolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.action, p.subject, p.label
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.subject, p.action`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Subject, &p.Label); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func attachPermissions(ctx context.Context, tx pgx.Tx, roleID int64, permissionIDs []string) error {
	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
			roleID, permID); err != nil {
			return translateConstraint(err)
		}
	}
	return nil
}

// translateConstraint maps PostgreSQL unique violations to the shared
// duplicate sentinel so the service layer stays driver-agnostic.
func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}
