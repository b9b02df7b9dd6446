// Copyright 2026 The StoreAdmin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

const selectRole = `
	SELECT r.id, r.name, r.created_at, r.updated_at,
		COALESCE(array_agg(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}') AS permissions
	FROM roles r
	LEFT JOIN role_permissions rp ON rp.role_id = r.id
	LEFT JOIN permissions p ON p.id = rp.permission_id
`

// RoleRepository implements authz.RoleRepository and authz.AssignmentRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a role and its permission links in one transaction
func (r *RoleRepository) Create(ctx context.Context, role *authz.Role) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO roles (name) VALUES ($1)
			RETURNING id, created_at, updated_at
		`, role.Name).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return authz.ErrDuplicateName
			}
			return fmt.Errorf("failed to insert role: %w", err)
		}
		return replaceRolePermissions(ctx, tx, role.ID, role.Permissions)
	})
}

// Update replaces a role's name and permission links in one transaction
func (r *RoleRepository) Update(ctx context.Context, role *authz.Role) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE roles SET name = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at
		`, role.ID, role.Name).Scan(&role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return authz.ErrRoleNotFound
			}
			if isUniqueViolation(err) {
				return authz.ErrDuplicateName
			}
			return fmt.Errorf("failed to update role: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
			return fmt.Errorf("failed to clear role permissions: %w", err)
		}
		return replaceRolePermissions(ctx, tx, role.ID, role.Permissions)
	})
}

// replaceRolePermissions links the role to every named permission. A name
// missing from the permissions table aborts the transaction.
func replaceRolePermissions(ctx context.Context, tx pgx.Tx, roleID int64, perms rbac.Set) error {
	if perms.Len() == 0 {
		return nil
	}

	names := perms.Strings()
	tag, err := tx.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, id FROM permissions WHERE name = ANY($2)
	`, roleID, names)
	if err != nil {
		return fmt.Errorf("failed to insert role permissions: %w", err)
	}
	if tag.RowsAffected() != int64(len(names)) {
		return fmt.Errorf("%w: permissions table is missing entries", authz.ErrUnknownPermission)
	}
	return nil
}

// Delete removes a role; links and memberships cascade
func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrRoleNotFound
	}
	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*authz.Role, error) {
	row := r.db.pool.QueryRow(ctx, selectRole+` WHERE r.id = $1 GROUP BY r.id`, id)
	return scanRole(row)
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*authz.Role, error) {
	row := r.db.pool.QueryRow(ctx, selectRole+` WHERE r.name = $1 GROUP BY r.id`, name)
	return scanRole(row)
}

// List retrieves all roles ordered by name
func (r *RoleRepository) List(ctx context.Context) ([]*authz.Role, error) {
	rows, err := r.db.pool.Query(ctx, selectRole+` GROUP BY r.id ORDER BY r.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*authz.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}
	return roles, nil
}

// PermissionsForRoles returns the union of the named roles' permissions
func (r *RoleRepository) PermissionsForRoles(ctx context.Context, names []string) (rbac.Set, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM roles r
		JOIN role_permissions rp ON rp.role_id = r.id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE r.name = ANY($1)
	`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to query role permissions: %w", err)
	}

	perms, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan role permissions: %w", err)
	}

	out := rbac.NewSet()
	for _, p := range perms {
		out.Add(rbac.Permission(p))
	}
	return out, nil
}

// RoleNames returns the names of the roles a user holds, sorted
func (r *RoleRepository) RoleNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan user roles: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// SyncRoles replaces a user's roles in one transaction
func (r *RoleRepository) SyncRoles(ctx context.Context, userID int64, roleNames []string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM roles WHERE name = ANY($1)`, roleNames)
		if err != nil {
			return fmt.Errorf("failed to resolve roles: %w", err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return fmt.Errorf("failed to scan role ids: %w", err)
		}
		if len(ids) != len(roleNames) {
			return authz.ErrRoleNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear user roles: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, unnest($2::bigint[])
		`, userID, ids)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("user %w", authz.ErrNotFound)
			}
			return fmt.Errorf("failed to insert user roles: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (*authz.Role, error) {
	var role authz.Role
	var perms []string

	err := row.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt, &perms)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to scan role: %w", err)
	}

	role.Permissions = rbac.NewSet()
	for _, p := range perms {
		role.Permissions.Add(rbac.Permission(p))
	}
	return &role, nil
}
