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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

const selectOverride = `
	SELECT user_id, category_id, permissions, created_at, updated_at
	FROM user_category_permissions
`

// OverrideRepository implements authz.OverrideRepository.
// Permission sets are stored as a JSONB array of names.
type OverrideRepository struct {
	db *DB
}

// NewOverrideRepository creates a new override repository
func NewOverrideRepository(db *DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Upsert creates or replaces the override in a single statement
func (r *OverrideRepository) Upsert(ctx context.Context, o *authz.Override) error {
	encoded, err := json.Marshal(o.Permissions.Clone())
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	err = r.db.pool.QueryRow(ctx, `
		INSERT INTO user_category_permissions (user_id, category_id, permissions)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (user_id, category_id)
		DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = NOW()
		RETURNING created_at, updated_at
	`, o.UserID, o.CategoryID, string(encoded)).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("user or category %w", authz.ErrNotFound)
		}
		return fmt.Errorf("failed to upsert override: %w", err)
	}
	return nil
}

// Get retrieves the override for (userID, categoryID)
func (r *OverrideRepository) Get(ctx context.Context, userID, categoryID int64) (*authz.Override, error) {
	row := r.db.pool.QueryRow(ctx, selectOverride+`WHERE user_id = $1 AND category_id = $2`, userID, categoryID)
	o, err := scanOverride(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrOverrideNotFound
	}
	return o, err
}

// Delete removes the override if present
func (r *OverrideRepository) Delete(ctx context.Context, userID, categoryID int64) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_category_permissions WHERE user_id = $1 AND category_id = $2
	`, userID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return nil
}

// ListForUser returns the user's overrides ordered by category
func (r *OverrideRepository) ListForUser(ctx context.Context, userID int64) ([]*authz.Override, error) {
	return r.list(ctx, selectOverride+`WHERE user_id = $1 ORDER BY category_id`, userID)
}

// ListForCategories returns every override on the given categories
func (r *OverrideRepository) ListForCategories(ctx context.Context, categoryIDs []int64) ([]*authz.Override, error) {
	return r.list(ctx, selectOverride+`WHERE category_id = ANY($1) ORDER BY category_id, user_id`, categoryIDs)
}

func (r *OverrideRepository) list(ctx context.Context, query string, args ...any) ([]*authz.Override, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	var out []*authz.Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate overrides: %w", err)
	}
	return out, nil
}

func scanOverride(row rowScanner) (*authz.Override, error) {
	var o authz.Override
	var raw []byte

	if err := row.Scan(&o.UserID, &o.CategoryID, &raw, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan override: %w", err)
	}

	perms := rbac.NewSet()
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, fmt.Errorf("failed to decode override permissions: %w", err)
	}
	o.Permissions = perms
	return &o, nil
}
