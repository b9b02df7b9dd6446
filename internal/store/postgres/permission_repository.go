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
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/storeadmin/storeadmin/internal/rbac"
)

// PermissionRepository persists the fixed permission catalog
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Seed inserts every catalog permission that is not stored yet
func (r *PermissionRepository) Seed(ctx context.Context, catalog *rbac.Catalog) error {
	batch := &pgx.Batch{}
	for _, p := range catalog.Ordered() {
		batch.Queue(`INSERT INTO permissions (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, p.String())
	}

	if err := r.db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed permissions: %w", err)
	}
	return nil
}

// List returns the stored permission names in insertion order
func (r *PermissionRepository) List(ctx context.Context) ([]rbac.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `SELECT name FROM permissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan permissions: %w", err)
	}

	out := make([]rbac.Permission, len(names))
	for i, n := range names {
		out[i] = rbac.Permission(n)
	}
	return out, nil
}
