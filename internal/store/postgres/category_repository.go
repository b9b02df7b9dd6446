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

	"github.com/storeadmin/storeadmin/internal/category"
)

// CategoryRepository implements category.Repository
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a category
func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO categories (name, slug) VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Slug).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return category.ErrDuplicateSlug
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetBySlug retrieves a category by slug
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*category.Category, error) {
	return r.get(ctx, `WHERE slug = $1`, slug)
}

func (r *CategoryRepository) get(ctx context.Context, where string, arg any) (*category.Category, error) {
	var c category.Category
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, slug, created_at, updated_at FROM categories `+where, arg,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// List retrieves all categories ordered by ID
func (r *CategoryRepository) List(ctx context.Context) ([]*category.Category, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, slug, created_at, updated_at FROM categories ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*category.Category, error) {
		var c category.Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan categories: %w", err)
	}
	return cats, nil
}
