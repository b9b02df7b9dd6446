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

package memory

import (
	"context"
	"sort"

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
func (r *CategoryRepository) Create(_ context.Context, c *category.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.categories {
		if existing.Slug == c.Slug {
			return category.ErrDuplicateSlug
		}
	}

	now := r.db.now()
	c.ID = r.db.nextID()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	r.db.categories[c.ID] = &cp
	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(_ context.Context, id int64) (*category.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.categories[id]
	if !ok {
		return nil, category.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

// GetBySlug retrieves a category by slug
func (r *CategoryRepository) GetBySlug(_ context.Context, slug string) (*category.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, c := range r.db.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, category.ErrCategoryNotFound
}

// List retrieves all categories ordered by ID
func (r *CategoryRepository) List(_ context.Context) ([]*category.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*category.Category, 0, len(r.db.categories))
	for _, c := range r.db.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
