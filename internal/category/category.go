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

// Package category holds the product categories that overrides are scoped to.
// Category CRUD belongs to the catalogue screens; only what the permission
// layer needs is kept here.
package category

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateSlug    = errors.New("category slug already exists")
)

// Category is a product category
type Category struct {
	ID        int64
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines the interface for category persistence
type Repository interface {
	// Create inserts the category and sets its ID
	Create(ctx context.Context, c *Category) error

	// GetByID retrieves a category by ID
	GetByID(ctx context.Context, id int64) (*Category, error)

	// GetBySlug retrieves a category by slug
	GetBySlug(ctx context.Context, slug string) (*Category, error)

	// List retrieves all categories ordered by ID
	List(ctx context.Context) ([]*Category, error)
}

// Filter narrows a list of categories down to the IDs a user may see
type Filter interface {
	AccessibleResources(ctx context.Context, userID int64, categoryIDs []int64) ([]int64, error)
}

// Service provides category lookups for the permission screens
type Service struct {
	repo   Repository
	filter Filter
}

// NewService creates a new category service
func NewService(repo Repository, filter Filter) *Service {
	return &Service{repo: repo, filter: filter}
}

// Get retrieves a category by ID
func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves all categories
func (s *Service) List(ctx context.Context) ([]*Category, error) {
	return s.repo.List(ctx)
}

// Accessible returns the categories the user may see in listings
func (s *Service) Accessible(ctx context.Context, userID int64) ([]*Category, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(all))
	byID := make(map[int64]*Category, len(all))
	for i, c := range all {
		ids[i] = c.ID
		byID[c.ID] = c
	}

	visible, err := s.filter.AccessibleResources(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*Category, 0, len(visible))
	for _, id := range visible {
		out = append(out, byID[id])
	}
	return out, nil
}
