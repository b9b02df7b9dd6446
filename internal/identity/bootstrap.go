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

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/category"
	"github.com/storeadmin/storeadmin/internal/observability/logger"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

// SeedUser is an account created at bootstrap
type SeedUser struct {
	Name  string
	Email string
	Role  string
}

// DefaultUsers returns one account per default role
func DefaultUsers() []SeedUser {
	return []SeedUser{
		{Name: "Administrator", Email: "admin@example.com", Role: authz.RoleAdmin},
		{Name: "Editor", Email: "editor@example.com", Role: authz.RoleEditor},
		{Name: "Viewer", Email: "viewer@example.com", Role: authz.RoleViewer},
		{Name: "Category Manager", Email: "category@example.com", Role: authz.RoleCategoryManager},
	}
}

// DefaultCategories returns the demo categories created at bootstrap
func DefaultCategories() []category.Category {
	return []category.Category{
		{Name: "Electronics", Slug: "electronics"},
		{Name: "Books", Slug: "books"},
		{Name: "Home & Garden", Slug: "home-garden"},
	}
}

// BootstrapService seeds roles, users and categories. Running it twice is a no-op.
type BootstrapService struct {
	identityService *Service
	roleService     *authz.RoleService
	roleRepo        authz.RoleRepository
	categoryRepo    category.Repository
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(
	identityService *Service,
	roleService *authz.RoleService,
	roleRepo authz.RoleRepository,
	categoryRepo category.Repository,
) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		roleService:     roleService,
		roleRepo:        roleRepo,
		categoryRepo:    categoryRepo,
	}
}

// Bootstrap creates missing default roles, users and categories. Existing
// records are left untouched so operator edits survive a re-seed.
func (s *BootstrapService) Bootstrap(ctx context.Context, password string) error {
	for _, r := range authz.DefaultRoles(s.roleService.Catalog()) {
		if _, err := s.roleRepo.GetByName(ctx, r.Name); err == nil {
			continue
		} else if !errors.Is(err, authz.ErrRoleNotFound) {
			return fmt.Errorf("failed to look up role %s: %w", r.Name, err)
		}
		if _, err := s.roleService.CreateRole(ctx, r.Name, rbac.NewSet(r.Permissions...)); err != nil {
			return fmt.Errorf("failed to seed role %s: %w", r.Name, err)
		}
		slog.InfoContext(ctx, "seeded role", logger.Role(r.Name))
	}

	for _, u := range DefaultUsers() {
		user, err := s.identityService.GetByEmail(ctx, u.Email)
		switch {
		case err == nil:
			// A previous run may have stopped between register and assign
			roles, err := s.roleService.RoleNames(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("failed to load roles of %s: %w", u.Email, err)
			}
			if len(roles) > 0 {
				continue
			}
		case errors.Is(err, ErrUserNotFound):
			user, err = s.identityService.Register(ctx, u.Name, u.Email, password)
			if err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
			}
		default:
			return fmt.Errorf("failed to look up user %s: %w", u.Email, err)
		}

		if err := s.roleService.AssignRoles(ctx, user.ID, []string{u.Role}); err != nil {
			return fmt.Errorf("failed to assign role to %s: %w", u.Email, err)
		}
		slog.InfoContext(ctx, "seeded user", logger.Email(u.Email), logger.Role(u.Role))
	}

	for _, c := range DefaultCategories() {
		if _, err := s.categoryRepo.GetBySlug(ctx, c.Slug); err == nil {
			continue
		} else if !errors.Is(err, category.ErrCategoryNotFound) {
			return fmt.Errorf("failed to look up category %s: %w", c.Slug, err)
		}
		if err := s.categoryRepo.Create(ctx, &c); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Slug, err)
		}
	}

	return nil
}
