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

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/storeadmin/storeadmin/internal/audit"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

// OverrideService manages category-scoped permission overrides
type OverrideService struct {
	catalog     *rbac.Catalog
	overrides   OverrideRepository
	auditLogger audit.Logger
}

// NewOverrideService creates a new override service
func NewOverrideService(catalog *rbac.Catalog, overrides OverrideRepository, auditLogger audit.Logger) *OverrideService {
	return &OverrideService{
		catalog:     catalog,
		overrides:   overrides,
		auditLogger: auditLogger,
	}
}

// SetOverride creates or replaces the user's permission set for a category.
// The previous set, if any, is discarded rather than merged.
func (s *OverrideService) SetOverride(ctx context.Context, userID, categoryID int64, permissions rbac.Set) (*Override, error) {
	if err := s.catalog.ValidateSet(permissions); err != nil {
		return nil, err
	}
	override := &Override{
		UserID:      userID,
		CategoryID:  categoryID,
		Permissions: permissions.Clone(),
	}
	if err := s.overrides.Upsert(ctx, override); err != nil {
		return nil, fmt.Errorf("failed to store override: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOverrideSet,
		ActorID:  actorID(ctx),
		Resource: "category",
		Metadata: map[string]any{
			audit.AttrUserID:      userID,
			audit.AttrCategoryID:  categoryID,
			audit.AttrPermissions: override.Permissions.Strings(),
		},
	})

	return override, nil
}

// GetOverride returns the stored set for (user, category). The boolean is
// false when no record exists, which is distinct from a stored empty set.
func (s *OverrideService) GetOverride(ctx context.Context, userID, categoryID int64) (rbac.Set, bool, error) {
	override, err := s.overrides.Get(ctx, userID, categoryID)
	if errors.Is(err, ErrOverrideNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return override.Permissions, true, nil
}

// RemoveOverride deletes the record for (user, category). Removing an absent
// override is not an error.
func (s *OverrideService) RemoveOverride(ctx context.Context, userID, categoryID int64) error {
	if err := s.overrides.Delete(ctx, userID, categoryID); err != nil {
		return fmt.Errorf("failed to remove override: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOverrideRemoved,
		ActorID:  actorID(ctx),
		Resource: "category",
		Metadata: map[string]any{
			audit.AttrUserID:     userID,
			audit.AttrCategoryID: categoryID,
		},
	})

	return nil
}

// ListOverrides returns every override held by the user
func (s *OverrideService) ListOverrides(ctx context.Context, userID int64) ([]*Override, error) {
	return s.overrides.ListForUser(ctx, userID)
}

// AccessibleResources filters categoryIDs down to the ones the user may see
// in listings: categories on which the user holds an override of any content,
// plus categories nobody holds an override on. Input order is preserved.
//
// Listing visibility says nothing about action permission; use the Resolver
// for that.
func (s *OverrideService) AccessibleResources(ctx context.Context, userID int64, categoryIDs []int64) ([]int64, error) {
	if len(categoryIDs) == 0 {
		return []int64{}, nil
	}

	overrides, err := s.overrides.ListForCategories(ctx, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}

	scoped := make(map[int64]struct{}, len(overrides))
	mine := make(map[int64]struct{})
	for _, o := range overrides {
		scoped[o.CategoryID] = struct{}{}
		if o.UserID == userID {
			mine[o.CategoryID] = struct{}{}
		}
	}

	accessible := make([]int64, 0, len(categoryIDs))
	seen := make(map[int64]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		_, hasAny := scoped[id]
		_, hasMine := mine[id]
		if !hasAny || hasMine {
			accessible = append(accessible, id)
		}
	}
	return accessible, nil
}
