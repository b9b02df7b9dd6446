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

	"github.com/storeadmin/storeadmin/internal/authz"
)

// OverrideRepository implements authz.OverrideRepository
type OverrideRepository struct {
	db *DB
}

// NewOverrideRepository creates a new override repository
func NewOverrideRepository(db *DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Upsert creates or replaces the override for (UserID, CategoryID)
func (r *OverrideRepository) Upsert(_ context.Context, o *authz.Override) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := overrideKey{userID: o.UserID, categoryID: o.CategoryID}
	now := r.db.now()
	perms := o.Permissions.Clone()

	rec, ok := r.db.overrides[key]
	if !ok {
		rec = &overrideRecord{createdAt: now}
		r.db.overrides[key] = rec
	}
	rec.permissions = perms
	rec.updatedAt = now

	o.CreatedAt = rec.createdAt
	o.UpdatedAt = rec.updatedAt
	return nil
}

// Get retrieves the override for (userID, categoryID)
func (r *OverrideRepository) Get(_ context.Context, userID, categoryID int64) (*authz.Override, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	key := overrideKey{userID: userID, categoryID: categoryID}
	rec, ok := r.db.overrides[key]
	if !ok {
		return nil, authz.ErrOverrideNotFound
	}
	return rec.toOverride(key), nil
}

// Delete removes the override if present
func (r *OverrideRepository) Delete(_ context.Context, userID, categoryID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.overrides, overrideKey{userID: userID, categoryID: categoryID})
	return nil
}

// ListForUser returns the user's overrides ordered by category
func (r *OverrideRepository) ListForUser(_ context.Context, userID int64) ([]*authz.Override, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*authz.Override
	for key, rec := range r.db.overrides {
		if key.userID == userID {
			out = append(out, rec.toOverride(key))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

// ListForCategories returns every override on the given categories
func (r *OverrideRepository) ListForCategories(_ context.Context, categoryIDs []int64) ([]*authz.Override, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	want := make(map[int64]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		want[id] = struct{}{}
	}

	var out []*authz.Override
	for key, rec := range r.db.overrides {
		if _, ok := want[key.categoryID]; ok {
			out = append(out, rec.toOverride(key))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CategoryID != out[j].CategoryID {
			return out[i].CategoryID < out[j].CategoryID
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (rec *overrideRecord) toOverride(key overrideKey) *authz.Override {
	return &authz.Override{
		UserID:      key.userID,
		CategoryID:  key.categoryID,
		Permissions: rec.permissions.Clone(),
		CreatedAt:   rec.createdAt,
		UpdatedAt:   rec.updatedAt,
	}
}
