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
	"github.com/storeadmin/storeadmin/internal/rbac"
)

// RoleRepository implements authz.RoleRepository and authz.AssignmentRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a role with its permission set
func (r *RoleRepository) Create(_ context.Context, role *authz.Role) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.nameTaken(role.Name, 0) {
		return authz.ErrDuplicateName
	}

	now := r.db.now()
	rec := &roleRecord{
		id:          r.db.nextID(),
		name:        role.Name,
		permissions: role.Permissions.Clone(),
		createdAt:   now,
		updatedAt:   now,
	}
	r.db.roles[rec.id] = rec

	role.ID = rec.id
	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// Update replaces a role's name and permission set
func (r *RoleRepository) Update(_ context.Context, role *authz.Role) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rec, ok := r.db.roles[role.ID]
	if !ok {
		return authz.ErrRoleNotFound
	}
	if r.nameTaken(role.Name, role.ID) {
		return authz.ErrDuplicateName
	}

	rec.name = role.Name
	rec.permissions = role.Permissions.Clone()
	rec.updatedAt = r.db.now()

	role.CreatedAt = rec.createdAt
	role.UpdatedAt = rec.updatedAt
	return nil
}

// Delete removes a role and every membership of it
func (r *RoleRepository) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.roles[id]; !ok {
		return authz.ErrRoleNotFound
	}
	delete(r.db.roles, id)
	for _, held := range r.db.userRoles {
		delete(held, id)
	}
	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(_ context.Context, id int64) (*authz.Role, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rec, ok := r.db.roles[id]
	if !ok {
		return nil, authz.ErrRoleNotFound
	}
	return rec.toRole(), nil
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(_ context.Context, name string) (*authz.Role, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if rec := r.byName(name); rec != nil {
		return rec.toRole(), nil
	}
	return nil, authz.ErrRoleNotFound
}

// List retrieves all roles ordered by name
func (r *RoleRepository) List(_ context.Context) ([]*authz.Role, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	roles := make([]*authz.Role, 0, len(r.db.roles))
	for _, rec := range r.db.roles {
		roles = append(roles, rec.toRole())
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// PermissionsForRoles returns the union of the named roles' permissions
func (r *RoleRepository) PermissionsForRoles(_ context.Context, names []string) (rbac.Set, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := rbac.NewSet()
	for _, name := range names {
		if rec := r.byName(name); rec != nil {
			out = out.Union(rec.permissions)
		}
	}
	return out, nil
}

// RoleNames returns the names of the roles a user holds, sorted
func (r *RoleRepository) RoleNames(_ context.Context, userID int64) ([]string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	names := make([]string, 0, len(r.db.userRoles[userID]))
	for id := range r.db.userRoles[userID] {
		if rec, ok := r.db.roles[id]; ok {
			names = append(names, rec.name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// SyncRoles replaces a user's roles. Nothing changes if a name is unknown.
func (r *RoleRepository) SyncRoles(_ context.Context, userID int64, roleNames []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	held := make(map[int64]struct{}, len(roleNames))
	for _, name := range roleNames {
		rec := r.byName(name)
		if rec == nil {
			return authz.ErrRoleNotFound
		}
		held[rec.id] = struct{}{}
	}
	r.db.userRoles[userID] = held
	return nil
}

func (r *RoleRepository) byName(name string) *roleRecord {
	for _, rec := range r.db.roles {
		if rec.name == name {
			return rec
		}
	}
	return nil
}

func (r *RoleRepository) nameTaken(name string, exceptID int64) bool {
	rec := r.byName(name)
	return rec != nil && rec.id != exceptID
}

func (rec *roleRecord) toRole() *authz.Role {
	return &authz.Role{
		ID:          rec.id,
		Name:        rec.name,
		Permissions: rec.permissions.Clone(),
		CreatedAt:   rec.createdAt,
		UpdatedAt:   rec.updatedAt,
	}
}
