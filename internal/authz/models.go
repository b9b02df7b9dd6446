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
	"time"

	"github.com/storeadmin/storeadmin/internal/rbac"
)

// Domain errors
var (
	ErrNotFound          = errors.New("not found")
	ErrRoleNotFound      = fmt.Errorf("role %w", ErrNotFound)
	ErrOverrideNotFound  = fmt.Errorf("override %w", ErrNotFound)
	ErrDuplicateName     = errors.New("role name already exists")
	ErrInvalidRoleName   = errors.New("invalid role name")
	ErrUnknownPermission = rbac.ErrUnknownPermission
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
)

// MaxRoleNameLength mirrors the roles.name column width.
const MaxRoleNameLength = 255

// Role is a named bundle of globally granted permissions.
type Role struct {
	ID          int64
	Name        string
	Permissions rbac.Set
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPermission checks if the role grants a specific permission
func (r *Role) HasPermission(permission rbac.Permission) bool {
	return r.Permissions.Has(permission)
}

// Actor is the authenticated principal subject to checks.
// Role membership is resolved by the session layer before the actor reaches the resolver.
type Actor struct {
	ID    int64
	Roles []string
}

// HasRole reports whether the actor holds the named role.
func (a *Actor) HasRole(name string) bool {
	for _, r := range a.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the admin bypass applies to the actor.
func (a *Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// Override is a per-(user, category) permission set that applies only inside
// that category. At most one exists per pair.
type Override struct {
	UserID      int64
	CategoryID  int64
	Permissions rbac.Set
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleRepository defines the interface for role persistence.
// Create and Update must apply the name and the whole permission set atomically.
type RoleRepository interface {
	// Create inserts the role and its permissions; sets ID and timestamps.
	// Returns ErrDuplicateName when the name is taken.
	Create(ctx context.Context, role *Role) error

	// Update replaces name and permission set.
	// Returns ErrRoleNotFound or ErrDuplicateName.
	Update(ctx context.Context, role *Role) error

	// Delete removes the role, its permission links and its user assignments.
	Delete(ctx context.Context, id int64) error

	// GetByID retrieves a role with its permissions
	GetByID(ctx context.Context, id int64) (*Role, error)

	// GetByName retrieves a role with its permissions
	GetByName(ctx context.Context, name string) (*Role, error)

	// List retrieves all roles ordered by name
	List(ctx context.Context) ([]*Role, error)

	// PermissionsForRoles returns the union of the named roles' permissions.
	// Unknown names contribute nothing.
	PermissionsForRoles(ctx context.Context, names []string) (rbac.Set, error)
}

// AssignmentRepository defines the interface for user-role membership.
type AssignmentRepository interface {
	// RoleNames returns the names of the roles held by the user, sorted.
	RoleNames(ctx context.Context, userID int64) ([]string, error)

	// SyncRoles replaces the user's role set. Returns ErrRoleNotFound when a
	// name does not exist, leaving memberships unchanged.
	SyncRoles(ctx context.Context, userID int64, roleNames []string) error
}

// OverrideRepository defines the interface for category-scoped overrides.
type OverrideRepository interface {
	// Upsert creates or replaces the override for (UserID, CategoryID) in a single write.
	Upsert(ctx context.Context, override *Override) error

	// Get returns ErrOverrideNotFound when no record exists.
	Get(ctx context.Context, userID, categoryID int64) (*Override, error)

	// Delete is idempotent.
	Delete(ctx context.Context, userID, categoryID int64) error

	// ListForUser returns the user's overrides ordered by category.
	ListForUser(ctx context.Context, userID int64) ([]*Override, error)

	// ListForCategories returns every override, of any user, on the given categories.
	ListForCategories(ctx context.Context, categoryIDs []int64) ([]*Override, error)
}
