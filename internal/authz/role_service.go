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
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/storeadmin/storeadmin/internal/audit"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

// RoleService manages roles and their global permission grants
type RoleService struct {
	catalog     *rbac.Catalog
	roles       RoleRepository
	assignments AssignmentRepository
	auditLogger audit.Logger
}

// NewRoleService creates a new role service
func NewRoleService(
	catalog *rbac.Catalog,
	roles RoleRepository,
	assignments AssignmentRepository,
	auditLogger audit.Logger,
) *RoleService {
	return &RoleService{
		catalog:     catalog,
		roles:       roles,
		assignments: assignments,
		auditLogger: auditLogger,
	}
}

// Catalog returns the permission catalog roles are validated against
func (s *RoleService) Catalog() *rbac.Catalog {
	return s.catalog
}

// CreateRole creates a role with the given permission set
func (s *RoleService) CreateRole(ctx context.Context, name string, permissions rbac.Set) (*Role, error) {
	name, err := normalizeRoleName(name)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.ValidateSet(permissions); err != nil {
		return nil, err
	}

	role := &Role{Name: name, Permissions: permissions.Clone()}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleCreated,
		ActorID:  actorID(ctx),
		Resource: role.Name,
		Metadata: map[string]any{audit.AttrPermissions: role.Permissions.Strings()},
	})

	return role, nil
}

// UpdateRole replaces the role's name and its entire permission set.
// Nothing is written when validation fails.
func (s *RoleService) UpdateRole(ctx context.Context, id int64, name string, permissions rbac.Set) (*Role, error) {
	name, err := normalizeRoleName(name)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.ValidateSet(permissions); err != nil {
		return nil, err
	}

	role := &Role{ID: id, Name: name, Permissions: permissions.Clone()}
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleUpdated,
		ActorID:  actorID(ctx),
		Resource: role.Name,
		Metadata: map[string]any{audit.AttrPermissions: role.Permissions.Strings()},
	})

	return role, nil
}

// DeleteRole removes a role together with its grants and memberships
func (s *RoleService) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.roles.Delete(ctx, id); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleDeleted,
		ActorID:  actorID(ctx),
		Resource: role.Name,
	})

	return nil
}

// GetRole retrieves a role by ID
func (s *RoleService) GetRole(ctx context.Context, id int64) (*Role, error) {
	return s.roles.GetByID(ctx, id)
}

// ListRoles retrieves all roles with their permissions
func (s *RoleService) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.roles.List(ctx)
}

// EffectivePermissions returns the union of the actor's roles' permissions,
// or the full catalog when the actor holds the admin role.
func (s *RoleService) EffectivePermissions(ctx context.Context, actor *Actor) (rbac.Set, error) {
	if actor == nil {
		return rbac.NewSet(), nil
	}
	if actor.IsAdmin() {
		return s.catalog.List(), nil
	}
	if len(actor.Roles) == 0 {
		return rbac.NewSet(), nil
	}

	perms, err := s.roles.PermissionsForRoles(ctx, actor.Roles)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role permissions: %w", err)
	}
	return perms, nil
}

// RoleNames returns the names of the roles held by a user
func (s *RoleService) RoleNames(ctx context.Context, userID int64) ([]string, error) {
	return s.assignments.RoleNames(ctx, userID)
}

// AssignRoles replaces the user's roles with the given names
func (s *RoleService) AssignRoles(ctx context.Context, userID int64, roleNames []string) error {
	seen := make(map[string]struct{}, len(roleNames))
	names := make([]string, 0, len(roleNames))
	for _, n := range roleNames {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	sort.Strings(names)

	if err := s.assignments.SyncRoles(ctx, userID, names); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRolesAssigned,
		ActorID:  actorID(ctx),
		Resource: "user",
		Metadata: map[string]any{audit.AttrUserID: userID, audit.AttrRoles: names},
	})

	return nil
}

func normalizeRoleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidRoleName)
	}
	if utf8.RuneCountInString(name) > MaxRoleNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidRoleName, MaxRoleNameLength)
	}
	return name, nil
}
