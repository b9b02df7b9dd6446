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

package rbac

import "strings"

// Permission is an opaque capability identifier of the form "<action> <resource type>".
// The set of valid identifiers is fixed by the Catalog.
type Permission string

// Action is the verb part of a Permission.
type Action string

// ResourceType is the noun part of a Permission.
type ResourceType string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
)

const (
	ResourceCategories ResourceType = "categories"
	ResourceProducts   ResourceType = "products"
	ResourceUsers      ResourceType = "users"
	ResourceRoles      ResourceType = "roles"
)

// -----------------------------------------------------------------------------
// Permission Constants
// These are the canonical names stored in the permissions table.
// -----------------------------------------------------------------------------

const (
	PermViewCategories   Permission = "view categories"
	PermCreateCategories Permission = "create categories"
	PermEditCategories   Permission = "edit categories"
	PermDeleteCategories Permission = "delete categories"

	PermViewProducts   Permission = "view products"
	PermCreateProducts Permission = "create products"
	PermEditProducts   Permission = "edit products"
	PermDeleteProducts Permission = "delete products"

	PermViewUsers   Permission = "view users"
	PermCreateUsers Permission = "create users"
	PermEditUsers   Permission = "edit users"
	PermDeleteUsers Permission = "delete users"

	PermViewRoles   Permission = "view roles"
	PermCreateRoles Permission = "create roles"
	PermEditRoles   Permission = "edit roles"
	PermDeleteRoles Permission = "delete roles"
	PermAssignRoles Permission = "assign roles"
)

// NewPermission composes a permission identifier from its parts.
func NewPermission(action Action, resource ResourceType) Permission {
	return Permission(string(action) + " " + string(resource))
}

// Action returns the verb part, or "" for a malformed identifier.
func (p Permission) Action() Action {
	action, _, ok := strings.Cut(string(p), " ")
	if !ok {
		return ""
	}
	return Action(action)
}

// ResourceType returns the noun part, or "" for a malformed identifier.
func (p Permission) ResourceType() ResourceType {
	_, resource, ok := strings.Cut(string(p), " ")
	if !ok {
		return ""
	}
	return ResourceType(resource)
}

func (p Permission) String() string {
	return string(p)
}
