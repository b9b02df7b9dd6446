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

import (
	"errors"
	"fmt"
)

// ErrUnknownPermission is returned when an identifier is not part of the catalog.
var ErrUnknownPermission = errors.New("unknown permission")

// Catalog is the fixed universe of grantable permissions.
// It is read-only after construction and safe for concurrent use.
type Catalog struct {
	ordered   []Permission
	index     Set
	resources []ResourceType
}

// crudActions is shared by every resource type; roles additionally support assign.
var crudActions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

// DefaultCatalog returns the catalog seeded at bootstrap:
// {view, create, edit, delete} x {categories, products, users}
// plus {view, create, edit, delete, assign} x {roles}.
func DefaultCatalog() *Catalog {
	c := &Catalog{index: make(Set)}
	for _, resource := range []ResourceType{ResourceCategories, ResourceProducts, ResourceUsers} {
		c.add(resource, crudActions...)
	}
	c.add(ResourceRoles, append(append([]Action{}, crudActions...), ActionAssign)...)
	return c
}

func (c *Catalog) add(resource ResourceType, actions ...Action) {
	c.resources = append(c.resources, resource)
	for _, action := range actions {
		p := NewPermission(action, resource)
		c.ordered = append(c.ordered, p)
		c.index.Add(p)
	}
}

// List returns every catalog permission as a fresh set.
func (c *Catalog) List() Set {
	return c.index.Clone()
}

// Ordered returns every permission in seeding order.
func (c *Catalog) Ordered() []Permission {
	return append([]Permission(nil), c.ordered...)
}

// Exists reports whether p belongs to the catalog.
func (c *Catalog) Exists(p Permission) bool {
	return c.index.Has(p)
}

// Validate returns an error wrapping ErrUnknownPermission for the first
// identifier that is not in the catalog.
func (c *Catalog) Validate(perms ...Permission) error {
	for _, p := range perms {
		if !c.Exists(p) {
			return fmt.Errorf("%w: %q", ErrUnknownPermission, string(p))
		}
	}
	return nil
}

// ValidateSet is Validate for a Set, checking members in sorted order so the
// reported identifier is deterministic.
func (c *Catalog) ValidateSet(s Set) error {
	return c.Validate(s.Slice()...)
}

// ResourceTypes returns the resource types in seeding order.
func (c *Catalog) ResourceTypes() []ResourceType {
	return append([]ResourceType(nil), c.resources...)
}

// GroupByResourceType groups permissions by their resource type, keeping
// seeding order inside every group. Used by role editing screens.
func (c *Catalog) GroupByResourceType() map[ResourceType][]Permission {
	groups := make(map[ResourceType][]Permission, len(c.resources))
	for _, p := range c.ordered {
		rt := p.ResourceType()
		groups[rt] = append(groups[rt], p)
	}
	return groups
}
