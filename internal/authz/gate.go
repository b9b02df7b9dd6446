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

	"github.com/storeadmin/storeadmin/internal/audit"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

// Gate is the enforcement point every protected operation passes through.
type Gate struct {
	checker     Checker
	auditLogger audit.Logger
}

// NewGate creates a new authorization gate
func NewGate(checker Checker, auditLogger audit.Logger) *Gate {
	return &Gate{
		checker:     checker,
		auditLogger: auditLogger,
	}
}

// Authorize returns nil when the actor may proceed, ErrUnauthenticated when
// there is no actor, and ErrForbidden when the check fails. Scope must come
// from the routed resource identifier, never from the request body.
func (g *Gate) Authorize(ctx context.Context, actor *Actor, permission rbac.Permission, scope *int64) error {
	if actor == nil {
		return ErrUnauthenticated
	}

	d, err := g.checker.Decide(ctx, actor, permission, scope)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if d.Allowed {
		return nil
	}

	meta := map[string]any{
		audit.AttrPermission: permission.String(),
		audit.AttrReason:     d.Reason,
	}
	if scope != nil {
		meta[audit.AttrCategoryID] = *scope
	}
	g.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccessDenied,
		ActorID:  actor.ID,
		Resource: permission.String(),
		Metadata: meta,
	})

	return ErrForbidden
}
