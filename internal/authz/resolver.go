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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/storeadmin/storeadmin/internal/observability/logger"
	"github.com/storeadmin/storeadmin/internal/observability/metrics"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

const instrumentationName = "github.com/storeadmin/storeadmin/internal/authz"

// Decision reasons
const (
	ReasonAdmin           = "admin"
	ReasonRole            = "role"
	ReasonOverride        = "override"
	ReasonDenied          = "denied"
	ReasonUnauthenticated = "unauthenticated"
)

// PermissionSource yields an actor's global permission set.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, actor *Actor) (rbac.Set, error)
}

// OverrideSource yields the scoped permission set for (user, category).
type OverrideSource interface {
	GetOverride(ctx context.Context, userID, categoryID int64) (rbac.Set, bool, error)
}

// Checker answers permission checks. Implemented by Resolver.
type Checker interface {
	Decide(ctx context.Context, actor *Actor, permission rbac.Permission, scope *int64) (Decision, error)
}

// Decision is the outcome of a permission check
type Decision struct {
	Allowed bool
	Reason  string
}

// Resolver combines the admin bypass, role grants and category overrides
// into a single decision. The order of evaluation is fixed:
//
//  1. admin role
//  2. global role grants
//  3. override for the requested scope, if any
//  4. deny
type Resolver struct {
	permissions PermissionSource
	overrides   OverrideSource
	tracer      trace.Tracer
	checks      metric.Int64Counter
	duration    metric.Float64Histogram
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver) error

// WithMeter records check outcomes on the given meter
func WithMeter(m *metrics.Meter) ResolverOption {
	return func(r *Resolver) error {
		counter, err := m.CreateCounter("authz.checks", "Permission checks by decision reason")
		if err != nil {
			return err
		}
		histogram, err := m.CreateHistogram("authz.check.duration", "Permission check latency", "ms")
		if err != nil {
			return err
		}
		r.checks = counter
		r.duration = histogram
		return nil
	}
}

// WithTracer sets the tracer used for check spans
func WithTracer(t trace.Tracer) ResolverOption {
	return func(r *Resolver) error {
		r.tracer = t
		return nil
	}
}

// NewResolver creates a new permission resolver
func NewResolver(permissions PermissionSource, overrides OverrideSource, opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{
		permissions: permissions,
		overrides:   overrides,
		tracer:      otel.Tracer(instrumentationName),
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter("authz.checks")
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	r.checks = counter

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Check reports whether actor may exercise permission, optionally inside the
// category identified by scope.
func (r *Resolver) Check(ctx context.Context, actor *Actor, permission rbac.Permission, scope *int64) (bool, error) {
	d, err := r.Decide(ctx, actor, permission, scope)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// Decide is Check with the reason for the outcome attached.
func (r *Resolver) Decide(ctx context.Context, actor *Actor, permission rbac.Permission, scope *int64) (Decision, error) {
	ctx, span := r.tracer.Start(ctx, "authz.Check", trace.WithAttributes(
		attribute.String("authz.permission", permission.String()),
	))
	defer span.End()

	start := time.Now()
	d, err := r.decide(ctx, actor, permission, scope)
	if err != nil {
		span.RecordError(err)
		return Decision{}, err
	}

	span.SetAttributes(
		attribute.Bool("authz.allowed", d.Allowed),
		attribute.String("authz.reason", d.Reason),
	)
	reason := metric.WithAttributes(attribute.String("decision.reason", d.Reason))
	r.checks.Add(ctx, 1, reason)
	if r.duration != nil {
		r.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, reason)
	}

	if !d.Allowed {
		attrs := []any{logger.Permission(permission.String()), logger.Reason(d.Reason)}
		if actor != nil {
			attrs = append(attrs, logger.UserID(actor.ID))
		}
		if scope != nil {
			attrs = append(attrs, logger.CategoryID(*scope))
		}
		slog.DebugContext(ctx, "permission check denied", attrs...)
	}

	return d, nil
}

func (r *Resolver) decide(ctx context.Context, actor *Actor, permission rbac.Permission, scope *int64) (Decision, error) {
	if actor == nil {
		return Decision{Reason: ReasonUnauthenticated}, nil
	}

	if actor.IsAdmin() {
		return Decision{Allowed: true, Reason: ReasonAdmin}, nil
	}

	global, err := r.permissions.EffectivePermissions(ctx, actor)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load role permissions: %w", err)
	}
	if global.Has(permission) {
		return Decision{Allowed: true, Reason: ReasonRole}, nil
	}

	if scope != nil {
		scoped, ok, err := r.overrides.GetOverride(ctx, actor.ID, *scope)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to load override: %w", err)
		}
		if ok && scoped.Has(permission) {
			return Decision{Allowed: true, Reason: ReasonOverride}, nil
		}
	}

	return Decision{Reason: ReasonDenied}, nil
}
