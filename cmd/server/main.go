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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storeadmin/storeadmin/internal/audit"
	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/category"
	"github.com/storeadmin/storeadmin/internal/config"
	"github.com/storeadmin/storeadmin/internal/identity"
	"github.com/storeadmin/storeadmin/internal/observability/logger"
	"github.com/storeadmin/storeadmin/internal/observability/metrics"
	"github.com/storeadmin/storeadmin/internal/observability/tracing"
	"github.com/storeadmin/storeadmin/internal/rbac"
	"github.com/storeadmin/storeadmin/internal/session"
	transportHTTP "github.com/storeadmin/storeadmin/internal/transport/http"
)

const usage = `usage: storeadmin [serve|migrate|seed]

  serve    run the HTTP server (default)
  migrate  apply the database schema and sync the permission catalog
  seed     create the default roles, users and categories`

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.Observability.ServiceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		err = runServe(ctx, cfg)
	case "migrate":
		err = runMigrate(ctx, cfg)
	case "seed":
		err = runSeed(ctx, cfg)
	default:
		fmt.Println(usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error(cmd+" failed", logger.Error(err))
		os.Exit(1)
	}
}

// app holds the wired services shared by every command
type app struct {
	catalog   *rbac.Catalog
	audit     audit.Logger
	identity  *identity.Service
	roles     *authz.RoleService
	overrides *authz.OverrideService
	category  *category.Service
	bootstrap *identity.BootstrapService
}

func newApp(cfg *config.Config, st *stores) *app {
	catalog := rbac.DefaultCatalog()
	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)

	identityService := identity.NewService(
		st.users,
		passwordHasher,
		auditLogger,
		cfg.Security.LockoutMaxAttempts,
		cfg.Security.LockoutDuration,
	)
	roleService := authz.NewRoleService(catalog, st.roles, st.roles, auditLogger)
	overrideService := authz.NewOverrideService(catalog, st.overrides, auditLogger)

	return &app{
		catalog:   catalog,
		audit:     auditLogger,
		identity:  identityService,
		roles:     roleService,
		overrides: overrideService,
		category:  category.NewService(st.categories, overrideService),
		bootstrap: identity.NewBootstrapService(identityService, roleService, st.roles, st.categories),
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting storeadmin")

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.Enabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   cfg.Observability.SamplingRate,
		Endpoint:       cfg.Observability.Endpoint,
		Insecure:       cfg.Observability.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shut down tracer", logger.Error(err))
		}
	}()

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled:        cfg.Observability.Enabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Endpoint:       cfg.Observability.Endpoint,
		Insecure:       cfg.Observability.Insecure,
		Interval:       cfg.Observability.MetricsInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	defer func() {
		if err := meter.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shut down meter", logger.Error(err))
		}
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	a := newApp(cfg, st)
	if err := st.syncCatalog(ctx, a.catalog); err != nil {
		return err
	}

	// Memory data starts empty on every run
	if st.ephemeral {
		if err := a.bootstrap.Bootstrap(ctx, cfg.SeedPassword); err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}
	}

	resolver, err := authz.NewResolver(a.roles, a.overrides,
		authz.WithMeter(meter),
		authz.WithTracer(tracer.GetTracer()),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize resolver: %w", err)
	}

	sessions, err := session.NewManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.Lifetime)
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}

	// Rate Limiter
	trustedProxies, err := transportHTTP.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}
	rateLimiter := transportHTTP.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, trustedProxies)

	// Configure SameSite mode
	sameSite := http.SameSiteLaxMode
	switch cfg.Session.CookieSameSite {
	case "Strict":
		sameSite = http.SameSiteStrictMode
	case "None":
		sameSite = http.SameSiteNoneMode
	}

	handler := transportHTTP.NewHandler(
		a.identity,
		sessions,
		a.roles,
		a.overrides,
		a.category,
		resolver,
		a.audit,
		st.pinger,
		transportHTTP.Config{
			LoginPath:      cfg.Server.LoginPath,
			RequestTimeout: cfg.Server.RequestTimeout,
			TrustedProxies: trustedProxies,
			Cookie: transportHTTP.CookieConfig{
				Name:     cfg.Session.CookieName,
				Path:     cfg.Session.CookiePath,
				Domain:   cfg.Session.CookieDomain,
				Secure:   cfg.Session.CookieSecure,
				SameSite: sameSite,
			},
		},
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      transportHTTP.NewRouter(handler, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if st.postgres == nil {
		slog.Info("nothing to migrate for store driver", slog.String("driver", cfg.StoreDriver))
		return nil
	}

	slog.Info("applying initial schema")
	if err := st.postgres.Migrate(ctx); err != nil {
		return err
	}
	if err := st.syncCatalog(ctx, rbac.DefaultCatalog()); err != nil {
		return err
	}
	slog.Info("migration successful")
	return nil
}

func runSeed(ctx context.Context, cfg *config.Config) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	a := newApp(cfg, st)
	if err := st.syncCatalog(ctx, a.catalog); err != nil {
		return err
	}
	if err := a.bootstrap.Bootstrap(ctx, cfg.SeedPassword); err != nil {
		return err
	}
	slog.Info("seed complete")
	return nil
}
