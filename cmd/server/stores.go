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
	"fmt"
	"log/slog"

	"github.com/storeadmin/storeadmin/internal/authz"
	"github.com/storeadmin/storeadmin/internal/category"
	"github.com/storeadmin/storeadmin/internal/config"
	"github.com/storeadmin/storeadmin/internal/identity"
	"github.com/storeadmin/storeadmin/internal/rbac"
	"github.com/storeadmin/storeadmin/internal/store/memory"
	"github.com/storeadmin/storeadmin/internal/store/postgres"
	transportHTTP "github.com/storeadmin/storeadmin/internal/transport/http"
)

type roleStore interface {
	authz.RoleRepository
	authz.AssignmentRepository
}

// stores bundles the repositories of one driver
type stores struct {
	users      identity.UserRepository
	roles      roleStore
	overrides  authz.OverrideRepository
	categories category.Repository
	pinger     transportHTTP.Pinger
	postgres   *postgres.DB
	ephemeral  bool
}

func (s *stores) Close() {
	if s.postgres != nil {
		s.postgres.Close()
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		slog.Warn("using in-memory store; data is lost on exit")
		db := memory.New()
		return &stores{
			users:      memory.NewUserRepository(db),
			roles:      memory.NewRoleRepository(db),
			overrides:  memory.NewOverrideRepository(db),
			categories: memory.NewCategoryRepository(db),
			ephemeral:  true,
		}, nil

	case config.DriverPostgres:
		db, err := postgres.New(ctx, postgres.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("connected to database")
		return &stores{
			users:      postgres.NewUserRepository(db),
			roles:      postgres.NewRoleRepository(db),
			overrides:  postgres.NewOverrideRepository(db),
			categories: postgres.NewCategoryRepository(db),
			pinger:     db,
			postgres:   db,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// syncCatalog writes the permission catalog to the permissions table so role
// grants can reference it. The memory store needs no such step.
func (s *stores) syncCatalog(ctx context.Context, catalog *rbac.Catalog) error {
	if s.postgres == nil {
		return nil
	}
	if err := postgres.NewPermissionRepository(s.postgres).Seed(ctx, catalog); err != nil {
		return fmt.Errorf("failed to sync permission catalog: %w", err)
	}
	return nil
}
