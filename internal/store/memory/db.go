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

// Package memory is a process-local store used by tests and STORE_DRIVER=memory.
// All repositories share one DB so role deletion can cascade into memberships
// the way the postgres foreign keys do.
package memory

import (
	"sync"
	"time"

	"github.com/storeadmin/storeadmin/internal/category"
	"github.com/storeadmin/storeadmin/internal/identity"
	"github.com/storeadmin/storeadmin/internal/rbac"
)

type overrideKey struct {
	userID     int64
	categoryID int64
}

type roleRecord struct {
	id          int64
	name        string
	permissions rbac.Set
	createdAt   time.Time
	updatedAt   time.Time
}

type overrideRecord struct {
	permissions rbac.Set
	createdAt   time.Time
	updatedAt   time.Time
}

// DB holds every table of the in-memory store behind a single lock
type DB struct {
	mu  sync.RWMutex
	seq int64

	roles       map[int64]*roleRecord
	userRoles   map[int64]map[int64]struct{}
	overrides   map[overrideKey]*overrideRecord
	users       map[int64]*identity.User
	credentials map[int64]*identity.Credentials
	categories  map[int64]*category.Category

	now func() time.Time
}

// New creates an empty in-memory database
func New() *DB {
	return &DB{
		roles:       make(map[int64]*roleRecord),
		userRoles:   make(map[int64]map[int64]struct{}),
		overrides:   make(map[overrideKey]*overrideRecord),
		users:       make(map[int64]*identity.User),
		credentials: make(map[int64]*identity.Credentials),
		categories:  make(map[int64]*category.Category),
		now:         time.Now,
	}
}

// nextID must be called with mu held for writing
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}
