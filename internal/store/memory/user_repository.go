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
	"time"

	"github.com/storeadmin/storeadmin/internal/identity"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user
func (r *UserRepository) Create(_ context.Context, user *identity.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.Email == user.Email {
			return identity.ErrUserAlreadyExists
		}
	}

	now := r.db.now()
	user.ID = r.db.nextID()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.db.users[user.ID] = &cp
	return nil
}

// AddCredentials stores or replaces a password hash
func (r *UserRepository) AddCredentials(_ context.Context, c *identity.Credentials) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[c.UserID]; !ok {
		return identity.ErrUserNotFound
	}
	cp := *c
	cp.UpdatedAt = r.db.now()
	r.db.credentials[c.UserID] = &cp
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(_ context.Context, id int64) (*identity.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

// List retrieves all users ordered by ID
func (r *UserRepository) List(_ context.Context) ([]*identity.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*identity.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateLockout updates user lockout status
func (r *UserRepository) UpdateLockout(_ context.Context, userID int64, failedAttempts int, lockedUntil *time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.FailedLoginAttempts = failedAttempts
	u.LockedUntil = lockedUntil
	u.UpdatedAt = r.db.now()
	return nil
}

// GetCredentials retrieves user credentials
func (r *UserRepository) GetCredentials(_ context.Context, userID int64) (*identity.Credentials, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.credentials[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *c
	return &cp, nil
}
