// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

// Package authtest provides test helpers for authentication.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/quizmaster/quizmaster/internal/auth"
)

// MemoryDirectory is an in-memory auth.UserRepository keyed by exact email.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]auth.User
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]auth.User)}
}

// Create stores a copy of user.
func (d *MemoryDirectory) Create(_ context.Context, user *auth.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[user.Email]; ok {
		return oops.Code("USER_EMAIL_TAKEN").With("email", user.Email).Wrap(auth.ErrEmailTaken)
	}
	d.users[user.Email] = *user
	return nil
}

// GetByEmail returns a copy of the stored user.
func (d *MemoryDirectory) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return &user, nil
}

// UpdatePassword replaces the hash of the user with id.
func (d *MemoryDirectory) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for email, user := range d.users {
		if user.ID == id {
			user.PasswordHash = passwordHash
			user.UpdatedAt = time.Now().UTC()
			d.users[email] = user
			return nil
		}
	}
	return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
}

// Len returns the number of stored users.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

var _ auth.UserRepository = (*MemoryDirectory)(nil)
