// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Field length limits enforced on signup.
const (
	MaxEmailLength = 254
	MaxNameLength  = 100
)

// User is an account known to the directory.
// The email is unique and is the subject of every session token issued for the user.
type User struct {
	ID           ulid.ULID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	// SchoolID is only set for students.
	SchoolID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a User with a fresh ID after validating its fields.
// passwordHash must already be the output of a PasswordHasher.
func NewUser(email, name, passwordHash string, role Role, schoolID string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_USER").Errorf("password hash cannot be empty")
	}
	if !role.Valid() {
		return nil, oops.Code("AUTH_INVALID_ROLE").With("role", string(role)).Errorf("unknown role %q", role)
	}
	if role == RoleAdmin && schoolID != "" {
		return nil, oops.Code("AUTH_INVALID_USER").Errorf("school id is only valid for students")
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		SchoolID:     schoolID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateEmail checks that email is a bare address such as "ada@example.com".
// Emails are compared exactly, so no normalization happens here.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email address is not valid")
	}
	return nil
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return oops.Code("AUTH_INVALID_NAME").Errorf("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return oops.Code("AUTH_INVALID_NAME").
			With("max", MaxNameLength).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// UserLookup resolves a token subject to a user.
type UserLookup interface {
	// GetByEmail retrieves a user by exact email.
	// Returns an error wrapping ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserRepository manages user persistence.
type UserRepository interface {
	UserLookup

	// Create stores a new user.
	// Returns an error wrapping ErrEmailTaken if the email is already registered.
	Create(ctx context.Context, user *User) error

	// UpdatePassword replaces the stored password hash of a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
