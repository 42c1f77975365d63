// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth

import "github.com/samber/oops"

// Role is the closed set of user roles.
type Role string

const (
	// RoleAdmin authors quizzes and manages the platform.
	RoleAdmin Role = "admin"
	// RoleStudent takes quizzes.
	RoleStudent Role = "student"
)

// ParseRole converts a stored or submitted string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", oops.Code("AUTH_INVALID_ROLE").With("role", s).Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
