// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

// Package auth provides authentication and authorization primitives for QuizMaster.
//
// # Domain Types
//
// Users should be created with NewUser, which validates the email address,
// the password hash and the role. Role is a closed set: RoleAdmin and
// RoleStudent. Any other value is rejected by ParseRole.
//
// # Components
//
//   - BcryptHasher - one-way credential hashing (SHA-256 pre-digest, bcrypt cost 12)
//   - TokenService - signed, expiring session tokens whose subject is the user's email
//   - Guard - resolves a token to a User and checks the required role
//   - AccountService - signup and role-scoped login
//
// All components are immutable after construction and safe for concurrent use.
// Session tokens are not stored server-side. Logging out removes the client
// cookie only, and a token stays valid until its expiry.
//
// # Errors
//
// Errors carry stable oops codes (AUTH_*, TOKEN_*) and wrap the sentinel
// errors declared in errors.go, so callers can use either errors.Is or the
// code to classify a failure.
package auth
