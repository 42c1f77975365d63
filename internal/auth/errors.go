// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Access control failures. Their messages are safe to show to clients.
var (
	// ErrNotAuthenticated means no valid identity could be established.
	// Missing, malformed, expired and invalid tokens and unknown subjects
	// all collapse into this error at the boundary.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden means the identity is valid but lacks the required role.
	ErrForbidden = errors.New("not authorized")

	// ErrInvalidCredentials is returned for any login failure. The message is
	// identical whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrLockedOut is returned when too many logins failed for an email.
	ErrLockedOut = errors.New("too many failed login attempts")
)

// ErrConfiguration is returned at startup when the auth settings are unusable.
var ErrConfiguration = errors.New("invalid auth configuration")

// Token validation failures. These never reach clients directly.
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenInvalid   = errors.New("token signature is invalid")
	ErrTokenExpired   = errors.New("token has expired")
	ErrSubjectMissing = errors.New("token has no subject")
)

// Account failures.
var (
	ErrEmptyPassword           = errors.New("password cannot be empty")
	ErrEmailTaken              = errors.New("email already registered")
	ErrInvalidEnrollmentSecret = errors.New("invalid secret code")
)
