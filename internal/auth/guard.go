// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Reasons recorded in the "reason" context of AUTH_NOT_AUTHENTICATED errors.
const (
	ReasonMissingToken   = "missing_token"
	ReasonUnknownSubject = "unknown_subject"
)

// Guard resolves session tokens to users and enforces roles.
//
// A request moves through Unauthenticated, TokenValidated, Authenticated
// and Authorized. Any failure ends the request; there is no retry.
type Guard struct {
	tokens TokenValidator
	users  UserLookup
}

// NewGuard creates a Guard.
func NewGuard(tokens TokenValidator, users UserLookup) (*Guard, error) {
	if tokens == nil {
		return nil, oops.Errorf("token validator is required")
	}
	if users == nil {
		return nil, oops.Errorf("user lookup is required")
	}
	return &Guard{tokens: tokens, users: users}, nil
}

// Authenticate returns the user that token was issued to.
//
// An empty token fails without touching the directory. Token failures and
// unknown subjects all wrap ErrNotAuthenticated; the "reason" context keeps
// them apart for logging. Directory outages are returned as
// AUTH_LOOKUP_FAILED so they are not mistaken for a bad token.
func (g *Guard) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, oops.Code("AUTH_NOT_AUTHENTICATED").
			With("reason", ReasonMissingToken).
			Wrap(ErrNotAuthenticated)
	}

	subject, err := g.tokens.Validate(token)
	if err != nil {
		return nil, oops.Code("AUTH_NOT_AUTHENTICATED").
			With("reason", tokenFailureReason(err)).
			Wrap(ErrNotAuthenticated)
	}

	user, err := g.users.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_NOT_AUTHENTICATED").
				With("reason", ReasonUnknownSubject).
				With("email", subject).
				Wrap(ErrNotAuthenticated)
		}
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "get user by email").
			With("email", subject).
			Wrap(err)
	}
	return user, nil
}

// Authorize checks that user holds role.
func (g *Guard) Authorize(user *User, role Role) error {
	if user == nil {
		return oops.Code("AUTH_NOT_AUTHENTICATED").Wrap(ErrNotAuthenticated)
	}
	if user.Role != role {
		return oops.Code("AUTH_FORBIDDEN").
			With("required_role", string(role)).
			With("role", string(user.Role)).
			With("email", user.Email).
			Wrap(ErrForbidden)
	}
	return nil
}

// Require authenticates token and authorizes the resulting user for role.
// Every role-protected handler calls it before doing any work.
func (g *Guard) Require(ctx context.Context, token string, role Role) (*User, error) {
	user, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := g.Authorize(user, role); err != nil {
		return nil, err
	}
	return user, nil
}

// tokenFailureReason maps a token error to a stable reason string.
func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, ErrSubjectMissing):
		return "subject_missing"
	default:
		return "token_invalid"
	}
}
