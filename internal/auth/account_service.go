// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/quizmaster/quizmaster/pkg/errutil"
)

// dummyPasswordHash is verified when no usable account exists so that a
// failed login costs the same bcrypt work either way. It matches no password
// this service can produce.
//
//nolint:gosec // G101: intentionally fake hash used for timing equalization, not a credential.
const dummyPasswordHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// StudentSignup is the input for registering a student.
type StudentSignup struct {
	Email    string
	Name     string
	Password string
	SchoolID string
}

// AdminSignup is the input for registering an admin. EnrollmentSecret must
// equal the configured admin secret.
type AdminSignup struct {
	Email            string
	Name             string
	Password         string
	EnrollmentSecret string
}

// AccountOption configures an AccountService.
type AccountOption func(*AccountService)

// WithThrottle enables login lockout backed by t.
func WithThrottle(t LoginThrottle) AccountOption {
	return func(s *AccountService) {
		s.throttle = t
	}
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) AccountOption {
	return func(s *AccountService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AccountService registers users and logs them in.
type AccountService struct {
	users       UserRepository
	hasher      PasswordHasher
	tokens      TokenIssuer
	adminSecret []byte
	throttle    LoginThrottle
	logger      *slog.Logger
}

// NewAccountService creates an AccountService.
// adminSecret gates admin signup and must not be empty.
func NewAccountService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, adminSecret string, opts ...AccountOption) (*AccountService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if adminSecret == "" {
		return nil, oops.Code("AUTH_CONFIG_INVALID").
			With("field", "admin_secret").
			Wrapf(ErrConfiguration, "admin enrollment secret is required")
	}

	s := &AccountService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		adminSecret: []byte(adminSecret),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignupStudent registers a new student.
func (s *AccountService) SignupStudent(ctx context.Context, req StudentSignup) (*User, error) {
	return s.signup(ctx, req.Email, req.Name, req.Password, RoleStudent, req.SchoolID)
}

// SignupAdmin registers a new admin. A wrong enrollment secret is rejected
// before the directory is consulted, so no account is created.
func (s *AccountService) SignupAdmin(ctx context.Context, req AdminSignup) (*User, error) {
	if subtle.ConstantTimeCompare([]byte(req.EnrollmentSecret), s.adminSecret) != 1 {
		return nil, oops.Code("AUTH_INVALID_ENROLLMENT_SECRET").
			With("email", req.Email).
			Wrap(ErrInvalidEnrollmentSecret)
	}
	return s.signup(ctx, req.Email, req.Name, req.Password, RoleAdmin, "")
}

func (s *AccountService) signup(ctx context.Context, email, name, password string, role Role, schoolID string) (*User, error) {
	// Cheap checks first; hashing costs a quarter second.
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, oops.Code("AUTH_EMPTY_PASSWORD").Wrap(ErrEmptyPassword)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, name, hash, role, schoolID)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, oops.Code("AUTH_EMAIL_TAKEN").
				With("email", email).
				Wrap(ErrEmailTaken)
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create user").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// Login checks the credentials of a user with the given role and issues a session token.
//
// An unknown email, a user of another role and a wrong password all return
// AUTH_INVALID_CREDENTIALS with the same message. The password is always
// verified against some bcrypt hash to keep the response time uniform.
func (s *AccountService) Login(ctx context.Context, email, password string, role Role) (string, *User, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return "", nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	targetHash := dummyPasswordHash
	if user != nil {
		targetHash = user.PasswordHash
	}
	valid := s.hasher.Verify(password, targetHash)

	if s.lockedOut(ctx, email) {
		return "", nil, oops.Code("AUTH_LOCKED_OUT").
			With("email", email).
			With("lockout", LockoutDuration.String()).
			Wrap(ErrLockedOut)
	}

	var reason string
	switch {
	case user == nil:
		reason = "unknown_email"
	case user.Role != role:
		reason = "role_mismatch"
	case !valid:
		reason = "wrong_password"
	}
	if reason != "" {
		s.recordFailure(ctx, email)
		return "", nil, oops.Code("AUTH_INVALID_CREDENTIALS").
			With("email", email).
			With("reason", reason).
			Wrap(ErrInvalidCredentials)
	}

	s.resetFailures(ctx, email)
	s.upgradeHash(ctx, user, password)

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}
	return token, user, nil
}

// lockedOut reports whether email has reached the failure threshold.
// Throttle outages never block a login.
func (s *AccountService) lockedOut(ctx context.Context, email string) bool {
	if s.throttle == nil {
		return false
	}
	failures, err := s.throttle.Failures(ctx, email)
	if err != nil {
		errutil.LogError(s.logger, "login throttle unavailable", err)
		return false
	}
	return IsLockedOut(failures)
}

func (s *AccountService) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	failures, err := s.throttle.RecordFailure(ctx, email)
	if err != nil {
		errutil.LogError(s.logger, "failed to record login failure", err)
		return
	}
	if IsLockedOut(failures) {
		s.logger.WarnContext(ctx, "login locked out", "email", email, "failures", failures)
	}
}

func (s *AccountService) resetFailures(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, email); err != nil {
		errutil.LogError(s.logger, "failed to reset login failures", err)
	}
}

// upgradeHash rehashes the password when the stored hash uses old parameters.
// Login succeeds regardless of the outcome.
func (s *AccountService) upgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.PasswordHash) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogError(s.logger, "failed to rehash password", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		errutil.LogError(s.logger, "failed to store upgraded password hash", err)
		return
	}
	user.PasswordHash = newHash
}
