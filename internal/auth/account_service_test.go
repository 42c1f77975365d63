// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quizmaster/quizmaster/internal/auth"
	"github.com/quizmaster/quizmaster/internal/auth/authtest"
	"github.com/quizmaster/quizmaster/internal/auth/mocks"
	"github.com/quizmaster/quizmaster/pkg/errutil"
)

const adminSecret = "let-me-in"

type accountFixture struct {
	users    *mocks.MockUserRepository
	hasher   *mocks.MockPasswordHasher
	tokens   *mocks.MockTokenIssuer
	throttle *mocks.MockLoginThrottle
	svc      *auth.AccountService
}

func newAccountFixture(t *testing.T, withThrottle bool) *accountFixture {
	t.Helper()
	f := &accountFixture{
		users:  mocks.NewMockUserRepository(t),
		hasher: mocks.NewMockPasswordHasher(t),
		tokens: mocks.NewMockTokenIssuer(t),
	}
	var opts []auth.AccountOption
	if withThrottle {
		f.throttle = mocks.NewMockLoginThrottle(t)
		opts = append(opts, auth.WithThrottle(f.throttle))
	}
	svc, err := auth.NewAccountService(f.users, f.hasher, f.tokens, adminSecret, opts...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewAccountService_InvalidDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserRepository
		hasher      auth.PasswordHasher
		tokens      auth.TokenIssuer
		secret      string
		expectError string
	}{
		{
			name:        "nil user repository",
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      mocks.NewMockTokenIssuer(t),
			secret:      adminSecret,
			expectError: "user repository is required",
		},
		{
			name:        "nil hasher",
			users:       mocks.NewMockUserRepository(t),
			tokens:      mocks.NewMockTokenIssuer(t),
			secret:      adminSecret,
			expectError: "password hasher is required",
		},
		{
			name:        "nil token issuer",
			users:       mocks.NewMockUserRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			secret:      adminSecret,
			expectError: "token issuer is required",
		},
		{
			name:        "empty admin secret",
			users:       mocks.NewMockUserRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      mocks.NewMockTokenIssuer(t),
			expectError: "admin enrollment secret is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewAccountService(tt.users, tt.hasher, tt.tokens, tt.secret)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestAccountService_SignupStudent(t *testing.T) {
	ctx := context.Background()

	t.Run("creates student with hashed password", func(t *testing.T) {
		f := newAccountFixture(t, false)
		f.hasher.On("Hash", "pw-123").Return("$2a$12$hashed", nil)
		f.users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Email == "sam@example.com" &&
				u.Role == auth.RoleStudent &&
				u.SchoolID == "S-100" &&
				u.PasswordHash == "$2a$12$hashed"
		})).Return(nil)

		user, err := f.svc.SignupStudent(ctx, auth.StudentSignup{
			Email: "sam@example.com", Name: "Sam", Password: "pw-123", SchoolID: "S-100",
		})
		require.NoError(t, err)
		assert.Equal(t, auth.RoleStudent, user.Role)
		assert.NotEqual(t, "pw-123", user.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAccountFixture(t, false)
		f.hasher.On("Hash", "pw-123").Return("$2a$12$hashed", nil)
		f.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Return(oops.Code("USER_EMAIL_TAKEN").Wrap(auth.ErrEmailTaken))

		_, err := f.svc.SignupStudent(ctx, auth.StudentSignup{
			Email: "sam@example.com", Name: "Sam", Password: "pw-123",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
		errutil.AssertErrorCode(t, err, "AUTH_EMAIL_TAKEN")
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newAccountFixture(t, false)
		f.hasher.On("Hash", "pw-123").Return("$2a$12$hashed", nil)
		f.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(errors.New("disk full"))

		_, err := f.svc.SignupStudent(ctx, auth.StudentSignup{
			Email: "sam@example.com", Name: "Sam", Password: "pw-123",
		})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_SIGNUP_FAILED")
	})

	invalid := []struct {
		name string
		req  auth.StudentSignup
		code string
	}{
		{name: "invalid email", req: auth.StudentSignup{Email: "not-an-email", Name: "Sam", Password: "pw"}, code: "AUTH_INVALID_EMAIL"},
		{name: "display-name email", req: auth.StudentSignup{Email: "Sam <sam@example.com>", Name: "Sam", Password: "pw"}, code: "AUTH_INVALID_EMAIL"},
		{name: "blank name", req: auth.StudentSignup{Email: "sam@example.com", Name: "  ", Password: "pw"}, code: "AUTH_INVALID_NAME"},
		{name: "empty password", req: auth.StudentSignup{Email: "sam@example.com", Name: "Sam"}, code: "AUTH_EMPTY_PASSWORD"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountFixture(t, false)

			_, err := f.svc.SignupStudent(ctx, tt.req)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
			f.hasher.AssertNotCalled(t, "Hash", mock.Anything)
			f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestAccountService_SignupAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong enrollment secret creates nothing", func(t *testing.T) {
		f := newAccountFixture(t, false)

		user, err := f.svc.SignupAdmin(ctx, auth.AdminSignup{
			Email: "ada@example.com", Name: "Ada", Password: "pw-123", EnrollmentSecret: "guess",
		})
		require.Error(t, err)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, auth.ErrInvalidEnrollmentSecret)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_ENROLLMENT_SECRET")
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
		f.hasher.AssertNotCalled(t, "Hash", mock.Anything)
	})

	t.Run("empty enrollment secret is rejected", func(t *testing.T) {
		f := newAccountFixture(t, false)

		_, err := f.svc.SignupAdmin(ctx, auth.AdminSignup{
			Email: "ada@example.com", Name: "Ada", Password: "pw-123",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidEnrollmentSecret)
	})

	t.Run("correct secret creates admin", func(t *testing.T) {
		f := newAccountFixture(t, false)
		f.hasher.On("Hash", "pw-123").Return("$2a$12$hashed", nil)
		f.users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Role == auth.RoleAdmin && u.SchoolID == ""
		})).Return(nil)

		user, err := f.svc.SignupAdmin(ctx, auth.AdminSignup{
			Email: "ada@example.com", Name: "Ada", Password: "pw-123", EnrollmentSecret: adminSecret,
		})
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, user.Role)
	})
}

func TestAccountService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login issues token for email", func(t *testing.T) {
		f := newAccountFixture(t, false)
		student := newStudent()
		f.users.On("GetByEmail", ctx, student.Email).Return(student, nil)
		f.hasher.On("Verify", "pw-123", student.PasswordHash).Return(true)
		f.hasher.On("NeedsUpgrade", student.PasswordHash).Return(false)
		f.tokens.On("Issue", student.Email).Return("signed-token", nil)

		token, user, err := f.svc.Login(ctx, student.Email, "pw-123", auth.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, "signed-token", token)
		assert.Equal(t, student.ID, user.ID)
	})

	t.Run("unknown email still verifies against dummy hash", func(t *testing.T) {
		f := newAccountFixture(t, false)
		f.users.On("GetByEmail", ctx, "nobody@example.com").
			Return(nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound))
		f.hasher.On("Verify", "pw-123", mock.MatchedBy(func(h string) bool {
			return len(h) == 60 && h[:7] == "$2a$12$"
		})).Return(false)

		token, user, err := f.svc.Login(ctx, "nobody@example.com", "pw-123", auth.RoleStudent)
		require.Error(t, err)
		assert.Empty(t, token)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		errutil.AssertErrorContext(t, err, "reason", "unknown_email")
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAccountFixture(t, false)
		student := newStudent()
		f.users.On("GetByEmail", ctx, student.Email).Return(student, nil)
		f.hasher.On("Verify", "wrong", student.PasswordHash).Return(false)

		_, _, err := f.svc.Login(ctx, student.Email, "wrong", auth.RoleStudent)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorContext(t, err, "reason", "wrong_password")
		f.tokens.AssertNotCalled(t, "Issue", mock.Anything)
	})

	t.Run("correct password on the wrong role's login", func(t *testing.T) {
		f := newAccountFixture(t, false)
		student := newStudent()
		f.users.On("GetByEmail", ctx, student.Email).Return(student, nil)
		f.hasher.On("Verify", "pw-123", student.PasswordHash).Return(true)

		_, _, err := f.svc.Login(ctx, student.Email, "pw-123", auth.RoleAdmin)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorContext(t, err, "reason", "role_mismatch")
		f.tokens.AssertNotCalled(t, "Issue", mock.Anything)
	})

	t.Run("directory outage", func(t *testing.T) {
		f := newAccountFixture(t, false)
		f.users.On("GetByEmail", ctx, "sam@example.com").Return(nil, errors.New("connection refused"))

		_, _, err := f.svc.Login(ctx, "sam@example.com", "pw-123", auth.RoleStudent)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("token issue failure", func(t *testing.T) {
		f := newAccountFixture(t, false)
		student := newStudent()
		f.users.On("GetByEmail", ctx, student.Email).Return(student, nil)
		f.hasher.On("Verify", "pw-123", student.PasswordHash).Return(true)
		f.hasher.On("NeedsUpgrade", student.PasswordHash).Return(false)
		f.tokens.On("Issue", student.Email).Return("", errors.New("signer broke"))

		_, _, err := f.svc.Login(ctx, student.Email, "pw-123", auth.RoleStudent)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})
}

func TestAccountService_Login_FailuresLookAlike(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, false)
	student := newStudent()

	f.users.On("GetByEmail", ctx, student.Email).Return(student, nil)
	f.users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, auth.ErrNotFound)
	f.hasher.On("Verify", "wrong", mock.AnythingOfType("string")).Return(false)
	f.hasher.On("Verify", "pw-123", student.PasswordHash).Return(true)

	_, _, unknownErr := f.svc.Login(ctx, "nobody@example.com", "wrong", auth.RoleStudent)
	_, _, wrongPwErr := f.svc.Login(ctx, student.Email, "wrong", auth.RoleStudent)
	_, _, wrongRoleErr := f.svc.Login(ctx, student.Email, "pw-123", auth.RoleAdmin)

	require.Error(t, unknownErr)
	assert.Equal(t, "incorrect email or password", unknownErr.Error())
	assert.Equal(t, unknownErr.Error(), wrongPwErr.Error())
	assert.Equal(t, unknownErr.Error(), wrongRoleErr.Error())
}

func TestAccountService_Login_UpgradesHash(t *testing.T) {
	ctx := context.Background()

	t.Run("stores new hash", func(t *testing.T) {
		f := newAccountFixture(t, false)
		student := newStudent()
		f.users.On("GetByEmail", ctx, student.Email).Return(student, nil)
		f.hasher.On("Verify", "pw-123", "$2a$12$hash").Return(true)
		f.hasher.On("NeedsUpgrade", "$2a$12$hash").Return(true)
		f.hasher.On("Hash", "pw-123").Return("$2a$12$fresh", nil)
		f.users.On("UpdatePassword", ctx, student.ID, "$2a$12$fresh").Return(nil)
		f.tokens.On("Issue", student.Email).Return("tok", nil)

		_, user, err := f.svc.Login(ctx, student.Email, "pw-123", auth.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, "$2a$12$fresh", user.PasswordHash)
	})

	t.Run("update failure does not block login", func(t *testing.T) {
		f := newAccountFixture(t, false)
		student := newStudent()
		f.users.On("GetByEmail", ctx, student.Email).Return(student, nil)
		f.hasher.On("Verify", "pw-123", student.PasswordHash).Return(true)
		f.hasher.On("NeedsUpgrade", student.PasswordHash).Return(true)
		f.hasher.On("Hash", "pw-123").Return("$2a$12$fresh", nil)
		f.users.On("UpdatePassword", ctx, student.ID, "$2a$12$fresh").Return(errors.New("timeout"))
		f.tokens.On("Issue", student.Email).Return("tok", nil)

		token, _, err := f.svc.Login(ctx, student.Email, "pw-123", auth.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, "tok", token)
	})
}

func TestAccountService_Login_Throttle(t *testing.T) {
	ctx := context.Background()

	t.Run("locked email is rejected even with correct password", func(t *testing.T) {
		f := newAccountFixture(t, true)
		student := newStudent()
		f.users.On("GetByEmail", ctx, student.Email).Return(student, nil)
		f.hasher.On("Verify", "pw-123", student.PasswordHash).Return(true)
		f.throttle.On("Failures", ctx, student.Email).Return(auth.LockoutThreshold, nil)

		_, _, err := f.svc.Login(ctx, student.Email, "pw-123", auth.RoleStudent)
		assert.ErrorIs(t, err, auth.ErrLockedOut)
		errutil.AssertErrorCode(t, err, "AUTH_LOCKED_OUT")
		f.tokens.AssertNotCalled(t, "Issue", mock.Anything)
	})

	t.Run("failure is recorded", func(t *testing.T) {
		f := newAccountFixture(t, true)
		f.users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Verify", "pw", mock.AnythingOfType("string")).Return(false)
		f.throttle.On("Failures", ctx, "nobody@example.com").Return(0, nil)
		f.throttle.On("RecordFailure", ctx, "nobody@example.com").Return(1, nil)

		_, _, err := f.svc.Login(ctx, "nobody@example.com", "pw", auth.RoleStudent)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("success resets counter", func(t *testing.T) {
		f := newAccountFixture(t, true)
		student := newStudent()
		f.users.On("GetByEmail", ctx, student.Email).Return(student, nil)
		f.hasher.On("Verify", "pw-123", student.PasswordHash).Return(true)
		f.hasher.On("NeedsUpgrade", student.PasswordHash).Return(false)
		f.throttle.On("Failures", ctx, student.Email).Return(3, nil)
		f.throttle.On("Reset", ctx, student.Email).Return(nil)
		f.tokens.On("Issue", student.Email).Return("tok", nil)

		_, _, err := f.svc.Login(ctx, student.Email, "pw-123", auth.RoleStudent)
		require.NoError(t, err)
	})

	t.Run("throttle outage does not block login", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		tokens := mocks.NewMockTokenIssuer(t)
		throttle := mocks.NewMockLoginThrottle(t)
		svc, err := auth.NewAccountService(users, hasher, tokens, adminSecret,
			auth.WithThrottle(throttle), auth.WithLogger(logger))
		require.NoError(t, err)

		student := newStudent()
		users.On("GetByEmail", ctx, student.Email).Return(student, nil)
		hasher.On("Verify", "pw-123", student.PasswordHash).Return(true)
		hasher.On("NeedsUpgrade", student.PasswordHash).Return(false)
		throttle.On("Failures", ctx, student.Email).Return(0, errors.New("redis down"))
		throttle.On("Reset", ctx, student.Email).Return(errors.New("redis down"))
		tokens.On("Issue", student.Email).Return("tok", nil)

		token, _, err := svc.Login(ctx, student.Email, "pw-123", auth.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, "tok", token)
		assert.Contains(t, buf.String(), "login throttle unavailable")
	})
}

func TestAccountService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := authtest.NewMemoryDirectory()
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: testSecret, Algorithm: "HS256", TTL: auth.DefaultTokenTTL})
	require.NoError(t, err)
	svc, err := auth.NewAccountService(dir, auth.NewBcryptHasher(), tokens, adminSecret,
		auth.WithThrottle(auth.NewMemoryThrottle()))
	require.NoError(t, err)

	_, err = svc.SignupStudent(ctx, auth.StudentSignup{
		Email: "sam@example.com", Name: "Sam", Password: "pw-123", SchoolID: "S-1",
	})
	require.NoError(t, err)

	t.Run("duplicate signup is rejected", func(t *testing.T) {
		_, err := svc.SignupStudent(ctx, auth.StudentSignup{
			Email: "sam@example.com", Name: "Sam Again", Password: "pw-456",
		})
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
		assert.Equal(t, 1, dir.Len())
	})

	t.Run("login token names the user", func(t *testing.T) {
		token, user, err := svc.Login(ctx, "sam@example.com", "pw-123", auth.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleStudent, user.Role)

		subject, err := tokens.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "sam@example.com", subject)
	})

	t.Run("wrong admin secret leaves directory unchanged", func(t *testing.T) {
		_, err := svc.SignupAdmin(ctx, auth.AdminSignup{
			Email: "eve@example.com", Name: "Eve", Password: "pw", EnrollmentSecret: "nope",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidEnrollmentSecret)
		_, err = dir.GetByEmail(ctx, "eve@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("lockout after repeated failures", func(t *testing.T) {
		_, err := svc.SignupStudent(ctx, auth.StudentSignup{
			Email: "lee@example.com", Name: "Lee", Password: "right",
		})
		require.NoError(t, err)

		for range auth.LockoutThreshold {
			_, _, err := svc.Login(ctx, "lee@example.com", "wrong", auth.RoleStudent)
			require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		}

		_, _, err = svc.Login(ctx, "lee@example.com", "right", auth.RoleStudent)
		assert.ErrorIs(t, err, auth.ErrLockedOut)
	})
}
