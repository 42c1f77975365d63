// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

// Package mocks provides testify mocks for the interfaces in package auth.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/quizmaster/quizmaster/internal/auth"
)

// TestingT is the subset of *testing.T the constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock whose expectations are asserted on cleanup.
func NewMockUserRepository(t TestingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (_m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	ret := _m.Called(ctx, user)
	if fn, ok := ret.Get(0).(func(context.Context, *auth.User) error); ok {
		return fn(ctx, user)
	}
	return ret.Error(0)
}

// GetByEmail provides a mock function.
func (_m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := _m.Called(ctx, email)
	var user *auth.User
	if v := ret.Get(0); v != nil {
		user = v.(*auth.User)
	}
	return user, ret.Error(1)
}

// UpdatePassword provides a mock function.
func (_m *MockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	ret := _m.Called(ctx, id, passwordHash)
	return ret.Error(0)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock whose expectations are asserted on cleanup.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (_m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := _m.Called(password)
	return ret.String(0), ret.Error(1)
}

// Verify provides a mock function.
func (_m *MockPasswordHasher) Verify(password, hash string) bool {
	ret := _m.Called(password, hash)
	return ret.Bool(0)
}

// NeedsUpgrade provides a mock function.
func (_m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	ret := _m.Called(hash)
	return ret.Bool(0)
}

// MockTokenIssuer is a mock of auth.TokenIssuer.
type MockTokenIssuer struct {
	mock.Mock
}

// NewMockTokenIssuer creates a mock whose expectations are asserted on cleanup.
func NewMockTokenIssuer(t TestingT) *MockTokenIssuer {
	m := &MockTokenIssuer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Issue provides a mock function.
func (_m *MockTokenIssuer) Issue(subject string) (string, error) {
	ret := _m.Called(subject)
	return ret.String(0), ret.Error(1)
}

// MockTokenValidator is a mock of auth.TokenValidator.
type MockTokenValidator struct {
	mock.Mock
}

// NewMockTokenValidator creates a mock whose expectations are asserted on cleanup.
func NewMockTokenValidator(t TestingT) *MockTokenValidator {
	m := &MockTokenValidator{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Validate provides a mock function.
func (_m *MockTokenValidator) Validate(token string) (string, error) {
	ret := _m.Called(token)
	return ret.String(0), ret.Error(1)
}

// MockLoginThrottle is a mock of auth.LoginThrottle.
type MockLoginThrottle struct {
	mock.Mock
}

// NewMockLoginThrottle creates a mock whose expectations are asserted on cleanup.
func NewMockLoginThrottle(t TestingT) *MockLoginThrottle {
	m := &MockLoginThrottle{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Failures provides a mock function.
func (_m *MockLoginThrottle) Failures(ctx context.Context, email string) (int, error) {
	ret := _m.Called(ctx, email)
	return ret.Int(0), ret.Error(1)
}

// RecordFailure provides a mock function.
func (_m *MockLoginThrottle) RecordFailure(ctx context.Context, email string) (int, error) {
	ret := _m.Called(ctx, email)
	return ret.Int(0), ret.Error(1)
}

// Reset provides a mock function.
func (_m *MockLoginThrottle) Reset(ctx context.Context, email string) error {
	ret := _m.Called(ctx, email)
	return ret.Error(0)
}

var (
	_ auth.UserRepository = (*MockUserRepository)(nil)
	_ auth.PasswordHasher = (*MockPasswordHasher)(nil)
	_ auth.TokenIssuer    = (*MockTokenIssuer)(nil)
	_ auth.TokenValidator = (*MockTokenValidator)(nil)
	_ auth.LoginThrottle  = (*MockLoginThrottle)(nil)
)
