// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth

import (
	"crypto/sha256"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used for every new hash.
const BcryptCost = 12

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash.
	// It returns false for a mismatch and for any malformed hash.
	Verify(password, hash string) bool

	// NeedsUpgrade returns true if the hash was produced with other parameters
	// than the ones Hash currently uses.
	NeedsUpgrade(hash string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt over a SHA-256 digest.
//
// The digest keeps the bcrypt input at 32 bytes, so passwords longer than
// bcrypt's 72 byte limit are not silently truncated.
type BcryptHasher struct{}

// NewBcryptHasher creates a new BcryptHasher.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{}
}

// Hash returns a modular-crypt bcrypt string ($2a$12$...).
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", oops.Code("AUTH_EMPTY_PASSWORD").Wrap(ErrEmptyPassword)
	}

	digest := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(digest[:], BcryptCost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return string(hash), nil
}

// Verify checks the password in constant time using the salt and cost stored in hash.
func (h *BcryptHasher) Verify(password, hash string) bool {
	digest := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hash), digest[:]) == nil
}

// NeedsUpgrade returns true if hash is not bcrypt or uses a different cost.
func (h *BcryptHasher) NeedsUpgrade(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != BcryptCost
}
