// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth

import (
	"context"
	"sync"
	"time"
)

// Login lockout configuration.
const (
	// LockoutDuration is the window in which failures are counted and the
	// time an email stays locked once the threshold is reached.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of failures that triggers a lockout.
	LockoutThreshold = 7
)

// LoginThrottle counts failed logins per email.
// Implementations must expire counters LockoutDuration after the first failure.
type LoginThrottle interface {
	// Failures returns the current failure count for email.
	Failures(ctx context.Context, email string) (int, error)

	// RecordFailure increments the failure count for email and returns the new count.
	RecordFailure(ctx context.Context, email string) (int, error)

	// Reset clears the failure count for email.
	Reset(ctx context.Context, email string) error
}

// IsLockedOut reports whether failures has reached the lockout threshold.
func IsLockedOut(failures int) bool {
	return failures >= LockoutThreshold
}

// MemoryThrottle is an in-process LoginThrottle for single-instance deployments.
type MemoryThrottle struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]throttleEntry
}

type throttleEntry struct {
	failures  int
	expiresAt time.Time
}

// NewMemoryThrottle creates an empty MemoryThrottle.
func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{
		now:     time.Now,
		entries: make(map[string]throttleEntry),
	}
}

// Failures returns the live failure count for email.
func (m *MemoryThrottle) Failures(_ context.Context, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(email).failures, nil
}

// RecordFailure increments the failure count. The window starts at the first failure.
func (m *MemoryThrottle) RecordFailure(_ context.Context, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.live(email)
	if entry.failures == 0 {
		entry.expiresAt = m.now().Add(LockoutDuration)
	}
	entry.failures++
	m.entries[email] = entry
	return entry.failures, nil
}

// Reset forgets all failures for email.
func (m *MemoryThrottle) Reset(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, email)
	return nil
}

// live returns the entry for email, dropping it if its window has passed.
// Callers must hold m.mu.
func (m *MemoryThrottle) live(email string) throttleEntry {
	entry, ok := m.entries[email]
	if !ok {
		return throttleEntry{}
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, email)
		return throttleEntry{}
	}
	return entry
}
