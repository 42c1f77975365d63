// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package auth

import "time"

// SetClock replaces the time source of a MemoryThrottle.
func (m *MemoryThrottle) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// DummyPasswordHash exposes the timing-equalization hash to tests.
const DummyPasswordHash = dummyPasswordHash
