// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

// Package redis implements auth.LoginThrottle on Redis so lockouts are shared
// by every server instance.
package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/quizmaster/quizmaster/internal/auth"
)

// DefaultKeyPrefix namespaces failure counters.
const DefaultKeyPrefix = "quizmaster:login_failures:"

// Throttle counts login failures in Redis. A counter expires
// auth.LockoutDuration after the first failure of its window.
type Throttle struct {
	client goredis.UniversalClient
	prefix string
}

// NewThrottle creates a Throttle. An empty prefix selects DefaultKeyPrefix.
func NewThrottle(client goredis.UniversalClient, prefix string) *Throttle {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Throttle{client: client, prefix: prefix}
}

func (t *Throttle) key(email string) string {
	return t.prefix + email
}

// Failures returns the current failure count for email.
func (t *Throttle) Failures(ctx context.Context, email string) (int, error) {
	n, err := t.client.Get(ctx, t.key(email)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, oops.Code("THROTTLE_UNAVAILABLE").With("operation", "get failures").Wrap(err)
	}
	return n, nil
}

// RecordFailure increments the counter and starts the expiry window on the first failure.
func (t *Throttle) RecordFailure(ctx context.Context, email string) (int, error) {
	key := t.key(email)

	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, oops.Code("THROTTLE_UNAVAILABLE").With("operation", "record failure").Wrap(err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, auth.LockoutDuration).Err(); err != nil {
			return 0, oops.Code("THROTTLE_UNAVAILABLE").With("operation", "set failure window").Wrap(err)
		}
	}
	return int(n), nil
}

// Reset deletes the counter for email.
func (t *Throttle) Reset(ctx context.Context, email string) error {
	if err := t.client.Del(ctx, t.key(email)).Err(); err != nil {
		return oops.Code("THROTTLE_UNAVAILABLE").With("operation", "reset failures").Wrap(err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (t *Throttle) Ping(ctx context.Context) error {
	if err := t.client.Ping(ctx).Err(); err != nil {
		return oops.Code("THROTTLE_UNAVAILABLE").With("operation", "ping").Wrap(err)
	}
	return nil
}

var _ auth.LoginThrottle = (*Throttle)(nil)
