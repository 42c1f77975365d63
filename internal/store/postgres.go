// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry defaults.
const (
	DefaultConnectAttempts  = 5
	DefaultConnectBaseDelay = 500 * time.Millisecond
)

// ConnectOptions tunes Connect.
type ConnectOptions struct {
	// Attempts is the total number of ping attempts. Zero means DefaultConnectAttempts.
	Attempts uint64
	// BaseDelay is the first backoff interval; it doubles on each retry.
	// Zero means DefaultConnectBaseDelay.
	BaseDelay time.Duration
}

// Connect opens a pool for databaseURL and waits until the server answers a ping.
// Ping failures are retried with exponential backoff; a malformed URL is not.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	if opts.Attempts == 0 {
		opts.Attempts = DefaultConnectAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultConnectBaseDelay
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(opts.Attempts-1, retry.NewExponential(opts.BaseDelay))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			slog.WarnContext(ctx, "database not reachable", "attempt", attempt, "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
