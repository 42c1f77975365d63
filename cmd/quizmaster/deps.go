// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package main

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	goredis "github.com/redis/go-redis/v9"

	"github.com/quizmaster/quizmaster/internal/config"
	"github.com/quizmaster/quizmaster/internal/observability"
	"github.com/quizmaster/quizmaster/internal/store"
	"github.com/quizmaster/quizmaster/internal/web"
)

// Deps contains injectable dependencies for the commands.
// Nil fields use their default implementations.
type Deps struct {
	// Connect opens the database. Default: store.Connect.
	Connect func(ctx context.Context, url string) (Database, error)

	// NewMigrator creates a schema migrator. Default: store.NewMigrator.
	NewMigrator func(url string) (Migrator, error)

	// NewRedis creates the client for the shared login throttle.
	// Default: goredis.NewClient.
	NewRedis func(cfg config.RedisConfig) goredis.UniversalClient

	// NewHTTPServer creates the public server. Default: web.NewServer.
	NewHTTPServer func(addr string, handler http.Handler) Server

	// NewObservabilityServer creates the metrics server. Default: observability.NewServer.
	NewObservabilityServer func(addr string, ready observability.ReadinessChecker) ObservabilityServer
}

// Database is the subset of *pgxpool.Pool the server uses.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	PendingMigrations() ([]uint, error)
	Close() error
}

// Server wraps the methods used from web.Server.
type Server interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Server
	Metrics() *observability.Metrics
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.Connect == nil {
		out.Connect = func(ctx context.Context, url string) (Database, error) {
			return store.Connect(ctx, url, store.ConnectOptions{})
		}
	}
	if out.NewMigrator == nil {
		out.NewMigrator = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.NewRedis == nil {
		out.NewRedis = func(cfg config.RedisConfig) goredis.UniversalClient {
			return goredis.NewClient(&goredis.Options{
				Addr:     cfg.Addr,
				Password: cfg.Password,
				DB:       cfg.DB,
			})
		}
	}
	if out.NewHTTPServer == nil {
		out.NewHTTPServer = func(addr string, handler http.Handler) Server {
			return web.NewServer(addr, handler)
		}
	}
	if out.NewObservabilityServer == nil {
		out.NewObservabilityServer = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	return &out
}
