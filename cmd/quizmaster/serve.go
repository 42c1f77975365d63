// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/quizmaster/quizmaster/internal/auth"
	authpg "github.com/quizmaster/quizmaster/internal/auth/postgres"
	authredis "github.com/quizmaster/quizmaster/internal/auth/redis"
	"github.com/quizmaster/quizmaster/internal/config"
	"github.com/quizmaster/quizmaster/internal/logging"
	"github.com/quizmaster/quizmaster/internal/observability"
	"github.com/quizmaster/quizmaster/internal/web"
	"github.com/quizmaster/quizmaster/pkg/errutil"
)

// serviceName labels every log record.
const serviceName = "quizmaster"

// shutdownTimeout bounds graceful shutdown of all servers.
const shutdownTimeout = 5 * time.Second

// redisPingTimeout bounds the startup check of the throttle backend.
const redisPingTimeout = 3 * time.Second

func newServeCmd(opts *rootOptions, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the public HTTP server and, unless disabled, the metrics and
health server. The process exits on SIGINT or SIGTERM after draining
in-flight requests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts, deps.withDefaults())
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServe wires the auth core and blocks until ctx is done or a server fails.
func runServe(ctx context.Context, cmd *cobra.Command, opts *rootOptions, deps *Deps) error {
	cfg, err := config.Load(opts.loadOptions(cmd))
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})

	logger.InfoContext(ctx, "starting quizmaster",
		"http_addr", cfg.Server.HTTPAddr,
		"metrics_addr", cfg.Server.MetricsAddr,
		"algorithm", cfg.Auth.Algorithm,
		"token_ttl_hours", cfg.Auth.TokenTTLHours,
		"redis", cfg.Redis.Addr != "",
	)

	tokens, err := auth.NewTokenService(cfg.TokenConfig())
	if err != nil {
		return err
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(deps, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	db, err := deps.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	throttle, closeThrottle := newThrottle(ctx, deps, cfg.Redis, logger)
	defer closeThrottle()

	users := authpg.NewUserRepository(db)
	accounts, err := auth.NewAccountService(users, auth.NewBcryptHasher(), tokens, cfg.Auth.AdminSecret,
		auth.WithThrottle(throttle), auth.WithLogger(logger))
	if err != nil {
		return err
	}
	guard, err := auth.NewGuard(tokens, users)
	if err != nil {
		return err
	}

	var (
		metrics  *observability.Metrics
		obsErrCh <-chan error
	)
	if cfg.Server.MetricsAddr != "" {
		obsServer := deps.NewObservabilityServer(cfg.Server.MetricsAddr, db.Ping)
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer stopServer(obsServer, "observability")
		metrics = obsServer.Metrics()
	}

	handler, err := web.NewHandler(web.HandlerConfig{
		Accounts:      accounts,
		Guard:         guard,
		Metrics:       metrics,
		Logger:        logger,
		SecureCookies: cfg.Server.SecureCookies,
		Version:       version,
	})
	if err != nil {
		return err
	}

	httpServer := deps.NewHTTPServer(cfg.Server.HTTPAddr, handler)
	httpErrCh, err := httpServer.Start()
	if err != nil {
		return oops.With("operation", "start http server").Wrap(err)
	}
	defer stopServer(httpServer, "http")

	cmd.Println("QuizMaster listening on " + httpServer.Addr())

	// A nil obsErrCh blocks forever, leaving the other cases.
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-httpErrCh:
		return serveFailure("http", err)
	case err := <-obsErrCh:
		return serveFailure("observability", err)
	}
}

// serveFailure reports a server that stopped without being asked to.
func serveFailure(name string, err error) error {
	if err == nil {
		err = oops.Errorf("server stopped unexpectedly")
	}
	return oops.Code("SERVE_FAILED").With("server", name).Wrap(err)
}

// newThrottle selects the shared Redis throttle when configured and the
// in-process one otherwise. An unreachable Redis is logged, not fatal:
// throttle outages never block logins.
func newThrottle(ctx context.Context, deps *Deps, cfg config.RedisConfig, logger *slog.Logger) (auth.LoginThrottle, func()) {
	if cfg.Addr == "" {
		return auth.NewMemoryThrottle(), func() {}
	}

	client := deps.NewRedis(cfg)
	throttle := authredis.NewThrottle(client, cfg.KeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := throttle.Ping(pingCtx); err != nil {
		errutil.LogErrorContext(ctx, logger, "redis throttle unreachable at startup", err)
	}

	return throttle, func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
}

func migrateUp(deps *Deps, url string, logger *slog.Logger) error {
	migrator, err := deps.NewMigrator(url)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator, logger)

	pending, err := migrator.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Info("database schema is current")
		return nil
	}

	logger.Info("applying migrations", "pending", len(pending))
	return migrator.Up()
}

func closeMigrator(m Migrator, logger *slog.Logger) {
	if err := m.Close(); err != nil {
		errutil.LogError(logger, "failed to close migrator", err)
	}
}

func stopServer(s Server, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("error stopping server", "server", name, "error", err)
	}
}
