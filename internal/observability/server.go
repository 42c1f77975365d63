// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

// Package observability serves Prometheus metrics and health probes on a
// listener separate from the public HTTP surface.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// readinessTimeout bounds a single readiness probe.
const readinessTimeout = 2 * time.Second

// ReadinessChecker reports why the service cannot take traffic, or nil when it can.
type ReadinessChecker func(ctx context.Context) error

// Outcome labels shared by the auth counters.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeLockedOut          = "locked_out"
	OutcomeEmailTaken         = "email_taken"
	OutcomeInvalidSecret      = "invalid_secret"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeNotAuthenticated   = "not_authenticated"
	OutcomeForbidden          = "forbidden"
	OutcomeError              = "error"
)

// Metrics holds the authentication counters.
type Metrics struct {
	Logins         *prometheus.CounterVec
	Signups        *prometheus.CounterVec
	GuardDecisions *prometheus.CounterVec
}

// NewMetrics creates the auth counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizmaster_auth_logins_total",
				Help: "Login attempts by role and outcome",
			},
			[]string{"role", "outcome"},
		),
		Signups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizmaster_auth_signups_total",
				Help: "Signup attempts by role and outcome",
			},
			[]string{"role", "outcome"},
		),
		GuardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizmaster_auth_guard_decisions_total",
				Help: "Access control decisions on protected routes by required role and outcome",
			},
			[]string{"role", "outcome"},
		),
	}

	reg.MustRegister(m.Logins, m.Signups, m.GuardDecisions)
	return m
}

// ObserveLogin counts a login attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveLogin(role, outcome string) {
	if m != nil {
		m.Logins.WithLabelValues(role, outcome).Inc()
	}
}

// ObserveSignup counts a signup attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveSignup(role, outcome string) {
	if m != nil {
		m.Signups.WithLabelValues(role, outcome).Inc()
	}
}

// ObserveGuard counts a guard decision. A nil receiver is a no-op.
func (m *Metrics) ObserveGuard(role, outcome string) {
	if m != nil {
		m.GuardDecisions.WithLabelValues(role, outcome).Inc()
	}
}

// Server provides HTTP endpoints for observability (metrics and health probes).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates an observability server with its own registry.
// addr is host:port; port 0 picks a free port.
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  readinessChecker,
	}
}

// Metrics returns the auth counters registered on this server.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving. The returned channel receives a serve error, if any,
// and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("OBSERVABILITY_ALREADY_RUNNING").Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("OBSERVABILITY_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("GET /healthz/liveness", s.handleLiveness)
	mux.HandleFunc("GET /healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.Code("OBSERVABILITY_SHUTDOWN_FAILED").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 503 while the checker fails, e.g. while the
// database is unreachable.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.isReady(ctx); err != nil {
			slog.WarnContext(r.Context(), "readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			//nolint:errcheck // client may disconnect
			w.Write([]byte("not ready\n"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	w.Write([]byte("ok\n"))
}
