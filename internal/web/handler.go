// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/quizmaster/quizmaster/internal/auth"
	"github.com/quizmaster/quizmaster/internal/observability"
)

// AppName is reported by the status endpoint.
const AppName = "QuizMaster"

// maxFormBytes bounds a form post.
const maxFormBytes = 64 << 10

// Accounts registers users and logs them in.
type Accounts interface {
	SignupStudent(ctx context.Context, req auth.StudentSignup) (*auth.User, error)
	SignupAdmin(ctx context.Context, req auth.AdminSignup) (*auth.User, error)
	Login(ctx context.Context, email, password string, role auth.Role) (string, *auth.User, error)
}

// Guard admits a request only if its token belongs to a user with the role.
type Guard interface {
	Require(ctx context.Context, token string, role auth.Role) (*auth.User, error)
}

// HandlerConfig holds the dependencies of the HTTP handler.
type HandlerConfig struct {
	Accounts Accounts
	Guard    Guard
	// Metrics may be nil.
	Metrics *observability.Metrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// SecureCookies marks the session cookie Secure. Enable behind TLS.
	SecureCookies bool
	Version       string
}

// Handler serves the auth routes.
type Handler struct {
	accounts Accounts
	guard    Guard
	metrics  *observability.Metrics
	logger   *slog.Logger
	secure   bool
	version  string
	mux      *http.ServeMux
}

// NewHandler builds the route table.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Accounts == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("accounts are required")
	}
	if cfg.Guard == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("guard is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := &Handler{
		accounts: cfg.Accounts,
		guard:    cfg.Guard,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		secure:   cfg.SecureCookies,
		version:  cfg.Version,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /admin/signup", h.adminSignup)
	h.mux.HandleFunc("POST /admin/login", h.login(auth.RoleAdmin, "/admin/dashboard"))
	h.mux.HandleFunc("GET /admin/logout", h.logout("/admin/login"))
	h.mux.HandleFunc("GET /admin/dashboard", h.protected(auth.RoleAdmin, h.profile))

	h.mux.HandleFunc("POST /student/signup", h.studentSignup)
	h.mux.HandleFunc("POST /student/login", h.login(auth.RoleStudent, "/student/enter_code"))
	h.mux.HandleFunc("GET /student/logout", h.logout("/"))
	h.mux.HandleFunc("GET /student/enter_code", h.protected(auth.RoleStudent, h.profile))

	h.mux.HandleFunc("GET /api/status", h.status)
	return h, nil
}

// ServeHTTP dispatches r, logging each request and recovering from panics.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	defer func() {
		if p := recover(); p != nil {
			h.logger.ErrorContext(r.Context(), "panic serving request", "panic", p, "path", r.URL.Path)
			if !rec.wrote {
				writeJSON(rec, http.StatusInternalServerError, errorResponse{Detail: internalErrorDetail})
			}
		}
		h.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	}()

	h.mux.ServeHTTP(rec, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wrote = true
	//nolint:wrapcheck // ResponseWriter passthrough
	return s.ResponseWriter.Write(b)
}

func (h *Handler) adminSignup(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r, "name", "email", "password", "secret_code")
	if err != nil {
		h.metrics.ObserveSignup(auth.RoleAdmin.String(), writeError(w, r, h.logger, err))
		return
	}

	user, err := h.accounts.SignupAdmin(r.Context(), auth.AdminSignup{
		Email:            form["email"],
		Name:             form["name"],
		Password:         form["password"],
		EnrollmentSecret: form["secret_code"],
	})
	if err != nil {
		h.metrics.ObserveSignup(auth.RoleAdmin.String(), writeError(w, r, h.logger, err))
		return
	}

	h.metrics.ObserveSignup(auth.RoleAdmin.String(), observability.OutcomeSuccess)
	h.logger.InfoContext(r.Context(), "admin registered", "user_id", user.ID.String(), "email", user.Email)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (h *Handler) studentSignup(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r, "school_id", "name", "email", "password")
	if err != nil {
		h.metrics.ObserveSignup(auth.RoleStudent.String(), writeError(w, r, h.logger, err))
		return
	}

	user, err := h.accounts.SignupStudent(r.Context(), auth.StudentSignup{
		Email:    form["email"],
		Name:     form["name"],
		Password: form["password"],
		SchoolID: form["school_id"],
	})
	if err != nil {
		h.metrics.ObserveSignup(auth.RoleStudent.String(), writeError(w, r, h.logger, err))
		return
	}

	h.metrics.ObserveSignup(auth.RoleStudent.String(), observability.OutcomeSuccess)
	h.logger.InfoContext(r.Context(), "student registered", "user_id", user.ID.String(), "email", user.Email)
	http.Redirect(w, r, "/student/login", http.StatusSeeOther)
}

func (h *Handler) login(role auth.Role, next string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := readForm(w, r, "email", "password")
		if err != nil {
			h.metrics.ObserveLogin(role.String(), writeError(w, r, h.logger, err))
			return
		}

		token, user, err := h.accounts.Login(r.Context(), form["email"], form["password"], role)
		if err != nil {
			h.metrics.ObserveLogin(role.String(), writeError(w, r, h.logger, err))
			return
		}

		h.metrics.ObserveLogin(role.String(), observability.OutcomeSuccess)
		h.logger.InfoContext(r.Context(), "login succeeded", "user_id", user.ID.String(), "role", role.String())
		setSessionCookie(w, token, h.secure)
		http.Redirect(w, r, next, http.StatusSeeOther)
	}
}

func (h *Handler) logout(next string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearSessionCookie(w, h.secure)
		http.Redirect(w, r, next, http.StatusSeeOther)
	}
}

// protected runs next only for users holding role.
func (h *Handler) protected(role auth.Role, next func(http.ResponseWriter, *http.Request, *auth.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.guard.Require(r.Context(), sessionToken(r), role)
		if err != nil {
			h.metrics.ObserveGuard(role.String(), writeError(w, r, h.logger, err))
			return
		}
		h.metrics.ObserveGuard(role.String(), observability.OutcomeSuccess)
		next(w, r, user)
	}
}

// profileResponse stands in for the role's landing page.
type profileResponse struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	SchoolID string `json:"school_id,omitempty"`
}

func (h *Handler) profile(w http.ResponseWriter, _ *http.Request, user *auth.User) {
	writeJSON(w, http.StatusOK, profileResponse{
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role.String(),
		SchoolID: user.SchoolID,
	})
}

type statusResponse struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Version string `json:"version"`
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "online", App: AppName, Version: h.version})
}

// readForm parses a urlencoded or multipart form and returns the named
// fields. Every field must be present; empty values are left to the caller.
func readForm(w http.ResponseWriter, r *http.Request, fields ...string) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, oops.Code("WEB_INVALID_FORM").Errorf("form could not be parsed")
	}

	values := make(map[string]string, len(fields))
	for _, field := range fields {
		v, ok := r.PostForm[field]
		if !ok || len(v) == 0 {
			return nil, oops.Code("WEB_INVALID_FORM").With("field", field).Errorf("missing form field %q", field)
		}
		values[field] = v[0]
	}
	return values, nil
}
