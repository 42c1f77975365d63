// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quizmaster/quizmaster/internal/auth"
	"github.com/quizmaster/quizmaster/internal/observability"
	"github.com/quizmaster/quizmaster/pkg/errutil"
)

const internalErrorDetail = "internal error"

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Detail string `json:"detail"`
}

// inputCodes are validation failures whose message is safe to return.
var inputCodes = map[string]struct{}{
	"AUTH_INVALID_EMAIL":  {},
	"AUTH_INVALID_NAME":   {},
	"AUTH_EMPTY_PASSWORD": {},
	"AUTH_INVALID_USER":   {},
	"WEB_INVALID_FORM":    {},
}

// classify maps err to a status, a client-safe detail and a metrics outcome.
func classify(err error) (status int, detail, outcome string) {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		return http.StatusUnauthorized, auth.ErrNotAuthenticated.Error(), observability.OutcomeNotAuthenticated
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, auth.ErrForbidden.Error(), observability.OutcomeForbidden
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusBadRequest, auth.ErrInvalidCredentials.Error(), observability.OutcomeInvalidCredentials
	case errors.Is(err, auth.ErrLockedOut):
		return http.StatusTooManyRequests, auth.ErrLockedOut.Error(), observability.OutcomeLockedOut
	case errors.Is(err, auth.ErrInvalidEnrollmentSecret):
		return http.StatusBadRequest, auth.ErrInvalidEnrollmentSecret.Error(), observability.OutcomeInvalidSecret
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusBadRequest, auth.ErrEmailTaken.Error(), observability.OutcomeEmailTaken
	case errors.Is(err, auth.ErrEmptyPassword):
		return http.StatusBadRequest, auth.ErrEmptyPassword.Error(), observability.OutcomeInvalidInput
	}

	if _, ok := inputCodes[errutil.Code(err)]; ok {
		return http.StatusBadRequest, err.Error(), observability.OutcomeInvalidInput
	}
	return http.StatusInternalServerError, internalErrorDetail, observability.OutcomeError
}

// writeError renders err and logs anything that is not a client mistake.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) string {
	status, detail, outcome := classify(err)
	switch {
	case status == http.StatusInternalServerError:
		errutil.LogErrorContext(r.Context(), logger, "request failed", err)
	case status == http.StatusTooManyRequests:
		logger.WarnContext(r.Context(), "request rejected", append(errutil.Attrs(err), "path", r.URL.Path)...)
	default:
		logger.DebugContext(r.Context(), "request rejected", append(errutil.Attrs(err), "path", r.URL.Path)...)
	}
	writeJSON(w, status, errorResponse{Detail: detail})
	return outcome
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(body)
}
