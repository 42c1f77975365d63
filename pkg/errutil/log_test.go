// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizmaster/quizmaster/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("USER_CREATE_FAILED").
		With("email", "sam@example.com").
		Wrap(errors.New("connection refused"))

	errutil.LogError(logger, "signup failed", err)

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "signup failed", entry["msg"])
	assert.Equal(t, "USER_CREATE_FAILED", entry["code"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, map[string]any{"email": "sam@example.com"}, entry["context"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("standard error"))

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "standard error")
	assert.NotContains(t, entry, "code")
}

func TestCode(t *testing.T) {
	assert.Equal(t, "AUTH_LOCKED_OUT", errutil.Code(oops.Code("AUTH_LOCKED_OUT").Errorf("locked")))
	assert.Empty(t, errutil.Code(errors.New("plain")))
	assert.Empty(t, errutil.Code(oops.Errorf("no code")))
}
