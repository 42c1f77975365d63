// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	for _, sub := range []string{"serve", "migrate"} {
		assert.Contains(t, buf.String(), sub, "help missing %q command", sub)
	}
}

func TestMigrateCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"migrate", "--help"})

	require.NoError(t, cmd.Execute())

	for _, sub := range []string{"up", "down", "status"} {
		assert.Contains(t, buf.String(), sub)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewRootCmd()
	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	for _, name := range []string{"http-addr", "metrics-addr", "secure-cookies", "auto-migrate", "log-format", "log-level"} {
		assert.NotNil(t, serve.Flags().Lookup(name), "serve missing --%s", name)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("env-file"))
}
