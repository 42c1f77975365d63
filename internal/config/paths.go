// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package config

import (
	"os"
	"path/filepath"
)

const appName = "quizmaster"

// Dir returns the XDG config directory for quizmaster.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultFile is the YAML file read when no --config flag is given.
func DefaultFile() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DiscoverFile returns explicit when set, otherwise DefaultFile if it exists,
// otherwise "".
func DiscoverFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if info, err := os.Stat(DefaultFile()); err == nil && !info.IsDir() {
		return DefaultFile()
	}
	return ""
}
