// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/quizmaster/quizmaster/internal/config"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
}

func (o *rootOptions) loadOptions(cmd *cobra.Command) config.LoadOptions {
	return config.LoadOptions{
		File:   config.DiscoverFile(o.configFile),
		DotEnv: o.envFile,
		Flags:  cmd.Flags(),
	}
}

// NewRootCmd creates the root command for the QuizMaster CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quizmaster",
		Short: "QuizMaster - quiz platform server",
		Long: `QuizMaster serves the quiz platform. Admins create quizzes and
students take them; both sign in with an email and password.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file path (default: $XDG_CONFIG_HOME/quizmaster/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultDotEnv, "dotenv file with default environment values")

	cmd.AddCommand(newServeCmd(opts, deps))
	cmd.AddCommand(newMigrateCmd(opts, deps))

	return cmd
}
