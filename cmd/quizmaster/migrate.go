// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/quizmaster/quizmaster/internal/auth"
	"github.com/quizmaster/quizmaster/internal/config"
	"github.com/quizmaster/quizmaster/internal/store"
)

func newMigrateCmd(opts *rootOptions, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL schema migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, deps, func(m Migrator) error {
				pending, err := m.PendingMigrations()
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					cmd.Println("Database schema is current")
					return nil
				}
				cmd.Printf("Applying %d migration(s)...\n", len(pending))
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})

	var yes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all user accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return oops.Code("MIGRATION_NOT_CONFIRMED").Errorf("down drops all data; rerun with --yes to confirm")
			}
			return withMigrator(cmd, opts, deps, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm that all data may be dropped")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, deps, func(m Migrator) error {
				return printStatus(cmd, m)
			})
		},
	})

	return cmd
}

func printStatus(cmd *cobra.Command, m Migrator) error {
	current, dirty, err := m.Version()
	if err != nil {
		return err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}

	cmd.Printf("Current version: %d", current)
	if dirty {
		cmd.Print(" (dirty)")
	}
	cmd.Println()

	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return nil
	}
	cmd.Println("Pending migrations:")
	for _, v := range pending {
		name, err := store.MigrationName(v)
		if err != nil {
			return err
		}
		cmd.Printf("  %s\n", name)
	}
	return nil
}

// withMigrator resolves the database URL, opens a migrator and runs fn.
// Only database.url is required; migrate never needs the signing secret.
func withMigrator(cmd *cobra.Command, opts *rootOptions, deps *Deps, fn func(Migrator) error) error {
	deps = deps.withDefaults()

	cfg, err := config.Read(opts.loadOptions(cmd))
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database.url").
			Wrapf(auth.ErrConfiguration, "DATABASE_URL is required")
	}

	m, err := deps.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer closeMigrator(m, slog.Default())

	return fn(m)
}
