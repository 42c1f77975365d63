// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package main

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errFakeUnused = errors.New("not used by this test")

type fakeDB struct {
	pingErr error
	closed  atomic.Bool
}

func (f *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errFakeUnused
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{}
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }
func (f *fakeDB) Close()                     { f.closed.Store(true) }

type errRow struct{}

func (errRow) Scan(...any) error { return errFakeUnused }

type fakeMigrator struct {
	version uint
	dirty   bool
	pending []uint
	upErr   error
	ups     int
	downs   int
	closed  bool
}

func (f *fakeMigrator) Up() error {
	f.ups++
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.downs++
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error)      { return f.version, f.dirty, nil }
func (f *fakeMigrator) PendingMigrations() ([]uint, error) { return f.pending, nil }

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}
