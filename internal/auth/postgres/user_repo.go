// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/quizmaster/quizmaster/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool used by the repository.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user. A second user with the same email is rejected
// by the unique index and reported as auth.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	var schoolID *string
	if user.SchoolID != "" {
		schoolID = &user.SchoolID
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, school_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		user.ID.String(),
		user.Email,
		user.Name,
		user.PasswordHash,
		string(user.Role),
		schoolID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_EMAIL_TAKEN").
				With("email", user.Email).
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrEmailTaken)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByEmail retrieves a user by exact email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, school_id, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// UpdatePassword replaces the stored hash for the user with id.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		user     auth.User
		idStr    string
		roleStr  string
		schoolID *string
	)
	if err := row.Scan(
		&idStr,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&roleStr,
		&schoolID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers classify pgx.ErrNoRows
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ROW").With("id", idStr).Wrap(err)
	}
	role, err := auth.ParseRole(roleStr)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ROW").With("id", idStr).Wrap(err)
	}

	user.ID = id
	user.Role = role
	if schoolID != nil {
		user.SchoolID = *schoolID
	}
	return &user, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
