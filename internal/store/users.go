// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

const userColumns = "id, email, password_hash, created_at, last_login_at"

// CreateUserParams holds the columns written by CreateUser.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var createdAt string
	var lastLogin sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt, &lastLogin); err != nil {
		return model.User{}, err
	}
	t, err := model.ParseTimestamp(createdAt)
	if err != nil {
		return model.User{}, err
	}
	u.CreatedAt = t
	if lastLogin.Valid {
		t, err := model.ParseTimestamp(lastLogin.String)
		if err != nil {
			return model.User{}, err
		}
		u.LastLoginAt = &t
	}
	return u, nil
}

// CreateUser inserts an admin account and returns it with its id.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	if arg.CreatedAt.IsZero() {
		arg.CreatedAt = q.clock.now()
	}
	row := q.db.QueryRowContext(ctx,
		q.rebind("INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?) RETURNING "+userColumns),
		arg.Email, arg.PasswordHash, model.FormatTimestamp(arg.CreatedAt),
	)
	return scanUser(row)
}

// GetUserByEmail returns the account with the given email or sql.ErrNoRows.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, q.rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), email)
	return scanUser(row)
}

// GetUserByID returns the account with the given id or sql.ErrNoRows.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, q.rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	return scanUser(row)
}

// UpdateUserLastLogin records a successful sign-in.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := q.exec(ctx, "UPDATE users SET last_login_at = ? WHERE id = ?", model.FormatTimestamp(at), id)
	return err
}

// UpdateUserPassword replaces the stored password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := q.exec(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	return err
}

// CountUsers returns the number of accounts.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}
