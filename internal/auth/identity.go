// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// SessionKeyUserID is the session key holding the signed-in admin id.
const SessionKeyUserID = "user_id"

var (
	// ErrNoSession is returned when the request carries no signed-in admin.
	ErrNoSession = errors.New("no active session")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Users is the user lookup used by SessionIdentity and Authenticator.
type Users interface {
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
}

var _ Users = (*store.Queries)(nil)

// SessionIdentity resolves the admin of a request from its scs session.
type SessionIdentity struct {
	sessions *scs.SessionManager
	users    Users
}

// NewSessionIdentity creates an identity backed by sm.
func NewSessionIdentity(sm *scs.SessionManager, users Users) *SessionIdentity {
	return &SessionIdentity{sessions: sm, users: users}
}

// UserID returns the id stored in the session, or 0.
func (s *SessionIdentity) UserID(ctx context.Context) int64 {
	return s.sessions.GetInt64(ctx, SessionKeyUserID)
}

// CurrentUser returns the admin signed in on ctx. A session pointing at a
// user that no longer exists is destroyed.
func (s *SessionIdentity) CurrentUser(ctx context.Context) (model.User, error) {
	id := s.UserID(ctx)
	if id == 0 {
		return model.User{}, ErrNoSession
	}
	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		_ = s.sessions.Destroy(ctx)
		return model.User{}, ErrNoSession
	}
	if err != nil {
		return model.User{}, fmt.Errorf("loading user %d: %w", id, err)
	}
	return user, nil
}

// SignIn stores userID in the session, renewing the token first.
func (s *SessionIdentity) SignIn(ctx context.Context, userID int64) error {
	if err := s.sessions.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}
	s.sessions.Put(ctx, SessionKeyUserID, userID)
	return nil
}

// SignOut destroys the session.
func (s *SessionIdentity) SignOut(ctx context.Context) error {
	return s.sessions.Destroy(ctx)
}

// Authenticator checks admin credentials.
type Authenticator struct {
	users  Users
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(users Users, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{users: users, logger: logger, now: time.Now}
}

// Authenticate returns the user with email if password matches, and records
// the login time. Hashes made with outdated parameters are upgraded.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := a.users.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := CheckPassword(password, user.PasswordHash)
	if err != nil {
		a.logger.Warn("stored password hash unreadable", "category", model.EventCategoryAuth, "user_id", user.ID, "error", err)
		return model.User{}, ErrInvalidCredentials
	}
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}

	now := a.now().UTC()
	if err := a.users.UpdateUserLastLogin(ctx, user.ID, now); err != nil {
		a.logger.Warn("failed to record login time", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	if NeedsRehash(user.PasswordHash) {
		if hash, err := HashPassword(password); err == nil {
			if err := a.users.UpdateUserPassword(ctx, user.ID, hash); err != nil {
				a.logger.Warn("failed to upgrade password hash", "user_id", user.ID, "error", err)
			}
		}
	}
	return user, nil
}
