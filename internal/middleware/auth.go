// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides the HTTP middleware of the admin area and the
// public API: the session gate, login protection, CSRF, rate limiting and
// response headers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/folio-go/internal/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// Paths used by the session gate.
const (
	LoginPath = "/login"
	AdminPath = "/admin"
)

// Identity is the session lookup used by the gate.
type Identity interface {
	UserID(ctx context.Context) int64
	CurrentUser(ctx context.Context) (model.User, error)
}

// RequireAdmin lets requests with a signed-in admin through and stores the
// admin in the request context. Other requests are redirected to the login
// page; JSON API calls get 401 instead.
func RequireAdmin(ident Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ident.UserID(r.Context()) == 0 {
				denyAnonymous(w, r)
				return
			}

			user, err := ident.CurrentUser(r.Context())
			if err != nil {
				slog.Debug("session without a valid user", "path", r.URL.Path, "error", err)
				denyAnonymous(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RedirectAuthenticated sends signed-in admins from the login page to the
// admin workspace.
func RedirectAuthenticated(ident Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && ident.UserID(r.Context()) != 0 {
				if _, err := ident.CurrentUser(r.Context()); err == nil {
					http.Redirect(w, r, AdminPath, http.StatusSeeOther)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denyAnonymous(w http.ResponseWriter, r *http.Request) {
	if WantsJSON(r) {
		WriteError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// WantsJSON reports whether the client expects a JSON response.
func WantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, AdminPath+"/api/") || strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// GetUser returns the admin stored by RequireAdmin, or nil.
func GetUser(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyUser).(model.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the admin id stored by RequireAdmin, or 0.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// RequestPath stores the request path in the context for log records.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath returns the path stored by RequestPath.
func GetRequestPath(ctx context.Context) string {
	if path, ok := ctx.Value(ContextKeyRequestPath).(string); ok {
		return path
	}
	return ""
}
