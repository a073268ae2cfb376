// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/folio-go/internal/model"
)

type stubIdentity struct {
	id  int64
	err error
}

func (s stubIdentity) UserID(context.Context) int64 { return s.id }

func (s stubIdentity) CurrentUser(context.Context) (model.User, error) {
	if s.err != nil {
		return model.User{}, s.err
	}
	return model.User{ID: s.id, Email: "admin@example.com"}, nil
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		ident    stubIdentity
		path     string
		wantCode int
		wantNext bool
	}{
		{"signed in", stubIdentity{id: 1}, "/admin", http.StatusOK, true},
		{"anonymous page", stubIdentity{}, "/admin", http.StatusSeeOther, false},
		{"anonymous api", stubIdentity{}, "/admin/api/settings", http.StatusUnauthorized, false},
		{"deleted user", stubIdentity{id: 3, err: errors.New("gone")}, "/admin", http.StatusSeeOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			var seen int64
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				seen = GetUserID(r)
			})
			rec := httptest.NewRecorder()
			RequireAdmin(tt.ident)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if called != tt.wantNext {
				t.Errorf("next called = %v, want %v", called, tt.wantNext)
			}
			if tt.wantCode == http.StatusSeeOther && rec.Header().Get("Location") != LoginPath {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), LoginPath)
			}
			if called && seen != tt.ident.id {
				t.Errorf("user id in context = %d, want %d", seen, tt.ident.id)
			}
		})
	}
}

func TestRedirectAuthenticated(t *testing.T) {
	var called bool
	rec := httptest.NewRecorder()
	RedirectAuthenticated(stubIdentity{id: 1})(okHandler(&called)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != AdminPath {
		t.Errorf("signed in: got %d %q, want redirect to %s", rec.Code, rec.Header().Get("Location"), AdminPath)
	}
	if called {
		t.Error("login page served to a signed-in admin")
	}

	called = false
	rec = httptest.NewRecorder()
	RedirectAuthenticated(stubIdentity{})(okHandler(&called)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if !called || rec.Code != http.StatusOK {
		t.Errorf("anonymous: called=%v status=%d", called, rec.Code)
	}
}

func TestGetUserWithoutContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetUser(r) != nil {
		t.Error("GetUser should be nil without RequireAdmin")
	}
	if GetUserID(r) != 0 {
		t.Error("GetUserID should be 0 without RequireAdmin")
	}
}

func TestRequestPath(t *testing.T) {
	var got string
	h := RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestPath(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/api/skills", nil))
	if got != "/admin/api/skills" {
		t.Errorf("GetRequestPath = %q", got)
	}
	if GetRequestPath(context.Background()) != "" {
		t.Error("empty context should give empty path")
	}
}
