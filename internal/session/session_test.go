// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/olegiv/folio-go/internal/testutil"
)

func TestNew_DevMode(t *testing.T) {
	sm := New(testutil.TestDB(t), true)

	if sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = false in dev mode")
	}
	if sm.Cookie.Name != "folio_session" {
		t.Errorf("Cookie.Name = %q, want folio_session", sm.Cookie.Name)
	}
}

func TestNew_ProductionMode(t *testing.T) {
	sm := New(testutil.TestDB(t), false)

	if !sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = true in production mode")
	}
	if sm.Cookie.Name != "__Host-folio_session" {
		t.Errorf("Cookie.Name = %q, want __Host-folio_session", sm.Cookie.Name)
	}
	if sm.Cookie.Path != "/" {
		t.Errorf("Cookie.Path = %q, want /", sm.Cookie.Path)
	}
}

func TestNew_SessionSettings(t *testing.T) {
	sm := New(testutil.TestDB(t), true)

	if sm.Lifetime != Lifetime {
		t.Errorf("Lifetime = %v, want %v", sm.Lifetime, Lifetime)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected Cookie.HttpOnly = true")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", sm.Cookie.SameSite)
	}
}

func TestNew_Store(t *testing.T) {
	if _, ok := New(testutil.TestDB(t), true).Store.(*sqlite3store.SQLite3Store); !ok {
		t.Error("expected sqlite3store on SQLite")
	}
	if _, ok := New(nil, true).Store.(*memstore.MemStore); !ok {
		t.Error("expected memstore without a database")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	sm := New(testutil.TestDB(t), true)

	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sm.Put(ctx, "user_id", int64(5))
	token, _, err := sm.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	loaded, err := sm.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("Load(token): %v", err)
	}
	if got := sm.GetInt64(loaded, "user_id"); got != 5 {
		t.Errorf("user_id = %d, want 5", got)
	}
}
