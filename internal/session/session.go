// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the scs session manager of the admin area.
package session

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/olegiv/folio-go/internal/store"
)

// Lifetime is the absolute lifetime of an admin session.
const Lifetime = 24 * time.Hour

// New creates a session manager. Sessions live in the sessions table on
// SQLite and in memory on other dialects.
func New(db *store.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	if db != nil && db.Dialect == store.DialectSQLite {
		sm.Store = sqlite3store.New(db.DB)
	} else {
		sm.Store = memstore.New()
	}

	sm.Lifetime = Lifetime
	sm.IdleTimeout = 2 * time.Hour
	sm.Cookie.Name = "folio_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	if !isDev {
		sm.Cookie.Name = "__Host-folio_session"
	}

	return sm
}
