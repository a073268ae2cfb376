// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"time"

	"github.com/olegiv/folio-go/internal/auth"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/workspace"
)

var loginPage = template.Must(template.New("login").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Sign in</title></head>
<body>
<main>
<h1>Sign in</h1>
{{if .Error}}<p role="alert">{{.Error}}</p>{{end}}
<form method="post" action="/login">
<label>Email <input type="email" name="email" value="{{.Email}}" required autofocus></label>
<label>Password <input type="password" name="password" required></label>
<button type="submit">Sign in</button>
</form>
</main>
</body>
</html>
`))

type loginData struct {
	Email string
	Error string
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler handles sign in and sign out.
type AuthHandler struct {
	authn      *auth.Authenticator
	sessions   *auth.SessionIdentity
	protection *middleware.LoginProtection
	workspaces *workspace.Registry
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authn *auth.Authenticator, sessions *auth.SessionIdentity, lp *middleware.LoginProtection, reg *workspace.Registry, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authn:      authn,
		sessions:   sessions,
		protection: lp,
		workspaces: reg,
		logger:     logger,
	}
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, _ *http.Request) {
	renderLogin(w, http.StatusOK, loginData{})
}

// Login checks the submitted credentials and starts the admin session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, err := h.readCredentials(w, r)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, creds.Email, "Invalid form data")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		h.fail(w, r, http.StatusBadRequest, creds.Email, "Email and password are required")
		return
	}

	clientIP := middleware.ClientIP(r)
	if locked, remaining := h.protection.IsAccountLocked(creds.Email); locked {
		h.logger.Warn("login attempt on locked account", "category", model.EventCategoryAuth, "email", creds.Email, "ip", clientIP)
		h.fail(w, r, http.StatusTooManyRequests, creds.Email,
			fmt.Sprintf("Account is locked, try again in %s", formatWait(remaining)))
		return
	}

	user, err := h.authn.Authenticate(r.Context(), creds.Email, creds.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.logger.Warn("login failed", "category", model.EventCategoryAuth, "email", creds.Email, "ip", clientIP)
		if locked, lockFor := h.protection.RecordFailedAttempt(creds.Email); locked {
			h.logger.Warn("account locked after failed logins", "category", model.EventCategoryAuth, "email", creds.Email, "duration", lockFor.String())
			h.fail(w, r, http.StatusTooManyRequests, creds.Email,
				fmt.Sprintf("Too many failed attempts, try again in %s", formatWait(lockFor)))
			return
		}
		msg := "Invalid email or password"
		if remaining := h.protection.RemainingAttempts(creds.Email); remaining > 0 && remaining <= 3 {
			msg = fmt.Sprintf("%s, %d attempts remaining", msg, remaining)
		}
		h.fail(w, r, http.StatusUnauthorized, creds.Email, msg)
		return
	}
	if err != nil {
		h.logger.Error("login error", "category", model.EventCategoryAuth, "error", err)
		h.fail(w, r, http.StatusInternalServerError, creds.Email, "Sign in failed, please try again")
		return
	}

	h.protection.RecordSuccessfulLogin(creds.Email)
	if err := h.sessions.SignIn(r.Context(), user.ID); err != nil {
		h.logger.Error("failed to start session", "category", model.EventCategoryAuth, "user_id", user.ID, "error", err)
		h.fail(w, r, http.StatusInternalServerError, creds.Email, "Sign in failed, please try again")
		return
	}
	h.logger.Info("admin signed in", "category", model.EventCategoryAuth, "user_id", user.ID, "ip", clientIP)

	if middleware.WantsJSON(r) {
		writeJSONSuccess(w, map[string]any{"redirect": middleware.AdminPath})
		return
	}
	http.Redirect(w, r, middleware.AdminPath, http.StatusSeeOther)
}

// Logout ends the session and drops the admin's workspace.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessions.UserID(r.Context()); userID != 0 {
		if err := h.workspaces.SignOut(r.Context(), userID); err != nil {
			h.logger.Error("failed to end session", "category", model.EventCategoryAuth, "user_id", userID, "error", err)
		} else {
			h.logger.Info("admin signed out", "category", model.EventCategoryAuth, "user_id", userID)
		}
	}

	if middleware.WantsJSON(r) {
		writeJSONSuccess(w, map[string]any{"redirect": middleware.LoginPath})
		return
	}
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var creds credentials
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		err := decodeJSON(w, r, &creds)
		return creds, err
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		return creds, err
	}
	creds.Email = r.PostFormValue("email")
	creds.Password = r.PostFormValue("password")
	return creds, nil
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, status int, email, msg string) {
	if middleware.WantsJSON(r) {
		writeJSONError(w, status, msg)
		return
	}
	renderLogin(w, status, loginData{Email: email, Error: msg})
}

func renderLogin(w http.ResponseWriter, status int, data loginData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = loginPage.Execute(w, data)
}

// formatWait renders a lockout duration in whole minutes.
func formatWait(d time.Duration) string {
	minutes := int(math.Ceil(d.Minutes()))
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
