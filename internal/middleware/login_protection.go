// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

// maxLockout caps the exponential lockout.
const maxLockout = 24 * time.Hour

// LoginProtection combines per-IP rate limiting of login posts with
// per-account lockout after repeated failures.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	mu       sync.Mutex
	attempts map[string]*loginAttempt
	now      func() time.Time

	maxFailedAttempts int
	lockoutDuration   time.Duration
	attemptWindow     time.Duration
}

type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is login posts per second per IP.
	IPRateLimit float64
	// IPBurst is the burst allowed per IP.
	IPBurst int
	// MaxFailedAttempts within AttemptWindow lock the account.
	MaxFailedAttempts int
	// LockoutDuration is the first lockout; each further lockout doubles it.
	LockoutDuration time.Duration
	// AttemptWindow is the window failures are counted in.
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns the production defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates login protection. Zero config fields take the
// defaults.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}

	return &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		attempts:          make(map[string]*loginAttempt),
		now:               time.Now,
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
	}
}

func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAccountLocked reports whether email is locked and for how long.
func (lp *LoginProtection) IsAccountLocked(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	a, ok := lp.attempts[accountKey(email)]
	if !ok {
		return false, 0
	}
	if now := lp.now(); now.Before(a.lockedUntil) {
		return true, a.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailedAttempt counts a failed login for email. It returns true and
// the lockout duration when this failure locked the account.
func (lp *LoginProtection) RecordFailedAttempt(email string) (bool, time.Duration) {
	key := accountKey(email)
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	a, ok := lp.attempts[key]
	if !ok {
		a = &loginAttempt{}
		lp.attempts[key] = a
	}
	if a.count == 0 || now.Sub(a.firstFailed) > lp.attemptWindow {
		a.count = 0
		a.firstFailed = now
	}
	a.count++

	if a.count < lp.maxFailedAttempts {
		return false, 0
	}

	lock := lp.lockoutDuration
	for i := 0; i < a.lockouts && lock < maxLockout; i++ {
		lock *= 2
	}
	lock = min(lock, maxLockout)

	a.lockedUntil = now.Add(lock)
	a.lockouts++
	a.count = 0

	slog.Warn("account locked after failed logins",
		"category", model.EventCategoryAuth,
		"email", key,
		"lockouts", a.lockouts,
		"duration", lock,
	)
	return true, lock
}

// RecordSuccessfulLogin forgets the failures of email.
func (lp *LoginProtection) RecordSuccessfulLogin(email string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	delete(lp.attempts, accountKey(email))
}

// RemainingAttempts returns how many failures email has left before lockout.
func (lp *LoginProtection) RemainingAttempts(email string) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	a, ok := lp.attempts[accountKey(email)]
	if !ok || lp.now().Sub(a.firstFailed) > lp.attemptWindow {
		return lp.maxFailedAttempts
	}
	return max(lp.maxFailedAttempts-a.count, 0)
}

// Prune drops expired account entries and, past a size limit, all IP
// limiters. It returns the number of account entries removed.
func (lp *LoginProtection) Prune() int {
	if lp.ipLimiters.clearIfExceeds(10000) {
		slog.Info("cleared login rate limiters")
	}

	lp.mu.Lock()
	defer lp.mu.Unlock()
	now := lp.now()
	removed := 0
	for key, a := range lp.attempts {
		if now.After(a.lockedUntil) && now.Sub(a.firstFailed) > lp.attemptWindow {
			delete(lp.attempts, key)
			removed++
		}
	}
	return removed
}

// Middleware rate limits login posts per client IP.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			ip := ClientIP(r)
			if !lp.ipLimiters.get(ip).Allow() {
				slog.Warn("login rate limit exceeded", "category", model.EventCategoryAuth, "ip", ip)
				WriteError(w, http.StatusTooManyRequests, "too many login attempts, please wait")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
