// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/olegiv/folio-go/internal/cache"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/version"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db         *sql.DB
	ident      middleware.Identity
	cache      cache.Cache
	storageDir string
	version    version.Info
	startTime  time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB, ident middleware.Identity, c cache.Cache, storageDir string, v version.Info) *HealthHandler {
	return &HealthHandler{
		db:         db,
		ident:      ident,
		cache:      c,
		storageDir: storageDir,
		version:    v,
		startTime:  time.Now(),
	}
}

// HealthStatusPublic is the minimal health response for unauthenticated callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the detailed response shown to the signed-in admin.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Cache     *cache.Stats     `json:"cache,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health. Anonymous callers only get the overall status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"database": h.checkDatabase(r.Context()),
		"storage":  h.checkDiskSpace(),
	}

	status := "healthy"
	for _, c := range checks {
		if c.Status != "healthy" {
			status = "degraded"
		}
	}
	code := http.StatusOK
	if checks["database"].Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	if !h.isAdmin(r) {
		writeJSON(w, code, HealthStatusPublic{Status: status})
		return
	}

	resp := HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version.String(),
		Checks:    checks,
	}
	if h.cache != nil {
		stats := h.cache.Stats()
		resp.Cache = &stats
	}
	if r.URL.Query().Get("verbose") == "true" {
		resp.System = systemInfo()
	}
	writeJSON(w, code, resp)
}

// isAdmin reports whether the request carries an admin session. Sessions
// that were not loaded into the context count as anonymous.
func (h *HealthHandler) isAdmin(r *http.Request) (ok bool) {
	if h.ident == nil {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()
	if h.ident.UserID(r.Context()) == 0 {
		return false
	}
	_, err := h.ident.CurrentUser(r.Context())
	return err == nil
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)
	if err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: "healthy", Message: "Connected", Latency: latency.String()}
}

// checkDiskSpace checks available space in the storage directory.
func (h *HealthHandler) checkDiskSpace() Check {
	if _, err := os.Stat(h.storageDir); os.IsNotExist(err) {
		return Check{Status: "healthy", Message: "Storage directory does not exist yet"}
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(h.storageDir, &stat); err != nil {
		return Check{Status: "unhealthy", Message: "Failed to check disk space: " + err.Error()}
	}
	available := stat.Bavail * uint64(stat.Bsize)

	const minSpace = 100 * 1024 * 1024
	if available < minSpace {
		return Check{Status: "degraded", Message: "Low disk space: " + formatBytes(available) + " available"}
	}
	return Check{Status: "healthy", Message: formatBytes(available) + " available"}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatUint(b, 10) + " B"
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "B"
}
