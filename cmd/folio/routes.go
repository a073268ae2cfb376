// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/folio-go/internal/config"
	"github.com/olegiv/folio-go/internal/handler"
	"github.com/olegiv/folio-go/internal/middleware"
)

// routerDeps carries everything newRouter mounts.
type routerDeps struct {
	cfg               *config.Config
	sessions          *scs.SessionManager
	identity          middleware.Identity
	loginProtection   *middleware.LoginProtection
	publicRateLimiter *middleware.RateLimiter
	bucket            http.Handler

	auth     *handler.AuthHandler
	admin    *handler.AdminHandler
	content  *handler.ContentHandler
	ops      *handler.OpsHandler
	transfer *handler.TransferHandler
	health   *handler.HealthHandler
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead) // HEAD requests for uptime monitoring
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(d.cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)

	// Health checks and stored images do not need a session.
	r.With(d.sessions.LoadAndSave).Get("/health", d.health.Health)
	if prefix := d.cfg.StoragePath(); prefix != "" {
		r.With(middleware.StaticCache(604800)).Handle(prefix+"/*", d.bucket)
		slog.Info("serving stored images", "prefix", prefix)
	}

	r.Group(func(r chi.Router) {
		r.Use(d.publicRateLimiter.Middleware())
		r.Get("/api/content", d.content.Content)
	})

	r.Group(func(r chi.Router) {
		r.Use(d.sessions.LoadAndSave)
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(d.cfg.SessionSecret), d.cfg.IsDevelopment(), d.cfg.TrustedOrigins...)))
		r.Use(middleware.NoStore)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RedirectAuthenticated(d.identity))
			r.Get(middleware.LoginPath, d.auth.LoginForm)
			r.With(d.loginProtection.Middleware()).Post(middleware.LoginPath, d.auth.Login)
		})
		r.Post("/logout", d.auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(d.identity))
			r.Get(middleware.AdminPath, d.admin.Snapshot)

			r.Route(middleware.AdminPath+"/api", func(r chi.Router) {
				r.Put("/settings", d.admin.UpdateSettings)

				r.Get("/crop", d.admin.CropSession)
				r.Post("/crop", d.admin.BeginCrop)
				r.Put("/crop", d.admin.AdjustCrop)
				r.Delete("/crop", d.admin.CancelCrop)
				r.Post("/crop/commit", d.admin.CommitCrop)

				r.Post("/projects/media", d.admin.UploadProjectImage)
				r.Post("/projects/media/video", d.admin.AddProjectVideo)
				r.Delete("/projects/media/{index}", d.admin.RemoveProjectMedia)

				r.Get("/events", d.ops.Events)
				r.Get("/jobs", d.ops.Jobs)
				r.Post("/jobs/{name}/run", d.ops.RunJob)
				r.Post("/webhook/test", d.ops.TestWebhook)

				r.Get("/export", d.transfer.Export)
				r.Post("/import", d.transfer.Import)

				r.Get("/{collection}/form", d.admin.OpenForm)
				r.Delete("/{collection}/form", d.admin.CloseForm)
				r.Post("/{collection}", d.admin.Create)
				r.Put("/{collection}/{id}", d.admin.Update)
				r.Delete("/{collection}/{id}", d.admin.Delete)
			})
		})
	})

	return r
}
