// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/folio-go/internal/auth"
	"github.com/olegiv/folio-go/internal/cache"
	"github.com/olegiv/folio-go/internal/config"
	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/handler"
	"github.com/olegiv/folio-go/internal/imaging"
	"github.com/olegiv/folio-go/internal/logging"
	"github.com/olegiv/folio-go/internal/markup"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/scheduler"
	"github.com/olegiv/folio-go/internal/session"
	"github.com/olegiv/folio-go/internal/storage"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/transfer"
	"github.com/olegiv/folio-go/internal/upload"
	"github.com/olegiv/folio-go/internal/version"
	"github.com/olegiv/folio-go/internal/webhook"
	"github.com/olegiv/folio-go/internal/workspace"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// maxImageDimension bounds uncropped project images.
const maxImageDimension = 2400

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "folio - portfolio admin server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_SESSION_SECRET     Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_DB_DIALECT         sqlite|postgres (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_DB_DSN             Database path or URL (default: ./data/folio.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_STORAGE_DIR        Uploaded image directory (default: ./data/storage)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_ADMIN_EMAIL        Admin account created on first start\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_ADMIN_PASSWORD     Password of that account (min 12 characters)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_REDIS_URL          Redis URL for the public content cache (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("folio %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, nil)
	slog.SetDefault(logger)

	dialect, err := store.ParseDialect(cfg.DBDialect)
	if err != nil {
		return err
	}
	if dialect == store.DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "dialect", dialect)
	db, err := store.Open(dialect, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	queries := store.New(db)

	// Warnings and errors also go to the event log from here on.
	logger = logging.New(os.Stdout, cfg.LogLevel, queries)
	slog.SetDefault(logger)
	slog.Info("database ready", "version", versionInfo.String())

	ctx := context.Background()
	if err := seedAdmin(ctx, cfg, queries); err != nil {
		return err
	}
	if cfg.SeedDemo {
		if err := store.SeedDemo(ctx, queries); err != nil {
			return fmt.Errorf("seeding demo content: %w", err)
		}
	}

	sessionManager := session.New(db, cfg.IsDevelopment())
	identity := auth.NewSessionIdentity(sessionManager, queries)

	contentCache, backend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTL,
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() { _ = contentCache.Close() }()
	slog.Info("content cache initialized", "backend", backend)

	bucket, err := storage.NewFSBucket(cfg.StorageDir, cfg.StorageBaseURL)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	repo := content.NewRepository(queries, logger)
	uploads := upload.New(bucket, repo.Photos, imaging.NewProcessor(maxImageDimension), logger)
	contentHandler := handler.NewContentHandler(repo, contentCache, cfg.CacheTTL, markup.New(), logger)

	var (
		dispatcher *webhook.Dispatcher
		changes    *webhook.Debouncer
	)
	if cfg.UseWebhook() {
		dispatcher, err = webhook.NewDispatcher(webhook.Config{
			URL:          cfg.WebhookURL,
			Secret:       cfg.WebhookSecret,
			AllowPrivate: cfg.WebhookAllowPrivate,
		}, logger)
		if err != nil {
			return fmt.Errorf("initializing webhook: %w", err)
		}
		dispatcher.Start(context.Background())
		defer dispatcher.Stop()

		changes = webhook.NewDebouncer(dispatcher, webhook.DefaultDebounceConfig(), func(err error) {
			logger.Warn("content change notification dropped", "error", err)
		})
		defer changes.Stop()
		slog.Info("change notifications enabled", "url", cfg.WebhookURL)
	}

	contentChanged := func(c model.Collection) {
		contentHandler.Invalidate(context.Background())
		if changes != nil {
			changes.ContentChanged(c)
		}
	}
	workspaces := workspace.NewRegistry(workspace.Deps{
		Repository: repo,
		Uploads:    uploads,
		Identity:   identity,
		Logger:     logger,
		OnChange:   contentChanged,
	})

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	publicRateLimiter := middleware.NewRateLimiter(10.0, 20)

	sched := scheduler.New(logger)
	jobs := []scheduler.Job{
		scheduler.EvictWorkspaces(workspaces, cfg.WorkspaceIdleTimeout, logger),
		scheduler.PruneEvents(queries, cfg.EventRetention, logger),
		scheduler.PruneState("prune-state", logger, statePruners(loginProtection, publicRateLimiter, contentCache)...),
		scheduler.ReportOrphans(scheduler.OrphanFinder{
			Objects: bucket,
			Content: repo,
			MinAge:  cfg.OrphanMinAge,
		}, logger),
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("registering job: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	ops := handler.NewOpsHandler(queries, sched, logger)
	if dispatcher != nil {
		ops.WithWebhook(dispatcher)
	}

	transferHandler := handler.NewTransferHandler(
		transfer.NewExporter(repo, bucket, logger),
		transfer.NewImporter(repo, bucket, logger),
		contentChanged,
		logger,
	)

	r := newRouter(routerDeps{
		cfg:               cfg,
		sessions:          sessionManager,
		identity:          identity,
		loginProtection:   loginProtection,
		publicRateLimiter: publicRateLimiter,
		bucket:            bucket,
		auth:              handler.NewAuthHandler(auth.NewAuthenticator(queries, logger), identity, loginProtection, workspaces, logger),
		admin:             handler.NewAdminHandler(workspaces, logger),
		content:           contentHandler,
		ops:               ops,
		transfer:          transferHandler,
		health:            handler.NewHealthHandler(db.DB, identity, contentCache, bucket.Dir(), versionInfo),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // image uploads over slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// seedAdmin creates the configured admin account on first start.
func seedAdmin(ctx context.Context, cfg *config.Config, q *store.Queries) error {
	if cfg.AdminPassword == "" {
		n, err := q.CountUsers(ctx)
		if err != nil {
			return fmt.Errorf("counting users: %w", err)
		}
		if n == 0 {
			slog.Warn("no admin account exists; set FOLIO_ADMIN_PASSWORD to create one", "email", cfg.AdminEmail)
		}
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	if err := store.Seed(ctx, q, cfg.AdminEmail, hash); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	return nil
}

// statePruners collects the in-memory state that grows with traffic.
func statePruners(lp *middleware.LoginProtection, rl *middleware.RateLimiter, c cache.Cache) []scheduler.Pruner {
	pruners := []scheduler.Pruner{
		lp,
		scheduler.PrunerFunc(func() int {
			if rl.Prune(10000) {
				return 1
			}
			return 0
		}),
	}
	if mc, ok := c.(*cache.MemoryCache); ok {
		pruners = append(pruners, scheduler.PrunerFunc(mc.RemoveExpired))
	}
	return pruners
}
