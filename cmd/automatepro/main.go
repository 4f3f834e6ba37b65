// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/automatepro/internal/access"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/cache"
	"github.com/olegiv/automatepro/internal/config"
	"github.com/olegiv/automatepro/internal/geoip"
	"github.com/olegiv/automatepro/internal/handler"
	"github.com/olegiv/automatepro/internal/handler/api"
	"github.com/olegiv/automatepro/internal/logging"
	"github.com/olegiv/automatepro/internal/mail"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/obs"
	"github.com/olegiv/automatepro/internal/render"
	"github.com/olegiv/automatepro/internal/scheduler"
	"github.com/olegiv/automatepro/internal/service"
	"github.com/olegiv/automatepro/internal/session"
	"github.com/olegiv/automatepro/internal/store"
	"github.com/olegiv/automatepro/internal/version"
	"github.com/olegiv/automatepro/web"
)

// eventRetention is how long audit events are kept.
const eventRetention = 90 * 24 * time.Hour

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "AutomatePro - marketing site and tools\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_SESSION_SECRET       Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_DB_PATH              SQLite database path (default: ./data/automatepro.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_SERVER_PORT          Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_ENV                  Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_SITE_URL             Public base URL, used in links and the sitemap\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_REDIS_URL            Redis URL for shared caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_RESEND_API_KEY       Resend API key; mail is logged when unset\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_ADMIN_NOTIFY_EMAIL   Receives new contact messages (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_GEOIP_DB_PATH        GeoLite2-Country database for audit events (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_DO_SEED              Create the admin account on startup (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Println(version.Get().String())
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
	versionInfo := version.Get()

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db, store.SeedOptions{
			AdminEmail:    cfg.AdminLogin,
			AdminPassword: cfg.AdminPassword,
		}); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	sessionManager := session.New(db, cfg.IsDevelopment())
	flashes := session.NewFlashes(sessionManager)
	slog.Info("session manager initialized")

	var mailer mail.Sender
	if cfg.MailEnabled() {
		mailer = mail.NewResendSender(cfg.ResendAPIKey, cfg.MailFrom)
		slog.Info("mail delivery enabled", "provider", "resend")
	} else {
		mailer = mail.NewLogSender(logger)
		slog.Warn("mail delivery disabled, messages are logged", "hint", "set APP_RESEND_API_KEY")
	}

	metrics := obs.New()
	metrics.SetBuildInfo(versionInfo.Version, versionInfo.GitCommit)

	countries, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("geoip lookups limited to local addresses", "error", err)
	}
	defer func() { _ = countries.Close() }()
	events := service.NewEventService(db, service.WithCountryLookup(countries))

	// The content cache is created after the service it reads from, so the
	// change hook resolves it late.
	var content *cache.Content
	backendCfg := backend.DefaultConfig()
	backendCfg.AccessTTL = cfg.AccessTokenTTL
	backendCfg.RefreshTTL = cfg.RefreshTokenTTL
	backendCfg.RefreshReuseWindow = cfg.RefreshReuseWindow
	backendCfg.ConfirmationTTL = cfg.ConfirmationTTL
	backendCfg.RequireConfirmation = cfg.RequireEmailCheck
	backendCfg.SiteName = cfg.SiteName
	backendCfg.SiteURL = cfg.SiteURL
	svc := backend.NewService(db, mailer, backendCfg,
		backend.WithLogger(logger),
		backend.WithAuditLog(events),
		backend.OnChange(func(ctx context.Context, table string) {
			if content != nil {
				content.Invalidate(ctx, table)
			}
		}),
	)

	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	cacher, cacheBackend := cache.New(ctx, cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cacheTTL,
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() { _ = cacher.Close() }()
	content = cache.NewContent(cacher, svc, cacheTTL, logger)
	metrics.Registry().MustRegister(obs.NewCacheCollector(cacheBackend, content.Stats))
	slog.Info("content cache initialized", "backend", cacheBackend)

	checker := access.NewChecker(svc,
		access.WithRetries(cfg.RoleCheckRetries, cfg.RoleCheckBackoff),
		access.WithLogger(logger),
		access.WithObserver(metrics.ObserveRoleCheck),
	)

	sched := scheduler.New(logger, 5*time.Minute)
	for _, job := range scheduler.MaintenanceJobs(svc, events, eventRetention, logger) {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("registering job %s: %w", job.Name, err)
		}
	}
	if cfg.GeoIPDBPath != "" {
		if err := sched.Add(scheduler.Job{
			Name:        "reload-geoip",
			Description: "Reloads the GeoIP database when the file changes",
			Schedule:    "@daily",
			Run:         func(context.Context) error { return countries.Reload() },
		}); err != nil {
			return fmt.Errorf("registering job reload-geoip: %w", err)
		}
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS: templatesFS,
		Flashes:     flashes,
		SiteName:    cfg.SiteName,
		SiteURL:     cfg.SiteURL,
		IsDev:       cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	siteHandler := handler.NewSiteHandler(renderer, content, logger)
	reviewsHandler := handler.NewReviewsHandler(renderer, content, flashes, logger)
	contactHandler := handler.NewContactHandler(renderer, flashes, mailer, cfg.AdminEmail, logger)
	authHandler := handler.NewAuthHandler(renderer, svc, flashes, loginProtection, events, logger)
	adminHandler := handler.NewAdminHandler(renderer, flashes, sched, content, logger)
	postsHandler := handler.NewPostsHandler(renderer, checker, flashes, logger)
	toolsHandler := handler.NewToolsHandler(renderer, flashes, logger)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{"database": svc}, checker)
	seoHandler := handler.NewSEOHandler(content, cfg.SiteURL, cfg.IsDevelopment(), logger)
	apiHandler := api.NewHandler(api.Deps{
		Service:         svc,
		Content:         content,
		Checker:         checker,
		Contacts:        contactHandler,
		LoginProtection: loginProtection,
		Logger:          logger,
	})

	staticFS, err := fs.Sub(web.Static, "static/dist")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))                    // Gzip compression with level 5
	r.Use(chimw.GetHead)                        // Handle HEAD requests for uptime monitoring
	r.Use(middleware.Timeout(30 * time.Second)) // 30 second request timeout
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)
	r.Use(metrics.Instrument)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/sitemap.xml", seoHandler.Sitemap)
	r.Get("/robots.txt", seoHandler.Robots)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	apiLimiter := middleware.NewRateLimiter(10, 20)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiLimiter.Middleware())
		r.Use(middleware.BearerAuth(svc, logger))
		apiHandler.Mount(r)
	})

	formLimiter := middleware.NewRateLimiter(1, 5)
	gated := middleware.GatedAction(flashes, func(req *http.Request, ran bool) {
		metrics.ObserveGatedAction(chi.URLParam(req, "slug"), ran)
	})
	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerPort)
	slog.Info("CSRF protection initialized", "trusted_origins", csrfConfig.TrustedOrigins)

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		r.Use(middleware.CSRF(csrfConfig))
		r.Use(middleware.Auth(svc, sessionManager, logger))

		r.Get(handler.RouteRoot, siteHandler.Home)
		r.Get(handler.RouteAbout, siteHandler.About)
		r.Get(handler.RouteUseCases, siteHandler.UseCases)
		r.Get(handler.RouteBlog, siteHandler.Blog)
		r.Get(handler.RouteBlog+handler.RouteParamSlug, siteHandler.Post)

		r.Get(handler.RouteReviews, reviewsHandler.List)
		r.With(formLimiter.HTMLMiddleware(), middleware.RequireSession).
			Post(handler.RouteReviews, reviewsHandler.Submit)
		r.Get(handler.RouteContact, contactHandler.Form)
		r.With(formLimiter.HTMLMiddleware()).Post(handler.RouteContact, contactHandler.Submit)

		r.Get(handler.RouteTools, toolsHandler.Index)
		r.Get(handler.RouteGST, toolsHandler.GST)
		r.Post(handler.RouteGST, toolsHandler.Calculate)
		r.Get(handler.RouteTools+handler.RouteParamSlug, toolsHandler.Show)
		r.With(gated).Post(handler.RouteTools+handler.RouteParamSlug, toolsHandler.Submit)

		r.Get(handler.RouteAuth, authHandler.Form)
		r.With(loginProtection.Middleware()).Post(handler.RouteAuth+"/signin", authHandler.SignIn)
		r.With(formLimiter.HTMLMiddleware()).Post(handler.RouteAuth+"/signup", authHandler.SignUp)
		r.Post(handler.RouteAuth+"/signout", authHandler.SignOut)
		r.Get(handler.RouteAuth+"/confirm", authHandler.Confirm)

		// The editor resolves the role itself and navigates away on denial.
		r.Get(handler.RouteAdmin+"/posts/new", postsHandler.New)
		r.Post(handler.RouteAdmin+"/posts/new", postsHandler.Create)
		r.Get(handler.RouteAdmin+"/posts"+handler.RouteParamID+"/edit", postsHandler.Edit)
		r.Post(handler.RouteAdmin+"/posts"+handler.RouteParamID+"/edit", postsHandler.Update)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(checker, flashes))
			r.Get(handler.RouteAdmin, adminHandler.Dashboard)
			r.Post(handler.RouteAdmin+"/posts"+handler.RouteParamID+"/delete", adminHandler.DeletePost)
			r.Post(handler.RouteAdmin+"/jobs/{name}/run", adminHandler.RunJob)
			r.Post(handler.RouteAdmin+"/cache/clear", adminHandler.ClearCache)
		})

		r.NotFound(siteHandler.NotFound)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
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
