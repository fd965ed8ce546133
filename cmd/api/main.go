// Package main is the entry point for the NiaBis API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/niabis/backend/internal/config"
	"github.com/niabis/backend/internal/handler"
	"github.com/niabis/backend/internal/media"
	"github.com/niabis/backend/internal/middleware"
	"github.com/niabis/backend/internal/repo"
	"github.com/niabis/backend/internal/service"
	"github.com/niabis/backend/migrations"
)

// staleDraftAge is how old a draft placeholder must be before startup
// removes it. Placeholders are left behind when the process stops with
// sessions still open.
const staleDraftAge = time.Hour

func main() {
	// --- Config -----------------------------------------------------------
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		// Default logger until the configured one exists.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("app", cfg.BundleIdentifier)
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	pool, err := repo.NewPool(context.Background(), cfg.DatabaseURL, cfg.ApplicationName())
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established", "application_name", cfg.ApplicationName())

	if cfg.AutoMigrate {
		db := stdlib.OpenDBFromPool(pool)
		err := migrations.Up(context.Background(), db, logger)
		db.Close()
		if err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// --- Services ---------------------------------------------------------
	locationRepo := repo.NewLocationRepo(pool)
	locations := service.NewLocationService(locationRepo, repo.NewTagRepo(pool), logger)
	if _, err := locations.PurgeStaleDrafts(context.Background(), staleDraftAge); err != nil {
		slog.Warn("stale draft purge failed", "error", err)
	}

	pipeline := media.NewPipeline(logger, media.Options{
		Concurrency: cfg.IngestConcurrency,
		MaxBytes:    cfg.MaxPhotoBytes,
	})
	sessions := service.NewSessions(locationRepo, locationRepo, pipeline, logger,
		service.WithIdleTimeout(cfg.SessionIdleTimeout))
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.RunSweeper(sweepCtx, time.Minute)

	// --- Router -----------------------------------------------------------
	// RequestID → RealIP → Logger → Metrics → Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(middleware.RequestMetrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxUploadBytes))

	srv := handler.NewServer(locations, sessions, handler.Options{
		RedirectURL: cfg.RedirectURL,
		Logger:      logger,
	})
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Photo uploads can be large, so reads get more time than the default.
	// The events stream clears its own write deadline.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	stopSweep()
	// Sessions still open were never confirmed; discard their drafts.
	if err := shutdown(httpSrv, sessions, 15*time.Second, logger); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
