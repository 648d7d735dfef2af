// Package main is the entrypoint for the Safelift admin API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/furqan899/safelift-ai/internal/api"
	"github.com/furqan899/safelift-ai/internal/api/handler"
	mw "github.com/furqan899/safelift-ai/internal/api/middleware"
	"github.com/furqan899/safelift-ai/internal/api/response"
	"github.com/furqan899/safelift-ai/internal/cache"
	"github.com/furqan899/safelift-ai/internal/config"
	"github.com/furqan899/safelift-ai/internal/embedding"
	"github.com/furqan899/safelift-ai/internal/export"
	"github.com/furqan899/safelift-ai/internal/kb"
	"github.com/furqan899/safelift-ai/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — .env first for local development, then environment
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"embedding_provider", cfg.Embedding.Provider,
		"vector_backend", cfg.Vector.Backend,
		"env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create embedding provider and vector index
	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}
	index, err := embedding.NewVectorIndex(ctx, cfg.Vector, pool)
	if err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	slog.Info("embedding stack initialized", "embedder", embedder.Name(), "index", index.Name())

	// 6. Create store and services
	pgStore := store.NewPostgresStore(pool)

	embeddingSvc := embedding.NewService(embedder, index, pgStore, redisCache, cfg.Embedding.Timeout)
	kbSvc := kb.NewService(pgStore, embeddingSvc)
	exportSvc := export.NewService(pgStore, redisCache, cfg.Export, export.NewRenderer(cfg.Export.PDFRenderer))

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,
		MediaRoot: cfg.Export.MediaRoot,

		HealthHandler: healthHandler(pgStore, redisCache),

		CreateEntryHandler: handler.NewCreateEntryHandler(kbSvc),
		UpdateEntryHandler: handler.NewUpdateEntryHandler(kbSvc),
		DeleteEntryHandler: handler.NewDeleteEntryHandler(kbSvc),
		GetEntryHandler:    handler.NewGetEntryHandler(kbSvc),
		ListEntriesHandler: handler.NewListEntriesHandler(kbSvc),
		RegenerateHandler:  handler.NewRegenerateHandler(kbSvc),
		ToggleHandler:      handler.NewToggleStatusHandler(kbSvc),
		EntryStatsHandler:  handler.NewEntryStatsHandler(kbSvc),
		CategoriesHandler:  handler.NewCategoriesHandler(kbSvc),
		SearchHandler:      handler.NewSearchHandler(embeddingSvc),

		CreateExportHandler: handler.NewCreateExportHandler(exportSvc),
		ListExportsHandler:  handler.NewListExportsHandler(exportSvc),
		GetExportHandler:    handler.NewGetExportHandler(exportSvc),
		RetryExportHandler:  handler.NewRetryExportHandler(exportSvc),
		DownloadInfoHandler: handler.NewDownloadInfoHandler(exportSvc),
		ExportStatsHandler:  handler.NewExportStatsHandler(exportSvc),

		DashboardHandler: handler.NewDashboardMetricsHandler(pgStore),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Retention sweeper for old export files
	go sweepExports(ctx, exportSvc, cfg.Export.SweepInterval)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// sweepExports deletes completed exports past the retention window, once per
// interval until ctx is cancelled.
func sweepExports(ctx context.Context, svc *export.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := svc.CleanupOldExports(ctx)
			if err != nil {
				slog.Error("export cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired exports removed", "count", removed)
			}
		}
	}
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
