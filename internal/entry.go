// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/clawfable/clawfable/internal/agents"
	"github.com/clawfable/clawfable/internal/api"
	"github.com/clawfable/clawfable/internal/apperr"
	"github.com/clawfable/clawfable/internal/contentrepo"
	"github.com/clawfable/clawfable/internal/kv"
	"github.com/clawfable/clawfable/internal/sse"
	"github.com/clawfable/clawfable/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_path", cfg.Content.Path),
		slog.Bool("admin_enabled", cfg.Admin.AdminEnabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure content directory exists.
	if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}

	// Initialize disk content source.
	src, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return fmt.Errorf("init content source: %w", err)
	}

	// Connect to the KV store. A missing store is not fatal: reads fall
	// back to disk and writes report the store as unconfigured.
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	repo := contentrepo.NewRepo(store, src)
	agentRepo := agents.NewRepo(store)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	adminToken := ""
	if cfg.Admin.AdminEnabled() {
		adminToken = cfg.Admin.Token
	}
	apiRouter := api.NewRouter(repo, agentRepo, broker, adminToken, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// openStore connects using explicit config credentials when present,
// otherwise falls back to the environment. A nil client with nil error
// means no store is configured anywhere.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (kv.Client, error) {
	if cfg.Store.URL != "" {
		store, err := kv.New(ctx, cfg.Store.URL, cfg.Store.Token)
		if err != nil {
			return nil, fmt.Errorf("connect store: %w", err)
		}
		return store, nil
	}

	store, err := kv.Open(ctx)
	if errors.Is(err, apperr.ErrStoreUnconfigured) {
		logger.Warn("KV store not configured; serving seed content read-only from disk")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	return store, nil
}
