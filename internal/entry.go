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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/generator"
	"github.com/starford/othala/internal/inbox"
	"github.com/starford/othala/internal/ledger"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/noteservice"
	"github.com/starford/othala/internal/pipeline"
	"github.com/starford/othala/internal/pull"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/state"
	"github.com/starford/othala/internal/storage"
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
		slog.String("storage_root", cfg.Storage.Root),
		slog.String("inbox_path", cfg.Storage.InboxPath),
		slog.String("kb_path", cfg.Storage.KBPath),
		slog.Bool("generator_enabled", cfg.Generator.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the on-disk layout exists.
	inboxDir := filepath.Join(cfg.Storage.Root, cfg.Storage.InboxPath)
	kbDir := filepath.Join(cfg.Storage.Root, cfg.Storage.KBPath)
	for _, dir := range []string{inboxDir, kbDir, cfg.Storage.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Archive ledger and pull state.
	led, err := ledger.Open(filepath.Join(cfg.Storage.DataDir, "othala.db"))
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer led.Close()

	stateStore := state.NewStore(filepath.Join(cfg.Storage.DataDir, "pull_state.json"))

	// Metadata generator (pull mode).
	gen := app.gen
	if gen == nil && cfg.Generator.Enabled {
		if cfg.Generator.APIKey == "" {
			return fmt.Errorf("generator enabled but api_key is empty")
		}
		gen = generator.NewOpenAI(cfg.Generator.BaseURL, cfg.Generator.Model,
			cfg.Generator.APIKey, cfg.Generator.Timeout, logger)
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Domain services.
	scanner := inbox.NewScanner(store, cfg.Storage.InboxPath, logger)
	processor := pipeline.NewProcessor(store, cfg.Storage.InboxPath, logger)
	svc := noteservice.NewService(store, scanner, processor, led, broker,
		cfg.Storage.InboxPath, cfg.Storage.KBPath, logger)
	pullSvc := pull.NewService(svc, scanner, gen, stateStore, logger)

	apiRouter := api.NewRouter(svc, pullSvc, store, cfg.Storage.InboxPath,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
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

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the inbox and publish arrivals/departures over SSE.
	g.Go(func() error {
		if err := inbox.Watch(gCtx, inboxDir, logger, broker.PublishInboxEvent); err != nil {
			logger.Warn("inbox watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

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

// RunMCP starts the stdio MCP server sharing the same storage layout
// and services as the HTTP server.
func RunMCP(opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// MCP speaks JSON-RPC on stdout; keep logs on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	inboxDir := filepath.Join(cfg.Storage.Root, cfg.Storage.InboxPath)
	kbDir := filepath.Join(cfg.Storage.Root, cfg.Storage.KBPath)
	for _, dir := range []string{inboxDir, kbDir, cfg.Storage.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	store, err := storage.NewFS(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	led, err := ledger.Open(filepath.Join(cfg.Storage.DataDir, "othala.db"))
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer led.Close()

	scanner := inbox.NewScanner(store, cfg.Storage.InboxPath, logger)
	processor := pipeline.NewProcessor(store, cfg.Storage.InboxPath, logger)
	svc := noteservice.NewService(store, scanner, processor, led, nil,
		cfg.Storage.InboxPath, cfg.Storage.KBPath, logger)

	return mcpserver.New(store, scanner, svc).ServeStdio()
}
