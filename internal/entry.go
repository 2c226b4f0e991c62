// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notehub/internal/api"
	"github.com/starford/notehub/internal/controller"
	"github.com/starford/notehub/internal/mcpserver"
	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/noteclient"
	"github.com/starford/notehub/internal/querycache"
	"github.com/starford/notehub/internal/sse"
)

// viewThrottle bounds how often view.updated is pushed to event clients.
const viewThrottle = 100 * time.Millisecond

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// newStack builds the transport and the shared query cache. The client
// constructor rejects a missing token before any request is made.
func newStack(cfg *Config, logger *slog.Logger) (*noteclient.Client, *querycache.Cache, error) {
	client, err := noteclient.New(cfg.NoteHub.Client(),
		noteclient.WithHTTPClient(&http.Client{Timeout: cfg.NoteHub.Timeout}),
		noteclient.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init notehub client: %w", err)
	}

	cache := querycache.New(func(ctx context.Context, key querycache.Key) (*models.PageResult, error) {
		return client.List(ctx, noteclient.ListParams{
			Page:    key.Page,
			PerPage: models.PerPage,
			Search:  key.Search,
		})
	}, querycache.WithStaleTime(cfg.View.StaleTime), querycache.WithLogger(logger))

	return client, cache, nil
}

// Run starts the presentation API with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	out := app.logOut
	if out == nil {
		out = os.Stdout
	}
	logger := newLogger(out, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notehub_url", cfg.NoteHub.BaseURL),
		slog.Duration("search_debounce", cfg.View.SearchDebounce),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	client, cache, err := newStack(cfg, logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	ctrl := controller.New(cache, client,
		controller.WithDebounce(cfg.View.SearchDebounce),
		controller.WithLogger(logger),
	)
	defer ctrl.Close()

	// SSE broker fed by every controller state change.
	broker := sse.NewBroker(viewThrottle)
	defer broker.Close()
	unsubscribe := ctrl.Subscribe(func(st controller.State) {
		broker.PublishView(st)
	})
	defer unsubscribe()

	ctrl.Start()

	apiRouter := api.NewRouter(ctrl, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Event streams never finish on their own; end them first.
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

// RunMCP serves the NoteHub tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	out := app.logOut
	if out == nil {
		out = os.Stderr
	}
	logger := newLogger(out, cfg.App.LogLevel)

	client, cache, err := newStack(cfg, logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	logger.Info("MCP server starting", slog.String("notehub_url", cfg.NoteHub.BaseURL), slog.String("version", app.version))

	srv := mcpserver.New(cache, client, app.version)
	if err := srv.ServeStdio(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
