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

	"github.com/starford/gtdspace/internal/api"
	"github.com/starford/gtdspace/internal/index"
	"github.com/starford/gtdspace/internal/mcpserver"
	"github.com/starford/gtdspace/internal/metadata"
	"github.com/starford/gtdspace/internal/reconcile"
	"github.com/starford/gtdspace/internal/spaceservice"
	"github.com/starford/gtdspace/internal/sse"
	"github.com/starford/gtdspace/internal/storage"
)

// space holds the components shared by the HTTP and MCP entry points.
type space struct {
	store *storage.FS
	db    *index.DB
	svc   *spaceservice.Service
}

func (a *application) init(opts []Option) (*Config, *slog.Logger, error) {
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return a.config, logger, nil
}

// openSpace wires storage, index, metadata registry and reconciler and runs
// the initial sync. Callers close db.
func openSpace(cfg *Config, logger *slog.Logger, opts ...spaceservice.Option) (*space, error) {
	// Ensure space directory exists.
	if err := os.MkdirAll(cfg.Space.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create space dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Space.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	recon := reconcile.New(
		reconcile.WithCache(reconcile.NewCache(cfg.Reconcile.CacheTTL, cfg.Reconcile.CacheMaxEntries)),
		reconcile.WithLogger(logger),
	)
	svc := spaceservice.NewService(store, db, metadata.NewRegistry(), recon,
		append([]spaceservice.Option{spaceservice.WithLogger(logger)}, opts...)...)

	// Run initial sync.
	if err := svc.Indexer().Sync(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return &space{store: store, db: db, svc: svc}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := (&application{}).init(opts)
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("space_path", cfg.Space.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	sp, err := openSpace(cfg, logger, spaceservice.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer sp.db.Close()

	apiRouter := api.NewRouter(sp.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := sp.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; external edits reach SSE subscribers with their field changes.
	g.Go(func() error {
		err := sp.svc.Indexer().Watch(gCtx, sp.store.Root(), func(ev index.Event) {
			broker.PublishDocumentEvent(ev.Op, ev.Path, ev.Changes)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
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

	// Shut down on signal or when any component fails.
	g.Go(func() error {
		<-gCtx.Done()
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

// RunMCP serves the MCP tools over stdin/stdout until the client disconnects
// or ctx is cancelled.
func RunMCP(ctx context.Context, opts ...Option) error {
	cfg, logger, err := (&application{logOutput: os.Stderr}).init(opts)
	if err != nil {
		return err
	}

	sp, err := openSpace(cfg, logger)
	if err != nil {
		return err
	}
	defer sp.db.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server starting", slog.String("space_path", cfg.Space.Path))
	return mcpserver.New(sp.svc).ServeStdio(ctx)
}

// InitSpace creates the directory layout and seed documents of a space.
// Logs go to stderr so the result can be printed on stdout.
func InitSpace(ctx context.Context, examples bool, opts ...Option) (*spaceservice.InitResult, error) {
	cfg, logger, err := (&application{logOutput: os.Stderr}).init(opts)
	if err != nil {
		return nil, err
	}

	sp, err := openSpace(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer sp.db.Close()

	return sp.svc.InitSpace(ctx, spaceservice.InitOptions{Examples: examples})
}
