// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
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

	"github.com/starford/vaultlens/internal/api"
	"github.com/starford/vaultlens/internal/dailynote"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/mcpserver"
	"github.com/starford/vaultlens/internal/selection"
	"github.com/starford/vaultlens/internal/sse"
	"github.com/starford/vaultlens/internal/storage"
	"github.com/starford/vaultlens/internal/viewservice"
)

// runtime holds the components shared by every entry point.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Provider
	db     *index.DB
	broker *sse.Broker
	svc    *viewservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{output: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// setup opens storage and the index, runs the initial sync and builds the
// selection stack. The caller must close rt.db.
func setup(cfg *Config, logOut io.Writer) (*runtime, error) {
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("mode", string(cfg.Selection.Mode)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	loc := cfg.Selection.Location()
	clock := selection.ClockFunc(func() time.Time { return time.Now().In(loc) })

	daily, err := dailynote.New(store, db, cfg.DailyNotes.StoreConfig(),
		dailynote.WithLocation(loc),
		dailynote.WithClock(clock),
		dailynote.WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init daily notes: %w", err)
	}

	engine := selection.New(cfg.Selection.Options, selection.Collaborators{
		Daily:     daily,
		Documents: db,
		Tags:      db,
		Clock:     clock,
	}, selection.WithLogger(logger), selection.WithWeekStart(cfg.Selection.Weekday()))

	broker := sse.NewBroker(cfg.Events.Throttle)

	svc := viewservice.NewService(engine, store, db,
		viewservice.WithNotifier(broker),
		viewservice.WithClock(clock),
		viewservice.WithDailyNotes(daily),
		viewservice.WithLogger(logger))

	return &runtime{
		cfg:    cfg,
		logger: logger,
		store:  store,
		db:     db,
		broker: broker,
		svc:    svc,
	}, nil
}

// Run starts the HTTP server, the file watcher and the day-change check.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app.config, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	defer rt.broker.Close()

	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	r.Mount("/api", api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, rt.broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// The watcher feeds the selection engine, which publishes SSE events.
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.store, cfg.Vault.Path, logger, rt.svc.HandleEvent)
	})

	g.Go(func() error {
		return rt.svc.RunDayCheck(gCtx, cfg.Selection.DayCheckInterval)
	})

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

// RunMCP serves the selection tools over stdio until stdin closes. Logs go
// to stderr so they do not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app.config, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	defer rt.broker.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.store, rt.cfg.Vault.Path, rt.logger, rt.svc.HandleEvent)
	})
	g.Go(func() error {
		return rt.svc.RunDayCheck(gCtx, rt.cfg.Selection.DayCheckInterval)
	})
	g.Go(func() error {
		defer stop()
		rt.logger.Info("MCP server starting on stdio")
		if err := mcpserver.New(rt.svc).ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// List prints the current selection as JSON and exits.
func List(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app.config, io.Discard)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	defer rt.broker.Close()

	enc := json.NewEncoder(app.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rt.svc.Selection(ctx)); err != nil {
		return fmt.Errorf("write selection: %w", err)
	}
	return nil
}
