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
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/frytempura/tempura/internal/build"
	"github.com/frytempura/tempura/internal/catalog"
	"github.com/frytempura/tempura/internal/deploy"
	"github.com/frytempura/tempura/internal/mcpserver"
	"github.com/frytempura/tempura/internal/pipeline"
	"github.com/frytempura/tempura/internal/scaffold"
	"github.com/frytempura/tempura/internal/server"
	"github.com/frytempura/tempura/internal/sse"
	"github.com/frytempura/tempura/internal/storage"
	"github.com/frytempura/tempura/internal/watch"
)

// runtime bundles the wired components shared by the watch loop, the
// one-shot build, and the MCP server.
type runtime struct {
	cfg    *Config
	root   string
	logger *slog.Logger
	pipe   *pipeline.Pipeline
	broker *sse.Broker
}

func newRuntime(opts []Option, logTo io.Writer) (*runtime, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	root := app.root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logTo, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("project_root", root),
		slog.String("source_dir", cfg.Source.Dir),
		slog.String("artifact_dir", cfg.ScriptFilesFolderLocation),
		slog.Int("deploy_pairs", len(cfg.DeployMap)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the script source directory exists.
	if err := os.MkdirAll(filepath.Join(root, cfg.Source.Dir), 0o755); err != nil {
		return nil, fmt.Errorf("create source dir: %w", err)
	}

	// Initialize storage rooted at the project directory.
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	builder, err := build.New(build.Options{
		SourceDir: filepath.Join(root, cfg.Source.Dir),
		Target:    cfg.Build.Target,
		LibDir:    filepath.Join(root, scaffold.LibDir),
	})
	if err != nil {
		return nil, fmt.Errorf("init builder: %w", err)
	}

	broker := sse.NewBroker(2 * time.Second)

	pipe := pipeline.New(pipeline.Settings{
		SourceDir:    cfg.Source.Dir,
		ArtifactDir:  cfg.ScriptFilesFolderLocation,
		ArtifactName: cfg.Build.ArtifactName,
		DeployMap:    cfg.DeployMap,
	}, store, catalog.New(), builder, deploy.New(store, builder, logger), broker, logger)

	return &runtime{cfg: cfg, root: root, logger: logger, pipe: pipe, broker: broker}, nil
}

// watchRoots lists the absolute directories the watcher covers: the script
// sources, the vendored façade copy when present, and every deploy source.
func (rt *runtime) watchRoots() []string {
	seen := make(map[string]struct{})
	var roots []string

	add := func(rel string) {
		abs := filepath.Join(rt.root, rel)
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		roots = append(roots, abs)
	}

	add(rt.cfg.Source.Dir)

	// Edits to the vendored façade change compiled output too.
	if info, err := os.Stat(filepath.Join(rt.root, scaffold.LibDir)); err == nil && info.IsDir() {
		add(scaffold.LibDir)
	}

	srcs := make([]string, 0, len(rt.cfg.DeployMap))
	for src := range rt.cfg.DeployMap {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)
	for _, src := range srcs {
		add(src)
	}

	return roots
}

// Run starts the watch loop with the given options: an initial build, then a
// rebuild for every batch of source changes, with the status API served when
// a port is configured.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.broker.Close()

	cfg := rt.cfg
	logger := rt.logger

	// Run initial build.
	if err := rt.pipe.Rebuild(ctx, "startup"); err != nil {
		logger.Warn("initial build failed, watching for changes", slog.String("error", err.Error()))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	// Start file watcher; every batch of changes triggers a rebuild.
	roots := rt.watchRoots()
	g.Go(func() error {
		return watch.Watch(gCtx, roots, cfg.Watch.Debounce(), logger, func(paths []string) {
			rt.broker.Publish(sse.Event{Type: "watch.changed", Data: map[string]interface{}{"files": len(paths)}})
			// Rebuild records and logs its own failures; the loop keeps going.
			_ = rt.pipe.Rebuild(gCtx, "watch")
		})
	})

	// Start HTTP status server when a port is configured.
	var httpServer *http.Server
	if cfg.Server.Enabled() {
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
		r.Mount("/api", server.NewRouter(rt.pipe, cfg.Server.Auth.AuthEnabled(), cfg.Server.Auth.Token, rt.broker))

		httpServer = &http.Server{
			Addr:    cfg.Server.Address(),
			Handler: r,
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.Server.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

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

		logger.Info("Shutting down...")

		// Stops the watcher goroutine.
		cancel()

		if httpServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watch loop stopped")
	return nil
}

// RunOnce performs a single build and deploy pass and returns its error.
func RunOnce(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.broker.Close()

	return rt.pipe.Rebuild(ctx, "cli")
}

// RunMCP builds the pipeline and serves the MCP tool interface on
// stdin/stdout. Stdout carries the protocol, so logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.broker.Close()

	// Populate status and catalog so the first tool call sees real data.
	if err := rt.pipe.Rebuild(ctx, "startup"); err != nil {
		rt.logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(rt.pipe).ServeStdio()
}
