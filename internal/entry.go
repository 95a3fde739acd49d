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

	"github.com/haldvik/othala/internal/api"
	"github.com/haldvik/othala/internal/audit"
	"github.com/haldvik/othala/internal/index"
	"github.com/haldvik/othala/internal/mcpserver"
	"github.com/haldvik/othala/internal/report"
	"github.com/haldvik/othala/internal/schema"
	"github.com/haldvik/othala/internal/sse"
	"github.com/haldvik/othala/internal/storage"
	"github.com/haldvik/othala/internal/watch"
)

func newApplication(opts ...Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger and installs it as the
// process default. One-shot audit mode logs to stderr so stdout stays
// reserved for the report itself.
func newLogger(cfg *Config, toStderr bool) *slog.Logger {
	out := os.Stdout
	if toStderr {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func loadRules(cfg *Config) (*schema.RuleSet, error) {
	if cfg.Schema.RulesPath == "" {
		return schema.Default(), nil
	}
	return schema.Load(cfg.Schema.RulesPath)
}

func newAuditor(cfg *Config, logger *slog.Logger) (*audit.Auditor, storage.Provider, *schema.RuleSet, error) {
	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Extension)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}
	rules, err := loadRules(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load schema rules: %w", err)
	}
	return audit.New(store, rules, cfg.Report.HubThreshold, logger), store, rules, nil
}

// vaultUnchanged reports whether the vault's current file checksums match
// the persisted index exactly.
func vaultUnchanged(store storage.Provider, db *index.DB) (bool, error) {
	metas, err := store.List("")
	if err != nil {
		return false, err
	}
	persisted, err := db.AllChecksums()
	if err != nil {
		return false, err
	}
	if len(metas) != len(persisted) {
		return false, nil
	}
	for _, m := range metas {
		if persisted[m.Path] != m.Checksum {
			return false, nil
		}
	}
	return true, nil
}

// RunAudit performs a one-shot audit and writes the rendered report to
// stdout, or to the configured report path when one is set.
func RunAudit(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts...)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, true)

	auditor, _, _, err := newAuditor(cfg, logger)
	if err != nil {
		return err
	}

	res, err := auditor.Run()
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	rendered, err := report.Render(res.Report, cfg.Report.Format)
	if err != nil {
		return err
	}

	if app.reportPath != "" {
		if err := storage.WriteAtomic(app.reportPath, rendered); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("Report written", slog.String("path", app.reportPath))
		return nil
	}

	_, err = os.Stdout.Write(rendered)
	return err
}

// RunMCP starts the MCP server on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts...)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, true)

	auditor, store, rules, err := newAuditor(cfg, logger)
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	logger.Info("MCP server starting", slog.String("vault_path", cfg.Vault.Path))
	return mcpserver.New(store, db, auditor, rules).ServeStdio()
}

// Run starts the HTTP server with the file watcher. An initial audit is
// persisted before the server accepts traffic.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts...)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, false)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	auditor, store, _, err := newAuditor(cfg, logger)
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Initial audit so /api/report answers immediately.
	res, err := auditor.Run()
	if err != nil {
		return fmt.Errorf("initial audit: %w", err)
	}
	if err := db.SaveResult(res); err != nil {
		return fmt.Errorf("persist initial audit: %w", err)
	}
	logger.Info("Initial audit complete",
		slog.Int("notes", res.Report.Totals.Notes),
		slog.Int("findings", len(res.Report.Findings)))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API service and router.
	svc := api.NewService(db, auditor, broker)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Re-audit on vault changes. Editor noise (touches, atomic-save
	// shuffles) often fires events without changing content, so a
	// checksum comparison against the persisted state short-circuits
	// no-op runs.
	g.Go(func() error {
		return watch.Run(gCtx, cfg.Vault.Path, cfg.Vault.Extension, watch.DefaultDebounce, logger, func() {
			if unchanged, cmpErr := vaultUnchanged(store, db); cmpErr == nil && unchanged {
				logger.Debug("vault unchanged, skipping re-audit")
				return
			}
			fresh, auditErr := auditor.Run()
			if auditErr != nil {
				logger.Error("re-audit failed", slog.String("error", auditErr.Error()))
				return
			}
			if saveErr := db.SaveResult(fresh); saveErr != nil {
				logger.Error("persist re-audit failed", slog.String("error", saveErr.Error()))
				return
			}
			broker.PublishAuditUpdated(fresh.Report.Totals)
			logger.Info("Re-audit complete",
				slog.Int("notes", fresh.Report.Totals.Notes),
				slog.Int("findings", len(fresh.Report.Findings)))
		})
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
