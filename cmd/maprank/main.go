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

	"github.com/use-agent/maprank/api"
	"github.com/use-agent/maprank/api/handler"
	"github.com/use-agent/maprank/browser"
	"github.com/use-agent/maprank/cache"
	"github.com/use-agent/maprank/config"
	"github.com/use-agent/maprank/pipeline"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	slog.SetDefault(slog.New(cfg.Log.Handler(os.Stdout)))
	slog.Info("maprank starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Browser.MaxSessions,
		"headless", cfg.Browser.Headless,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth enabled but MAPRANK_API_KEYS is empty, API is open")
	}

	// ── 3. Session manager (browsers launch per request) ────────────
	manager := browser.NewManager(cfg.Browser, cfg.Pipeline)

	// ── 4. One runner per supported engine ──────────────────────────
	engines := make(map[string]handler.Searcher, len(pipeline.Targets))
	for name, target := range pipeline.Targets {
		engines[name] = pipeline.NewRunner(manager, target, cfg.Pipeline)
	}

	// ── 5. Response cache ───────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	defer cc.Close()

	// ── 6. Setup router ─────────────────────────────────────────────
	baseCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	router := api.NewRouter(baseCtx, cfg, api.Deps{
		Engines: engines,
		Stats:   manager,
		Cache:   cc,
		Started: time.Now(),
	})

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// A search in flight may still be in its navigation or recovery window.
	drain := cfg.Pipeline.NavigationTimeout + cfg.Pipeline.FrameTimeout + cfg.Pipeline.GracePeriod
	ctx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("maprank stopped", "activeSessions", manager.Stats().ActiveSessions)
}
