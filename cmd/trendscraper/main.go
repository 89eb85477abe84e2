package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/trendscraper/api"
	"github.com/use-agent/trendscraper/config"
	"github.com/use-agent/trendscraper/scraper"
	"github.com/use-agent/trendscraper/store"
)

// shutdownTimeout gives an in-flight scrape time to finish its login flow.
const shutdownTimeout = 90 * time.Second

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("trendscraper starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"profile", cfg.Browser.Profile,
		"stepTimeout", cfg.Login.StepTimeout,
		"maxSessions", cfg.Browser.MaxSessions,
	)

	// ── 3. Load locator table ───────────────────────────────────────
	locs, err := scraper.LoadLocators(cfg.Login.LocatorsFile)
	if err != nil {
		slog.Error("failed to load locators", "file", cfg.Login.LocatorsFile, "error", err)
		os.Exit(1)
	}

	// ── 4. Open the trend store ─────────────────────────────────────
	openCtx, cancelOpen := context.WithTimeout(context.Background(), 30*time.Second)
	repo, err := store.Open(openCtx, cfg.Store.DSN)
	cancelOpen()
	if err != nil {
		slog.Error("failed to open trend store", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	// ── 5. Initialise scraper (browsers launch per request) ─────────
	launcher, err := scraper.NewRodLauncher(cfg.Browser)
	if err != nil {
		slog.Error("invalid browser configuration", "error", err)
		os.Exit(1)
	}
	sc := scraper.New(launcher, locs, cfg.Login, cfg.Browser.MaxSessions)

	// ── 6. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	router := api.NewRouter(bgCtx, sc, repo, cfg, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	stopBackground()

	// repo.Close() runs via defer. Browsers are already closed by their
	// own request paths.
	slog.Info("trendscraper stopped", "sessions", sc.Stats())
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
