package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/labelbook/internal/application"
	"github.com/JonMunkholm/labelbook/internal/config"
	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/logging"
	"github.com/JonMunkholm/labelbook/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	app, err := application.Open(ctx, cfg, nil)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	slog.Info("sheets registered", "count", core.SheetCount(), "groups", len(core.Groups()))
	for _, group := range core.Groups() {
		defs, _ := core.Select([]string{group})
		slog.Debug("sheet group", "group", group, "sheets", len(defs))
	}

	// Background jobs and rate limiter housekeeping stop with jobCtx.
	jobCtx, cancelJobs := context.WithCancel(ctx)
	server := web.NewServer(jobCtx, app.Service, cfg)

	go app.Service.StartHistoryPurge(jobCtx, core.HistoryPurgeConfig{
		Retention:     cfg.History.Retention(),
		CheckInterval: cfg.History.CheckInterval,
	})

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running exports and imports finish before the snapshot is saved.
		if status := app.Service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := app.Service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		app.Close()
		os.Exit(1)
	}
	<-stopped

	if err := app.Close(); err != nil {
		slog.Error("close", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
