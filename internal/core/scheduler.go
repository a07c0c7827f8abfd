package core

import (
	"context"
	"log/slog"
	"time"
)

// HistoryPurgeConfig holds configuration for the history purge scheduler.
type HistoryPurgeConfig struct {
	Retention     time.Duration // Runs older than this are deleted (default: 90 days)
	CheckInterval time.Duration // How often to run (default: 24h)
}

// StartHistoryPurge periodically deletes old run records. It runs
// immediately on start, then every CheckInterval, and returns when ctx is
// cancelled.
func (s *Service) StartHistoryPurge(ctx context.Context, cfg HistoryPurgeConfig) {
	if cfg.Retention <= 0 {
		cfg.Retention = 90 * 24 * time.Hour
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}
	slog.Info("history purge scheduler started",
		"retention", cfg.Retention,
		"interval", cfg.CheckInterval,
	)

	s.purgeHistory(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history purge scheduler stopped")
			return
		case <-ticker.C:
			s.purgeHistory(ctx, cfg.Retention)
		}
	}
}

func (s *Service) purgeHistory(ctx context.Context, retention time.Duration) {
	start := time.Now()
	purged, err := s.history.Purge(ctx, start.Add(-retention))
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return
	}
	slog.Info("purged run history",
		"runs_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
