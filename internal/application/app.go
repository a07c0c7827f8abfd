// Package application wires configuration into a running labelbook: the
// metadata repository, run history, the workbook archive and the service.
// Both the HTTP server and the CLI start through Open.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/labelbook/internal/config"
	"github.com/JonMunkholm/labelbook/internal/core"
	_ "github.com/JonMunkholm/labelbook/internal/core/sheets" // register all sheets
	"github.com/JonMunkholm/labelbook/internal/history"
	"github.com/JonMunkholm/labelbook/internal/metadata/memrepo"
	"github.com/JonMunkholm/labelbook/internal/storage"
)

// App holds the long-lived components of a process.
type App struct {
	Service *core.Service
	Repo    *memrepo.Repository
	History history.Store
	Archive storage.Store

	cfg  *config.Config
	pool *pgxpool.Pool
}

// Open builds an App from cfg. logger may be nil.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	repo, err := openRepository(cfg.Repository)
	if err != nil {
		return nil, err
	}

	store, pool, err := openHistory(ctx, cfg.History)
	if err != nil {
		return nil, err
	}

	archive, err := openArchive(cfg.Storage)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}

	svc, err := core.NewService(repo, ServiceOptions(cfg, store, archive, logger))
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("create service: %w", err)
	}

	return &App{
		Service: svc,
		Repo:    repo,
		History: store,
		Archive: archive,
		cfg:     cfg,
		pool:    pool,
	}, nil
}

// ServiceOptions maps configuration onto service options.
func ServiceOptions(cfg *config.Config, store history.Store, archive storage.Store, logger *slog.Logger) core.Options {
	return core.Options{
		MaxConcurrentRuns: cfg.Run.MaxConcurrent,
		MaxWait:           cfg.Run.MaxWaitTime,
		RunTimeout:        cfg.Run.Timeout,
		ResultRetention:   cfg.Import.ResultRetention,
		FetchConcurrency:  cfg.Repository.FetchConcurrency,
		CacheSize:         cfg.Repository.CacheSize,
		SettleDelay:       cfg.Repository.SettleDelay,
		SettleAttempts:    cfg.Repository.SettleAttempts,
		MaxFileSize:       cfg.Import.MaxFileSize,
		SkipUnchanged:     cfg.Import.SkipUnchanged,
		History:           store,
		Archive:           archive,
		Logger:            logger,
	}
}

// Close persists the repository snapshot when configured and releases the
// database pool.
func (a *App) Close() error {
	var err error
	if path := a.cfg.Repository.SnapshotPath; path != "" && a.cfg.Repository.SaveOnShutdown {
		if serr := a.Repo.Save(path); serr != nil {
			err = fmt.Errorf("save repository snapshot: %w", serr)
		} else {
			slog.Info("repository snapshot saved", "path", path)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}

func openRepository(cfg config.RepositoryConfig) (*memrepo.Repository, error) {
	if cfg.SnapshotPath == "" {
		slog.Info("no repository snapshot configured, serving the built-in sample")
		return memrepo.New(memrepo.Sample()), nil
	}
	repo, err := memrepo.Load(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	slog.Info("repository snapshot loaded", "path", cfg.SnapshotPath)
	return repo, nil
}

// openHistory connects to PostgreSQL when a database URL is set, otherwise
// history stays in memory.
func openHistory(ctx context.Context, cfg config.HistoryConfig) (history.Store, *pgxpool.Pool, error) {
	if !cfg.Enabled() {
		slog.Info("no database configured, keeping run history in memory")
		return history.NewMemoryStore(), nil, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	store := history.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate history: %w", err)
	}

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return store, pool, nil
}

// openArchive returns nil when archiving is disabled.
func openArchive(cfg config.StorageConfig) (storage.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "disk":
		store, err := storage.NewDiskStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		slog.Info("archiving workbooks on disk", "dir", cfg.Dir)
		return store, nil
	case "s3":
		store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("archiving workbooks in bucket", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
		return store, nil
	}
	return nil, nil
}
