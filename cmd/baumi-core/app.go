package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/baumi-labs/baumi-core/internal/adapters/driven/postgres"
	redisadapter "github.com/baumi-labs/baumi-core/internal/adapters/driven/redis"
	"github.com/baumi-labs/baumi-core/internal/adapters/driven/sqlite"
	"github.com/baumi-labs/baumi-core/internal/config"
	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
	"github.com/baumi-labs/baumi-core/internal/core/services"
	"github.com/baumi-labs/baumi-core/internal/renderers"
)

// app holds the backends shared by serve and import.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   driven.KnowledgeBaseStore
	lock    driven.DistributedLock // nil without REDIS_URL
	runtime *domain.RuntimeConfig
	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openApp loads configuration and connects the configured backends.
func openApp(ctx context.Context, envFile string, logOutput io.Writer) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(logOutput)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	switch cfg.StoreBackend {
	case config.StoreSQLite:
		db, err := sqlite.Open(sqlite.DSN(cfg.SQLitePath))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closerFunc(func() error { return sqlite.Close(db) }))
		a.store = sqlite.NewKnowledgeBaseStore(db)
		logger.Info("using sqlite store", "path", cfg.SQLitePath)
	default:
		pgCfg := postgres.DefaultConfig(cfg.DatabaseURL)
		pgCfg.MaxOpenConns = cfg.DBMaxOpenConns
		pgCfg.MaxIdleConns = cfg.DBMaxIdleConns
		db, err := postgres.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		if err := db.InitSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
		a.store = postgres.NewKnowledgeBaseStore(db)
		logger.Info("using postgres store")
	}

	lockBackend := "local"
	if cfg.RedisURL != "" {
		client, err := redisadapter.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client)
		a.lock = redisadapter.NewLock(client, "")
		lockBackend = "redis"
		logger.Info("distributed sync lock enabled")
	}

	a.runtime = domain.NewRuntimeConfig(cfg.StoreBackend, lockBackend)
	return a, nil
}

func (a *app) knowledgeBaseService() *services.KnowledgeBaseService {
	return services.NewKnowledgeBaseService(services.KnowledgeBaseServiceConfig{
		Store:   a.store,
		Lock:    a.lock,
		LockTTL: a.cfg.SyncLockTTL,
		Logger:  a.logger,
	})
}

func (a *app) promptAssembler() *services.PromptAssembler {
	registry := renderers.DefaultRegistry()
	a.logger.Debug("prompt renderers registered", "kinds", registry.List())

	return services.NewPromptAssembler(services.PromptAssemblerConfig{
		Store:     a.store,
		Renderers: registry,
		MaxChars:  a.cfg.PromptMaxChars,
		Logger:    a.logger,
	})
}

// Close releases backends in reverse order of opening.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
