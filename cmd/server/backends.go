package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/infrastructure/redis"
	"github.com/khaliloulah1/securelife/internal/repository"
	"github.com/khaliloulah1/securelife/pkg/cache"
	"github.com/khaliloulah1/securelife/pkg/config"
	"github.com/khaliloulah1/securelife/pkg/database"
)

// stores groups the repositories of one backend
type stores struct {
	contracts repository.ContractRepository
	users     domain.UserRepository
	documents repository.DocumentRepository
	close     func()
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using in-memory store, data is lost on restart")
		contracts := repository.NewMemoryContractRepository()
		return &stores{
			contracts: contracts,
			users:     repository.NewMemoryUserRepository(),
			documents: contracts,
			close:     func() {},
		}, nil
	case config.BackendPostgres:
		pool, err := database.NewConnectionPool(ctx, &database.Config{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			Database:     cfg.Database.Name,
			SSLMode:      cfg.Database.SSLMode,
			MaxOpenConns: cfg.Database.MaxOpenConns,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		db := pool.DB()
		return &stores{
			contracts: repository.NewPostgresContractRepository(db, log),
			users:     repository.NewPostgresUserRepository(db, log),
			documents: repository.NewPostgresDocumentRepository(db, log),
			close: func() {
				if err := pool.Close(); err != nil {
					log.Error("failed to close database", slog.String("error", err.Error()))
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// cacheBackend is the byte store behind the cache layer
type cacheBackend struct {
	store cache.Store
	ping  func(ctx context.Context) error
	close func()
}

func openCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (*cacheBackend, error) {
	switch cfg.CacheBackend {
	case config.BackendMemory:
		return &cacheBackend{
			store: cache.NewMemoryStore(),
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil
	case config.BackendRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, err
		}
		return &cacheBackend{
			store: cache.NewRedisStore(client.Underlying(), "securelife"),
			ping:  client.Ping,
			close: func() {
				if err := client.Close(); err != nil {
					log.Error("failed to close redis", slog.String("error", err.Error()))
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}
