package servecmder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/dotdir"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/inmemory"
	"github.com/papercomputeco/recall/pkg/memory/postgres"
	"github.com/papercomputeco/recall/pkg/memory/redis"
	"github.com/papercomputeco/recall/pkg/memory/sqlite"
)

// openBackends connects every configured memory store. The returned func
// closes them all.
func (c *ServeCommander) openBackends(ctx context.Context) (map[string]memory.Factory, func(), error) {
	cfg := c.cfg.Memory
	log := logger.Component(c.logger, "memory")

	var stores []memory.Store
	closeAll := func() {
		for _, s := range stores {
			if err := s.Close(); err != nil {
				log.Warn("closing memory store", "error", err)
			}
		}
	}

	backends := make(map[string]memory.Factory, 4)

	if cfg.InMemoryShared {
		shared := inmemory.New()
		stores = append(stores, shared)
		backends[api.BackendInMemory] = memory.Shared(shared)
		log.Info("using shared in-memory store")
	} else {
		backends[api.BackendInMemory] = inmemory.PerRequest()
	}

	sqlitePath, err := resolveSQLitePath(cfg.SQLitePath)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	sqliteStore, err := sqlite.NewStore(ctx, sqlitePath)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("failed to create SQLite store: %w", err)
	}
	stores = append(stores, sqliteStore)
	backends[api.BackendSQLite] = memory.Shared(sqliteStore)
	log.Info("using SQLite memory", "path", sqlitePath)

	redisStore := redis.NewStore(redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	stores = append(stores, redisStore)
	backends[api.BackendRedis] = memory.Shared(redisStore)
	if err := redisStore.Ping(ctx); err != nil {
		log.Warn("redis is not reachable, /chat-memory/redis will fail until it is",
			"addr", cfg.RedisAddr,
			"error", err,
		)
	} else {
		log.Info("using Redis memory", "addr", cfg.RedisAddr)
	}

	if cfg.PostgresDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to create PostgreSQL store: %w", err)
		}
		stores = append(stores, pgStore)
		backends[api.BackendPostgres] = memory.Shared(pgStore)
		log.Info("using PostgreSQL memory")
	}

	return backends, closeAll, nil
}

// resolveSQLitePath places relative database paths inside the .recall/
// directory. Absolute paths and ":memory:" are used as given.
func resolveSQLitePath(path string) (string, error) {
	if path == ":memory:" || filepath.IsAbs(path) {
		return path, nil
	}

	dir, err := dotdir.NewManager().Target("")
	if err != nil {
		return "", fmt.Errorf("resolving sqlite path: %w", err)
	}
	return filepath.Join(dir, path), nil
}
