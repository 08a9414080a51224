package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/turbopilot/chunkopt/internal/api"
	"github.com/turbopilot/chunkopt/internal/config"
	"github.com/turbopilot/chunkopt/internal/domain"
	"github.com/turbopilot/chunkopt/internal/logger"
	"github.com/turbopilot/chunkopt/internal/optimizer"
	"github.com/turbopilot/chunkopt/internal/oracle"
	"github.com/turbopilot/chunkopt/internal/watch"
)

// invalidatable is satisfied by a MetricOracle that also supports
// evicting stale cached results for a chunk/module id. MetricOracle
// itself stays narrow (Compare, ChunkItemsCount) since the optimizer's
// core algorithms never need to invalidate anything; only a host
// wrapping it in a cache does.
type invalidatable interface {
	Invalidate(ctx context.Context, chunkID string) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loggerCfg := logger.Config{
		Level:  logger.Level(cfg.LogLevel),
		Format: cfg.LogFormat,
	}
	if err := logger.Init(loggerCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("chunkopt starting",
		"port", cfg.ServerPort,
		"cache_enabled", cfg.CacheEnabled,
	)

	// Root context — cancelled on SIGINT/SIGTERM for clean shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Initializing services")

	// 1. Module graph oracle — answers Compare/ChunkItemsCount queries
	// from a registered module -> chunk-item mapping.
	graph := oracle.NewModuleGraph()
	var metricOracle = optimizer.MetricOracle(oracle.NewGraphOracle(graph))

	for path, modules := range cfg.WatchModulePaths {
		ids := make([]domain.ModuleID, len(modules))
		for i, m := range modules {
			ids[i] = domain.ModuleID(m)
		}
		graph.RegisterPath(path, ids...)
	}

	// 2. Optional memoization layer in front of the oracle.
	if cfg.CacheEnabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cache := oracle.NewRedisCache(redisClient, cfg.CacheKeyPrefix)
		metricOracle = oracle.NewMemoizingOracle(metricOracle, cache)
		logger.Info("Memoization cache enabled", "backend", "redis", "addr", cfg.RedisURL)
	}

	constructor := oracle.NewNormalizedConstructor()

	// 3. Watcher — resolves a changed source path to the modules it
	// defines via the module graph, then evicts just those modules'
	// entries from the memoization cache. Without this, a MemoizingOracle
	// has no way to learn that a previously compared pair is stale.
	if len(cfg.WatchPaths) > 0 {
		invalidator, canInvalidate := metricOracle.(invalidatable)
		if !canInvalidate {
			logger.Warn("Cache does not support invalidation, watched changes will only be logged")
		}

		handler := func(watchCtx context.Context, affected []domain.ModuleID, event watch.FileEvent) error {
			logger.Info("Module graph source changed", "modules", affected, "event", event)
			if !canInvalidate {
				return nil
			}
			for _, id := range affected {
				if err := invalidator.Invalidate(watchCtx, string(id)); err != nil {
					return err
				}
			}
			return nil
		}

		watcher, err := watch.NewWatcher(graph, handler, time.Duration(cfg.WatchDebounceMS)*time.Millisecond)
		if err != nil {
			logger.Error("Failed to create watcher", "error", err)
			os.Exit(1)
		}

		for _, p := range cfg.WatchPaths {
			if err := watcher.AddPath(p); err != nil {
				logger.Warn("Failed to add watch path", "path", p, "error", err)
				continue
			}
			logger.Info("Watching path for module graph changes", "path", p)
		}

		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.Error("Watcher stopped with error", "error", err)
			}
		}()
	}

	// 4. API server
	srv := api.NewServer(cfg.ServerPort, metricOracle, constructor, cfg.Params())

	logger.Info("All services initialized successfully")

	if err := srv.Start(); err != nil {
		logger.Error("API server failed", "error", err)
		os.Exit(1)
	}
}
