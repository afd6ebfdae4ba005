// Package main is the Omoide server entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/omoide/internal/config"
	"github.com/hyperjump/omoide/internal/embedding"
	"github.com/hyperjump/omoide/internal/keyword"
	"github.com/hyperjump/omoide/internal/search"
	"github.com/hyperjump/omoide/internal/server"
	"github.com/hyperjump/omoide/internal/storage"
	"github.com/hyperjump/omoide/internal/vector"
	"github.com/hyperjump/omoide/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/omoide/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists it
// is used instead.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "config file path")
	debug := flag.Bool("debug", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("omoide version %s\n", version)
		return
	}

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath, cfg.Embedding.Dimensions)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	defer embedder.Close()

	vectorIndex := vector.NewHNSW(cfg.Embedding.Dimensions, func(o *vector.Options) {
		o.M = cfg.Index.M
		o.EFConstruction = cfg.Index.EFConstruction
	})

	// The keyword index is replayed from storage on every start. Replay is
	// idempotent (bleve upserts by id), so a persisted index path works too.
	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return fmt.Errorf("failed to create keyword index: %w", err)
	}
	defer keywordIndex.Close()

	engine := search.NewEngine(store, embedder, vectorIndex, keywordIndex,
		&cfg.Search, cfg.Index.EFSearch, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	count, err := engine.RebuildIndexes(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to rebuild indexes: %w", err)
	}
	logger.Info("indexes rebuilt", zap.Int("records", count))

	srv := server.NewServer(engine, &cfg.Server, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

// buildEmbedder constructs the provider and wraps it with the configured cache.
func buildEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	var provider embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		provider = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	case "openai":
		var err error
		provider, err = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}

	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	var cache embedding.Cache
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := embedding.NewRedisCache(embedding.RedisCacheConfig{
			Addr:      cfg.Cache.RedisAddr,
			Password:  cfg.Cache.RedisPass,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.KeyPrefix,
			TTL:       ttl,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		cache = redisCache
		logger.Info("using redis embedding cache", zap.String("addr", cfg.Cache.RedisAddr))
	} else {
		cache = embedding.NewLRUCache(cfg.Cache.Size, ttl)
	}

	return embedding.NewCachedEmbedder(provider, cache), nil
}
