package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCacheConfig holds the Redis connection configuration.
type RedisCacheConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisCache is a Redis-backed embedding cache for cross-process sharing and
// persistence across restarts. Every Redis failure degrades to a cache miss:
// an unreachable cache must never fail an embed request.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisCache creates a Redis cache. The connection is verified with a ping so
// that misconfiguration surfaces at startup rather than as silent misses.
func NewRedisCache(cfg RedisCacheConfig, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		logger:    logger,
	}, nil
}

// Get returns the cached embedding for key. Any Redis or decode failure is a miss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("redis cache get failed, treating as miss", zap.Error(err))
		}
		return nil, false
	}
	var value []float32
	if err := json.Unmarshal(data, &value); err != nil {
		r.logger.Warn("redis cache entry malformed, treating as miss", zap.Error(err))
		return nil, false
	}
	return value, true
}

// Set stores the embedding for key with the configured TTL. Failures are logged
// and dropped.
func (r *RedisCache) Set(ctx context.Context, key string, value []float32) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("failed to marshal embedding for cache", zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, r.fullKey(key), data, r.ttl).Err(); err != nil {
		r.logger.Warn("redis cache set failed", zap.Error(err))
	}
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// fullKey prefixes and hashes the text so arbitrary-length keys stay bounded.
func (r *RedisCache) fullKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return r.keyPrefix + hex.EncodeToString(h[:])
}
