package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderdoc-server/pkg/ai"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanBatchSize = 100

// Compile-time check
var _ ai.Cache = (*RedisCompletionCache)(nil)

// RedisCompletionCache хранит ответы моделей в Redis.
type RedisCompletionCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisCompletionCache создает кэш ответов поверх клиента Redis.
func NewRedisCompletionCache(client redis.UniversalClient, logger *zap.Logger) *RedisCompletionCache {
	return &RedisCompletionCache{
		client: client,
		logger: logger.Named("RedisCompletionCache"),
	}
}

// Get возвращает значение по ключу. Отсутствие ключа не является ошибкой.
func (c *RedisCompletionCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set сохраняет значение с TTL.
func (c *RedisCompletionCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern удаляет ключи по glob-шаблону через SCAN, не блокируя Redis командой KEYS.
func (c *RedisCompletionCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis del: %w", err)
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("Cache entries deleted", zap.String("pattern", pattern), zap.Int64("deleted", deleted))
	return deleted, nil
}
