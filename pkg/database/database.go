package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RetryConfig задает число попыток подключения и паузу между ними.
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

func (r RetryConfig) withDefaults() RetryConfig {
	if r.MaxRetries <= 0 {
		r.MaxRetries = 50
	}
	if r.Delay <= 0 {
		r.Delay = 3 * time.Second
	}
	return r
}

// PostgresConfig содержит настройки пула подключений к PostgreSQL.
type PostgresConfig struct {
	DSN         string
	MaxConns    int32
	IdleTimeout time.Duration
	Retry       RetryConfig
}

// ConnectPostgres создает пул и проверяет его пингом, повторяя попытки до успеха.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}

	retry := cfg.Retry.withDefaults()
	logger.Info("Attempting to connect to PostgreSQL",
		zap.Int("max_retries", retry.MaxRetries),
		zap.Duration("retry_delay", retry.Delay),
	)

	var lastErr error
	for attempt := 1; attempt <= retry.MaxRetries; attempt++ {
		pool, err := pingPostgres(ctx, poolConfig)
		if err == nil {
			logger.Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		logger.Warn("Postgres connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", retry.MaxRetries),
			zap.Error(err),
		)
		if attempt < retry.MaxRetries {
			if err := sleep(ctx, retry.Delay); err != nil {
				return nil, err
			}
		}
	}

	logger.Error("Failed to connect to PostgreSQL after all retries", zap.Int("attempts", retry.MaxRetries), zap.Error(lastErr))
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", retry.MaxRetries, lastErr)
}

func pingPostgres(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create postgres connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping postgres database: %w", err)
	}
	return pool, nil
}

// RedisConfig содержит адрес и учетные данные Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Retry    RetryConfig
}

// ConnectRedis создает клиента Redis и проверяет его пингом с повторами.
func ConnectRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	retry := cfg.Retry.withDefaults()
	logger.Info("Attempting to connect and ping Redis",
		zap.String("address", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("max_retries", retry.MaxRetries),
	)

	var lastErr error
	for attempt := 1; attempt <= retry.MaxRetries; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return client, nil
		}

		_ = client.Close()
		lastErr = err
		logger.Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", retry.MaxRetries),
			zap.Error(err),
		)
		if attempt < retry.MaxRetries {
			if err := sleep(ctx, retry.Delay); err != nil {
				return nil, err
			}
		}
	}

	logger.Error("Failed to connect to Redis after all retries", zap.Int("attempts", retry.MaxRetries), zap.Error(lastErr))
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", retry.MaxRetries, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
