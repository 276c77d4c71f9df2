package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig - окно фиксированной длины и лимит запросов на IP.
type RateLimitConfig struct {
	Window    time.Duration
	Limit     int
	KeyPrefix string
}

// RateLimiter ограничивает число запросов с одного IP в окне фиксированной длины.
// Счетчики хранятся в Redis. При недоступности Redis запросы пропускаются.
func RateLimiter(client redis.Cmdable, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit:"
	}
	windowSeconds := int64(cfg.Window / time.Second)
	if windowSeconds <= 0 {
		windowSeconds = 1
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := time.Now().Unix()
		windowIndex := now / windowSeconds
		key := cfg.KeyPrefix + c.ClientIP() + ":" + strconv.FormatInt(windowIndex, 10)

		pipe := client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, cfg.Window)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("Rate limiter store unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		count := incr.Val()
		resetAt := time.Unix((windowIndex+1)*windowSeconds, 0)
		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > int64(cfg.Limit) {
			logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", resetAt),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests from this IP, please try again later.",
			})
			return
		}
		c.Next()
	}
}
