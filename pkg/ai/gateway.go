package ai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultCacheTTL - время жизни закэшированного ответа.
const DefaultCacheTTL = time.Hour

// Cache - хранилище ответов основного провайдера.
type Cache interface {
	// Get возвращает значение и признак наличия ключа.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// DeleteByPattern удаляет ключи по glob-шаблону и возвращает их количество.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

// GatewayConfig - зависимости шлюза. Любой из провайдеров может быть nil.
type GatewayConfig struct {
	Primary      Provider
	Fallback     Provider
	Cache        Cache
	CacheTTL     time.Duration
	TokenCounter TokenCounter
}

type backend struct {
	provider Provider
	primary  bool
}

// attempt - результат одного обращения к бэкенду.
type attempt struct {
	provider string
	content  string
	err      error
	duration time.Duration
}

// Gateway объединяет провайдеров за одним вызовом Complete: кэш, затем основной
// провайдер, затем резервный. Повторов и гонок между провайдерами нет.
type Gateway struct {
	backends []backend
	cache    Cache
	cacheTTL time.Duration
	tokens   TokenCounter
	logger   *zap.Logger
}

var _ Completer = (*Gateway)(nil)

// NewGateway создает шлюз. Отсутствие провайдеров не ошибка: первый вызов вернет
// ProviderUnavailableError.
func NewGateway(cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		tokens:   cfg.TokenCounter,
		logger:   logger.Named("LLMGateway"),
	}
	if g.cacheTTL <= 0 {
		g.cacheTTL = DefaultCacheTTL
	}
	if cfg.Primary != nil {
		g.backends = append(g.backends, backend{provider: cfg.Primary, primary: true})
	}
	if cfg.Fallback != nil {
		g.backends = append(g.backends, backend{provider: cfg.Fallback})
	}
	if len(g.backends) == 0 {
		g.logger.Warn("No text generation provider configured, requests will fail")
	}
	return g
}

// Complete возвращает ответ модели на сообщения.
func (g *Gateway) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	key := Fingerprint(messages, opts)
	useCache := g.cache != nil && !opts.BypassCache

	if useCache {
		if cached, ok := g.lookup(ctx, key); ok {
			return cached, nil
		}
	}

	if len(g.backends) == 0 {
		return nil, &ProviderUnavailableError{}
	}

	attempts := make([]attempt, 0, len(g.backends))
	for _, b := range g.backends {
		a := g.try(ctx, b.provider, messages, opts)
		attempts = append(attempts, a)
		if a.err != nil {
			g.logger.Warn("Provider call failed",
				zap.String("provider", a.provider),
				zap.Bool("primary", b.primary),
				zap.Duration("duration", a.duration),
				zap.Error(a.err),
			)
			continue
		}

		completion := &Completion{Content: a.content, Provider: a.provider}
		if b.primary {
			if useCache {
				g.store(ctx, key, completion)
			}
		} else {
			llmFailoversTotal.Inc()
			g.logger.Info("Request served by fallback provider", zap.String("provider", a.provider))
		}
		return completion, nil
	}

	unavailable := &ProviderUnavailableError{}
	for _, a := range attempts {
		unavailable.Attempted = append(unavailable.Attempted, a.provider)
		unavailable.Causes = append(unavailable.Causes, a.err)
	}
	g.logger.Error("All providers failed", zap.Strings("attempted", unavailable.Attempted))
	return nil, unavailable
}

// ClearCache удаляет закэшированные ответы. Пустой шаблон означает все ответы.
func (g *Gateway) ClearCache(ctx context.Context, pattern string) (int64, error) {
	if g.cache == nil {
		return 0, nil
	}
	if pattern == "" {
		pattern = "*"
	}
	deleted, err := g.cache.DeleteByPattern(ctx, CacheKeyPrefix+pattern)
	if err != nil {
		g.logger.Error("Failed to clear response cache", zap.String("pattern", pattern), zap.Error(err))
		return 0, err
	}
	g.logger.Info("Response cache cleared", zap.String("pattern", pattern), zap.Int64("deleted", deleted))
	return deleted, nil
}

func (g *Gateway) try(ctx context.Context, p Provider, messages []Message, opts Options) attempt {
	name := p.Name()
	start := time.Now()
	content, err := p.Complete(ctx, messages, opts)
	a := attempt{provider: name, content: content, err: err, duration: time.Since(start)}
	if a.err == nil && strings.TrimSpace(content) == "" {
		a.err = ErrEmptyResponse
	}

	llmRequestDuration.With(prometheus.Labels{"provider": name}).Observe(a.duration.Seconds())
	if a.err != nil {
		llmRequestsTotal.With(prometheus.Labels{"provider": name, "status": "error"}).Inc()
		return a
	}
	llmRequestsTotal.With(prometheus.Labels{"provider": name, "status": "success"}).Inc()
	g.observeTokens(name, messages, content)
	g.logger.Debug("Provider call succeeded",
		zap.String("provider", name),
		zap.Duration("duration", a.duration),
		zap.Int("content_length", len(content)),
	)
	return a
}

func (g *Gateway) observeTokens(provider string, messages []Message, content string) {
	if g.tokens == nil {
		return
	}
	prompt := 0
	for _, m := range messages {
		prompt += g.tokens(m.Content)
	}
	if prompt > 0 {
		llmEstimatedTokens.With(prometheus.Labels{"provider": provider, "direction": "prompt"}).Observe(float64(prompt))
	}
	if n := g.tokens(content); n > 0 {
		llmEstimatedTokens.With(prometheus.Labels{"provider": provider, "direction": "completion"}).Observe(float64(n))
	}
}

// lookup читает кэш. Любая ошибка кэша означает промах.
func (g *Gateway) lookup(ctx context.Context, key string) (*Completion, bool) {
	value, found, err := g.cache.Get(ctx, key)
	if err != nil {
		llmCacheLookupsTotal.With(prometheus.Labels{"result": "error"}).Inc()
		g.logger.Warn("Cache read failed, continuing without cache", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		llmCacheLookupsTotal.With(prometheus.Labels{"result": "miss"}).Inc()
		return nil, false
	}

	var completion Completion
	if err := json.Unmarshal([]byte(value), &completion); err != nil || completion.Content == "" {
		llmCacheLookupsTotal.With(prometheus.Labels{"result": "error"}).Inc()
		g.logger.Warn("Cached value is corrupted, ignoring", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	llmCacheLookupsTotal.With(prometheus.Labels{"result": "hit"}).Inc()
	g.logger.Debug("Cache hit", zap.String("key", key))
	completion.Cached = true
	return &completion, true
}

func (g *Gateway) store(ctx context.Context, key string, completion *Completion) {
	data, err := json.Marshal(completion)
	if err != nil {
		g.logger.Warn("Failed to encode completion for cache", zap.Error(err))
		return
	}
	if err := g.cache.Set(ctx, key, string(data), g.cacheTTL); err != nil {
		g.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
