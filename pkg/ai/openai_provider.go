package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
	defaultTimeout     = 30 * time.Second
)

// OpenAICompatibleConfig - настройки бэкенда с OpenAI-совместимым API (Sarvam и аналоги).
type OpenAICompatibleConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// openAICompatibleProvider отправляет запросы в /chat/completions.
// Бэкенд не поддерживает системный канал, поэтому сообщения проходят NormalizeAlternating.
type openAICompatibleProvider struct {
	name    string
	client  *openaigo.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAICompatibleProvider возвращает nil, если ключ не задан: провайдер не настроен.
func NewOpenAICompatibleProvider(cfg OpenAICompatibleConfig, logger *zap.Logger) Provider {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Name == "" {
		cfg.Name = "sarvam"
	}
	if cfg.Model == "" {
		cfg.Model = "sarvam-m"
	}

	clientCfg := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &openAICompatibleProvider{
		name:    cfg.Name,
		client:  openaigo.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("OpenAICompatibleProvider").With(zap.String("provider", cfg.Name)),
	}
}

func (p *openAICompatibleProvider) Name() string {
	return p.name
}

func (p *openAICompatibleProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	turns, err := NormalizeAlternating(messages)
	if err != nil {
		return "", err
	}

	chat := make([]openaigo.ChatCompletionMessage, 0, len(turns))
	for _, m := range turns {
		role := openaigo.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openaigo.ChatMessageRoleAssistant
		}
		chat = append(chat, openaigo.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	req := openaigo.ChatCompletionRequest{
		Model:       firstNonEmpty(opts.Model, p.model),
		Messages:    chat,
		Temperature: float32(temperatureOrDefault(opts.Temperature)),
		MaxTokens:   maxTokensOrDefault(opts.MaxTokens),
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Debug("Sending chat completion request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(chat)),
	)
	resp, err := p.client.CreateChatCompletion(requestCtx, req)
	if err != nil {
		var apiErr *openaigo.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s API error %d: %w", p.name, apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("%s request failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func temperatureOrDefault(t float64) float64 {
	if t == 0 {
		return defaultTemperature
	}
	return t
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
