package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaConfig - настройки локального бэкенда Ollama.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type ollamaProvider struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOllamaProvider создает провайдер Ollama. Ollama принимает системное сообщение
// отдельным первым сообщением, поэтому используется NormalizeSystemChannel.
func NewOllamaProvider(cfg OllamaConfig, logger *zap.Logger) (Provider, error) {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL '%s': %w", baseURL, err)
	}

	return &ollamaProvider{
		client:  api.NewClient(parsedURL, &http.Client{Timeout: cfg.Timeout}),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("OllamaProvider"),
	}, nil
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	system, turns := NormalizeSystemChannel(messages)

	chat := make([]api.Message, 0, len(turns)+1)
	if system != "" {
		chat = append(chat, api.Message{Role: string(RoleSystem), Content: system})
	}
	for _, m := range turns {
		chat = append(chat, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    firstNonEmpty(opts.Model, p.model),
		Messages: chat,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": temperatureOrDefault(opts.Temperature),
			"num_predict": maxTokensOrDefault(opts.MaxTokens),
		},
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var sb strings.Builder
	err := p.client.Chat(requestCtx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	p.logger.Debug("Ollama chat completed", zap.String("model", req.Model), zap.Int("content_length", sb.Len()))
	return sb.String(), nil
}
