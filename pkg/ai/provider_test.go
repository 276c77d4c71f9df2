package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenAICompatibleProvider_Complete(t *testing.T) {
	var captured struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature"`
		MaxTokens   int       `json:"max_tokens"`
	}
	var authHeader, path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chat-1","object":"chat.completion","created":1,"model":"sarvam-m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	p := NewOpenAICompatibleProvider(OpenAICompatibleConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	require.NotNil(t, p)
	assert.Equal(t, "sarvam", p.Name())

	content, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "Be brief."},
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleUser, Content: "Anyone there?"},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello there", content)

	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "sarvam-m", captured.Model)
	assert.InDelta(t, 0.7, captured.Temperature, 0.0001)
	assert.Equal(t, 2000, captured.MaxTokens)
	// Системная инструкция ушла в первую реплику, две user-реплики склеены.
	assert.Equal(t, []Message{{Role: RoleUser, Content: "Be brief.\n\nHi\n\nAnyone there?"}}, captured.Messages)
}

func TestOpenAICompatibleProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"messages must alternate","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	p := NewOpenAICompatibleProvider(OpenAICompatibleConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "Hi"}}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestOpenAICompatibleProvider_NotConfigured(t *testing.T) {
	assert.Nil(t, NewOpenAICompatibleProvider(OpenAICompatibleConfig{}, zap.NewNop()))
}

func TestGeminiProvider_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"from gemini"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, p)

	content, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "Be brief."},
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "Hello"},
		{Role: RoleUser, Content: "Plan?"},
	}, Options{Temperature: 0.3, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "from gemini", content)

	assert.Contains(t, body, "systemInstruction")
	contents, ok := body["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
}

func TestGeminiProvider_NotConfigured(t *testing.T) {
	p, err := NewGeminiProvider(context.Background(), GeminiConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestOllamaProvider_Complete(t *testing.T) {
	var req struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"local answer"},"done":true}`))
	}))
	defer server.Close()

	p, err := NewOllamaProvider(OllamaConfig{BaseURL: server.URL + "/v1", Model: "llama3"}, zap.NewNop())
	require.NoError(t, err)

	content, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "Be brief."},
		{Role: RoleUser, Content: "Hi"},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "local answer", content)
	assert.Equal(t, "llama3", req.Model)
	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "Be brief."},
		{Role: RoleUser, Content: "Hi"},
	}, req.Messages)
}
