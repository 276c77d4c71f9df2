package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CacheKeyPrefix - префикс всех ключей кэша ответов.
const CacheKeyPrefix = "llm:cache:"

type fingerprintOptions struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type fingerprintPayload struct {
	Messages []Message          `json:"messages"`
	Options  fingerprintOptions `json:"options"`
}

// Fingerprint возвращает детерминированный ключ кэша для запроса.
// Порядок полей фиксирован структурами, BypassCache в ключ не входит.
func Fingerprint(messages []Message, opts Options) string {
	payload := fingerprintPayload{
		Messages: messages,
		Options: fingerprintOptions{
			Model:       opts.Model,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		},
	}
	if payload.Messages == nil {
		payload.Messages = []Message{}
	}
	// Маршалинг структур из строк и чисел не может завершиться ошибкой.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return CacheKeyPrefix + hex.EncodeToString(sum[:])
}
