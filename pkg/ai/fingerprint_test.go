package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Content: "You are a reader."},
		{Role: RoleUser, Content: "Analyze this."},
	}
	opts := Options{Temperature: 0.3, MaxTokens: 1500}

	key := Fingerprint(messages, opts)
	assert.True(t, strings.HasPrefix(key, CacheKeyPrefix))
	assert.Len(t, strings.TrimPrefix(key, CacheKeyPrefix), 64)

	t.Run("stable for equal requests", func(t *testing.T) {
		copied := append([]Message(nil), messages...)
		assert.Equal(t, key, Fingerprint(copied, opts))
	})

	t.Run("bypass flag is not part of the key", func(t *testing.T) {
		bypass := opts
		bypass.BypassCache = true
		assert.Equal(t, key, Fingerprint(messages, bypass))
	})

	t.Run("nil and empty messages match", func(t *testing.T) {
		assert.Equal(t, Fingerprint(nil, opts), Fingerprint([]Message{}, opts))
	})

	t.Run("distinct content gives distinct keys", func(t *testing.T) {
		variants := []string{
			Fingerprint(messages, Options{Temperature: 0.5, MaxTokens: 1500}),
			Fingerprint(messages, Options{Temperature: 0.3, MaxTokens: 1000}),
			Fingerprint(messages, Options{Temperature: 0.3, MaxTokens: 1500, Model: "gemini-1.5-pro"}),
			Fingerprint(messages[:1], opts),
			Fingerprint([]Message{{Role: RoleUser, Content: "You are a reader."}, messages[1]}, opts),
			Fingerprint([]Message{{Role: RoleUser, Content: "ab"}}, opts),
			Fingerprint([]Message{{Role: RoleUser, Content: "a"}, {Role: RoleUser, Content: "b"}}, opts),
		}
		seen := map[string]bool{key: true}
		for i, v := range variants {
			assert.False(t, seen[v], "variant %d collides", i)
			seen[v] = true
		}
	})
}
