package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenCounter оценивает число токенов в тексте. Используется только для метрик.
type TokenCounter func(text string) int

// NewTiktokenCounter возвращает счетчик на базе словаря cl100k_base.
// Словарь загружается лениво при первом вызове; если загрузить не удалось,
// счетчик возвращает 0 и метрики токенов не пишутся.
func NewTiktokenCounter(logger *zap.Logger) TokenCounter {
	var (
		once sync.Once
		enc  *tiktoken.Tiktoken
	)
	return func(text string) int {
		once.Do(func() {
			var err error
			enc, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				logger.Warn("Tokenizer unavailable, token metrics disabled", zap.Error(err))
			}
		})
		if enc == nil {
			return 0
		}
		return len(enc.Encode(text, nil, nil))
	}
}
