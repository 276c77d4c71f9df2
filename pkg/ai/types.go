package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role - роль участника диалога.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message - одно сообщение запроса к модели.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options - параметры одного запроса к шлюзу.
// Нулевые Temperature и MaxTokens означают значения провайдера по умолчанию.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// BypassCache отключает чтение и запись кэша для этого вызова.
	BypassCache bool
}

// Completion - нормализованный ответ шлюза.
type Completion struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Cached   bool   `json:"-"`
}

// Provider - один бэкенд генерации текста со своей нормализацией сообщений.
type Provider interface {
	// Name возвращает короткое имя бэкенда для логов и метрик.
	Name() string
	// Complete выполняет один запрос без повторов.
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Completer - то, что нужно потребителям шлюза (пайплайн, сервис).
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error)
}

var (
	// ErrProviderUnavailable - ни один настроенный бэкенд не вернул ответ.
	ErrProviderUnavailable = errors.New("no text generation provider available")
	// ErrNoProviderConfigured - не настроен ни основной, ни резервный бэкенд.
	ErrNoProviderConfigured = errors.New("no text generation provider configured")
	// ErrEmptyResponse - бэкенд ответил успешно, но без текста.
	ErrEmptyResponse = errors.New("provider returned empty response")
	// ErrNoMessages - после нормализации не осталось сообщений.
	ErrNoMessages = errors.New("no valid messages to send")
)

// ProviderUnavailableError перечисляет бэкенды, которые были опрошены, и их ошибки.
type ProviderUnavailableError struct {
	Attempted []string
	Causes    []error
}

func (e *ProviderUnavailableError) Error() string {
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("%v: %v", ErrProviderUnavailable, ErrNoProviderConfigured)
	}
	msgs := make([]string, 0, len(e.Causes))
	for i, cause := range e.Causes {
		msgs = append(msgs, fmt.Sprintf("%s: %v", e.Attempted[i], cause))
	}
	return fmt.Sprintf("%v (attempted: %s): %s", ErrProviderUnavailable, strings.Join(e.Attempted, ", "), strings.Join(msgs, "; "))
}

func (e *ProviderUnavailableError) Is(target error) bool {
	if target == ErrProviderUnavailable {
		return true
	}
	return target == ErrNoProviderConfigured && len(e.Attempted) == 0
}

func (e *ProviderUnavailableError) Unwrap() []error {
	return e.Causes
}
