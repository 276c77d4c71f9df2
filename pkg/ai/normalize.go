package ai

import "strings"

const (
	syntheticContinueTurn = "Continue the conversation."
	syntheticGreetingTurn = "Hello"
)

// NormalizeAlternating готовит сообщения для бэкенда без системного канала,
// который требует строгого чередования user/assistant, начиная с user.
//
// Системные сообщения склеиваются и дописываются в начало первого user-сообщения.
// Соседние сообщения одной роли объединяются.
func NormalizeAlternating(messages []Message) ([]Message, error) {
	system, turns := splitSystem(messages)

	if system != "" {
		idx := -1
		for i, m := range turns {
			if m.Role == RoleUser {
				idx = i
				break
			}
		}
		if idx >= 0 {
			turns[idx].Content = system + "\n\n" + turns[idx].Content
		} else {
			turns = append([]Message{{Role: RoleUser, Content: system}}, turns...)
		}
	}

	merged := make([]Message, 0, len(turns))
	for _, m := range turns {
		if n := len(merged); n > 0 && merged[n-1].Role == m.Role {
			merged[n-1].Content += "\n\n" + m.Content
			continue
		}
		merged = append(merged, m)
	}

	if len(merged) == 0 {
		return nil, ErrNoMessages
	}
	if merged[0].Role != RoleUser {
		merged = append([]Message{{Role: RoleUser, Content: syntheticContinueTurn}}, merged...)
	}
	return merged, nil
}

// NormalizeSystemChannel готовит сообщения для бэкенда с отдельной системной инструкцией.
// Если кроме системных сообщений ничего нет, инструкция становится единственным user-сообщением.
func NormalizeSystemChannel(messages []Message) (string, []Message) {
	system, turns := splitSystem(messages)
	if len(turns) == 0 {
		content := system
		if content == "" {
			content = syntheticGreetingTurn
		}
		return "", []Message{{Role: RoleUser, Content: content}}
	}
	return system, turns
}

// splitSystem отделяет системные сообщения (склеенные через перевод строки) от реплик.
// Сообщения с неизвестной ролью считаются пользовательскими.
func splitSystem(messages []Message) (string, []Message) {
	var systemParts []string
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Content)
		case RoleAssistant:
			turns = append(turns, Message{Role: RoleAssistant, Content: m.Content})
		default:
			turns = append(turns, Message{Role: RoleUser, Content: m.Content})
		}
	}
	return strings.Join(systemParts, "\n"), turns
}
