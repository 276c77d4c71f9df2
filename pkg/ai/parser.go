package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const (
	parsePreviewLength = 200
	minFallbackRegion  = 10
)

var (
	// Первый блок ``` или ```json. Ленивый захват, чтобы не склеивать соседние блоки.
	fencedBlockRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	// Самая левая открывающая скобка до самой правой закрывающей, минимум 10 символов внутри.
	fallbackRegionRe = regexp.MustCompile(fmt.Sprintf(`(?s)\{.{%d,}\}|\[.{%d,}\]`, minFallbackRegion, minFallbackRegion))

	errEmptyContent  = errors.New("content is empty")
	errTrailingData  = errors.New("unexpected data after top-level value")
	errNoJSONPayload = errors.New("no JSON object or array found")
)

// ParseError возвращается, когда из ответа модели не удалось достать JSON.
type ParseError struct {
	Preview string
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse JSON response: %v. Content preview: %s", e.Cause, e.Preview)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Parser извлекает JSON из "шумного" ответа модели: прозы вокруг, markdown-блоков,
// висячих запятых и комментариев.
type Parser struct {
	logger *zap.Logger
}

// NewParser создает парсер. Экземпляр не хранит состояния и безопасен для общего использования.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger.Named("JSONParser")}
}

// Extract возвращает компактный валидный JSON, найденный в content.
func (p *Parser) Extract(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		p.logger.Error("Content is empty")
		return nil, &ParseError{Preview: "", Cause: errEmptyContent}
	}

	candidate := locateCandidate(trimmed)
	raw, err := decodeStrict(cleanJSON(candidate))
	if err == nil {
		p.logger.Debug("Parsed JSON on first attempt", zap.Int("length", len(raw)))
		return raw, nil
	}
	firstErr := err
	p.logger.Warn("JSON extraction failed, trying fallback region",
		zap.Error(err),
		zap.String("preview", preview(content, 1000)),
	)

	if region := fallbackRegionRe.FindString(content); region != "" {
		raw, err = decodeStrict(cleanJSON(region))
		if err == nil {
			p.logger.Debug("Parsed JSON on second attempt", zap.Int("length", len(raw)))
			return raw, nil
		}
		p.logger.Error("Second attempt also failed", zap.Error(err))
	}

	return nil, &ParseError{Preview: preview(content, parsePreviewLength), Cause: firstErr}
}

// Decode извлекает JSON и раскладывает его в v.
func (p *Parser) Decode(content string, v any) error {
	raw, err := p.Extract(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ParseError{Preview: preview(content, parsePreviewLength), Cause: err}
	}
	return nil
}

// locateCandidate выбирает фрагмент текста, в котором, вероятно, находится JSON.
func locateCandidate(s string) string {
	if m := fencedBlockRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return sliceBalanced(s)
}

// sliceBalanced вырезает первую сбалансированную структуру, начиная с первой { или [.
// Скобки внутри строк не считаются. Если баланс так и не сошелся, текст возвращается целиком.
func sliceBalanced(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}

	var braces, brackets int
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
			continue
		case ch == '"':
			inString = !inString
			continue
		case inString:
			continue
		}

		switch ch {
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		}
		if braces == 0 && brackets == 0 {
			return s[start : i+1]
		}
	}
	return s
}

// cleanJSON обрезает мусор по краям, удаляет комментарии и висячие запятые вне строк.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start < 0 || end < start {
		return ""
	}
	s = s[start : end+1]
	return removeTrailingCommas(stripComments(s))
}

func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
			b.WriteByte(ch)
		case ch == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case ch == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				// Незакрытый комментарий оставляем как есть, строгий разбор его отвергнет.
				b.WriteString(s[i:])
				return b.String()
			}
			i += end + 3
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// decodeStrict проверяет, что s - ровно одно JSON-значение, и возвращает его в компактном виде.
// Числа не переводятся во float64, поэтому значение воспроизводится без потерь.
func decodeStrict(s string) (json.RawMessage, error) {
	if s == "" {
		return nil, errNoJSONPayload
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
