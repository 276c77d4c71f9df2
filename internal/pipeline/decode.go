package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// rawObject - разобранный объект ответа модели с отложенным декодированием полей.
// Поля читаются через хелперы, которые принимают несколько имен и терпят неверные типы.
type rawObject map[string]json.RawMessage

func decodeObject(raw json.RawMessage) (rawObject, error) {
	var obj rawObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("result is not a JSON object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("result is not a JSON object: null")
	}
	return obj, nil
}

// lookup возвращает первое присутствующее и не-null поле из списка имен.
func (o rawObject) lookup(keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		v, ok := o[key]
		if !ok || isNull(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

// text возвращает строковое поле. Нестроковое значение выводится как JSON с отступами.
func (o rawObject) text(keys ...string) string {
	v, ok := o.lookup(keys...)
	if !ok {
		return ""
	}
	return renderText(v)
}

// firstText работает как text, но пропускает пустые строки и переходит к следующему имени.
func (o rawObject) firstText(keys ...string) string {
	for _, key := range keys {
		if s := o.text(key); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// list возвращает список строк. Одиночное значение превращается в список из одного элемента.
func (o rawObject) list(keys ...string) []string {
	v, ok := o.lookup(keys...)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		if s := strings.TrimSpace(renderText(v)); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if isNull(item) {
			continue
		}
		if s := strings.TrimSpace(renderText(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// number читает число. Принимает и числа в строках вида "1,50,000" или "250000 INR".
func (o rawObject) number(keys ...string) (float64, bool) {
	v, ok := o.lookup(keys...)
	if !ok {
		return 0, false
	}
	return parseNumber(v)
}

// object возвращает вложенный объект.
func (o rawObject) object(keys ...string) rawObject {
	v, ok := o.lookup(keys...)
	if !ok {
		return nil
	}
	var nested rawObject
	if err := json.Unmarshal(v, &nested); err != nil {
		return nil
	}
	return nested
}

// objects возвращает список вложенных объектов, пропуская элементы другого типа.
func (o rawObject) objects(keys ...string) []rawObject {
	v, ok := o.lookup(keys...)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil
	}
	out := make([]rawObject, 0, len(items))
	for _, item := range items {
		var nested rawObject
		if err := json.Unmarshal(item, &nested); err == nil && nested != nil {
			out = append(out, nested)
		}
	}
	return out
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null"
}

func renderText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, v, "", "  "); err != nil {
		return string(v)
	}
	return buf.String()
}

func parseNumber(v json.RawMessage) (float64, bool) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		f, err := n.Float64()
		return f, err == nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, false
	}
	fields := strings.Fields(strings.ReplaceAll(s, ",", ""))
	if len(fields) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	return f, err == nil
}
