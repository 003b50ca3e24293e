// Package llmjson recovers JSON values from free-form model replies.
package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	jsonFence = "```json"
	fence     = "```"
)

var (
	objectSpan    = regexp.MustCompile(`(?s)\{.*\}`)
	arraySpan     = regexp.MustCompile(`(?s)\[.*\]`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Parse extracts a JSON object or array from text. Recovery steps run in a
// fixed order and the first that yields a value wins: fence stripping,
// direct parse, first greedy {...} span, first greedy [...] span, then
// trailing-comma repair. ok is false when nothing parses or the value is
// JSON null.
func Parse(text string) (any, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, false
	}
	s = strings.TrimSpace(stripFence(s))

	if v, ok := decode(s); ok {
		return v, true
	}
	for _, re := range []*regexp.Regexp{objectSpan, arraySpan} {
		if m := re.FindString(s); m != "" {
			if v, ok := decode(m); ok {
				return v, true
			}
		}
	}
	if v, ok := decode(trailingComma.ReplaceAllString(s, "$1")); ok {
		return v, true
	}
	return nil, false
}

// ParseObject is Parse restricted to JSON objects.
func ParseObject(text string) (map[string]any, bool) {
	v, ok := Parse(text)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// ParseList parses text into a list. A lone object is wrapped into a
// one-element list.
func ParseList(text string) ([]any, bool) {
	v, ok := Parse(text)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any:
		return []any{t}, true
	}
	return nil, false
}

func stripFence(s string) string {
	marker := fence
	if strings.Contains(s, jsonFence) {
		marker = jsonFence
	}
	i := strings.Index(s, marker)
	if i < 0 {
		return s
	}
	s = s[i+len(marker):]
	if j := strings.Index(s, fence); j >= 0 {
		s = s[:j]
	}
	return s
}

func decode(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, v != nil
}
