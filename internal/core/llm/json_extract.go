package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON means the model output contained no well-formed JSON object.
var ErrNoJSON = errors.New("llm: no JSON object in model output")

// ExtractJSONObject returns the first well-formed JSON object in raw model output.
// Models wrap JSON in prose or code fences; braces inside string literals are ignored.
func ExtractJSONObject(raw string) (string, bool) {
	for start := strings.IndexByte(raw, '{'); start >= 0; {
		if end := matchBrace(raw, start); end > 0 {
			candidate := raw[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// DecodeJSONObject extracts the first JSON object from raw and unmarshals it into v.
func DecodeJSONObject(raw string, v any) error {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(obj), v)
}

func matchBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
