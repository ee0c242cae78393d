package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoPayload is returned when no JSON object can be located in a model
// response.
var ErrNoPayload = errors.New("no JSON payload found in model response")

// ExtractPayload locates the first JSON object embedded in free-form model
// output. Models routinely wrap their JSON in prose, so the fast path takes
// the span from the first '{' to the last '}'; when that span is not valid
// JSON, a balanced-brace scan recovers the first well-formed object.
func ExtractPayload(text string) (json.RawMessage, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, ErrNoPayload
	}

	wide := text[start : end+1]
	if json.Valid([]byte(wide)) {
		return json.RawMessage(wide), nil
	}

	if span, ok := firstBalancedObject(text[start:]); ok {
		return json.RawMessage(span), nil
	}
	return nil, ErrNoPayload
}

// firstBalancedObject scans text (starting at a '{') for the first
// brace-balanced span that parses as JSON. String literals and escapes are
// honored so braces inside values do not confuse the depth counter.
func firstBalancedObject(text string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
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
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				span := text[:i+1]
				if json.Valid([]byte(span)) {
					return span, true
				}
				return "", false
			}
		}
	}
	return "", false
}
