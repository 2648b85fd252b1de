package textgen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// wrapperKeys are the envelope field names backends wrap payloads in, in
// priority order.
var wrapperKeys = []string{"response", "content", "result", "text", "output"}

// danglingWords ending a response usually mean the model was cut off
// mid-sentence.
var danglingWords = map[string]bool{
	"and": true, "but": true, "or": true, "nor": true, "yet": true,
	"so": true, "with": true, "the": true, "in": true, "to": true,
	"a": true, "an": true,
}

// Repair turns a raw backend response into usable text. The response may be
// plain text, a JSON envelope, nested JSON-in-JSON, or several concatenated
// JSON chunks; each form is unwrapped in turn.
func Repair(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if reassembled, ok := reassembleChunks(raw); ok {
		return strings.TrimSpace(reassembled)
	}

	return strings.TrimSpace(extractContent(raw))
}

// reassembleChunks detects a response made of two or more concatenated JSON
// objects, extracts the payload of each, and joins them in order. Returns
// false when the input is not chunked.
func reassembleChunks(raw string) (string, bool) {
	objects := scanObjects(raw)
	if len(objects) < 2 {
		return "", false
	}

	var parts []string
	for _, obj := range objects {
		if part := extractContent(obj); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ""), true
}

// scanObjects finds top-level balanced {...} regions in raw, skipping
// brace characters inside string literals.
func scanObjects(raw string) []string {
	var objects []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range raw {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					objects = append(objects, raw[start:i+1])
					start = -1
				}
			}
		}
	}
	return objects
}

// extractContent unwraps a single JSON envelope down to its text payload.
// Non-JSON input is returned as-is. A parsed object with no recognized
// wrapper key is stringified rather than dropped.
func extractContent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return raw
	}
	return unwrap(parsed)
}

// unwrap recursively resolves wrapper keys and JSON-in-JSON payloads.
func unwrap(v any) string {
	switch val := v.(type) {
	case string:
		// The payload itself may be another JSON document.
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var inner any
			if err := json.Unmarshal([]byte(trimmed), &inner); err == nil {
				if _, isMap := inner.(map[string]any); isMap {
					return unwrap(inner)
				}
			}
		}
		return val

	case map[string]any:
		for _, key := range wrapperKeys {
			if inner, ok := val[key]; ok {
				return unwrap(inner)
			}
		}
		// No recognized wrapper key: best-effort stringify in stable order.
		return stringifyMap(val)

	case []any:
		var parts []string
		for _, item := range val {
			if s := unwrap(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")

	case nil:
		return ""

	default:
		return fmt.Sprintf("%v", val)
	}
}

func stringifyMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if s := unwrap(m[k]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// IsTruncated reports whether text looks cut off: a trailing ellipsis,
// unbalanced braces or quotes, or a dangling conjunction/article within the
// last few words.
func IsTruncated(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if strings.HasSuffix(text, "...") || strings.HasSuffix(text, "…") {
		return true
	}

	if strings.Count(text, "{") != strings.Count(text, "}") {
		return true
	}
	if strings.Count(text, `"`)%2 != 0 {
		return true
	}

	words := strings.Fields(strings.ToLower(text))
	tail := words
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	for _, w := range tail {
		w = strings.Trim(w, ".,!?;:\"'")
		if danglingWords[w] && !endsInTerminalPunctuation(text) {
			return true
		}
	}
	return false
}

func endsInTerminalPunctuation(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
