package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseJSON unmarshals a model response that may be wrapped in markdown code
// fences or surrounded by prose. It tries the raw text first, then a cleaned
// form, and fails with a descriptive error rather than returning an empty
// result.
func parseJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty model response")
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	cleaned := stripFences(raw)
	cleaned = sliceJSON(cleaned)
	if cleaned == "" {
		return fmt.Errorf("no JSON value found in model response")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("model response is not valid JSON after cleaning: %w", err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line ("json", "JSON", or nothing).
		first := strings.TrimSpace(s[:i])
		if first == "" || len(first) <= 8 && !strings.ContainsAny(first, "{}[]") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// sliceJSON returns the substring between the first '{' or '[' and the
// matching last '}' or ']', or "" when no JSON value is present.
func sliceJSON(s string) string {
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start, closer := objStart, byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start, closer = arrStart, ']'
	}
	if start < 0 {
		return ""
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
