package docpipe

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// extractPlain decodes plain-text (or markdown) bytes with whitespace
// normalization. Invalid UTF-8 is rejected rather than silently mangled.
func extractPlain(data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("not valid UTF-8 text")
	}

	text := normalizeWhitespace(string(data))
	if text == "" {
		return nil, fmt.Errorf("no text content")
	}

	return &Document{
		Format: FormatTXT,
		Title:  firstLine(text),
		Text:   text,
	}, nil
}

// normalizeWhitespace collapses runs of whitespace into single spaces,
// preserving paragraph breaks as single newlines.
func normalizeWhitespace(text string) string {
	var sb strings.Builder
	var pendingNewline, pendingSpace bool
	for _, r := range text {
		if r == '\n' {
			pendingNewline = true
			continue
		}
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if sb.Len() > 0 {
			if pendingNewline {
				sb.WriteByte('\n')
			} else if pendingSpace {
				sb.WriteByte(' ')
			}
		}
		pendingNewline = false
		pendingSpace = false
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}
