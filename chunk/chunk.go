// Package chunk splits text into token-bounded segments for embedding.
//
// Splitting prefers sentence boundaries and falls back to character-level
// halving for pathological inputs (one giant unbroken sentence), so no
// produced chunk ever exceeds the token budget. When page spans over the
// source text are supplied, each chunk records the set of pages it overlaps.
//
// Usage:
//
//	chunks := chunk.Split(text, chunk.Options{MaxTokens: 500})
//	for _, c := range chunks {
//	    fmt.Println(c.Index, c.TokenCount, c.SourcePages)
//	}
package chunk

import (
	"regexp"
	"strings"
)

// PageSpan maps a page number to the rune range it covers in the source text.
// End is exclusive.
type PageSpan struct {
	Page  int
	Start int
	End   int
}

// TokenCounter estimates the token cost of a text.
type TokenCounter func(text string) int

// EstimateTokens approximates token count at roughly four characters per
// token, the ratio GPT-family tokenizers average on English prose.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// Options controls splitting behaviour.
type Options struct {
	// MaxTokens is the token budget per chunk. Default: 500.
	MaxTokens int

	// Pages maps page numbers to rune ranges of the source text. Optional.
	Pages []PageSpan

	// Counter overrides the token estimator. Default: EstimateTokens.
	Counter TokenCounter
}

func (o *Options) defaults() {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 500
	}
	if o.Counter == nil {
		o.Counter = EstimateTokens
	}
}

// Chunk is a bounded segment of source text.
type Chunk struct {
	Text        string `json:"text"`
	Index       int    `json:"index"` // 1-based sequence position
	Total       int    `json:"total"`
	SourcePages []int  `json:"source_pages"`
	CharCount   int    `json:"char_count"`
	WordCount   int    `json:"word_count"`
	TokenCount  int    `json:"token_count"`
	Start       int    `json:"start"` // rune offset in source, inclusive
	End         int    `json:"end"`   // rune offset in source, exclusive
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// span is a half-open rune range over the source text.
type span struct {
	start, end int
}

// Split divides text into chunks that each fit opts.MaxTokens.
// Empty or whitespace-only input returns nil. Chunks are emitted in source
// order; concatenating them in Index order and collapsing whitespace
// reproduces the whitespace-collapsed source.
func Split(text string, opts Options) []Chunk {
	opts.defaults()

	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	units := sentenceUnits(text, runes)

	var spans []span
	cur := span{start: -1}

	flush := func() {
		if cur.start >= 0 && cur.end > cur.start {
			spans = append(spans, cur)
		}
		cur = span{start: -1}
	}

	for _, u := range units {
		if opts.Counter(string(runes[u.start:u.end])) > opts.MaxTokens {
			// A single unit over budget: close the buffer, then subdivide
			// the unit by character halving.
			flush()
			spans = append(spans, halve(runes, u, opts.MaxTokens, opts.Counter)...)
			continue
		}

		if cur.start < 0 {
			cur = u
			continue
		}

		if opts.Counter(string(runes[cur.start:u.end])) > opts.MaxTokens {
			flush()
			cur = u
			continue
		}
		cur.end = u.end
	}
	flush()

	chunks := make([]Chunk, 0, len(spans))
	for _, s := range spans {
		txt := strings.TrimSpace(string(runes[s.start:s.end]))
		if txt == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Text:        txt,
			SourcePages: pagesFor(s, opts.Pages),
			CharCount:   len([]rune(txt)),
			WordCount:   len(strings.Fields(txt)),
			TokenCount:  opts.Counter(txt),
			Start:       s.start,
			End:         s.end,
		})
	}

	for i := range chunks {
		chunks[i].Index = i + 1
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// sentenceUnits splits the source into sentence-like spans at punctuation
// boundaries. Text after the last terminal punctuation mark (or the whole
// text when none is found) becomes a trailing unit so nothing is dropped.
func sentenceUnits(text string, runes []rune) []span {
	byteToRune := make(map[int]int, len(runes)+1)
	r := 0
	for b := range text {
		byteToRune[b] = r
		r++
	}
	byteToRune[len(text)] = len(runes)

	matches := sentenceRe.FindAllStringIndex(text, -1)
	var units []span
	last := 0
	for _, m := range matches {
		units = append(units, span{start: byteToRune[m[0]], end: byteToRune[m[1]]})
		last = byteToRune[m[1]]
	}
	if last < len(runes) && strings.TrimSpace(string(runes[last:])) != "" {
		units = append(units, span{start: last, end: len(runes)})
	}
	if len(units) == 0 {
		units = append(units, span{start: 0, end: len(runes)})
	}
	return units
}

// halve splits an oversized span into budget-fitting pieces by binary
// searching, from each position, the largest prefix that still fits.
func halve(runes []rune, s span, maxTokens int, counter TokenCounter) []span {
	var out []span
	pos := s.start
	for pos < s.end {
		lo, hi := pos+1, s.end
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if counter(string(runes[pos:mid])) <= maxTokens {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		// lo is the largest end that fits; always advance at least one rune.
		if lo <= pos {
			lo = pos + 1
		}
		out = append(out, span{start: pos, end: lo})
		pos = lo
	}
	return out
}

// pagesFor returns the page numbers whose span overlaps the chunk range.
// Never empty: falls back to page 1 when nothing overlaps.
func pagesFor(s span, pages []PageSpan) []int {
	var out []int
	for _, p := range pages {
		if p.Start < s.end && s.start < p.End {
			out = append(out, p.Page)
		}
	}
	if len(out) == 0 {
		return []int{1}
	}
	return out
}
