// Package docpipe extracts text from uploaded document bytes.
//
// Dispatch is on the declared MIME type:
//   - application/pdf: page-aware PDF text extraction (pdfcpu)
//   - application/vnd.openxmlformats-officedocument.wordprocessingml.document:
//     Microsoft Word (archive/zip, word/document.xml)
//   - text/plain, text/markdown: passthrough with whitespace normalization
//
// Unsupported MIME types and documents that yield no text are rejected, so a
// caller that gets a Document back always has something to chunk and embed.
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	doc, err := pipe.ExtractBytes(ctx, data, "application/pdf")
//	fmt.Println(doc.Title, len(doc.Pages), "pages")
package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Config configures the document pipeline.
type Config struct {
	// MaxFileSize is the maximum document size to process (default: 50 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 50 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline is the document extraction engine.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

const mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Detect returns the document format for a declared MIME type.
func (p *Pipeline) Detect(mimeType string) (Format, error) {
	// Strip parameters like "; charset=utf-8".
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "application/pdf":
		return FormatPDF, nil
	case mimeDocx:
		return FormatDocx, nil
	case "text/plain", "text/markdown":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("unsupported MIME type: %q", mimeType)
	}
}

// ExtractBytes parses document bytes and returns the extracted text with
// page spans. It fails closed: unsupported types, oversized payloads, and
// documents with no extractable text are errors.
func (p *Pipeline) ExtractBytes(ctx context.Context, data []byte, mimeType string) (*Document, error) {
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("document too large: %d bytes (max %d)", len(data), p.cfg.MaxFileSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	format, err := p.Detect(mimeType)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("extracting document", "format", format, "bytes", len(data))

	var doc *Document
	switch format {
	case FormatPDF:
		doc, err = extractPDF(data)
	case FormatDocx:
		doc, err = extractDocx(data)
	case FormatTXT:
		doc, err = extractPlain(data)
	default:
		return nil, fmt.Errorf("no parser for format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", format, err)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("no text content in %s document", format)
	}
	if len(doc.Pages) == 0 {
		doc.Pages = []PageSpan{{Page: 1, Start: 0, End: len([]rune(doc.Text))}}
	}
	return doc, nil
}

// SupportedMIMETypes returns the MIME types ExtractBytes accepts. Legacy
// binary .doc (application/msword) is not among them: it is not a ZIP
// archive, so the OOXML parser can never read it.
func SupportedMIMETypes() []string {
	return []string{"application/pdf", mimeDocx, "text/plain", "text/markdown"}
}
