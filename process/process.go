// Package process turns uploaded research materials into searchable vectors.
//
// One processor exists per content type: written documents, scientific
// figures, chalk-talk recordings, and researcher profiles. Each processor
// obtains text for its content (extraction, transcription, or image
// description), chunks it, embeds every chunk, upserts the vectors with
// content-type metadata, and writes the outcome back to the source row.
//
// Processors follow a common lifecycle. Validate checks preconditions and
// returns false, not an error, when the content should be skipped. Process
// does the work; on any failure it first marks the source row with status
// error and the message, then returns the error so the caller (queue worker
// or API handler) can record the failure too.
package process

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calyptra/grantvec/blobstore"
	"github.com/calyptra/grantvec/chunk"
	"github.com/calyptra/grantvec/docpipe"
	"github.com/calyptra/grantvec/embed"
	"github.com/calyptra/grantvec/idgen"
	"github.com/calyptra/grantvec/llm"
	"github.com/calyptra/grantvec/queue"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/vecstore"
)

// ContentType selects a processor.
type ContentType string

const (
	TypeDocument   ContentType = "document"
	TypeFigure     ContentType = "figure"
	TypeChalkTalk  ContentType = "chalk_talk"
	TypeResearcher ContentType = "researcher"
)

// ContentTypes lists every processable type.
func ContentTypes() []ContentType {
	return []ContentType{TypeDocument, TypeFigure, TypeChalkTalk, TypeResearcher}
}

// Valid reports whether ct names a known content type.
func (ct ContentType) Valid() bool {
	switch ct {
	case TypeDocument, TypeFigure, TypeChalkTalk, TypeResearcher:
		return true
	}
	return false
}

// Result is what a successful Process run produced.
type Result struct {
	VectorIDs []string      `json:"vector_ids"`
	Chunks    []chunk.Chunk `json:"chunks"`
}

// Processor handles one content type.
type Processor interface {
	// Validate checks preconditions for the content. It returns false when
	// processing should be skipped (missing row, already vectorized, bad
	// input) and reserves the error return for infrastructure failures.
	Validate(ctx context.Context, contentID string) (bool, error)

	// Process runs the full vectorization for the content.
	Process(ctx context.Context, contentID string) (*Result, error)
}

// Config configures a Pipeline.
type Config struct {
	// MaxTokens bounds chunk size. Default: 500.
	MaxTokens int
	// MaxBlobBytes rejects oversized source files in Validate. Default: 50MB.
	MaxBlobBytes int64
	// IDs generates vector ids. Default: idgen.Prefixed("vec_", idgen.Default).
	IDs idgen.Generator
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 500
	}
	if c.MaxBlobBytes <= 0 {
		c.MaxBlobBytes = 50 << 20
	}
	if c.IDs == nil {
		c.IDs = idgen.Prefixed("vec_", idgen.Default)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline wires the collaborators the processors share.
type Pipeline struct {
	store   *store.Store
	blobs   blobstore.Store
	docs    *docpipe.Pipeline
	embed   embed.Embedder
	vectors *vecstore.Store
	llm     llm.Client
	queue   *queue.Q
	cfg     Config
	log     *slog.Logger
}

// New creates a Pipeline. All collaborators are required except queue, which
// may be nil when the caller only invokes processors directly.
func New(st *store.Store, blobs blobstore.Store, docs *docpipe.Pipeline,
	emb embed.Embedder, vectors *vecstore.Store, client llm.Client,
	q *queue.Q, cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		store:   st,
		blobs:   blobs,
		docs:    docs,
		embed:   emb,
		vectors: vectors,
		llm:     client,
		queue:   q,
		cfg:     cfg,
		log:     cfg.Logger,
	}
}

// ProcessorFor returns the processor for a content type. Unknown types are
// an error, never a silent no-op.
func (p *Pipeline) ProcessorFor(ct ContentType) (Processor, error) {
	switch ct {
	case TypeDocument:
		return &DocumentProcessor{p: p}, nil
	case TypeFigure:
		return &FigureProcessor{p: p}, nil
	case TypeChalkTalk:
		return &ChalkTalkProcessor{p: p}, nil
	case TypeResearcher:
		return &ResearcherProcessor{p: p}, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", ct)
	}
}

// vectorize embeds each chunk and upserts it with the given base metadata
// plus per-chunk fields. A chunk whose embed or upsert fails is skipped and
// the rest continue; vectorize errors only when no chunk succeeded.
func (p *Pipeline) vectorize(ctx context.Context, chunks []chunk.Chunk, base vecstore.Metadata) ([]string, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to vectorize")
	}

	ids := make([]string, 0, len(chunks))
	var lastErr error
	for _, c := range chunks {
		vec, err := p.embed.Embed(ctx, c.Text)
		if err != nil {
			p.log.Warn("embed failed, skipping chunk", "index", c.Index, "error", err)
			lastErr = err
			continue
		}

		md := vecstore.Metadata{
			"text":         c.Text,
			"chunk_index":  c.Index,
			"total_chunks": c.Total,
		}
		if len(c.SourcePages) > 0 {
			md["source_pages"] = c.SourcePages
		}
		for k, v := range base {
			md[k] = v
		}

		id := p.cfg.IDs()
		if err := p.vectors.Upsert(ctx, vecstore.Record{ID: id, Vector: vec, Metadata: md}); err != nil {
			p.log.Warn("vector upsert failed, skipping chunk", "index", c.Index, "error", err)
			lastErr = err
			continue
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("all %d chunks failed: %w", len(chunks), lastErr)
	}
	return ids, nil
}

// replaceVectors deletes the previous vector ids for a source record before
// new ones are stored, so re-processing never leaves orphaned duplicates.
func (p *Pipeline) replaceVectors(ctx context.Context, oldIDs []string) {
	if len(oldIDs) == 0 {
		return
	}
	if err := p.vectors.DeleteMany(ctx, oldIDs); err != nil {
		p.log.Warn("failed to delete previous vectors", "count", len(oldIDs), "error", err)
	}
}
