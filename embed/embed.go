// Package embed provides a transport-agnostic embedding client that converts
// text to float32 vectors via any OpenAI-compatible embedding server.
//
// It decouples embedding generation from storage/indexing so processors and
// the search service can convert text to vectors without knowing the backend.
//
// Usage:
//
//	emb := embed.New(embed.Config{
//	    Endpoint: "https://api.openai.com",
//	    Model:    "text-embedding-3-large",
//	})
//	vec, err := emb.Embed(ctx, "What instrumentation does this project need?")
//	// vec is []float32 of dimension 3072
package embed

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math"
	"time"
)

// DefaultDimension is the vector dimension the index schema expects.
const DefaultDimension = 3072

// Embedder converts text to vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts in one HTTP call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension.
	Dimension() int

	// Model returns the model name.
	Model() string
}

// Config configures the embedding client.
type Config struct {
	// Endpoint is the base URL of the embedding server. If empty, a Static
	// embedder is returned (deterministic vectors, no network).
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is sent as a bearer token when non-empty.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the model name sent in the request.
	Model string `json:"model" yaml:"model"`

	// Dimension is the expected vector dimension. Default: 3072.
	Dimension int `json:"dimension" yaml:"dimension"`

	// BatchSize is the maximum number of texts per HTTP request. Default: 32.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Timeout per HTTP request. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Dimension <= 0 {
		c.Dimension = DefaultDimension
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates an Embedder from config. If Endpoint is empty, returns a
// Static embedder that produces deterministic vectors without a server.
func New(cfg Config) Embedder {
	cfg.defaults()
	if cfg.Endpoint == "" {
		return NewStatic(cfg.Dimension)
	}
	return newHTTPClient(cfg)
}

// Static is a deterministic offline embedder: the same text always produces
// the same unit vector. Useful in tests and local development.
type Static struct {
	dim int
}

// NewStatic creates a Static embedder of the given dimension.
func NewStatic(dim int) *Static {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Static{dim: dim}
}

func (s *Static) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dim)
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float32(int64(seed>>32)) / float32(math.MaxInt32)
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (s *Static) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *Static) Dimension() int { return s.dim }
func (s *Static) Model() string  { return "static" }
