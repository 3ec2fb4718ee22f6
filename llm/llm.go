// Package llm wraps the language-model provider behind a small interface:
// chat completion (plain or JSON-constrained), audio transcription, and
// image description. Processors and extractors take a Client so tests can
// inject a Stub instead of the real provider.
package llm

import (
	"context"
	"log/slog"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ResponseSchema constrains a completion to a named JSON schema.
type ResponseSchema struct {
	Name   string
	Schema map[string]any
}

// CompleteOptions controls a single completion request.
type CompleteOptions struct {
	// Model overrides the configured chat model.
	Model string

	// Temperature in [0,2]. Negative means provider default.
	Temperature float64

	// JSONResponse forces a JSON-object response format.
	JSONResponse bool

	// Schema forces a strict JSON-schema response format. Implies JSON.
	Schema *ResponseSchema

	// MaxTokens bounds the response length. 0 means provider default.
	MaxTokens int64
}

// Client is the language-model provider surface the pipeline consumes.
type Client interface {
	// Complete returns the assistant text for a conversation.
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)

	// Transcribe converts an audio segment to text.
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)

	// Describe returns a textual description of a base64-encoded image.
	Describe(ctx context.Context, base64Image, prompt string) (string, error)
}

// Config configures the OpenAI-backed client.
type Config struct {
	// APIKey authenticates against the provider.
	APIKey string `json:"api_key" yaml:"api_key"`

	// BaseURL overrides the provider endpoint (for proxies and compatible
	// servers). Empty means the provider default.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// ChatModel is the default completion model. Default: "gpt-4o".
	ChatModel string `json:"chat_model" yaml:"chat_model"`

	// TranscribeModel is the audio transcription model. Default: "whisper-1".
	TranscribeModel string `json:"transcribe_model" yaml:"transcribe_model"`

	// VisionModel is the image-description model. Default: ChatModel.
	VisionModel string `json:"vision_model" yaml:"vision_model"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.ChatModel == "" {
		c.ChatModel = "gpt-4o"
	}
	if c.TranscribeModel == "" {
		c.TranscribeModel = "whisper-1"
	}
	if c.VisionModel == "" {
		c.VisionModel = c.ChatModel
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
