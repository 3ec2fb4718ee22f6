package llm

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openAIClient implements Client over the official OpenAI SDK.
type openAIClient struct {
	api    openai.Client
	cfg    Config
	logger *slog.Logger
}

// NewOpenAI creates a Client backed by the OpenAI API (or any server that
// speaks its protocol, via Config.BaseURL).
func NewOpenAI(cfg Config) Client {
	cfg.defaults()

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openAIClient{
		api:    openai.NewClient(opts...),
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

func (c *openAIClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.cfg.ChatModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toParamMessages(messages),
	}
	if opts.Temperature >= 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(opts.MaxTokens)
	}

	switch {
	case opts.Schema != nil:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   opts.Schema.Name,
					Schema: opts.Schema.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	case opts.JSONResponse:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		Model: c.cfg.TranscribeModel,
		File:  openai.File(bytes.NewReader(audio), "segment.mp3", "audio/mpeg"),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	resp, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return resp.Text, nil
}

func (c *openAIClient) Describe(ctx context.Context, base64Image, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Describe this scientific figure in detail, including axes, labels, trends, and what the figure demonstrates."
	}
	dataURL := "data:image/png;base64," + base64Image

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	})
	if err != nil {
		return "", fmt.Errorf("image description: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("image description: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toParamMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
