package llm

import "context"

// Stub is a Client for tests: each method delegates to the corresponding
// func field, or returns a canned value when the field is nil.
type Stub struct {
	CompleteFunc   func(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)
	TranscribeFunc func(ctx context.Context, audio []byte, language string) (string, error)
	DescribeFunc   func(ctx context.Context, base64Image, prompt string) (string, error)
}

func (s *Stub) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	if s.CompleteFunc != nil {
		return s.CompleteFunc(ctx, messages, opts)
	}
	return "", nil
}

func (s *Stub) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if s.TranscribeFunc != nil {
		return s.TranscribeFunc(ctx, audio, language)
	}
	return "", nil
}

func (s *Stub) Describe(ctx context.Context, base64Image, prompt string) (string, error) {
	if s.DescribeFunc != nil {
		return s.DescribeFunc(ctx, base64Image, prompt)
	}
	return "", nil
}
