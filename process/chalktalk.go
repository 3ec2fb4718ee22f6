package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/calyptra/grantvec/chunk"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/vecstore"
)

// Transcription services cap request size, so recordings are cut into
// roughly ten-minute segments before upload. Duration is estimated from
// byte size assuming a typical compressed-speech bitrate (~128 kbps).
const (
	audioBytesPerSecond = 16 * 1024
	segmentSeconds      = 10 * 60
	segmentBytes        = audioBytesPerSecond * segmentSeconds
)

// ChalkTalkProcessor transcribes a chalk-talk recording and vectorizes the
// transcript. Individual segment failures are tolerated; the job fails only
// when no segment produced usable text.
type ChalkTalkProcessor struct {
	p *Pipeline
}

func (cp *ChalkTalkProcessor) Validate(ctx context.Context, id string) (bool, error) {
	ct, err := cp.p.store.GetChalkTalk(ctx, id)
	if err != nil {
		return false, err
	}
	if ct == nil {
		return false, nil
	}
	if ct.VectorizationStatus == store.StatusCompleted || ct.VectorizationStatus == store.StatusProcessing {
		return false, nil
	}
	if ct.Bucket == "" || ct.Path == "" {
		return false, nil
	}
	if !strings.HasPrefix(ct.MIMEType, "audio/") && !strings.HasPrefix(ct.MIMEType, "video/") {
		return false, nil
	}
	return true, nil
}

func (cp *ChalkTalkProcessor) Process(ctx context.Context, id string) (*Result, error) {
	ct, err := cp.p.store.GetChalkTalk(ctx, id)
	if err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, fmt.Errorf("chalk talk %s: %w", id, store.ErrNotFound)
	}

	if err := cp.p.store.SetChalkTalkVectorization(ctx, id, store.StatusProcessing, ct.VectorIDs, ""); err != nil {
		return nil, err
	}

	res, err := cp.run(ctx, ct)
	if err != nil {
		if serr := cp.p.store.SetChalkTalkVectorization(ctx, id, store.StatusError, nil, err.Error()); serr != nil {
			cp.p.log.Error("failed to record chalk talk error", "chalk_talk", id, "error", serr)
		}
		return nil, fmt.Errorf("process chalk talk %s: %w", id, err)
	}

	if err := cp.p.store.SetChalkTalkVectorization(ctx, id, store.StatusCompleted, res.VectorIDs, ""); err != nil {
		return nil, err
	}
	return res, nil
}

func (cp *ChalkTalkProcessor) run(ctx context.Context, ct *store.ChalkTalk) (*Result, error) {
	data, err := cp.p.blobs.Download(ctx, ct.Bucket, ct.Path)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty recording")
	}

	transcript, err := cp.transcribe(ctx, data, ct.Language)
	if err != nil {
		return nil, err
	}

	if err := cp.p.store.SetChalkTalkTranscript(ctx, ct.ID, transcript); err != nil {
		cp.p.log.Warn("failed to persist transcript", "chalk_talk", ct.ID, "error", err)
	}

	chunks := chunk.Split(transcript, chunk.Options{MaxTokens: cp.p.cfg.MaxTokens})
	if len(chunks) == 0 {
		return nil, fmt.Errorf("transcript produced no text")
	}

	cp.p.replaceVectors(ctx, ct.VectorIDs)

	ids, err := cp.p.vectorize(ctx, chunks, vecstore.Metadata{
		"type":          string(TypeChalkTalk),
		"owner_id":      ct.ProjectID,
		"chalk_talk_id": ct.ID,
		"title":         ct.Title,
	})
	if err != nil {
		return nil, err
	}
	return &Result{VectorIDs: ids, Chunks: chunks}, nil
}

// transcribe cuts the recording into segments and transcribes each one
// independently, joining the surviving pieces in order with single spaces.
func (cp *ChalkTalkProcessor) transcribe(ctx context.Context, data []byte, language string) (string, error) {
	segments := splitSegments(data, segmentBytes)

	parts := make([]string, 0, len(segments))
	var lastErr error
	for i, seg := range segments {
		text, err := cp.p.llm.Transcribe(ctx, seg, language)
		if err != nil {
			cp.p.log.Warn("segment transcription failed, skipping",
				"segment", i+1, "of", len(segments), "error", err)
			lastErr = err
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		if lastErr != nil {
			return "", fmt.Errorf("no segment transcribed: %w", lastErr)
		}
		return "", fmt.Errorf("transcription produced no text")
	}
	return strings.Join(parts, " "), nil
}

func splitSegments(data []byte, size int) [][]byte {
	if len(data) <= size {
		return [][]byte{data}
	}
	var out [][]byte
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		out = append(out, data[start:end])
	}
	return out
}
