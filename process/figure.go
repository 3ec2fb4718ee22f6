package process

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/calyptra/grantvec/chunk"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/vecstore"
)

const describePrompt = `Describe this scientific figure in detail. Cover the type of
visualization, the variables or conditions shown, any visible trends or
comparisons, and what a grant reviewer would take away from it. Respond with
prose only.`

// FigureProcessor vectorizes a scientific figure. The image is never
// subdivided: the vision model's description (prefixed with the user's
// caption when present) is embedded as a single chunk.
type FigureProcessor struct {
	p *Pipeline
}

func (fp *FigureProcessor) Validate(ctx context.Context, id string) (bool, error) {
	fig, err := fp.p.store.GetFigure(ctx, id)
	if err != nil {
		return false, err
	}
	if fig == nil {
		return false, nil
	}
	if fig.VectorizationStatus == store.StatusCompleted || fig.VectorizationStatus == store.StatusProcessing {
		return false, nil
	}
	if fig.Bucket == "" || fig.Path == "" {
		return false, nil
	}
	if !strings.HasPrefix(fig.MIMEType, "image/") {
		return false, nil
	}
	if fig.SizeBytes > fp.p.cfg.MaxBlobBytes {
		return false, nil
	}
	return true, nil
}

func (fp *FigureProcessor) Process(ctx context.Context, id string) (*Result, error) {
	fig, err := fp.p.store.GetFigure(ctx, id)
	if err != nil {
		return nil, err
	}
	if fig == nil {
		return nil, fmt.Errorf("figure %s: %w", id, store.ErrNotFound)
	}

	if err := fp.p.store.SetFigureVectorization(ctx, id, store.StatusProcessing, fig.VectorIDs, ""); err != nil {
		return nil, err
	}

	res, err := fp.run(ctx, fig)
	if err != nil {
		if serr := fp.p.store.SetFigureVectorization(ctx, id, store.StatusError, nil, err.Error()); serr != nil {
			fp.p.log.Error("failed to record figure error", "figure", id, "error", serr)
		}
		return nil, fmt.Errorf("process figure %s: %w", id, err)
	}

	if err := fp.p.store.SetFigureVectorization(ctx, id, store.StatusCompleted, res.VectorIDs, ""); err != nil {
		return nil, err
	}
	return res, nil
}

func (fp *FigureProcessor) run(ctx context.Context, fig *store.Figure) (*Result, error) {
	data, err := fp.p.blobs.Download(ctx, fig.Bucket, fig.Path)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	description, err := fp.p.llm.Describe(ctx, encoded, describePrompt)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("vision model returned an empty description")
	}

	// Persist the description for display next to the figure.
	if err := fp.p.store.SetFigureDescription(ctx, fig.ID, description); err != nil {
		fp.p.log.Warn("failed to persist figure description", "figure", fig.ID, "error", err)
	}

	text := description
	if fig.Caption != "" {
		text = fig.Caption + "\n\n" + description
	}

	c := chunk.Chunk{
		Text:        text,
		Index:       1,
		Total:       1,
		SourcePages: []int{1},
		CharCount:   len([]rune(text)),
		WordCount:   len(strings.Fields(text)),
		TokenCount:  chunk.EstimateTokens(text),
		End:         len([]rune(text)),
	}

	fp.p.replaceVectors(ctx, fig.VectorIDs)

	ids, err := fp.p.vectorize(ctx, []chunk.Chunk{c}, vecstore.Metadata{
		"type":      string(TypeFigure),
		"owner_id":  fig.ProjectID,
		"figure_id": fig.ID,
		"title":     fig.Title,
		"caption":   fig.Caption,
	})
	if err != nil {
		return nil, err
	}
	return &Result{VectorIDs: ids, Chunks: []chunk.Chunk{c}}, nil
}
