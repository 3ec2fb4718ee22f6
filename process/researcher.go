package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/calyptra/grantvec/chunk"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/vecstore"
)

// ResearcherProcessor vectorizes a researcher profile in two parts: a single
// fixed-field summary chunk (name, title, institution) and, when a biography
// is present, the chunked biography text. The parts carry a chunk_type
// metadata tag so retrieval can tell them apart.
type ResearcherProcessor struct {
	p *Pipeline
}

func (rp *ResearcherProcessor) Validate(ctx context.Context, id string) (bool, error) {
	prof, err := rp.p.store.GetProfile(ctx, id)
	if err != nil {
		return false, err
	}
	if prof == nil {
		return false, nil
	}
	if prof.VectorizationStatus == store.StatusCompleted || prof.VectorizationStatus == store.StatusProcessing {
		return false, nil
	}
	if strings.TrimSpace(prof.Name) == "" {
		return false, nil
	}
	return true, nil
}

func (rp *ResearcherProcessor) Process(ctx context.Context, id string) (*Result, error) {
	prof, err := rp.p.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, fmt.Errorf("profile %s: %w", id, store.ErrNotFound)
	}

	if err := rp.p.store.SetProfileVectorization(ctx, id, store.StatusProcessing, prof.VectorIDs, ""); err != nil {
		return nil, err
	}

	res, err := rp.run(ctx, prof)
	if err != nil {
		if serr := rp.p.store.SetProfileVectorization(ctx, id, store.StatusError, nil, err.Error()); serr != nil {
			rp.p.log.Error("failed to record profile error", "profile", id, "error", serr)
		}
		return nil, fmt.Errorf("process researcher %s: %w", id, err)
	}

	if err := rp.p.store.SetProfileVectorization(ctx, id, store.StatusCompleted, res.VectorIDs, ""); err != nil {
		return nil, err
	}
	return res, nil
}

func (rp *ResearcherProcessor) run(ctx context.Context, prof *store.Profile) (*Result, error) {
	rp.p.replaceVectors(ctx, prof.VectorIDs)

	base := vecstore.Metadata{
		"type":          string(TypeResearcher),
		"owner_id":      prof.ProjectID,
		"researcher_id": prof.ID,
		"name":          prof.Name,
	}

	info := basicInfo(prof)
	infoChunk := chunk.Chunk{
		Text:       info,
		Index:      1,
		Total:      1,
		CharCount:  len([]rune(info)),
		WordCount:  len(strings.Fields(info)),
		TokenCount: chunk.EstimateTokens(info),
		End:        len([]rune(info)),
	}

	infoMeta := vecstore.Metadata{"chunk_type": "basic_info"}
	for k, v := range base {
		infoMeta[k] = v
	}
	ids, err := rp.p.vectorize(ctx, []chunk.Chunk{infoChunk}, infoMeta)
	if err != nil {
		return nil, err
	}
	allChunks := []chunk.Chunk{infoChunk}

	if bio := strings.TrimSpace(prof.Biography); bio != "" {
		bioChunks := chunk.Split(bio, chunk.Options{MaxTokens: rp.p.cfg.MaxTokens})
		bioMeta := vecstore.Metadata{"chunk_type": "biography"}
		for k, v := range base {
			bioMeta[k] = v
		}
		bioIDs, err := rp.p.vectorize(ctx, bioChunks, bioMeta)
		if err != nil {
			return nil, err
		}
		ids = append(ids, bioIDs...)
		allChunks = append(allChunks, bioChunks...)
	}

	return &Result{VectorIDs: ids, Chunks: allChunks}, nil
}

func basicInfo(prof *store.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Researcher: %s.", prof.Name)
	if prof.Title != "" {
		fmt.Fprintf(&b, " Title: %s.", prof.Title)
	}
	if prof.Institution != "" {
		fmt.Fprintf(&b, " Institution: %s.", prof.Institution)
	}
	return b.String()
}
