package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/calyptra/grantvec/chunk"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/vecstore"
)

// IngestFOA persists a funding opportunity row and indexes its text for
// award-filtered retrieval. The structured summary is embedded as a single
// foa_description vector carrying award_floor and award_ceiling metadata;
// the announcement text, when present, is chunked and embedded as foa_raw
// vectors. The row is written first so an indexing failure leaves it in the
// error state instead of dropping it.
func (p *Pipeline) IngestFOA(ctx context.Context, rec *store.FOA) error {
	if strings.TrimSpace(rec.Title) == "" {
		return fmt.Errorf("foa has no title")
	}

	if err := p.store.CreateFOA(ctx, rec); err != nil {
		return err
	}
	if err := p.store.SetFOAVectorization(ctx, rec.ID, store.StatusProcessing, nil, ""); err != nil {
		return err
	}

	ids, err := p.indexFOA(ctx, rec)
	if err != nil {
		if serr := p.store.SetFOAVectorization(ctx, rec.ID, store.StatusError, nil, err.Error()); serr != nil {
			p.log.Error("failed to record foa error", "foa", rec.ID, "error", serr)
		}
		return fmt.Errorf("index foa %s: %w", rec.ID, err)
	}

	if err := p.store.SetFOAVectorization(ctx, rec.ID, store.StatusCompleted, ids, ""); err != nil {
		return err
	}
	rec.VectorizationStatus = store.StatusCompleted
	rec.VectorIDs = ids
	return nil
}

func (p *Pipeline) indexFOA(ctx context.Context, rec *store.FOA) ([]string, error) {
	base := vecstore.Metadata{
		"owner_id":      rec.ID,
		"title":         rec.Title,
		"agency":        rec.Agency,
		"award_floor":   rec.AwardFloor,
		"award_ceiling": rec.AwardCeiling,
	}

	summary := foaSummary(rec)
	descChunk := chunk.Chunk{
		Text:       summary,
		Index:      1,
		Total:      1,
		CharCount:  len([]rune(summary)),
		WordCount:  len(strings.Fields(summary)),
		TokenCount: chunk.EstimateTokens(summary),
		End:        len([]rune(summary)),
	}
	descMeta := vecstore.Metadata{"type": "foa_description"}
	for k, v := range base {
		descMeta[k] = v
	}
	ids, err := p.vectorize(ctx, []chunk.Chunk{descChunk}, descMeta)
	if err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(rec.RawText); raw != "" {
		rawChunks := chunk.Split(raw, chunk.Options{MaxTokens: p.cfg.MaxTokens})
		rawMeta := vecstore.Metadata{"type": "foa_raw"}
		for k, v := range base {
			rawMeta[k] = v
		}
		rawIDs, err := p.vectorize(ctx, rawChunks, rawMeta)
		if err != nil {
			return nil, err
		}
		ids = append(ids, rawIDs...)
	}
	return ids, nil
}

// RemoveFOA deletes an FOA's vectors and then its row, continuing past a
// vector-store failure the same way Cleanup does for project content.
func (p *Pipeline) RemoveFOA(ctx context.Context, id string) error {
	rec, err := p.store.GetFOA(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("foa %s: %w", id, store.ErrNotFound)
	}

	if len(rec.VectorIDs) > 0 {
		if err := p.vectors.DeleteMany(ctx, rec.VectorIDs); err != nil {
			p.log.Warn("failed to delete foa vectors", "foa", id, "count", len(rec.VectorIDs), "error", err)
		}
	}
	return p.store.DeleteFOA(ctx, id)
}

func foaSummary(rec *store.FOA) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Funding opportunity: %s.", rec.Title)
	if rec.Agency != "" {
		fmt.Fprintf(&b, " Agency: %s.", rec.Agency)
	}
	if rec.Number != "" {
		fmt.Fprintf(&b, " Number: %s.", rec.Number)
	}
	if rec.Description != "" {
		fmt.Fprintf(&b, " %s", rec.Description)
	}
	if rec.AwardCeiling > 0 {
		fmt.Fprintf(&b, " Award range: $%.0f to $%.0f.", rec.AwardFloor, rec.AwardCeiling)
	}
	if rec.Deadline != "" {
		fmt.Fprintf(&b, " Deadline: %s.", rec.Deadline)
	}
	if rec.Eligibility != "" {
		fmt.Fprintf(&b, " Eligibility: %s.", rec.Eligibility)
	}
	return b.String()
}
