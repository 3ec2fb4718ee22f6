package process_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/calyptra/grantvec/store"
)

func TestIngestFOA(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rec := &store.FOA{
		ID:           "foa_1",
		Agency:       "NSF",
		Title:        "Quantum Sensing Instrumentation",
		Number:       "NSF-24-550",
		Description:  "Supports development of quantum-enabled sensors.",
		AwardFloor:   100000,
		AwardCeiling: 750000,
		Deadline:     "2026-12-01",
		Eligibility:  "Accredited universities",
		RawText: "The National Science Foundation invites proposals for quantum " +
			"sensing instrumentation. Awards range from one hundred thousand to " +
			"seven hundred fifty thousand dollars. Proposals are due in December.",
	}
	if err := f.pipeline.IngestFOA(ctx, rec); err != nil {
		t.Fatalf("IngestFOA: %v", err)
	}

	got, err := f.store.GetFOA(ctx, "foa_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.VectorizationStatus != store.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.VectorizationStatus)
	}
	if len(got.VectorIDs) < 2 {
		t.Fatalf("got %d vector ids, want description plus raw chunks", len(got.VectorIDs))
	}

	recs, err := f.vectors.Fetch(ctx, got.VectorIDs)
	if err != nil {
		t.Fatal(err)
	}
	var descs, raws int
	for _, r := range recs {
		switch r.Metadata["type"] {
		case "foa_description":
			descs++
			if text, _ := r.Metadata["text"].(string); !strings.Contains(text, "Quantum Sensing Instrumentation") {
				t.Errorf("description text = %q, want title included", text)
			}
			if ceil, _ := r.Metadata["award_ceiling"].(float64); ceil != 750000 {
				t.Errorf("award_ceiling = %v, want 750000", r.Metadata["award_ceiling"])
			}
		case "foa_raw":
			raws++
		default:
			t.Errorf("unexpected vector type %v", r.Metadata["type"])
		}
		if r.Metadata["owner_id"] != "foa_1" {
			t.Errorf("owner_id = %v, want foa_1", r.Metadata["owner_id"])
		}
	}
	if descs != 1 {
		t.Errorf("got %d foa_description vectors, want 1", descs)
	}
	if raws == 0 {
		t.Error("got no foa_raw vectors")
	}
}

func TestIngestFOARequiresTitle(t *testing.T) {
	f := newFixture(t, nil)
	err := f.pipeline.IngestFOA(context.Background(), &store.FOA{ID: "foa_bad"})
	if err == nil {
		t.Fatal("expected error for untitled FOA")
	}
	if got, _ := f.store.GetFOA(context.Background(), "foa_bad"); got != nil {
		t.Error("untitled FOA was persisted")
	}
}

func TestRemoveFOA(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rec := &store.FOA{
		ID:      "foa_del",
		Title:   "Seed Grants",
		RawText: "Short announcement about seed grants for new investigators.",
	}
	if err := f.pipeline.IngestFOA(ctx, rec); err != nil {
		t.Fatal(err)
	}
	ids := rec.VectorIDs

	if err := f.pipeline.RemoveFOA(ctx, "foa_del"); err != nil {
		t.Fatalf("RemoveFOA: %v", err)
	}

	if got, _ := f.store.GetFOA(ctx, "foa_del"); got != nil {
		t.Error("row still present after RemoveFOA")
	}
	left, err := f.vectors.Fetch(ctx, ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("%d vectors survived RemoveFOA", len(left))
	}
}

func TestRemoveFOAMissing(t *testing.T) {
	f := newFixture(t, nil)
	err := f.pipeline.RemoveFOA(context.Background(), "foa_ghost")
	if err == nil {
		t.Fatal("expected error for missing FOA")
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want store.ErrNotFound", err)
	}
}
