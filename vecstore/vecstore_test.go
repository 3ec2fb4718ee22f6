package vecstore_test

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/calyptra/grantvec/dbopen"
	"github.com/calyptra/grantvec/vecstore"
)

func newStore(t *testing.T, dim int) *vecstore.Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s, err := vecstore.New(db, vecstore.Config{Dimension: dim})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func vec(dim int, vals ...float32) []float32 {
	v := make([]float32, dim)
	copy(v, vals)
	return v
}

func TestUpsertAndFetch(t *testing.T) {
	s := newStore(t, 4)
	ctx := context.Background()

	rec := vecstore.Record{
		ID:     "vec_1",
		Vector: vec(4, 1, 0, 0, 0),
		Metadata: vecstore.Metadata{
			"type":     "document",
			"owner_id": "proj_1",
			"text":     "aims page",
		},
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.Fetch(ctx, []string{"vec_1", "vec_missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("fetched %d records, want 1", len(got))
	}
	if got[0].Metadata["text"] != "aims page" {
		t.Errorf("metadata text = %v", got[0].Metadata["text"])
	}
	if got[0].Vector[0] != 1 {
		t.Errorf("vector[0] = %v, want 1", got[0].Vector[0])
	}
}

func TestUpsert_ReplacesNotDuplicates(t *testing.T) {
	s := newStore(t, 4)
	ctx := context.Background()

	for range 3 {
		if err := s.Upsert(ctx, vecstore.Record{
			ID:       "vec_1",
			Vector:   vec(4, 1),
			Metadata: vecstore.Metadata{"type": "document"},
		}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1 (upsert must replace)", n)
	}
}

func TestUpsert_DimensionCheck(t *testing.T) {
	s := newStore(t, 4)
	err := s.Upsert(context.Background(), vecstore.Record{ID: "x", Vector: []float32{1, 2}})
	if err == nil {
		t.Error("expected dimension error")
	}
}

func TestQuery_RanksBySimilarity(t *testing.T) {
	s := newStore(t, 4)
	ctx := context.Background()

	recs := []vecstore.Record{
		{ID: "exact", Vector: vec(4, 1, 0, 0, 0), Metadata: vecstore.Metadata{"type": "document"}},
		{ID: "close", Vector: vec(4, 0.9, 0.1, 0, 0), Metadata: vecstore.Metadata{"type": "document"}},
		{ID: "far", Vector: vec(4, 0, 0, 1, 0), Metadata: vecstore.Metadata{"type": "document"}},
	}
	for _, r := range recs {
		if err := s.Upsert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := s.Query(ctx, vec(4, 1, 0, 0, 0), nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].ID != "exact" || matches[1].ID != "close" {
		t.Errorf("order: %s, %s; want exact, close", matches[0].ID, matches[1].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("scores not descending")
	}
}

func TestQuery_TypeFilter(t *testing.T) {
	s := newStore(t, 4)
	ctx := context.Background()

	s.Upsert(ctx, vecstore.Record{ID: "d1", Vector: vec(4, 1), Metadata: vecstore.Metadata{"type": "document", "owner_id": "p1"}})
	s.Upsert(ctx, vecstore.Record{ID: "f1", Vector: vec(4, 1), Metadata: vecstore.Metadata{"type": "figure", "owner_id": "p1"}})
	s.Upsert(ctx, vecstore.Record{ID: "d2", Vector: vec(4, 1), Metadata: vecstore.Metadata{"type": "document", "owner_id": "p2"}})

	matches, err := s.Query(ctx, vec(4, 1), vecstore.Filter{"type": "document", "owner_id": "p1"}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "d1" {
		t.Fatalf("matches = %v, want [d1]", matches)
	}
}

func TestQuery_RangeFilter(t *testing.T) {
	s := newStore(t, 4)
	ctx := context.Background()

	s.Upsert(ctx, vecstore.Record{ID: "small", Vector: vec(4, 1), Metadata: vecstore.Metadata{"type": "foa_description", "award_ceiling": 25000.0}})
	s.Upsert(ctx, vecstore.Record{ID: "big", Vector: vec(4, 1), Metadata: vecstore.Metadata{"type": "foa_description", "award_ceiling": 500000.0}})

	filter := vecstore.Filter{
		"$and": []vecstore.Filter{
			{"type": "foa_description"},
			{"award_ceiling": map[string]any{"$gte": 100000.0}},
		},
	}
	matches, err := s.Query(ctx, vec(4, 1), filter, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "big" {
		t.Fatalf("matches = %+v, want [big]", matches)
	}
}

func TestDeleteMany(t *testing.T) {
	s := newStore(t, 4)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		s.Upsert(ctx, vecstore.Record{ID: id, Vector: vec(4, 1)})
	}
	if err := s.DeleteMany(ctx, []string{"a", "c", "nope"}); err != nil {
		t.Fatal(err)
	}
	n, _ := s.Count(ctx)
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	left, _ := s.Fetch(ctx, []string{"b"})
	if len(left) != 1 {
		t.Error("b should survive")
	}
}

func TestFilter_OrComposition(t *testing.T) {
	f := vecstore.Filter{
		"$or": []vecstore.Filter{
			{"award_floor": map[string]any{"$lte": 10000.0}},
			{"eligibility": "all"},
		},
	}
	if !f.Matches(vecstore.Metadata{"award_floor": 5000.0}) {
		t.Error("low floor should match")
	}
	if !f.Matches(vecstore.Metadata{"award_floor": 99999.0, "eligibility": "all"}) {
		t.Error("eligibility branch should match")
	}
	if f.Matches(vecstore.Metadata{"award_floor": 99999.0, "eligibility": "new_investigator"}) {
		t.Error("neither branch should match")
	}
}

func TestFilter_UnknownOperatorFailsClosed(t *testing.T) {
	f := vecstore.Filter{"score": map[string]any{"$near": 1.0}}
	if f.Matches(vecstore.Metadata{"score": 1.0}) {
		t.Error("unknown operator must not match")
	}
}
