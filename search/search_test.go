package search

import (
	"context"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/calyptra/grantvec/dbopen"
	"github.com/calyptra/grantvec/embed"
	"github.com/calyptra/grantvec/llm"
	"github.com/calyptra/grantvec/vecstore"
)

func newService(t *testing.T, client llm.Client) (*Service, *vecstore.Store, embed.Embedder) {
	t.Helper()
	vectors, err := vecstore.New(dbopen.OpenMemory(t), vecstore.Config{Dimension: 32})
	if err != nil {
		t.Fatal(err)
	}
	emb := embed.NewStatic(32)
	return New(emb, vectors, client, nil), vectors, emb
}

func seed(t *testing.T, vectors *vecstore.Store, emb embed.Embedder, id, text string, md vecstore.Metadata) {
	t.Helper()
	vec, err := emb.Embed(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	md["text"] = text
	if err := vectors.Upsert(context.Background(), vecstore.Record{ID: id, Vector: vec, Metadata: md}); err != nil {
		t.Fatal(err)
	}
}

func TestSearchFindsExactText(t *testing.T) {
	svc, vectors, emb := newService(t, nil)
	ctx := context.Background()

	seed(t, vectors, emb, "vec_a", "cryo-EM imaging of membrane proteins",
		vecstore.Metadata{"type": "document", "owner_id": "prj_1"})
	seed(t, vectors, emb, "vec_b", "budget narrative for personnel costs",
		vecstore.Metadata{"type": "document", "owner_id": "prj_1"})

	// The static embedder is deterministic, so the identical text is the
	// nearest neighbor.
	results, err := svc.Search(ctx, Query{Text: "cryo-EM imaging of membrane proteins", ProjectID: "prj_1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].ID != "vec_a" {
		t.Fatalf("top result = %s, want vec_a", results[0].ID)
	}
	if results[0].Text == "" || results[0].Type != "document" {
		t.Fatalf("result fields not populated: %+v", results[0])
	}
}

func TestSearchFiltersByProjectAndType(t *testing.T) {
	svc, vectors, emb := newService(t, nil)
	ctx := context.Background()

	seed(t, vectors, emb, "vec_doc", "shared text", vecstore.Metadata{"type": "document", "owner_id": "prj_1"})
	seed(t, vectors, emb, "vec_fig", "shared text", vecstore.Metadata{"type": "figure", "owner_id": "prj_1"})
	seed(t, vectors, emb, "vec_other", "shared text", vecstore.Metadata{"type": "document", "owner_id": "prj_2"})

	results, err := svc.Search(ctx, Query{Text: "shared text", ProjectID: "prj_1", Types: []string{"figure"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "vec_fig" {
		t.Fatalf("results = %+v", results)
	}

	// Multiple types become an $or.
	results, err = svc.Search(ctx, Query{Text: "shared text", ProjectID: "prj_1", Types: []string{"figure", "document"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestSearchAwardRange(t *testing.T) {
	svc, vectors, emb := newService(t, nil)
	ctx := context.Background()

	seed(t, vectors, emb, "vec_small", "equipment supplement program",
		vecstore.Metadata{"type": "foa_description", "owner_id": "foa_1", "award_floor": 10000.0, "award_ceiling": 50000.0})
	seed(t, vectors, emb, "vec_large", "equipment supplement program",
		vecstore.Metadata{"type": "foa_description", "owner_id": "foa_2", "award_floor": 200000.0, "award_ceiling": 900000.0})

	results, err := svc.Search(ctx, Query{Text: "equipment supplement program", AwardMin: 100000})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "vec_large" {
		t.Fatalf("results = %+v", results)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	svc, _, _ := newService(t, nil)
	if _, err := svc.Search(context.Background(), Query{Text: "  "}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestAnswerGroundsOnRetrievedChunks(t *testing.T) {
	stub := &llm.Stub{
		CompleteFunc: func(_ context.Context, messages []llm.Message, _ llm.CompleteOptions) (string, error) {
			user := messages[1].Content
			if !strings.Contains(user, "single-molecule folding assay") {
				t.Errorf("retrieved chunk missing from prompt:\n%s", user)
			}
			if !strings.Contains(user, "Question: What assay does the lab use?") {
				t.Errorf("question missing from prompt:\n%s", user)
			}
			return "The lab uses a single-molecule folding assay.", nil
		},
	}
	svc, vectors, emb := newService(t, stub)
	ctx := context.Background()

	seed(t, vectors, emb, "vec_a", "The lab developed a single-molecule folding assay.",
		vecstore.Metadata{"type": "document", "owner_id": "prj_1"})

	answer, err := svc.Answer(ctx, "prj_1", "What assay does the lab use?")
	if err != nil {
		t.Fatal(err)
	}
	if answer == "" {
		t.Fatal("empty answer")
	}
}

func TestAnswerNoMaterials(t *testing.T) {
	svc, _, _ := newService(t, &llm.Stub{})
	if _, err := svc.Answer(context.Background(), "prj_empty", "anything?"); err == nil {
		t.Fatal("expected error when nothing is indexed")
	}
}
