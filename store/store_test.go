package store

import (
	"context"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/calyptra/grantvec/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return New(db)
}

func TestProjectRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.CreateProject(ctx, &Project{ID: "prj_1", Name: "R01 renewal"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err := s.GetProject(ctx, "prj_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p == nil || p.Name != "R01 renewal" {
		t.Fatalf("got %+v", p)
	}
	if p.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}

	missing, err := s.GetProject(ctx, "prj_nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing project, got %+v", missing)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	doc := &Document{
		ID:        "doc_1",
		ProjectID: "prj_1",
		Title:     "Specific Aims",
		FileName:  "aims.pdf",
		Bucket:    "research-materials",
		Path:      "prj_1/doc_1/aims.pdf",
		MIMEType:  "application/pdf",
		SizeBytes: 4096,
	}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetDocument(ctx, "doc_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.VectorizationStatus != StatusPending {
		t.Errorf("status = %q, want pending", got.VectorizationStatus)
	}
	if len(got.VectorIDs) != 0 {
		t.Errorf("vector ids = %v, want none", got.VectorIDs)
	}

	ids := []string{"vec_a", "vec_b", "vec_c"}
	if err := s.SetDocumentVectorization(ctx, "doc_1", StatusCompleted, ids, ""); err != nil {
		t.Fatalf("set vectorization: %v", err)
	}
	got, err = s.GetDocument(ctx, "doc_1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.VectorizationStatus != StatusCompleted {
		t.Errorf("status = %q, want completed", got.VectorizationStatus)
	}
	if len(got.VectorIDs) != 3 || got.VectorIDs[1] != "vec_b" {
		t.Errorf("vector ids = %v", got.VectorIDs)
	}

	if err := s.DeleteDocument(ctx, "doc_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.GetDocument(ctx, "doc_1")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("document still present after delete: %+v", got)
	}
}

func TestSetVectorizationMissingRow(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.SetDocumentVectorization(ctx, "doc_nope", StatusCompleted, nil, "")
	if err == nil {
		t.Fatal("expected error for missing document")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListDocumentsNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"doc_a", "doc_b", "doc_c"} {
		d := &Document{ID: id, ProjectID: "prj_1", FileName: id + ".txt", MIMEType: "text/plain"}
		if err := s.CreateDocument(ctx, d); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	// Different project, must not appear.
	if err := s.CreateDocument(ctx, &Document{ID: "doc_x", ProjectID: "prj_2", FileName: "x.txt", MIMEType: "text/plain"}); err != nil {
		t.Fatalf("create other project: %v", err)
	}

	docs, err := s.ListDocuments(ctx, "prj_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}
	for _, d := range docs {
		if d.ProjectID != "prj_1" {
			t.Errorf("leaked document from project %s", d.ProjectID)
		}
	}
}

func TestFigureDescription(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	fig := &Figure{
		ID:        "fig_1",
		ProjectID: "prj_1",
		Caption:   "Figure 2: binding assay",
		FileName:  "fig2.png",
		MIMEType:  "image/png",
	}
	if err := s.CreateFigure(ctx, fig); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SetFigureDescription(ctx, "fig_1", "Bar chart of binding affinity across four mutants."); err != nil {
		t.Fatalf("set description: %v", err)
	}
	got, err := s.GetFigure(ctx, "fig_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description == "" {
		t.Error("description not persisted")
	}
	if got.Caption != fig.Caption {
		t.Errorf("caption = %q", got.Caption)
	}
}

func TestChalkTalkTranscript(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ct := &ChalkTalk{
		ID:        "ct_1",
		ProjectID: "prj_1",
		Title:     "Aims overview",
		FileName:  "talk.mp3",
		MIMEType:  "audio/mpeg",
	}
	if err := s.CreateChalkTalk(ctx, ct); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetChalkTalk(ctx, "ct_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Language != "en" {
		t.Errorf("language = %q, want default en", got.Language)
	}

	if err := s.SetChalkTalkTranscript(ctx, "ct_1", "So the central question here is..."); err != nil {
		t.Fatalf("set transcript: %v", err)
	}
	got, err = s.GetChalkTalk(ctx, "ct_1")
	if err != nil {
		t.Fatalf("get after transcript: %v", err)
	}
	if got.Transcript == "" {
		t.Error("transcript not persisted")
	}
}

func TestProfileRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := &Profile{
		ID:          "res_1",
		ProjectID:   "prj_1",
		Name:        "J. Rivera",
		Title:       "Associate Professor",
		Institution: "State University",
		Biography:   "Works on membrane protein folding.",
	}
	if err := s.CreateProfile(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SetProfileVectorization(ctx, "res_1", StatusError, nil, "embedding service unavailable"); err != nil {
		t.Fatalf("set vectorization: %v", err)
	}
	got, err := s.GetProfile(ctx, "res_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.VectorizationStatus != StatusError {
		t.Errorf("status = %q, want error", got.VectorizationStatus)
	}
	if got.ErrorMessage == "" {
		t.Error("error message not persisted")
	}
}

func TestFOARoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	f := &FOA{
		ID:           "foa_1",
		Agency:       "NIH",
		Title:        "Research Project Grant",
		Number:       "PA-26-123",
		Description:  "Supports discrete, specified research projects.",
		AwardFloor:   50000,
		AwardCeiling: 500000,
		Deadline:     "2026-10-05",
		Eligibility:  "Higher education institutions",
		RawText:      "Full announcement text.",
	}
	if err := s.CreateFOA(ctx, f); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetFOA(ctx, "foa_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AwardCeiling != 500000 || got.AwardFloor != 50000 {
		t.Errorf("award range = %v..%v", got.AwardFloor, got.AwardCeiling)
	}
	if got.VectorizationStatus != StatusPending {
		t.Errorf("status = %q, want pending", got.VectorizationStatus)
	}

	all, err := s.ListFOAs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d foas, want 1", len(all))
	}
}

func TestSplitIDs(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"vec_a", 1},
		{"vec_a,vec_b", 2},
		{"vec_a, vec_b ,", 2},
	}
	for _, tc := range cases {
		got := splitIDs(tc.in)
		if len(got) != tc.want {
			t.Errorf("splitIDs(%q) = %v, want %d ids", tc.in, got, tc.want)
		}
	}
}
