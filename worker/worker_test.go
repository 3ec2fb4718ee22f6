package worker_test

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/calyptra/grantvec/blobstore"
	"github.com/calyptra/grantvec/dbopen"
	"github.com/calyptra/grantvec/docpipe"
	"github.com/calyptra/grantvec/embed"
	"github.com/calyptra/grantvec/llm"
	"github.com/calyptra/grantvec/process"
	"github.com/calyptra/grantvec/queue"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/vecstore"
	"github.com/calyptra/grantvec/worker"
)

type env struct {
	store *store.Store
	blobs *blobstore.Local
	queue *queue.Q
	pipe  *process.Pipeline
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := store.New(db)

	blobs, err := blobstore.NewLocal(t.TempDir(), "http://localhost:8080", []byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	vectors, err := vecstore.New(db, vecstore.Config{Dimension: 32})
	if err != nil {
		t.Fatal(err)
	}
	q := queue.New(db, queue.Options{})
	if err := q.EnsureTable(ctx); err != nil {
		t.Fatal(err)
	}

	pipe := process.New(st, blobs, docpipe.New(docpipe.Config{}),
		embed.NewStatic(32), vectors, &llm.Stub{}, q, process.Config{MaxTokens: 50})

	return &env{store: st, blobs: blobs, queue: q, pipe: pipe}
}

func (e *env) addDocument(t *testing.T, id, text string) {
	t.Helper()
	ctx := context.Background()
	path := blobstore.Key("prj_1", id, "notes.txt")
	if err := e.blobs.Upload(ctx, "materials", path, []byte(text), "text/plain"); err != nil {
		t.Fatal(err)
	}
	err := e.store.CreateDocument(ctx, &store.Document{
		ID: id, ProjectID: "prj_1", FileName: "notes.txt",
		Bucket: "materials", Path: path, MIMEType: "text/plain",
		SizeBytes: int64(len(text)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.queue.Enqueue(ctx, "document", id, "prj_1", 0); err != nil {
		t.Fatal(err)
	}
}

func TestRunProcessesBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addDocument(t, "doc_1", "First document text. It has sentences.")
	e.addDocument(t, "doc_2", "Second document text. Also sentences.")

	w := worker.New(e.queue, e.pipe, worker.Config{BatchSize: 10})
	results, err := w.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Status != "completed" {
			t.Errorf("item %s: status %s (%s)", r.ID, r.Status, r.Error)
		}
	}

	st, err := e.queue.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Completed != 2 || st.Pending != 0 {
		t.Fatalf("stats = %+v", st)
	}

	doc, err := e.store.GetDocument(ctx, "doc_1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.VectorizationStatus != store.StatusCompleted {
		t.Fatalf("document status = %q", doc.VectorizationStatus)
	}
}

func TestRunFailureDoesNotAbortBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// doc_bad has a row but no blob, so processing fails after validation.
	errDoc := &store.Document{
		ID: "doc_bad", ProjectID: "prj_1", FileName: "gone.txt",
		Bucket: "materials", Path: "prj_1/doc_bad/gone.txt", MIMEType: "text/plain",
	}
	if err := e.store.CreateDocument(ctx, errDoc); err != nil {
		t.Fatal(err)
	}
	if _, err := e.queue.Enqueue(ctx, "document", "doc_bad", "prj_1", 5); err != nil {
		t.Fatal(err)
	}
	e.addDocument(t, "doc_good", "A perfectly fine document. Two sentences even.")

	w := worker.New(e.queue, e.pipe, worker.Config{BatchSize: 10})
	results, err := w.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	byID := map[string]worker.ItemResult{}
	for _, r := range results {
		byID[r.ContentID] = r
	}
	if byID["doc_bad"].Status != "failed" || byID["doc_bad"].Error == "" {
		t.Fatalf("doc_bad result = %+v", byID["doc_bad"])
	}
	if byID["doc_good"].Status != "completed" {
		t.Fatalf("doc_good result = %+v", byID["doc_good"])
	}

	// The failed item went back to pending for a retry.
	st, err := e.queue.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Pending != 1 || st.Completed != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestRunSkipsInvalidItems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Queue item for content that does not exist.
	if _, err := e.queue.Enqueue(ctx, "document", "doc_ghost", "prj_1", 0); err != nil {
		t.Fatal(err)
	}

	w := worker.New(e.queue, e.pipe, worker.Config{BatchSize: 10})
	results, err := w.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Status != "skipped" {
		t.Fatalf("results = %+v", results)
	}

	// Skipped items complete rather than loop forever.
	st, err := e.queue.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Completed != 1 || st.Pending != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestRunBudgetStops(t *testing.T) {
	e := newEnv(t)

	w := worker.New(e.queue, e.pipe, worker.Config{
		BatchSize: 1,
		Budget:    50 * time.Millisecond,
		Interval:  5 * time.Millisecond,
	})

	start := time.Now()
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("run took %v, budget ignored", elapsed)
	}
}
