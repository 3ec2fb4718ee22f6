package process

import (
	"context"
	"fmt"

	"github.com/calyptra/grantvec/chunk"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/vecstore"
)

// DocumentProcessor vectorizes an uploaded research description.
type DocumentProcessor struct {
	p *Pipeline
}

func (dp *DocumentProcessor) Validate(ctx context.Context, id string) (bool, error) {
	doc, err := dp.p.store.GetDocument(ctx, id)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	if doc.VectorizationStatus == store.StatusCompleted || doc.VectorizationStatus == store.StatusProcessing {
		return false, nil
	}
	if doc.Bucket == "" || doc.Path == "" || doc.MIMEType == "" {
		return false, nil
	}
	if doc.SizeBytes > dp.p.cfg.MaxBlobBytes {
		return false, nil
	}
	if _, err := dp.p.docs.Detect(doc.MIMEType); err != nil {
		return false, nil
	}
	return true, nil
}

func (dp *DocumentProcessor) Process(ctx context.Context, id string) (*Result, error) {
	doc, err := dp.p.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}

	if err := dp.p.store.SetDocumentVectorization(ctx, id, store.StatusProcessing, doc.VectorIDs, ""); err != nil {
		return nil, err
	}

	res, err := dp.run(ctx, doc)
	if err != nil {
		if serr := dp.p.store.SetDocumentVectorization(ctx, id, store.StatusError, nil, err.Error()); serr != nil {
			dp.p.log.Error("failed to record document error", "document", id, "error", serr)
		}
		return nil, fmt.Errorf("process document %s: %w", id, err)
	}

	if err := dp.p.store.SetDocumentVectorization(ctx, id, store.StatusCompleted, res.VectorIDs, ""); err != nil {
		return nil, err
	}
	return res, nil
}

func (dp *DocumentProcessor) run(ctx context.Context, doc *store.Document) (*Result, error) {
	data, err := dp.p.blobs.Download(ctx, doc.Bucket, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	extracted, err := dp.p.docs.ExtractBytes(ctx, data, doc.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	pages := make([]chunk.PageSpan, len(extracted.Pages))
	for i, ps := range extracted.Pages {
		pages[i] = chunk.PageSpan{Page: ps.Page, Start: ps.Start, End: ps.End}
	}

	chunks := chunk.Split(extracted.Text, chunk.Options{
		MaxTokens: dp.p.cfg.MaxTokens,
		Pages:     pages,
	})
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document produced no text")
	}

	dp.p.replaceVectors(ctx, doc.VectorIDs)

	ids, err := dp.p.vectorize(ctx, chunks, vecstore.Metadata{
		"type":        string(TypeDocument),
		"owner_id":    doc.ProjectID,
		"document_id": doc.ID,
		"title":       doc.Title,
		"file_name":   doc.FileName,
	})
	if err != nil {
		return nil, err
	}
	return &Result{VectorIDs: ids, Chunks: chunks}, nil
}
