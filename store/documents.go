package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Document is an uploaded research description (PDF, DOCX, or plain text).
type Document struct {
	ID                  string    `json:"id"`
	ProjectID           string    `json:"project_id"`
	Title               string    `json:"title"`
	FileName            string    `json:"file_name"`
	Bucket              string    `json:"bucket"`
	Path                string    `json:"path"`
	MIMEType            string    `json:"mime_type"`
	SizeBytes           int64     `json:"size_bytes"`
	VectorizationStatus Status    `json:"vectorization_status"`
	VectorIDs           []string  `json:"vector_ids"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

const documentCols = `id, project_id, title, file_name, bucket, path, mime_type,
	size_bytes, vectorization_status, vector_ids, error_message, created_at`

// CreateDocument inserts a document row with status pending.
func (s *Store) CreateDocument(ctx context.Context, d *Document) error {
	if d.VectorizationStatus == "" {
		d.VectorizationStatus = StatusPending
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO documents (`+documentCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.Title, d.FileName, d.Bucket, d.Path, d.MIMEType,
		d.SizeBytes, d.VectorizationStatus, joinIDs(d.VectorIDs), d.ErrorMessage,
		toMillis(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetDocument returns a document by id, or nil if absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+documentCols+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns a project's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]*Document, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+documentCols+` FROM documents WHERE project_id = ? ORDER BY created_at DESC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetDocumentVectorization updates status, vector ids, and error message.
func (s *Store) SetDocumentVectorization(ctx context.Context, id string, status Status, vectorIDs []string, errMsg string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE documents
		SET vectorization_status = ?, vector_ids = ?, error_message = ?
		WHERE id = ?`,
		status, joinIDs(vectorIDs), errMsg, id)
	if err != nil {
		return fmt.Errorf("set document vectorization: %w", err)
	}
	return requireRow(res, "document", id)
}

// DeleteDocument removes the row only. Vector and queue cleanup is the
// caller's responsibility (see process.Cleanup).
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var ids string
	var created int64
	err := row.Scan(&d.ID, &d.ProjectID, &d.Title, &d.FileName, &d.Bucket, &d.Path,
		&d.MIMEType, &d.SizeBytes, &d.VectorizationStatus, &ids, &d.ErrorMessage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.VectorIDs = splitIDs(ids)
	d.CreatedAt = fromMillis(created)
	return &d, nil
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}
