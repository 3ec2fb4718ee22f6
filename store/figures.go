package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Figure is an uploaded scientific figure image with an optional caption.
// Description is filled by the vision model during processing.
type Figure struct {
	ID                  string    `json:"id"`
	ProjectID           string    `json:"project_id"`
	Title               string    `json:"title"`
	Caption             string    `json:"caption"`
	FileName            string    `json:"file_name"`
	Bucket              string    `json:"bucket"`
	Path                string    `json:"path"`
	MIMEType            string    `json:"mime_type"`
	SizeBytes           int64     `json:"size_bytes"`
	Description         string    `json:"description"`
	VectorizationStatus Status    `json:"vectorization_status"`
	VectorIDs           []string  `json:"vector_ids"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

const figureCols = `id, project_id, title, caption, file_name, bucket, path, mime_type,
	size_bytes, description, vectorization_status, vector_ids, error_message, created_at`

// CreateFigure inserts a figure row with status pending.
func (s *Store) CreateFigure(ctx context.Context, f *Figure) error {
	if f.VectorizationStatus == "" {
		f.VectorizationStatus = StatusPending
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO figures (`+figureCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ProjectID, f.Title, f.Caption, f.FileName, f.Bucket, f.Path, f.MIMEType,
		f.SizeBytes, f.Description, f.VectorizationStatus, joinIDs(f.VectorIDs),
		f.ErrorMessage, toMillis(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("create figure: %w", err)
	}
	return nil
}

// GetFigure returns a figure by id, or nil if absent.
func (s *Store) GetFigure(ctx context.Context, id string) (*Figure, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+figureCols+` FROM figures WHERE id = ?`, id)
	return scanFigure(row)
}

// ListFigures returns a project's figures, newest first.
func (s *Store) ListFigures(ctx context.Context, projectID string) ([]*Figure, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+figureCols+` FROM figures WHERE project_id = ? ORDER BY created_at DESC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list figures: %w", err)
	}
	defer rows.Close()

	var out []*Figure
	for rows.Next() {
		f, err := scanFigure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SetFigureDescription stores the vision model's description text.
func (s *Store) SetFigureDescription(ctx context.Context, id, description string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE figures SET description = ? WHERE id = ?`, description, id)
	if err != nil {
		return fmt.Errorf("set figure description: %w", err)
	}
	return requireRow(res, "figure", id)
}

// SetFigureVectorization updates status, vector ids, and error message.
func (s *Store) SetFigureVectorization(ctx context.Context, id string, status Status, vectorIDs []string, errMsg string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE figures
		SET vectorization_status = ?, vector_ids = ?, error_message = ?
		WHERE id = ?`,
		status, joinIDs(vectorIDs), errMsg, id)
	if err != nil {
		return fmt.Errorf("set figure vectorization: %w", err)
	}
	return requireRow(res, "figure", id)
}

// DeleteFigure removes the row only.
func (s *Store) DeleteFigure(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM figures WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete figure: %w", err)
	}
	return nil
}

func scanFigure(row rowScanner) (*Figure, error) {
	var f Figure
	var ids string
	var created int64
	err := row.Scan(&f.ID, &f.ProjectID, &f.Title, &f.Caption, &f.FileName, &f.Bucket,
		&f.Path, &f.MIMEType, &f.SizeBytes, &f.Description, &f.VectorizationStatus,
		&ids, &f.ErrorMessage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan figure: %w", err)
	}
	f.VectorIDs = splitIDs(ids)
	f.CreatedAt = fromMillis(created)
	return &f, nil
}
