package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ChalkTalk is an uploaded audio recording of a researcher walking through
// their project. Transcript is filled during processing.
type ChalkTalk struct {
	ID                  string    `json:"id"`
	ProjectID           string    `json:"project_id"`
	Title               string    `json:"title"`
	FileName            string    `json:"file_name"`
	Bucket              string    `json:"bucket"`
	Path                string    `json:"path"`
	MIMEType            string    `json:"mime_type"`
	SizeBytes           int64     `json:"size_bytes"`
	Language            string    `json:"language"`
	Transcript          string    `json:"transcript"`
	VectorizationStatus Status    `json:"vectorization_status"`
	VectorIDs           []string  `json:"vector_ids"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

const chalkTalkCols = `id, project_id, title, file_name, bucket, path, mime_type,
	size_bytes, language, transcript, vectorization_status, vector_ids, error_message, created_at`

// CreateChalkTalk inserts a chalk-talk row with status pending.
func (s *Store) CreateChalkTalk(ctx context.Context, c *ChalkTalk) error {
	if c.VectorizationStatus == "" {
		c.VectorizationStatus = StatusPending
	}
	if c.Language == "" {
		c.Language = "en"
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO chalk_talks (`+chalkTalkCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Title, c.FileName, c.Bucket, c.Path, c.MIMEType,
		c.SizeBytes, c.Language, c.Transcript, c.VectorizationStatus,
		joinIDs(c.VectorIDs), c.ErrorMessage, toMillis(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("create chalk talk: %w", err)
	}
	return nil
}

// GetChalkTalk returns a chalk talk by id, or nil if absent.
func (s *Store) GetChalkTalk(ctx context.Context, id string) (*ChalkTalk, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+chalkTalkCols+` FROM chalk_talks WHERE id = ?`, id)
	return scanChalkTalk(row)
}

// SetChalkTalkTranscript stores the concatenated transcript text.
func (s *Store) SetChalkTalkTranscript(ctx context.Context, id, transcript string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE chalk_talks SET transcript = ? WHERE id = ?`, transcript, id)
	if err != nil {
		return fmt.Errorf("set chalk talk transcript: %w", err)
	}
	return requireRow(res, "chalk talk", id)
}

// SetChalkTalkVectorization updates status, vector ids, and error message.
func (s *Store) SetChalkTalkVectorization(ctx context.Context, id string, status Status, vectorIDs []string, errMsg string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE chalk_talks
		SET vectorization_status = ?, vector_ids = ?, error_message = ?
		WHERE id = ?`,
		status, joinIDs(vectorIDs), errMsg, id)
	if err != nil {
		return fmt.Errorf("set chalk talk vectorization: %w", err)
	}
	return requireRow(res, "chalk talk", id)
}

// DeleteChalkTalk removes the row only.
func (s *Store) DeleteChalkTalk(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM chalk_talks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chalk talk: %w", err)
	}
	return nil
}

func scanChalkTalk(row rowScanner) (*ChalkTalk, error) {
	var c ChalkTalk
	var ids string
	var created int64
	err := row.Scan(&c.ID, &c.ProjectID, &c.Title, &c.FileName, &c.Bucket, &c.Path,
		&c.MIMEType, &c.SizeBytes, &c.Language, &c.Transcript, &c.VectorizationStatus,
		&ids, &c.ErrorMessage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chalk talk: %w", err)
	}
	c.VectorIDs = splitIDs(ids)
	c.CreatedAt = fromMillis(created)
	return &c, nil
}
