package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Profile is a researcher's identity record: fixed fields plus a free-text
// biography chunked independently during vectorization.
type Profile struct {
	ID                  string    `json:"id"`
	ProjectID           string    `json:"project_id"`
	Name                string    `json:"name"`
	Title               string    `json:"title"`
	Institution         string    `json:"institution"`
	Biography           string    `json:"biography"`
	VectorizationStatus Status    `json:"vectorization_status"`
	VectorIDs           []string  `json:"vector_ids"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

const profileCols = `id, project_id, name, title, institution, biography,
	vectorization_status, vector_ids, error_message, created_at`

// CreateProfile inserts a profile row with status pending.
func (s *Store) CreateProfile(ctx context.Context, p *Profile) error {
	if p.VectorizationStatus == "" {
		p.VectorizationStatus = StatusPending
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO profiles (`+profileCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.Name, p.Title, p.Institution, p.Biography,
		p.VectorizationStatus, joinIDs(p.VectorIDs), p.ErrorMessage,
		toMillis(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// GetProfile returns a profile by id, or nil if absent.
func (s *Store) GetProfile(ctx context.Context, id string) (*Profile, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id)
	return scanProfile(row)
}

// SetProfileVectorization updates status, vector ids, and error message.
func (s *Store) SetProfileVectorization(ctx context.Context, id string, status Status, vectorIDs []string, errMsg string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE profiles
		SET vectorization_status = ?, vector_ids = ?, error_message = ?
		WHERE id = ?`,
		status, joinIDs(vectorIDs), errMsg, id)
	if err != nil {
		return fmt.Errorf("set profile vectorization: %w", err)
	}
	return requireRow(res, "profile", id)
}

// DeleteProfile removes the row only.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var ids string
	var created int64
	err := row.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Title, &p.Institution,
		&p.Biography, &p.VectorizationStatus, &ids, &p.ErrorMessage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.VectorIDs = splitIDs(ids)
	p.CreatedAt = fromMillis(created)
	return &p, nil
}
