package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FOA is a funding opportunity announcement: structured fields extracted
// from the announcement page plus the raw page text.
type FOA struct {
	ID                  string    `json:"id"`
	Agency              string    `json:"agency"`
	Title               string    `json:"title"`
	Number              string    `json:"number"`
	Description         string    `json:"description"`
	AwardFloor          float64   `json:"award_floor"`
	AwardCeiling        float64   `json:"award_ceiling"`
	Deadline            string    `json:"deadline"`
	Eligibility         string    `json:"eligibility"`
	RawText             string    `json:"raw_text"`
	VectorizationStatus Status    `json:"vectorization_status"`
	VectorIDs           []string  `json:"vector_ids"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

const foaCols = `id, agency, title, number, description, award_floor, award_ceiling,
	deadline, eligibility, raw_text, vectorization_status, vector_ids, error_message, created_at`

// CreateFOA inserts an FOA row with status pending.
func (s *Store) CreateFOA(ctx context.Context, f *FOA) error {
	if f.VectorizationStatus == "" {
		f.VectorizationStatus = StatusPending
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO foas (`+foaCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Agency, f.Title, f.Number, f.Description, f.AwardFloor,
		f.AwardCeiling, f.Deadline, f.Eligibility, f.RawText,
		f.VectorizationStatus, joinIDs(f.VectorIDs), f.ErrorMessage,
		toMillis(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("create foa: %w", err)
	}
	return nil
}

// GetFOA returns an FOA by id, or nil if absent.
func (s *Store) GetFOA(ctx context.Context, id string) (*FOA, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+foaCols+` FROM foas WHERE id = ?`, id)
	return scanFOA(row)
}

// ListFOAs returns all FOAs, newest first.
func (s *Store) ListFOAs(ctx context.Context) ([]*FOA, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+foaCols+` FROM foas ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list foas: %w", err)
	}
	defer rows.Close()

	var out []*FOA
	for rows.Next() {
		f, err := scanFOA(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SetFOAVectorization updates status, vector ids, and error message.
func (s *Store) SetFOAVectorization(ctx context.Context, id string, status Status, vectorIDs []string, errMsg string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE foas
		SET vectorization_status = ?, vector_ids = ?, error_message = ?
		WHERE id = ?`,
		status, joinIDs(vectorIDs), errMsg, id)
	if err != nil {
		return fmt.Errorf("set foa vectorization: %w", err)
	}
	return requireRow(res, "foa", id)
}

// DeleteFOA removes the row only.
func (s *Store) DeleteFOA(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM foas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete foa: %w", err)
	}
	return nil
}

func scanFOA(row rowScanner) (*FOA, error) {
	var f FOA
	var ids string
	var created int64
	err := row.Scan(&f.ID, &f.Agency, &f.Title, &f.Number, &f.Description,
		&f.AwardFloor, &f.AwardCeiling, &f.Deadline, &f.Eligibility, &f.RawText,
		&f.VectorizationStatus, &ids, &f.ErrorMessage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan foa: %w", err)
	}
	f.VectorIDs = splitIDs(ids)
	f.CreatedAt = fromMillis(created)
	return &f, nil
}
