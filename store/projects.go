package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Project groups a researcher's materials for one grant application.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateProject inserts a project.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Name, toMillis(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject returns a project by id, or nil if absent.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	var created int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	p.CreatedAt = fromMillis(created)
	return &p, nil
}
