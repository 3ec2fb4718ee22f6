// Package store is the data access layer for the source-of-truth tables:
// projects, documents, figures, chalk talks, researcher profiles, and
// funding opportunities. Every content row carries a vectorization status
// and the ids of the vectors produced from it.
package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrNotFound reports that a row targeted by an operation does not exist.
// Callers branch on it with errors.Is.
var ErrNotFound = errors.New("not found")

// Status tracks a content row through the vectorization pipeline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Store wraps the application database.
type Store struct {
	DB *sql.DB
}

// New creates a Store from an already-opened database connection.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// joinIDs serialises a vector-id list for storage (comma-joined).
func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// splitIDs parses a stored vector-id list.
func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().UnixMilli()
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
