// Package vecstore implements the vector index over SQLite: upsert-by-id
// with JSON metadata, cosine nearest-neighbor query with metadata filtering,
// fetch, and delete-by-id-list.
//
// The scan is brute-force. The pipeline stores at most a few thousand chunks
// per project, where a linear cosine pass over SQLite rows outperforms the
// operational cost of an external index.
//
// Usage:
//
//	vs, err := vecstore.New(db, vecstore.Config{Dimension: 3072})
//	err = vs.Upsert(ctx, vecstore.Record{ID: "vec_1", Vector: v, Metadata: meta})
//	matches, err := vs.Query(ctx, queryVec, vecstore.Filter{"type": "document"}, 5)
package vecstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
)

// Metadata is the JSON payload stored next to a vector.
type Metadata map[string]any

// Record is a stored vector with its metadata.
type Record struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Metadata Metadata  `json:"metadata"`
}

// Match is a query result.
type Match struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// Config configures the store.
type Config struct {
	// Dimension is the required vector dimension. Default: 3072.
	Dimension int `json:"dimension" yaml:"dimension"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Dimension <= 0 {
		c.Dimension = 3072
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Store is the SQLite-backed vector index.
type Store struct {
	db     *sql.DB
	dim    int
	logger *slog.Logger
}

// New creates a Store and ensures its table exists.
func New(db *sql.DB, cfg Config) (*Store, error) {
	cfg.defaults()
	s := &Store{db: db, dim: cfg.Dimension, logger: cfg.Logger}
	if err := s.ensureTable(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS vectors (
			id         TEXT PRIMARY KEY,
			vector     BLOB NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			type       TEXT NOT NULL DEFAULT '',
			owner_id   TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_vectors_type_owner ON vectors (type, owner_id);
	`)
	if err != nil {
		return fmt.Errorf("vecstore: ensure table: %w", err)
	}
	return nil
}

// Dimension returns the configured vector dimension.
func (s *Store) Dimension() int { return s.dim }

// Upsert inserts or replaces a vector record by id.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("vecstore: empty id")
	}
	if len(rec.Vector) != s.dim {
		return fmt.Errorf("vecstore: vector dimension %d, expected %d", len(rec.Vector), s.dim)
	}

	meta := rec.Metadata
	if meta == nil {
		meta = Metadata{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("vecstore: marshal metadata: %w", err)
	}

	typ, _ := meta["type"].(string)
	owner, _ := meta["owner_id"].(string)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vectors (id, vector, metadata, type, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vector = excluded.vector,
			metadata = excluded.metadata,
			type = excluded.type,
			owner_id = excluded.owner_id`,
		rec.ID, serializeVector(rec.Vector), string(metaJSON), typ, owner,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("vecstore: upsert %s: %w", rec.ID, err)
	}
	return nil
}

// Query returns the topK stored vectors most similar to vector (cosine),
// restricted to records whose metadata satisfies filter. A nil filter
// matches everything.
func (s *Store) Query(ctx context.Context, vector []float32, filter Filter, topK int) ([]Match, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("vecstore: query dimension %d, expected %d", len(vector), s.dim)
	}
	if topK <= 0 {
		topK = 10
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, vector, metadata FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("vecstore: query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var id, metaJSON string
		var blob []byte
		if err := rows.Scan(&id, &blob, &metaJSON); err != nil {
			return nil, fmt.Errorf("vecstore: scan: %w", err)
		}

		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			s.logger.Warn("vecstore: bad metadata JSON, skipping", "id", id, "error", err)
			continue
		}
		if !filter.Matches(meta) {
			continue
		}

		stored := deserializeVector(blob)
		if len(stored) != s.dim {
			s.logger.Warn("vecstore: stored dimension mismatch, skipping", "id", id, "dim", len(stored))
			continue
		}

		matches = append(matches, Match{
			ID:       id,
			Score:    cosine(vector, stored),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vecstore: rows: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Fetch returns the stored records for the given ids. Missing ids are
// silently absent from the result.
func (s *Store) Fetch(ctx context.Context, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, vector, metadata FROM vectors WHERE id IN (%s)`,
		placeholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("vecstore: fetch: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var blob []byte
		var metaJSON string
		if err := rows.Scan(&rec.ID, &blob, &metaJSON); err != nil {
			return nil, fmt.Errorf("vecstore: scan: %w", err)
		}
		rec.Vector = deserializeVector(blob)
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("vecstore: metadata for %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteMany removes the given ids. Ids not present are ignored.
func (s *Store) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM vectors WHERE id IN (%s)`, placeholders(len(ids)))
	if _, err := s.db.ExecContext(ctx, query, toArgs(ids)...); err != nil {
		return fmt.Errorf("vecstore: delete: %w", err)
	}
	return nil
}

// Count returns the number of stored vectors.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n)
	return n, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// serializeVector converts a float32 slice to a little-endian byte slice.
func serializeVector(vec []float32) []byte {
	blob := make([]byte, len(vec)*4)
	for i, v := range vec {
		bits := math.Float32bits(v)
		blob[i*4] = byte(bits)
		blob[i*4+1] = byte(bits >> 8)
		blob[i*4+2] = byte(bits >> 16)
		blob[i*4+3] = byte(bits >> 24)
	}
	return blob
}

// deserializeVector converts a little-endian byte slice to a float32 slice.
func deserializeVector(blob []byte) []float32 {
	n := len(blob) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(blob[i*4]) | uint32(blob[i*4+1])<<8 | uint32(blob[i*4+2])<<16 | uint32(blob[i*4+3])<<24
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}

// cosine returns the cosine similarity of two equal-length vectors.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
