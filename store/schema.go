package store

import (
	"context"
	"fmt"
)

// Schema is the DDL for all source-of-truth tables. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id                   TEXT PRIMARY KEY,
	project_id           TEXT NOT NULL,
	title                TEXT NOT NULL DEFAULT '',
	file_name            TEXT NOT NULL,
	bucket               TEXT NOT NULL,
	path                 TEXT NOT NULL,
	mime_type            TEXT NOT NULL,
	size_bytes           INTEGER NOT NULL DEFAULT 0,
	vectorization_status TEXT NOT NULL DEFAULT 'pending',
	vector_ids           TEXT NOT NULL DEFAULT '',
	error_message        TEXT NOT NULL DEFAULT '',
	created_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_project ON documents (project_id);

CREATE TABLE IF NOT EXISTS figures (
	id                   TEXT PRIMARY KEY,
	project_id           TEXT NOT NULL,
	title                TEXT NOT NULL DEFAULT '',
	caption              TEXT NOT NULL DEFAULT '',
	file_name            TEXT NOT NULL,
	bucket               TEXT NOT NULL,
	path                 TEXT NOT NULL,
	mime_type            TEXT NOT NULL,
	size_bytes           INTEGER NOT NULL DEFAULT 0,
	description          TEXT NOT NULL DEFAULT '',
	vectorization_status TEXT NOT NULL DEFAULT 'pending',
	vector_ids           TEXT NOT NULL DEFAULT '',
	error_message        TEXT NOT NULL DEFAULT '',
	created_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_figures_project ON figures (project_id);

CREATE TABLE IF NOT EXISTS chalk_talks (
	id                   TEXT PRIMARY KEY,
	project_id           TEXT NOT NULL,
	title                TEXT NOT NULL DEFAULT '',
	file_name            TEXT NOT NULL,
	bucket               TEXT NOT NULL,
	path                 TEXT NOT NULL,
	mime_type            TEXT NOT NULL,
	size_bytes           INTEGER NOT NULL DEFAULT 0,
	language             TEXT NOT NULL DEFAULT 'en',
	transcript           TEXT NOT NULL DEFAULT '',
	vectorization_status TEXT NOT NULL DEFAULT 'pending',
	vector_ids           TEXT NOT NULL DEFAULT '',
	error_message        TEXT NOT NULL DEFAULT '',
	created_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chalk_talks_project ON chalk_talks (project_id);

CREATE TABLE IF NOT EXISTS profiles (
	id                   TEXT PRIMARY KEY,
	project_id           TEXT NOT NULL,
	name                 TEXT NOT NULL,
	title                TEXT NOT NULL DEFAULT '',
	institution          TEXT NOT NULL DEFAULT '',
	biography            TEXT NOT NULL DEFAULT '',
	vectorization_status TEXT NOT NULL DEFAULT 'pending',
	vector_ids           TEXT NOT NULL DEFAULT '',
	error_message        TEXT NOT NULL DEFAULT '',
	created_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_profiles_project ON profiles (project_id);

CREATE TABLE IF NOT EXISTS foas (
	id                   TEXT PRIMARY KEY,
	agency               TEXT NOT NULL DEFAULT '',
	title                TEXT NOT NULL,
	number               TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	award_floor          REAL NOT NULL DEFAULT 0,
	award_ceiling        REAL NOT NULL DEFAULT 0,
	deadline             TEXT NOT NULL DEFAULT '',
	eligibility          TEXT NOT NULL DEFAULT '',
	raw_text             TEXT NOT NULL DEFAULT '',
	vectorization_status TEXT NOT NULL DEFAULT 'pending',
	vector_ids           TEXT NOT NULL DEFAULT '',
	error_message        TEXT NOT NULL DEFAULT '',
	created_at           INTEGER NOT NULL
);
`

// Init creates all tables.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}
