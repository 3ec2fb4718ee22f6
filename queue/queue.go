// Package queue implements the vectorization work queue backed by SQLite.
//
// Each row references one piece of content (a document, figure, chalk talk,
// or researcher profile) waiting to be processed. Workers claim batches with
// a single UPDATE ... RETURNING statement, so two workers sharing a database
// never pick up the same item. Failed items are retried up to MaxRetries
// times before being parked in the error state.
//
// Expected schema (created by EnsureTable):
//
//	CREATE TABLE IF NOT EXISTS queue_items (
//	    id            TEXT PRIMARY KEY,
//	    content_type  TEXT NOT NULL,
//	    content_id    TEXT NOT NULL,
//	    project_id    TEXT NOT NULL DEFAULT '',
//	    status        TEXT NOT NULL DEFAULT 'pending',
//	    priority      INTEGER NOT NULL DEFAULT 0,
//	    retry_count   INTEGER NOT NULL DEFAULT 0,
//	    error_message TEXT NOT NULL DEFAULT '',
//	    created_at    INTEGER NOT NULL
//	);
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/calyptra/grantvec/dbopen"
	"github.com/calyptra/grantvec/idgen"
)

// Status of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Item is a row in the queue.
type Item struct {
	ID           string    `json:"id"`
	ContentType  string    `json:"content_type"`
	ContentID    string    `json:"content_id"`
	ProjectID    string    `json:"project_id"`
	Status       Status    `json:"status"`
	Priority     int       `json:"priority"`
	RetryCount   int       `json:"retry_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Options configures queue behaviour.
type Options struct {
	// MaxRetries is how many failures park an item in the error state.
	// Default: 3.
	MaxRetries int
	// IDs generates item ids. Default: idgen.Default.
	IDs idgen.Generator
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.IDs == nil {
		o.IDs = idgen.Prefixed("job_", idgen.Default)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Q is the queue handle.
type Q struct {
	db   *sql.DB
	opts Options
}

// New creates a queue handle. Call EnsureTable once at startup.
func New(db *sql.DB, opts Options) *Q {
	opts.defaults()
	return &Q{db: db, opts: opts}
}

// EnsureTable creates the queue_items table and indexes if they don't exist.
func (q *Q) EnsureTable(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS queue_items (
			id            TEXT PRIMARY KEY,
			content_type  TEXT NOT NULL,
			content_id    TEXT NOT NULL,
			project_id    TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL DEFAULT 'pending',
			priority      INTEGER NOT NULL DEFAULT 0,
			retry_count   INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			created_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_queue_claim ON queue_items (status, priority, created_at);
		CREATE INDEX IF NOT EXISTS idx_queue_content ON queue_items (content_type, content_id);
	`)
	return err
}

const itemCols = `id, content_type, content_id, project_id, status, priority, retry_count, error_message, created_at`

// Enqueue inserts a pending item for the given content. If the content
// already has a pending or processing item the existing item is returned
// instead of inserting a duplicate.
func (q *Q) Enqueue(ctx context.Context, contentType, contentID, projectID string, priority int) (*Item, error) {
	var out *Item
	err := dbopen.RunTx(ctx, q.db, func(tx *sql.Tx) error {
		existing, err := activeItemTx(ctx, tx, contentType, contentID)
		if err != nil {
			return err
		}
		if existing != nil {
			q.opts.Logger.Debug("queue: content already enqueued",
				"content_type", contentType, "content_id", contentID, "item", existing.ID)
			out = existing
			return nil
		}

		it := &Item{
			ID:          q.opts.IDs(),
			ContentType: contentType,
			ContentID:   contentID,
			ProjectID:   projectID,
			Status:      StatusPending,
			Priority:    priority,
			CreatedAt:   time.Now(),
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO queue_items (`+itemCols+`)
			VALUES (?, ?, ?, ?, ?, ?, 0, '', ?)`,
			it.ID, it.ContentType, it.ContentID, it.ProjectID, it.Status,
			it.Priority, it.CreatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func activeItemTx(ctx context.Context, tx *sql.Tx, contentType, contentID string) (*Item, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+itemCols+` FROM queue_items
		WHERE content_type = ? AND content_id = ? AND status IN ('pending', 'processing')
		LIMIT 1`,
		contentType, contentID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue lookup: %w", err)
	}
	return it, nil
}

// ClaimBatch atomically moves up to n pending items to processing and
// returns them, highest priority first, oldest first within a priority.
// Items enqueued within the same millisecond are broken by id, which is
// time-sortable (UUIDv7), so the oldest pending item is never skipped.
// Returns an empty slice when nothing is pending.
func (q *Q) ClaimBatch(ctx context.Context, n int) ([]*Item, error) {
	rows, err := q.db.QueryContext(ctx, `
		UPDATE queue_items
		SET status = 'processing'
		WHERE id IN (
			SELECT id FROM queue_items
			WHERE status = 'pending'
			ORDER BY priority DESC, created_at ASC, id ASC
			LIMIT ?
		)
		RETURNING `+itemCols,
		n)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	items := make([]*Item, 0, n)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("claim batch: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING yields rows in table order, not the subquery's, so the
	// claim order is restored here.
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return items, nil
}

// Complete marks an item completed and clears any previous error message.
func (q *Q) Complete(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE queue_items SET status = 'completed', error_message = '' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete: %w", err)
	}
	return nil
}

// Fail records a processing failure. The retry count is incremented; items
// that still have retries left go back to pending, the rest are parked in
// the error state with the message.
func (q *Q) Fail(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_items
		SET retry_count = retry_count + 1,
		    error_message = ?,
		    status = CASE WHEN retry_count + 1 >= ? THEN 'error' ELSE 'pending' END
		WHERE id = ?`,
		msg, q.opts.MaxRetries, id)
	if err != nil {
		return fmt.Errorf("fail: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fail: item %s not found", id)
	}
	return nil
}

// Get returns an item by id, or nil if absent.
func (q *Q) Get(ctx context.Context, id string) (*Item, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+itemCols+` FROM queue_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return it, err
}

// DeleteForContent removes every queue item referencing the given content,
// whatever its status. Used when the content itself is deleted.
func (q *Q) DeleteForContent(ctx context.Context, contentType, contentID string) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM queue_items WHERE content_type = ? AND content_id = ?`,
		contentType, contentID)
	if err != nil {
		return fmt.Errorf("delete queue items: %w", err)
	}
	return nil
}

// Stats reports item counts per status.
type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Error      int `json:"error"`
}

// Stats counts queue items per status.
func (q *Q) Stats(ctx context.Context) (Stats, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM queue_items GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("queue stats: %w", err)
		}
		switch status {
		case StatusPending:
			st.Pending = n
		case StatusProcessing:
			st.Processing = n
		case StatusCompleted:
			st.Completed = n
		case StatusError:
			st.Error = n
		}
	}
	return st, rows.Err()
}

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	var created int64
	err := row.Scan(&it.ID, &it.ContentType, &it.ContentID, &it.ProjectID,
		&it.Status, &it.Priority, &it.RetryCount, &it.ErrorMessage, &created)
	if err != nil {
		return nil, err
	}
	it.CreatedAt = time.UnixMilli(created)
	return &it, nil
}
