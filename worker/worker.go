// Package worker drains the vectorization queue. It claims batches of
// pending items, dispatches each to the matching content processor, and
// records the per-item outcome back on the queue. One item's failure never
// aborts the rest of the batch.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calyptra/grantvec/process"
	"github.com/calyptra/grantvec/queue"
)

// Config configures a worker run.
type Config struct {
	// BatchSize is the maximum items claimed per pass. Default: 10.
	BatchSize int
	// Budget is the wall-clock limit for a Run call. Once exceeded no new
	// batch is claimed; the batch in flight finishes. Zero means one pass.
	Budget time.Duration
	// Interval is the pause between passes when the queue was empty.
	// Default: 5s.
	Interval time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ItemResult is the outcome of one queue item.
type ItemResult struct {
	ID          string `json:"id"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Status      string `json:"status"` // completed, skipped, failed
	Error       string `json:"error,omitempty"`
}

// Worker processes queue items through the pipeline.
type Worker struct {
	queue    *queue.Q
	pipeline *process.Pipeline
	cfg      Config
	log      *slog.Logger
}

// New creates a Worker.
func New(q *queue.Q, p *process.Pipeline, cfg Config) *Worker {
	cfg.defaults()
	return &Worker{queue: q, pipeline: p, cfg: cfg, log: cfg.Logger}
}

// Run drains the queue until the context is cancelled, the budget is spent,
// or (with a zero budget) one pass completes. It returns the outcomes of
// every item it touched.
func (w *Worker) Run(ctx context.Context) ([]ItemResult, error) {
	start := time.Now()
	var results []ItemResult

	for {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		batch, err := w.queue.ClaimBatch(ctx, w.cfg.BatchSize)
		if err != nil {
			return results, fmt.Errorf("claim batch: %w", err)
		}

		for _, item := range batch {
			results = append(results, w.processItem(ctx, item))
		}

		if w.cfg.Budget == 0 {
			return results, nil
		}
		if time.Since(start) >= w.cfg.Budget {
			w.log.Info("worker budget spent", "elapsed", time.Since(start), "items", len(results))
			return results, nil
		}
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(w.cfg.Interval):
			}
		}
	}
}

// processItem runs one queue item through its processor and records the
// outcome on the queue. Failures are contained: the item is failed (and
// retried or parked by the queue) while the batch continues.
func (w *Worker) processItem(ctx context.Context, item *queue.Item) ItemResult {
	res := ItemResult{
		ID:          item.ID,
		ContentType: item.ContentType,
		ContentID:   item.ContentID,
	}

	ct := process.ContentType(item.ContentType)
	proc, err := w.pipeline.ProcessorFor(ct)
	if err != nil {
		res.Status = "failed"
		res.Error = err.Error()
		w.recordFailure(ctx, item, err)
		return res
	}

	ok, err := proc.Validate(ctx, item.ContentID)
	if err != nil {
		res.Status = "failed"
		res.Error = err.Error()
		w.recordFailure(ctx, item, err)
		return res
	}
	if !ok {
		// Precondition failed: missing row, already vectorized, bad input.
		// Not retryable, so the item completes rather than loops.
		res.Status = "skipped"
		if err := w.queue.Complete(ctx, item.ID); err != nil {
			w.log.Error("failed to complete skipped item", "item", item.ID, "error", err)
		}
		w.log.Info("skipped queue item", "item", item.ID,
			"content_type", item.ContentType, "content_id", item.ContentID)
		return res
	}

	if _, err := proc.Process(ctx, item.ContentID); err != nil {
		res.Status = "failed"
		res.Error = err.Error()
		w.recordFailure(ctx, item, err)
		return res
	}

	res.Status = "completed"
	if err := w.queue.Complete(ctx, item.ID); err != nil {
		w.log.Error("failed to complete item", "item", item.ID, "error", err)
	}
	return res
}

func (w *Worker) recordFailure(ctx context.Context, item *queue.Item, cause error) {
	w.log.Warn("queue item failed", "item", item.ID,
		"content_type", item.ContentType, "content_id", item.ContentID,
		"retry_count", item.RetryCount, "error", cause)
	if err := w.queue.Fail(ctx, item.ID, cause); err != nil {
		w.log.Error("failed to record item failure", "item", item.ID, "error", err)
	}
}
