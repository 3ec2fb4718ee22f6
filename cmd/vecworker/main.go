// Standalone queue worker: drains the vectorization queue for a bounded
// wall-clock budget, then exits. Intended for cron-style invocation next to
// a running grantvec server sharing the same database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/calyptra/grantvec/blobstore"
	"github.com/calyptra/grantvec/config"
	"github.com/calyptra/grantvec/dbopen"
	"github.com/calyptra/grantvec/docpipe"
	"github.com/calyptra/grantvec/embed"
	"github.com/calyptra/grantvec/llm"
	"github.com/calyptra/grantvec/process"
	"github.com/calyptra/grantvec/queue"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/vecstore"
	"github.com/calyptra/grantvec/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	budget := flag.Duration("budget", 5*time.Minute, "wall-clock budget for this run")
	batchSize := flag.Int("batch", 0, "items per claim (0 uses the configured batch size)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if *batchSize <= 0 {
		*batchSize = cfg.Worker.BatchSize
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll(), dbopen.WithSchema(store.Schema))
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	st := store.New(db)

	blobs, err := blobstore.NewLocal(cfg.BlobDir, cfg.BaseURL, []byte(cfg.Secret))
	if err != nil {
		logger.Error("blob store", "dir", cfg.BlobDir, "error", err)
		os.Exit(1)
	}

	vectors, err := vecstore.New(db, vecstore.Config{Dimension: cfg.Embed.Dimension, Logger: logger})
	if err != nil {
		logger.Error("vector store", "error", err)
		os.Exit(1)
	}

	q := queue.New(db, queue.Options{Logger: logger})
	if err := q.EnsureTable(ctx); err != nil {
		logger.Error("queue table", "error", err)
		os.Exit(1)
	}

	emb := embed.New(embed.Config{
		Endpoint:  cfg.Embed.Endpoint,
		APIKey:    cfg.EmbedAPIKey(),
		Model:     cfg.Embed.Model,
		Dimension: cfg.Embed.Dimension,
		BatchSize: cfg.Embed.BatchSize,
		Logger:    logger,
	})

	client := llm.NewOpenAI(llm.Config{
		APIKey:          cfg.LLMAPIKey(),
		BaseURL:         cfg.LLM.BaseURL,
		ChatModel:       cfg.LLM.ChatModel,
		TranscribeModel: cfg.LLM.TranscribeModel,
		VisionModel:     cfg.LLM.VisionModel,
		Logger:          logger,
	})

	pipe := process.New(st, blobs, docpipe.New(docpipe.Config{}), emb, vectors, client, q,
		process.Config{
			MaxTokens:    cfg.Chunk.MaxTokens,
			MaxBlobBytes: cfg.Pipeline.MaxBlobBytes,
			Logger:       logger,
		})

	w := worker.New(q, pipe, worker.Config{
		BatchSize: *batchSize,
		Budget:    *budget,
		Interval:  cfg.Worker.Interval(),
		Logger:    logger,
	})

	logger.Info("vecworker starting", "budget", *budget, "batch", *batchSize, "db", cfg.DBPath)
	results, err := w.Run(ctx)
	if err != nil && ctx.Err() == nil {
		logger.Error("worker run", "error", err)
		os.Exit(1)
	}

	completed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case "completed":
			completed++
		case "failed":
			failed++
		case "skipped":
			skipped++
		}
	}
	logger.Info("vecworker done", "items", len(results),
		"completed", completed, "failed", failed, "skipped", skipped)
}
