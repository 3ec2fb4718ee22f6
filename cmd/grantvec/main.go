// Entry point for the grantvec HTTP service: research-material vectorization,
// retrieval, and extraction for grant applications.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
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
	"github.com/calyptra/grantvec/extract"
	"github.com/calyptra/grantvec/llm"
	"github.com/calyptra/grantvec/process"
	"github.com/calyptra/grantvec/queue"
	"github.com/calyptra/grantvec/search"
	"github.com/calyptra/grantvec/server"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/vecstore"
	"github.com/calyptra/grantvec/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	logLevel := flag.String("log-level", env("LOG_LEVEL", "info"), "debug, info, warn, or error")
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
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

	vectors, err := vecstore.New(db, vecstore.Config{
		Dimension: cfg.Embed.Dimension,
		Logger:    logger,
	})
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

	srv := server.New(server.Config{
		Store:     st,
		Blobs:     blobs,
		Pipeline:  pipe,
		Queue:     q,
		Search:    search.New(emb, vectors, client, logger),
		Equipment: extract.NewEquipmentExtractor(client, cfg.LLM.ChatModel, logger),
		FOA:       extract.NewFOAExtractor(client, cfg.LLM.ChatModel, logger),
		Logger:    logger,
	})

	// Background worker loop: drains the queue alongside the HTTP server.
	w := worker.New(q, pipe, worker.Config{
		BatchSize: cfg.Worker.BatchSize,
		Interval:  cfg.Worker.Interval(),
		Logger:    logger,
	})
	go runWorkerLoop(ctx, w, cfg.Worker.Interval(), logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("grantvec listening", "addr", cfg.Addr, "db", cfg.DBPath,
		"embed_model", emb.Model(), "dimension", emb.Dimension())
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server", "error", err)
		os.Exit(1)
	}
	logger.Info("grantvec stopped")
}

// runWorkerLoop runs single worker passes forever, pausing between passes.
func runWorkerLoop(ctx context.Context, w *worker.Worker, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := w.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("worker pass", "error", err)
			}
			if len(results) > 0 {
				logger.Info("worker pass", "items", len(results))
			}
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
