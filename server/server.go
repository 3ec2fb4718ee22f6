// Package server exposes the vectorization pipeline over HTTP: uploads that
// enqueue processing, direct processing, deletion with cascading cleanup,
// retrieval, grounded chat, the single-shot extractors, and queue
// introspection.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/calyptra/grantvec/blobstore"
	"github.com/calyptra/grantvec/extract"
	"github.com/calyptra/grantvec/idgen"
	"github.com/calyptra/grantvec/process"
	"github.com/calyptra/grantvec/queue"
	"github.com/calyptra/grantvec/search"
	"github.com/calyptra/grantvec/store"
	"github.com/calyptra/grantvec/worker"
)

// Bucket is the logical bucket all research materials live under.
const Bucket = "research-materials"

// Config wires the server's collaborators.
type Config struct {
	Store     *store.Store
	Blobs     blobstore.Store
	Pipeline  *process.Pipeline
	Queue     *queue.Q
	Search    *search.Service
	Equipment *extract.EquipmentExtractor
	FOA       *extract.FOAExtractor

	// IDs generates entity ids. Default: idgen.Default.
	IDs idgen.Generator
	// MaxUploadBytes bounds multipart uploads. Default: 50MB.
	MaxUploadBytes int64
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

// Server handles the HTTP API.
type Server struct {
	cfg Config
	log *slog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.IDs == nil {
		cfg.IDs = idgen.Default
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg, log: cfg.Logger}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Post("/documents", s.handleUploadDocument)
			r.Get("/documents", s.handleListDocuments)
			r.Post("/figures", s.handleUploadFigure)
			r.Get("/figures", s.handleListFigures)
			r.Post("/chalk-talks", s.handleUploadChalkTalk)
			r.Post("/profiles", s.handleCreateProfile)
			r.Post("/chat", s.handleChat)
		})

		r.Post("/process/{contentType}/{id}", s.handleProcess)
		r.Delete("/{contentType}/{id}", s.handleDelete)

		r.Post("/foas", s.handleCreateFOA)
		r.Get("/foas", s.handleListFOAs)
		r.Delete("/foas/{id}", s.handleDeleteFOA)

		r.Post("/search", s.handleSearch)
		r.Post("/extract/equipment", s.handleExtractEquipment)
		r.Post("/extract/foa", s.handleExtractFOA)

		r.Get("/queue/stats", s.handleQueueStats)
		r.Post("/queue/drain", s.handleQueueDrain)
	})

	return r
}

// drainWorker builds a bounded worker for the drain endpoint.
func (s *Server) drainWorker(batchSize int) *worker.Worker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return worker.New(s.cfg.Queue, s.cfg.Pipeline, worker.Config{
		BatchSize: batchSize,
		Logger:    s.log,
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}
