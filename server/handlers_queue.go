package server

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cfg.Queue.Stats(r.Context())
	if err != nil {
		s.log.Error("queue stats", "error", err)
		s.respondError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	s.respond(w, http.StatusOK, stats)
}

// handleQueueDrain runs one bounded worker pass and reports the per-item
// outcomes. Item failures are part of the report, not an HTTP error.
func (s *Server) handleQueueDrain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchSize int `json:"batch_size,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	results, err := s.drainWorker(req.BatchSize).Run(r.Context())
	if err != nil {
		s.log.Error("queue drain", "error", err)
		s.respondError(w, http.StatusInternalServerError, "drain failed")
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"processed": len(results),
		"results":   results,
	})
}
