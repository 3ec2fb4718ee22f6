package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/calyptra/grantvec/extract"
	"github.com/calyptra/grantvec/store"
)

// extractFOA parses the html-or-text request body and runs the FOA
// extractor, writing the error response itself when ok is false. text is
// what the extractor actually read (markdown for the html branch).
func (s *Server) extractFOA(w http.ResponseWriter, r *http.Request) (foa *extract.FOA, text string, ok bool) {
	var req struct {
		HTML string `json:"html,omitempty"`
		Text string `json:"text,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, "", false
	}

	ctx := r.Context()
	var err error
	switch {
	case strings.TrimSpace(req.HTML) != "":
		foa, text, err = s.cfg.FOA.ExtractHTML(ctx, req.HTML)
	case strings.TrimSpace(req.Text) != "":
		text = req.Text
		foa, err = s.cfg.FOA.Extract(ctx, req.Text)
	default:
		s.respondError(w, http.StatusBadRequest, "html or text is required")
		return nil, "", false
	}
	if err != nil {
		s.log.Error("foa extraction", "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil, "", false
	}
	return foa, text, true
}

// handleCreateFOA extracts a funding opportunity and ingests it: the row is
// persisted and its description and raw text are embedded so award-range
// filters in search have metadata to match against.
func (s *Server) handleCreateFOA(w http.ResponseWriter, r *http.Request) {
	foa, text, ok := s.extractFOA(w, r)
	if !ok {
		return
	}

	rec := &store.FOA{
		ID:           "foa_" + s.cfg.IDs(),
		Agency:       foa.Agency,
		Title:        foa.Title,
		Number:       foa.Number,
		Description:  foa.Description,
		AwardFloor:   foa.AwardFloor,
		AwardCeiling: foa.AwardCeiling,
		Deadline:     foa.Deadline,
		Eligibility:  foa.Eligibility,
		RawText:      text,
		CreatedAt:    time.Now(),
	}
	if err := s.cfg.Pipeline.IngestFOA(r.Context(), rec); err != nil {
		s.log.Error("foa ingest", "foa", rec.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusCreated, rec)
}

func (s *Server) handleListFOAs(w http.ResponseWriter, r *http.Request) {
	foas, err := s.cfg.Store.ListFOAs(r.Context())
	if err != nil {
		s.log.Error("list foas", "error", err)
		s.respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if foas == nil {
		foas = []*store.FOA{}
	}
	s.respond(w, http.StatusOK, map[string]any{"foas": foas})
}

func (s *Server) handleDeleteFOA(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.cfg.Pipeline.RemoveFOA(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Error("foa delete", "foa", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}
