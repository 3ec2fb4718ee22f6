package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/calyptra/grantvec/search"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q search.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(q.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	results, err := s.cfg.Search.Search(r.Context(), q)
	if err != nil {
		s.log.Error("search", "error", err)
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	s.respond(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.requireProject(w, r)
	if !ok {
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.cfg.Search.Answer(r.Context(), projectID, req.Question)
	if err != nil {
		s.log.Error("chat", "project", projectID, "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleExtractEquipment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text    string `json:"text"`
		Context string `json:"context,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	items, err := s.cfg.Equipment.Extract(r.Context(), req.Text, req.Context)
	if err != nil {
		s.log.Error("equipment extraction", "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"equipment": items})
}

func (s *Server) handleExtractFOA(w http.ResponseWriter, r *http.Request) {
	foa, text, ok := s.extractFOA(w, r)
	if !ok {
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"foa": foa, "text": text})
}
