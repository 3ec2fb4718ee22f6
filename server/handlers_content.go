package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/calyptra/grantvec/blobstore"
	"github.com/calyptra/grantvec/process"
	"github.com/calyptra/grantvec/store"
)

// upload holds the common result of reading a multipart file field.
type upload struct {
	data        []byte
	fileName    string
	contentType string
}

func (s *Server) readUpload(r *http.Request) (*upload, error) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", s.cfg.MaxUploadBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	return &upload{
		data:        data,
		fileName:    header.Filename,
		contentType: headerContentType(header),
	}, nil
}

func headerContentType(h *multipart.FileHeader) string {
	ct := h.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// requireProject resolves {projectID} and verifies the project exists.
func (s *Server) requireProject(w http.ResponseWriter, r *http.Request) (string, bool) {
	projectID := chi.URLParam(r, "projectID")
	p, err := s.cfg.Store.GetProject(r.Context(), projectID)
	if err != nil {
		s.log.Error("project lookup", "project", projectID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "project lookup failed")
		return "", false
	}
	if p == nil {
		s.respondError(w, http.StatusNotFound, "project not found")
		return "", false
	}
	return projectID, true
}

// store the blob, create the row, enqueue processing: the shared tail of
// every upload handler.
func (s *Server) storeAndEnqueue(w http.ResponseWriter, r *http.Request,
	projectID, entityID string, up *upload, ct process.ContentType,
	createRow func(path string) error) {

	ctx := r.Context()
	path := blobstore.Key(projectID, entityID, up.fileName)

	if err := s.cfg.Blobs.Upload(ctx, Bucket, path, up.data, up.contentType); err != nil {
		s.log.Error("blob upload", "path", path, "error", err)
		s.respondError(w, http.StatusInternalServerError, "storage failed")
		return
	}

	if err := createRow(path); err != nil {
		s.log.Error("create row", "content_type", ct, "id", entityID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not record upload")
		return
	}

	item, err := s.cfg.Queue.Enqueue(ctx, string(ct), entityID, projectID, 0)
	if err != nil {
		s.log.Error("enqueue", "content_type", ct, "id", entityID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not enqueue processing")
		return
	}

	s.respond(w, http.StatusCreated, map[string]any{
		"id":            entityID,
		"queue_item_id": item.ID,
		"status":        "pending",
	})
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.requireProject(w, r)
	if !ok {
		return
	}
	up, err := s.readUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := "doc_" + s.cfg.IDs()
	s.storeAndEnqueue(w, r, projectID, id, up, process.TypeDocument, func(path string) error {
		return s.cfg.Store.CreateDocument(r.Context(), &store.Document{
			ID:        id,
			ProjectID: projectID,
			Title:     r.FormValue("title"),
			FileName:  up.fileName,
			Bucket:    Bucket,
			Path:      path,
			MIMEType:  up.contentType,
			SizeBytes: int64(len(up.data)),
		})
	})
}

func (s *Server) handleUploadFigure(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.requireProject(w, r)
	if !ok {
		return
	}
	up, err := s.readUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !strings.HasPrefix(up.contentType, "image/") {
		s.respondError(w, http.StatusBadRequest, "figure must be an image")
		return
	}

	id := "fig_" + s.cfg.IDs()
	s.storeAndEnqueue(w, r, projectID, id, up, process.TypeFigure, func(path string) error {
		return s.cfg.Store.CreateFigure(r.Context(), &store.Figure{
			ID:        id,
			ProjectID: projectID,
			Title:     r.FormValue("title"),
			Caption:   r.FormValue("caption"),
			FileName:  up.fileName,
			Bucket:    Bucket,
			Path:      path,
			MIMEType:  up.contentType,
			SizeBytes: int64(len(up.data)),
		})
	})
}

func (s *Server) handleUploadChalkTalk(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.requireProject(w, r)
	if !ok {
		return
	}
	up, err := s.readUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !strings.HasPrefix(up.contentType, "audio/") && !strings.HasPrefix(up.contentType, "video/") {
		s.respondError(w, http.StatusBadRequest, "chalk talk must be an audio or video file")
		return
	}

	id := "ct_" + s.cfg.IDs()
	s.storeAndEnqueue(w, r, projectID, id, up, process.TypeChalkTalk, func(path string) error {
		return s.cfg.Store.CreateChalkTalk(r.Context(), &store.ChalkTalk{
			ID:        id,
			ProjectID: projectID,
			Title:     r.FormValue("title"),
			FileName:  up.fileName,
			Bucket:    Bucket,
			Path:      path,
			MIMEType:  up.contentType,
			Language:  r.FormValue("language"),
			SizeBytes: int64(len(up.data)),
		})
	})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.requireProject(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		Institution string `json:"institution"`
		Biography   string `json:"biography"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx := r.Context()
	id := "res_" + s.cfg.IDs()
	err := s.cfg.Store.CreateProfile(ctx, &store.Profile{
		ID:          id,
		ProjectID:   projectID,
		Name:        req.Name,
		Title:       req.Title,
		Institution: req.Institution,
		Biography:   req.Biography,
	})
	if err != nil {
		s.log.Error("create profile", "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not record profile")
		return
	}

	item, err := s.cfg.Queue.Enqueue(ctx, string(process.TypeResearcher), id, projectID, 0)
	if err != nil {
		s.log.Error("enqueue profile", "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not enqueue processing")
		return
	}
	s.respond(w, http.StatusCreated, map[string]any{
		"id":            id,
		"queue_item_id": item.ID,
		"status":        "pending",
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.requireProject(w, r)
	if !ok {
		return
	}
	docs, err := s.cfg.Store.ListDocuments(r.Context(), projectID)
	if err != nil {
		s.log.Error("list documents", "error", err)
		s.respondError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	if docs == nil {
		docs = []*store.Document{}
	}
	s.respond(w, http.StatusOK, docs)
}

func (s *Server) handleListFigures(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.requireProject(w, r)
	if !ok {
		return
	}
	figs, err := s.cfg.Store.ListFigures(r.Context(), projectID)
	if err != nil {
		s.log.Error("list figures", "error", err)
		s.respondError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	if figs == nil {
		figs = []*store.Figure{}
	}
	s.respond(w, http.StatusOK, figs)
}

// handleProcess runs a processor synchronously, outside the queue.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	ct := process.ContentType(chi.URLParam(r, "contentType"))
	id := chi.URLParam(r, "id")

	proc, err := s.cfg.Pipeline.ProcessorFor(ct)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	ok, err := proc.Validate(ctx, id)
	if err != nil {
		s.log.Error("validate", "content_type", ct, "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "validation failed")
		return
	}
	if !ok {
		s.respondError(w, http.StatusBadRequest, "content is missing, already processed, or not processable")
		return
	}

	res, err := proc.Process(ctx, id)
	if err != nil {
		s.log.Error("process", "content_type", ct, "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"vector_ids": res.VectorIDs,
		"chunks":     len(res.Chunks),
	})
}

// handleDelete removes content with cascading cleanup of vectors and queue
// items.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ct := process.ContentType(chi.URLParam(r, "contentType"))
	id := chi.URLParam(r, "id")

	if !ct.Valid() {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown content type %q", ct))
		return
	}

	if err := s.cfg.Pipeline.Cleanup(r.Context(), ct, id); err != nil {
		s.log.Error("cleanup", "content_type", ct, "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "cleanup incomplete: "+err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}
