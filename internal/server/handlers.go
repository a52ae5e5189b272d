package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

// maxUploadBytes caps a single ingested file.
const maxUploadBytes = 64 << 20

// ingestTextRequest is the JSON body of POST /api/v1/ingest when the corpus
// is supplied as raw text instead of a file upload.
type ingestTextRequest struct {
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		s.handleIngestFile(w, r)
		return
	}
	s.handleIngestText(w, r)
}

func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "No file field named 'file'.")
		return
	}
	defer file.Close()

	name := sanitizeFilename(header.Filename)
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "No file selected.")
		return
	}

	path, err := s.saveUpload(file, name)
	if err != nil {
		s.logger.Error("saving upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Debug("ingest file request", zap.String("path", path))
	status, err := s.ingestor.IngestFile(r.Context(), path)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("path", path), zap.Error(err))
		s.respondError(w, s.errStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.IngestResponse{OK: true, Status: status})
}

func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Request must be JSON.")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "pasted text"
	}
	id := uuid.New().String()
	s.logger.Debug("ingest text request", zap.String("id", id), zap.String("title", title))
	status, err := s.ingestor.IngestText(r.Context(), id, title, req.Text)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, s.errStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.IngestResponse{OK: true, Status: status})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Request must be JSON.")
		return
	}
	if err := req.Validate(s.config.Retrieval.TopK, s.config.Retrieval.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, "Question is empty.")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question), zap.Int("top_k", req.TopK))

	answer, citations, err := s.engine.AnswerQuestion(r.Context(), req.Question, req.TopK, req.Model)
	if err != nil {
		s.logger.Error("answering failed", zap.Error(err))
		s.respondError(w, s.errStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.AskResponse{OK: true, Answer: answer, Citations: citations})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := s.storage.ListDocuments(ctx)
	if err != nil {
		s.logger.Error("status: list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":         len(docs),
		"chunks":            chunkCount,
		"vector_index_size": s.index.Size(),
		"config": map[string]interface{}{
			"chunk_size":           s.config.Chunking.ChunkSize,
			"chunk_overlap":        s.config.Chunking.ChunkOverlap,
			"top_k":                s.config.Retrieval.TopK,
			"confidence_threshold": s.config.Retrieval.ConfidenceThreshold,
			"embedding_model":      s.config.Ollama.EmbeddingModel,
			"generation_model":     s.config.Ollama.GenerationModel,
			"embedding_dimensions": s.index.Dimensions(),
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.storage.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// saveUpload writes the uploaded file under the configured upload directory
// and returns its path.
func (s *Server) saveUpload(src multipart.File, name string) (string, error) {
	dir := s.config.Storage.UploadDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

// sanitizeFilename strips any directory components from a client-supplied
// filename. Returns "" when nothing usable remains.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

// errStatus maps pipeline errors to HTTP status codes: external LLM service
// failures surface as 502, everything else as 500.
func (s *Server) errStatus(err error) int {
	var embErr *llm.EmbeddingError
	var genErr *llm.GenerationError
	if errors.As(err, &embErr) || errors.As(err, &genErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{OK: false, Error: message})
}
