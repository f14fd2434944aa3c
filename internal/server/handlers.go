package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asanoha/kotae/internal/generate"
	"github.com/asanoha/kotae/internal/index"
	"github.com/asanoha/kotae/internal/models"
	"github.com/asanoha/kotae/internal/qa"
	"github.com/asanoha/kotae/internal/storage"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question))

	record, err := s.engine.Ask(r.Context(), req.Question)
	if errors.Is(err, qa.ErrEmptyIndex) {
		if _, rerr := s.engine.RebuildIndex(r.Context()); rerr != nil {
			s.logger.Error("index rebuild failed", zap.Error(rerr))
			s.respondError(w, http.StatusInternalServerError, rerr.Error())
			return
		}
		record, err = s.engine.Ask(r.Context(), req.Question)
	}
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, askStatus(err), err.Error())
		return
	}

	if err := s.storage.CreateAnswer(r.Context(), record); err != nil {
		// The answer exists; losing the history row should not lose it.
		s.logger.Warn("failed to persist answer", zap.String("id", record.ID), zap.Error(err))
	}
	s.respondJSON(w, http.StatusCreated, record)
}

// askStatus maps ask pipeline errors to HTTP status codes.
func askStatus(err error) int {
	switch {
	case errors.Is(err, index.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, generate.ErrGenerationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, generate.ErrGenerationUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(query.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))

	response, err := s.engine.FindRelevant(r.Context(), &query)
	if errors.Is(err, qa.ErrEmptyIndex) {
		if _, rerr := s.engine.RebuildIndex(r.Context()); rerr != nil {
			s.logger.Error("index rebuild failed", zap.Error(rerr))
			s.respondError(w, http.StatusInternalServerError, rerr.Error())
			return
		}
		response, err = s.engine.FindRelevant(r.Context(), &query)
	}
	if err != nil {
		if errors.Is(err, index.ErrInvalidQuery) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	count, err := s.engine.RebuildIndex(r.Context())
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "reindexed",
		"documents": count,
	})
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Title == "" || input.Content == "" {
		s.respondError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	now := time.Now()
	doc := &models.Document{
		ID:        input.ID,
		Title:     input.Title,
		Content:   input.Content,
		Tags:      input.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.logger.Debug("create document request", zap.String("id", doc.ID), zap.String("title", doc.Title))
	if err := s.storage.CreateDocument(r.Context(), doc); err != nil {
		s.logger.Error("create document failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.reindexAfterChange(r)
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r, 50)
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountDocuments(r.Context())
	if err != nil {
		s.logger.Error("count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     total,
		"offset":    offset,
		"limit":     limit,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if input.Title != "" {
		doc.Title = input.Title
	}
	if input.Content != "" {
		doc.Content = input.Content
	}
	if input.Tags != nil {
		doc.Tags = input.Tags
	}
	doc.UpdatedAt = time.Now()
	s.logger.Debug("update document request", zap.String("id", id))
	if err := s.storage.UpdateDocument(r.Context(), doc); err != nil {
		s.logger.Error("update document failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.reindexAfterChange(r)
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.storage.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("delete document failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.reindexAfterChange(r)
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleListAnswers(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r, 50)
	answers, err := s.storage.ListAnswers(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list answers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountAnswers(r.Context())
	if err != nil {
		s.logger.Error("count answers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"answers": answers,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}

func (s *Server) handleGetAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.storage.GetAnswer(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "answer not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	answerCount, err := s.storage.CountAnswers(ctx)
	if err != nil {
		s.logger.Error("status: count answers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
		"answers":   answerCount,
	}
	if idx := s.engine.Index(); idx != nil {
		resp["index"] = map[string]interface{}{
			"documents":  idx.Size(),
			"vocabulary": idx.VocabularySize(),
			"built_at":   idx.BuiltAt(),
		}
	}

	configInfo := map[string]interface{}{
		"top_k":             s.config.Retrieval.TopK,
		"max_context_chars": s.config.Retrieval.MaxContextChars,
		"min_score":         s.config.Retrieval.MinScore,
		"generator_backend": s.config.Generator.Backend,
		"database_path":     s.config.Storage.DatabasePath,
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

// reindexAfterChange rebuilds the index after a document mutation so queries
// see the change without an explicit reindex call. The mutation has already
// been persisted, so a rebuild failure is logged rather than failing the
// request; the next query against an empty index rebuilds again.
func (s *Server) reindexAfterChange(r *http.Request) {
	if _, err := s.engine.RebuildIndex(r.Context()); err != nil {
		s.logger.Warn("reindex after document change failed", zap.Error(err))
	}
}

func pagination(r *http.Request, defaultLimit int) (offset, limit int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return offset, limit
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
