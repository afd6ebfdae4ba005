package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/pkg/utils"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest request", zap.String("text", utils.Truncate(req.Text, 80)))

	rec, err := s.engine.Ingest(r.Context(), req.Text)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, models.IngestResponse{ID: rec.ID, Text: rec.Text})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))

	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetText(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rec, err := s.engine.Get(r.Context(), id)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	if rec == nil {
		s.respondError(w, http.StatusNotFound, "record not found")
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteText(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.logger.Debug("delete request", zap.Int64("id", id))
	if err := s.engine.Delete(r.Context(), id); err != nil {
		s.respondCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats["status"] = "ok"
	s.respondJSON(w, http.StatusOK, stats)
}

// respondCoreError maps the core's typed errors to HTTP statuses. The core
// decides what failed; the transport decides what the client sees.
func (s *Server) respondCoreError(w http.ResponseWriter, err error) {
	var emptyErr *models.EmptyInputError
	if errors.As(err, &emptyErr) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var provErr *models.ProviderError
	if errors.As(err, &provErr) {
		if provErr.Transient {
			// Retryable by the client; the core never retries internally.
			s.respondError(w, http.StatusBadGateway, err.Error())
		} else {
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	var dimErr *models.DimensionError
	if errors.As(err, &dimErr) {
		s.logger.Error("dimension mismatch reached ingest, check embedding config", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
