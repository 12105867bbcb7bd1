package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/botforge/botforge/internal/errs"
)

// errorResponse is the JSON error envelope shared by all endpoints.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError maps the application's sentinel errors onto HTTP statuses.
// Anything unclassified surfaces as a 500 without leaking the detail.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.With("path", r.URL.Path)

	switch {
	case errors.Is(err, errs.ErrNotFound):
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: "not_found"})
	case errors.Is(err, errs.ErrUnauthenticated):
		s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
	case errors.Is(err, errs.ErrUnauthorized):
		s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, errs.ErrValidation):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_failed", Message: err.Error()})
	case errors.Is(err, errs.ErrConflict):
		s.respondJSON(w, http.StatusConflict, errorResponse{Error: "conflict"})
	case errors.Is(err, errs.ErrUpstream):
		log.WarnContext(r.Context(), "Upstream provider failure", "error", err)
		s.respondJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream_failure"})
	default:
		log.ErrorContext(r.Context(), "Unhandled error", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}
