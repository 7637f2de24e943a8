package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"pidvault/internal/analysis"
	"pidvault/internal/docs"
)

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("writing response failed", "error", err)
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps err to a status and message. Unexpected errors are logged
// and reported with fallback, never with the error text.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, docs.ErrNoFiles):
		h.writeMessage(w, http.StatusBadRequest, "No files uploaded")
	case errors.Is(err, docs.ErrInvalidCategory):
		h.writeMessage(w, http.StatusBadRequest, "Invalid category")
	case errors.Is(err, errFieldTooLarge):
		h.writeMessage(w, http.StatusBadRequest, "Field too large")
	case errors.Is(err, docs.ErrNotFound):
		h.writeMessage(w, http.StatusNotFound, "File not found")
	case errors.As(err, &maxErr):
		h.writeMessage(w, http.StatusRequestEntityTooLarge, "Upload too large")
	case errors.Is(err, analysis.ErrUnavailable):
		h.logger.Warn("analysis unavailable", "error", err, "request_id", middleware.GetReqID(r.Context()))
		h.writeMessage(w, http.StatusServiceUnavailable, "Analysis service unavailable")
	case errors.Is(err, analysis.ErrBadResponse):
		h.logger.Warn("analysis failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		h.writeMessage(w, http.StatusBadGateway, "Analysis failed")
	default:
		h.logger.Error(fallback, "error", err, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
		h.writeMessage(w, http.StatusInternalServerError, fallback)
	}
}
