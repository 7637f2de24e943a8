package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"pidvault/internal/annotation"
)

type categorySchema struct {
	Category annotation.Category `json:"category"`
	Color    string              `json:"color"`
	Fields   []annotation.Field  `json:"fields"`
}

type labelRequest struct {
	Category string            `json:"category"`
	Fields   map[string]string `json:"fields"`
}

type labelResponse struct {
	Valid   bool     `json:"valid"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// handleAnnotationCategories lists every annotation category with the
// fields its label form requires.
func (h *Handler) handleAnnotationCategories(w http.ResponseWriter, _ *http.Request) {
	out := make([]categorySchema, 0, len(annotation.Categories))
	for _, c := range annotation.Categories {
		out = append(out, categorySchema{Category: c, Color: annotation.Color(c), Fields: annotation.Schema(c)})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// handleValidateLabel checks a label form before a shape is committed.
func (h *Handler) handleValidateLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFieldBytes*16)).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid label")
		return
	}
	c, err := annotation.ParseCategory(req.Category)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, labelResponse{Message: "Unknown category"})
		return
	}
	if err := annotation.ValidateFields(c, req.Fields); err != nil {
		if errors.Is(err, annotation.ErrIncompleteFields) {
			h.writeJSON(w, http.StatusUnprocessableEntity, labelResponse{
				Message: "Required fields missing",
				Missing: annotation.MissingFields(c, req.Fields),
			})
			return
		}
		h.writeError(w, r, err, "Failed to validate label")
		return
	}
	h.writeJSON(w, http.StatusOK, labelResponse{Valid: true})
}
