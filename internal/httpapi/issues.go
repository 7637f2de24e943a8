package httpapi

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pidvault/internal/analysis"
)

const maxExportBody = 8 << 20

type issuesResponse struct {
	FileID string           `json:"fileId"`
	Issues []analysis.Issue `json:"issues"`
}

type exportRequest struct {
	Title  string           `json:"title"`
	Issues []analysis.Issue `json:"issues"`
}

// handleAnalyze sends a stored drawing to the analysis service.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.docs.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err, "Failed to analyze file")
		return
	}
	issues, err := h.analysis.Analyze(ctx, rec.ID, rec.ProjectID)
	if err != nil {
		h.writeError(w, r, err, "Failed to analyze file")
		return
	}
	h.writeJSON(w, http.StatusOK, issuesResponse{FileID: rec.ID, Issues: issues})
}

// handleExportIssues renders a reviewed issue table as a download.
func (h *Handler) handleExportIssues(w http.ResponseWriter, r *http.Request) {
	format, err := analysis.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Unsupported export format")
		return
	}

	var req exportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExportBody)).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid issue table")
		return
	}
	if len(req.Issues) == 0 {
		h.writeMessage(w, http.StatusBadRequest, "No issues to export")
		return
	}

	now := h.clock.Now().In(h.loc)
	var buf bytes.Buffer
	if err := analysis.Export(&buf, format, req.Issues, req.Title, now); err != nil {
		h.writeError(w, r, err, "Failed to export issues")
		return
	}

	// The print view opens in the browser; everything else downloads.
	disposition := "attachment"
	if format == analysis.FormatHTML {
		disposition = "inline"
	}
	hdr := w.Header()
	hdr.Set("Content-Type", format.ContentType())
	hdr.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": analysis.FileName(format, now)}))
	hdr.Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("writing export failed", "format", string(format), "error", err)
	}
}
