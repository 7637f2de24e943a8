package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"pidvault/internal/docs"
	"pidvault/internal/projection"
)

const maxFieldBytes = 4 << 10

var errFieldTooLarge = errors.New("form field too large")

type uploadResponse struct {
	Message string             `json:"message"`
	Files   []*docs.FileRecord `json:"files"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload streams every "files" part into the content store as it
// arrives. projectId and category may appear anywhere in the form; they are
// applied when the batch is committed.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	session := h.docs.BeginUpload()
	var projectID, category string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			session.Abort(ctx)
			h.writeError(w, r, fmt.Errorf("reading multipart body: %w", err), "Upload failed")
			return
		}

		switch {
		case part.FormName() == "files" && part.FileName() != "":
			name := part.FileName()
			_, err = session.AddFile(ctx, name, partMimeType(part, name), part)
		case part.FormName() == "projectId":
			projectID, err = readField(part)
		case part.FormName() == "category":
			category, err = readField(part)
		}
		part.Close()
		if err != nil {
			session.Abort(ctx)
			h.writeError(w, r, err, "Upload failed")
			return
		}
	}

	records, err := session.Commit(ctx, projectID, category)
	if err != nil {
		h.writeError(w, r, err, "Upload failed")
		return
	}
	h.writeJSON(w, http.StatusOK, uploadResponse{Message: "Files uploaded successfully", Files: records})
}

func partMimeType(part *multipart.Part, name string) string {
	if ct := part.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// readField reads a small form value. Values longer than maxFieldBytes are
// rejected rather than cut short.
func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading field %s: %w", part.FormName(), err)
	}
	if len(b) > maxFieldBytes {
		return "", fmt.Errorf("%w: %s", errFieldTooLarge, part.FormName())
	}
	return strings.TrimSpace(string(b)), nil
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.docs.List(r.Context(), r.URL.Query().Get("projectId"))
	if err != nil {
		h.writeError(w, r, err, "Failed to list files")
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err, "Failed to delete file")
		return
	}
	h.writeMessage(w, http.StatusOK, "File deleted successfully")
}

// handleContent serves the bytes behind a FileRecord.URL.
func (h *Handler) handleContent(w http.ResponseWriter, r *http.Request) {
	rec, rc, err := h.docs.OpenContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err, "Failed to read file")
		return
	}
	defer rc.Close()

	if rec.MimeType != "" {
		w.Header().Set("Content-Type", rec.MimeType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": rec.Name}))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("streaming content failed", "id", rec.ID, "error", err)
	}
}

// handleProjectDocuments renders the subject and reference tables of one
// project. Processing statuses may be passed as repeated status=<id>:<state>
// query values.
func (h *Handler) handleProjectDocuments(w http.ResponseWriter, r *http.Request) {
	records, err := h.docs.List(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		h.writeError(w, r, err, "Failed to list files")
		return
	}
	statuses := projection.StatusMap{}
	for _, v := range r.URL.Query()["status"] {
		if id, state, ok := strings.Cut(v, ":"); ok {
			statuses[id] = state
		}
	}
	h.writeJSON(w, http.StatusOK, projection.Build(records, statuses, h.loc))
}
