package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// UploadFile is one file of a batch handed to DocService.Upload.
type UploadFile struct {
	Name     string
	MimeType string
	Body     io.Reader
}

// UploadSession accumulates the file parts of one upload request.
//
// Bytes are written to the content store as each part arrives; metadata is
// only recorded by Commit, once for the whole batch. A session that is not
// committed must be aborted so the already-written objects are removed.
type UploadSession struct {
	svc     *DocService
	pending []*FileRecord
	ids     map[string]struct{}
	bytes   int64
	closed  bool
}

// BeginUpload starts a new upload session.
func (s *DocService) BeginUpload() *UploadSession {
	return &UploadSession{
		svc: s,
		ids: make(map[string]struct{}),
	}
}

// Len returns the number of files written so far.
func (u *UploadSession) Len() int {
	return len(u.pending)
}

// AddFile streams one file part into the content store.
// The returned record is incomplete until Commit assigns project and category.
func (u *UploadSession) AddFile(ctx context.Context, originalName, mimeType string, r io.Reader) (*FileRecord, error) {
	if u.closed {
		return nil, fmt.Errorf("upload session already closed")
	}

	now := u.svc.clock.Now()
	id, err := u.reserveID(ctx, SanitizeName(originalName), now)
	if err != nil {
		return nil, err
	}

	n, err := u.svc.content.Put(ctx, id, r)
	if err != nil {
		// A partially written object may exist; make sure Abort removes it.
		u.pending = append(u.pending, &FileRecord{ID: id})
		return nil, fmt.Errorf("writing %q: %w", originalName, err)
	}

	rec := &FileRecord{
		ID:            id,
		Name:          originalName,
		Size:          n,
		MimeType:      mimeType,
		URL:           u.svc.ContentURL(id),
		UploadedAt:    now.UnixMilli(),
		SchemaVersion: CurrentSchemaVersion,
	}
	u.pending = append(u.pending, rec)
	u.bytes += n

	u.svc.logger.Debug("file part stored", "id", id, "size", n)
	return rec, nil
}

// reserveID picks an id for name that is not used by the store, by an
// earlier part of this session or by another session still in flight. The id
// stays reserved until the session commits or aborts.
func (u *UploadSession) reserveID(ctx context.Context, name string, at time.Time) (string, error) {
	candidates := []string{
		u.svc.idgen.New(name, at),
		u.svc.idgen.Disambiguate(name, at),
		u.svc.idgen.Disambiguate(name, at),
	}

	u.svc.mu.Lock()
	defer u.svc.mu.Unlock()
	for i, id := range candidates {
		taken, err := u.taken(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			u.svc.reserved[id] = struct{}{}
			u.ids[id] = struct{}{}
			if i > 0 {
				u.svc.logger.Warn("file id collision resolved", "preferred", candidates[0], "id", id)
			}
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate id for %q", ErrDuplicateID, name)
}

// taken reports whether id is in use. Callers must hold u.svc.mu.
func (u *UploadSession) taken(ctx context.Context, id string) (bool, error) {
	if _, ok := u.svc.reserved[id]; ok {
		return true, nil
	}
	_, err := u.svc.store.Get(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("checking id %s: %w", id, err)
}

// release returns this session's ids to the pool. Committed ids are then
// guarded by the store itself.
func (u *UploadSession) release() {
	u.svc.mu.Lock()
	defer u.svc.mu.Unlock()
	for id := range u.ids {
		delete(u.svc.reserved, id)
	}
}

// Commit records metadata for every written part, all sharing projectID and
// category, and persists the store once. An empty category means pid.
func (u *UploadSession) Commit(ctx context.Context, projectID, category string) ([]*FileRecord, error) {
	if u.closed {
		return nil, fmt.Errorf("upload session already closed")
	}
	if len(u.pending) == 0 {
		u.closed = true
		return nil, ErrNoFiles
	}

	cat, err := ParseCategory(category)
	if err != nil {
		u.Abort(ctx)
		return nil, err
	}

	for _, rec := range u.pending {
		rec.ProjectID = projectID
		rec.Category = cat
	}

	start := time.Now()
	if err := u.svc.store.Append(ctx, u.pending...); err != nil {
		u.Abort(ctx)
		return nil, fmt.Errorf("recording upload: %w", err)
	}
	u.svc.metrics.ObserveStoreWrite(start)
	u.svc.metrics.ObserveUpload(len(u.pending), u.bytes)
	u.closed = true
	u.release()

	u.svc.logger.Info("files uploaded",
		"project", projectID,
		"category", string(cat),
		"count", len(u.pending),
		"bytes", u.bytes,
	)
	return u.pending, nil
}

// Abort removes every object written by this session. Removal failures are
// logged; the objects are then left for `pidvault gc`.
func (u *UploadSession) Abort(ctx context.Context) {
	if u.closed {
		return
	}
	u.closed = true
	u.svc.metrics.IncrementUploadFailed()
	for _, rec := range u.pending {
		if err := u.svc.content.Remove(ctx, rec.ID); err != nil {
			u.svc.logger.Warn("cleanup of aborted upload failed", "id", rec.ID, "error", err)
		}
	}
	u.release()
	if len(u.pending) > 0 {
		u.svc.logger.Warn("upload aborted", "files", len(u.pending))
	}
}

// Upload ingests a complete batch in one call.
func (s *DocService) Upload(ctx context.Context, projectID, category string, files []UploadFile) ([]*FileRecord, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if _, err := ParseCategory(category); err != nil {
		return nil, err
	}

	session := s.BeginUpload()
	for _, f := range files {
		if _, err := session.AddFile(ctx, f.Name, f.MimeType, f.Body); err != nil {
			session.Abort(ctx)
			return nil, err
		}
	}
	return session.Commit(ctx, projectID, category)
}
