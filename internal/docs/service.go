package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// DocService coordinates the metadata store and the content store to
// implement ingest, listing, retrieval and deletion of project files.
type DocService struct {
	store   Store
	content ContentStore
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	metrics Metrics
	baseURL string

	// reserved holds ids written by upload sessions that have not yet
	// committed or aborted.
	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewDocService creates a DocService. baseURL prefixes every FileRecord.URL,
// e.g. "http://localhost:5000" yields "http://localhost:5000/uploads/<id>".
func NewDocService(store Store, content ContentStore, logger Logger, clock Clock, idgen IDGenerator, metrics Metrics, baseURL string) *DocService {
	if logger == nil {
		logger = NewNopLogger()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &DocService{
		store:    store,
		content:  content,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		metrics:  metrics,
		baseURL:  strings.TrimRight(baseURL, "/"),
		reserved: make(map[string]struct{}),
	}
}

// ContentURL returns the externally fetchable location of a stored object.
func (s *DocService) ContentURL(id string) string {
	return s.baseURL + "/uploads/" + id
}

// List returns all records, or only those of projectID when it is non-empty.
func (s *DocService) List(ctx context.Context, projectID string) ([]*FileRecord, error) {
	var (
		records []*FileRecord
		err     error
	)
	if projectID == "" {
		records, err = s.store.All(ctx)
	} else {
		records, err = s.store.ListByProject(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	if records == nil {
		records = []*FileRecord{}
	}
	return records, nil
}

// Get returns a single record.
func (s *DocService) Get(ctx context.Context, id string) (*FileRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting file %s: %w", id, err)
	}
	return rec, nil
}

// OpenContent returns the record together with a reader for its bytes.
// The caller must close the reader.
func (s *DocService) OpenContent(ctx context.Context, id string) (*FileRecord, io.ReadCloser, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.content.Open(ctx, rec.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("opening content for %s: %w", id, err)
	}
	return rec, rc, nil
}

// Delete removes a record and, best-effort, its backing object.
// Failure to remove the object is logged and does not fail the delete.
func (s *DocService) Delete(ctx context.Context, id string) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.IncrementDelete(false)
		}
		return fmt.Errorf("deleting file %s: %w", id, err)
	}

	if err := s.content.Remove(ctx, rec.ID); err != nil {
		s.logger.Warn("content removal failed", "id", rec.ID, "error", err)
	}

	start := time.Now()
	if _, err := s.store.Delete(ctx, rec.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.IncrementDelete(false)
		}
		return fmt.Errorf("deleting file %s: %w", id, err)
	}
	s.metrics.ObserveStoreWrite(start)
	s.metrics.IncrementDelete(true)

	s.logger.Info("file deleted", "id", rec.ID, "project", rec.ProjectID)
	return nil
}
