package metastore

import (
	"context"
	"fmt"
	"sync"

	"pidvault/internal/docs"
)

// MemoryStore is an in-memory implementation of docs.Store.
// Records are lost when the process exits. Use in tests and for type=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*docs.FileRecord
	index   map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

func (s *MemoryStore) All(_ context.Context) ([]*docs.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records, nil), nil
}

func (s *MemoryStore) ListByProject(_ context.Context, projectID string) ([]*docs.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records, func(r *docs.FileRecord) bool { return r.ProjectID == projectID }), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*docs.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, docs.ErrNotFound)
	}
	rec := *s.records[i]
	return &rec, nil
}

func (s *MemoryStore) Append(_ context.Context, records ...*docs.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkDuplicates(s.index, records); err != nil {
		return err
	}
	for _, r := range records {
		rec := *r
		s.index[rec.ID] = len(s.records)
		s.records = append(s.records, &rec)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (*docs.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, docs.ErrNotFound)
	}
	removed := s.records[i]
	s.records = append(s.records[:i], s.records[i+1:]...)
	s.index = buildIndex(s.records)
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ docs.Store = (*MemoryStore)(nil)

// cloneRecords copies the records accepted by keep (all when keep is nil).
// The result is never nil.
func cloneRecords(records []*docs.FileRecord, keep func(*docs.FileRecord) bool) []*docs.FileRecord {
	out := make([]*docs.FileRecord, 0, len(records))
	for _, r := range records {
		if keep != nil && !keep(r) {
			continue
		}
		rec := *r
		out = append(out, &rec)
	}
	return out
}

func buildIndex(records []*docs.FileRecord) map[string]int {
	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	return index
}

// checkDuplicates rejects a batch whose ids collide with index or with each other.
func checkDuplicates(index map[string]int, records []*docs.FileRecord) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := index[r.ID]; ok {
			return fmt.Errorf("record %s: %w", r.ID, docs.ErrDuplicateID)
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("record %s: %w", r.ID, docs.ErrDuplicateID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
