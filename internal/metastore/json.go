package metastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pidvault/internal/docs"
)

// JSONStore keeps every FileRecord in memory and mirrors the whole set to a
// single JSON array document on each mutation.
//
// Saves are atomic (temp file in the same directory, then rename) and all
// mutations are serialized, so concurrent appends within one process are
// merged rather than lost.
type JSONStore struct {
	mu      sync.RWMutex
	path    string
	records []*docs.FileRecord
	index   map[string]int
	logger  docs.Logger
	clock   docs.Clock
}

// NewJSONStore opens (or creates) the document at path and loads it.
//
// A missing document yields an empty store. A document that fails to parse is
// moved aside to "<path>.corrupt-<unix>" and the store starts empty. Records
// written by older versions are migrated and, if anything changed, the
// document is rewritten before NewJSONStore returns.
func NewJSONStore(path string, logger docs.Logger, clock docs.Clock) (*JSONStore, error) {
	if logger == nil {
		logger = docs.NewNopLogger()
	}
	if clock == nil {
		clock = docs.RealClock{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating metadata directory: %w", err)
	}

	s := &JSONStore{
		path:   path,
		index:  make(map[string]int),
		logger: logger,
		clock:  clock,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing document.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading metadata document: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var records []*docs.FileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, s.clock.Now().Unix())
		if rerr := os.Rename(s.path, backup); rerr != nil {
			return fmt.Errorf("preserving corrupt metadata document: %w", rerr)
		}
		s.logger.Error("metadata document unreadable, starting empty",
			"path", s.path, "backup", backup, "error", err)
		return nil
	}

	migrated := 0
	kept := records[:0]
	for _, r := range records {
		if r == nil {
			continue
		}
		if docs.MigrateRecord(r) {
			migrated++
		}
		kept = append(kept, r)
	}
	s.records = kept
	s.index = buildIndex(kept)

	if migrated > 0 {
		if err := s.save(s.records); err != nil {
			return fmt.Errorf("rewriting migrated metadata: %w", err)
		}
		s.logger.Info("metadata records migrated",
			"count", migrated, "schema_version", docs.CurrentSchemaVersion)
	}
	return nil
}

// save serializes records and atomically replaces the backing document.
// Callers must hold s.mu for writing.
func (s *JSONStore) save(records []*docs.FileRecord) error {
	return writeDocument(s.path, records)
}

// writeDocument atomically replaces path with the JSON array of records.
func writeDocument(path string, records []*docs.FileRecord) error {
	if records == nil {
		records = []*docs.FileRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-metadata-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming metadata into place: %w", err)
	}
	success = true
	return nil
}

func (s *JSONStore) All(_ context.Context) ([]*docs.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records, nil), nil
}

func (s *JSONStore) ListByProject(_ context.Context, projectID string) ([]*docs.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records, func(r *docs.FileRecord) bool { return r.ProjectID == projectID }), nil
}

func (s *JSONStore) Get(_ context.Context, id string) (*docs.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, docs.ErrNotFound)
	}
	rec := *s.records[i]
	return &rec, nil
}

// Append persists records as one batch. On a save failure the in-memory set
// is left unchanged.
func (s *JSONStore) Append(_ context.Context, records ...*docs.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkDuplicates(s.index, records); err != nil {
		return err
	}

	next := make([]*docs.FileRecord, len(s.records), len(s.records)+len(records))
	copy(next, s.records)
	for _, r := range records {
		rec := *r
		next = append(next, &rec)
	}
	if err := s.save(next); err != nil {
		return err
	}
	s.records = next
	s.index = buildIndex(next)
	return nil
}

func (s *JSONStore) Delete(_ context.Context, id string) (*docs.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, docs.ErrNotFound)
	}

	removed := s.records[i]
	next := make([]*docs.FileRecord, 0, len(s.records)-1)
	next = append(next, s.records[:i]...)
	next = append(next, s.records[i+1:]...)
	if err := s.save(next); err != nil {
		return nil, err
	}
	s.records = next
	s.index = buildIndex(next)
	return removed, nil
}

// Backup writes the current document to destPath.
func (s *JSONStore) Backup(_ context.Context, destPath string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := writeDocument(destPath, s.records); err != nil {
		return fmt.Errorf("backing up metadata: %w", err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

var _ docs.Store = (*JSONStore)(nil)
