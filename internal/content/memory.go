package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"pidvault/internal/docs"
)

// MemoryStore is an in-memory ContentStore for tests and type=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	if !docs.ValidStorageName(name) {
		return 0, fmt.Errorf("%w: %q", docs.ErrInvalidName, name)
	}
	data, err := io.ReadAll(contextReader{ctx: ctx, r: r})
	if err != nil {
		return int64(len(data)), fmt.Errorf("reading content: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = data
	return int64(len(data)), nil
}

func (s *MemoryStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[name]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", name, docs.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) ValidateSetup() error { return nil }

var _ docs.ContentStore = (*MemoryStore)(nil)
