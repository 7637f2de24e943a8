package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"pidvault/internal/docs"
)

// FileSystemStore keeps each object as a plain file directly under root, so
// the directory can be served or inspected without the application.
type FileSystemStore struct {
	root   string
	ignore []string
}

// NewFileSystemStore creates the root directory if needed. Entries matching
// any of the ignore glob patterns (e.g. a metadata document sharing the
// directory) are hidden from List.
func NewFileSystemStore(root string, ignore ...string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating content directory: %w", err)
	}
	for _, pattern := range ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
	}
	return &FileSystemStore{root: root, ignore: ignore}, nil
}

// Root returns the content directory.
func (s *FileSystemStore) Root() string { return s.root }

// Put writes r to a temp file in root and renames it over name.
func (s *FileSystemStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	if !docs.ValidStorageName(name) {
		return 0, fmt.Errorf("%w: %q", docs.ErrInvalidName, name)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err != nil {
		tmp.Close()
		return written, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return written, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.root, name)); err != nil {
		return written, fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return written, nil
}

func (s *FileSystemStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !docs.ValidStorageName(name) {
		return nil, fmt.Errorf("%w: %q", docs.ErrInvalidName, name)
	}
	f, err := os.Open(filepath.Join(s.root, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("content %s: %w", name, docs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

func (s *FileSystemStore) Remove(_ context.Context, name string) error {
	if !docs.ValidStorageName(name) {
		return fmt.Errorf("%w: %q", docs.ErrInvalidName, name)
	}
	err := os.Remove(filepath.Join(s.root, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// List returns regular files under root, sorted, skipping temp files and
// ignored names.
func (s *FileSystemStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading content directory: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !docs.ValidStorageName(e.Name()) || s.ignored(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileSystemStore) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// ValidateSetup verifies that root is a writable directory.
func (s *FileSystemStore) ValidateSetup() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("content root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("content root is not a directory: %s", s.root)
	}
	probe, err := os.CreateTemp(s.root, ".tmp-probe-*")
	if err != nil {
		return fmt.Errorf("content root not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

var _ docs.ContentStore = (*FileSystemStore)(nil)

// contextReader stops a copy once ctx is done, e.g. when a client disconnects
// mid-upload.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
