package docs

import (
	"context"
	"io"
)

// ContentStore holds the bytes of uploaded files, keyed by FileRecord.ID.
// Operations stream through io.Reader so large drawings are never buffered whole.
type ContentStore interface {
	// Put stores everything read from r under name and returns the number of
	// bytes consumed from r. An existing object with the same name is replaced.
	Put(ctx context.Context, name string, r io.Reader) (int64, error)

	// Open returns a reader for the named object or an error wrapping ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Remove deletes the named object. A missing object is not an error.
	Remove(ctx context.Context, name string) error

	// List returns the names of all stored objects.
	List(ctx context.Context) ([]string, error)

	// ValidateSetup verifies that the backend is reachable and writable.
	ValidateSetup() error
}
