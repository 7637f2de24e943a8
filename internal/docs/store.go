package docs

import "context"

// Store holds the authoritative set of FileRecords.
// Implementations must preserve append order and be safe for concurrent use.
type Store interface {
	// All returns every record in insertion order.
	All(ctx context.Context) ([]*FileRecord, error)

	// ListByProject returns records whose ProjectID equals projectID exactly,
	// in insertion order. An unmatched projectID yields an empty slice.
	ListByProject(ctx context.Context, projectID string) ([]*FileRecord, error)

	// Get returns the record with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*FileRecord, error)

	// Append adds records as one batch and persists them.
	// If any id already exists the batch is rejected with ErrDuplicateID.
	Append(ctx context.Context, records ...*FileRecord) error

	// Delete removes the record with the given id and persists the change.
	// Returns ErrNotFound if no such record exists.
	Delete(ctx context.Context, id string) (*FileRecord, error)

	// Close releases underlying resources.
	Close() error
}
