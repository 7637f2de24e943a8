package docs

import "errors"

var (
	// ErrNotFound is returned when a record or content object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoFiles is returned when an upload carries zero file parts.
	ErrNoFiles = errors.New("no files uploaded")
	// ErrInvalidCategory is returned for categories other than pid and reference.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrDuplicateID is returned by a Store when an appended id already exists.
	ErrDuplicateID = errors.New("duplicate file id")
	// ErrInvalidName is returned for storage names that are not plain base names.
	ErrInvalidName = errors.New("invalid storage name")
)
