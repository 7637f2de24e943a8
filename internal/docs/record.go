package docs

import (
	"fmt"
	"time"
)

// Category classifies an uploaded file within a project.
type Category string

const (
	// CategoryPID marks a subject drawing that is to be processed.
	CategoryPID Category = "pid"
	// CategoryReference marks supporting material.
	CategoryReference Category = "reference"
)

// DefaultCategory is applied to uploads without a category and to legacy records.
const DefaultCategory = CategoryPID

// CurrentSchemaVersion is the record layout written by this binary.
// Version 0 is the legacy layout in which category may be absent.
const CurrentSchemaVersion = 1

// ParseCategory normalizes a client-supplied category.
// An empty value yields DefaultCategory.
func ParseCategory(raw string) (Category, error) {
	switch Category(raw) {
	case "":
		return DefaultCategory, nil
	case CategoryPID, CategoryReference:
		return Category(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
	}
}

// FileRecord is the metadata of one uploaded artifact.
// JSON field names match the persisted document and the HTTP responses.
type FileRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Size          int64    `json:"size"`
	MimeType      string   `json:"type"`
	URL           string   `json:"url"`
	UploadedAt    int64    `json:"lastModified"` // unix milliseconds
	ProjectID     string   `json:"projectId"`
	Category      Category `json:"category,omitempty"`
	SchemaVersion int      `json:"schemaVersion,omitempty"`
}

// UploadedTime returns UploadedAt as a time.Time in UTC.
func (r *FileRecord) UploadedTime() time.Time {
	return time.UnixMilli(r.UploadedAt).UTC()
}

// MigrateRecord upgrades a record to CurrentSchemaVersion in place.
// It reports whether anything changed so callers can decide to rewrite storage.
// An empty category is backfilled whatever version the record claims.
func MigrateRecord(r *FileRecord) bool {
	changed := false
	if r.Category == "" {
		r.Category = DefaultCategory
		changed = true
	}
	if r.SchemaVersion < 1 {
		r.SchemaVersion = 1
		changed = true
	}
	return changed
}
