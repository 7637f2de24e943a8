package docs

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator derives storage ids for uploaded files.
type IDGenerator interface {
	// New returns the preferred id for a file named name ingested at t.
	New(name string, t time.Time) string
	// Disambiguate returns an alternative id used when New collides.
	Disambiguate(name string, t time.Time) string
}

// TimestampIDGenerator produces "<unix-ms>-<name>" ids, falling back to
// "<unix-ms>-<8 hex>-<name>" on collision.
type TimestampIDGenerator struct{}

func (TimestampIDGenerator) New(name string, t time.Time) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), name)
}

func (TimestampIDGenerator) Disambiguate(name string, t time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%d-%s-%s", t.UnixMilli(), suffix, name)
}

// SanitizeName reduces a client-supplied filename to a safe base name.
// Directory components and separators are stripped; an empty result becomes "file".
func SanitizeName(raw string) string {
	name := strings.ReplaceAll(raw, "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '/' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// ValidStorageName reports whether name can be used as a content object key.
func ValidStorageName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return !strings.HasPrefix(name, ".tmp-")
}
