// Package projection derives the per-project document tables shown to users
// from the flat list of stored FileRecords.
package projection

import (
	"fmt"
	"path"
	"strings"
	"time"

	"pidvault/internal/docs"
)

// DocType is the coarse classification used for icons and viewers.
type DocType string

const (
	TypePDF   DocType = "PDF"
	TypeImage DocType = "Image"
	TypeOther DocType = "Other"
)

// Processing statuses reported for a drawing by the analysis workflow.
const (
	StatusApproved    = "approved"
	StatusSuccess     = "success"
	StatusNeedApprove = "need_approve"
	StatusFailure     = "failure"
)

// StatusMap maps FileRecord.ID to its processing status. Missing ids are
// unprocessed.
type StatusMap map[string]string

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "bmp": true, "webp": true,
}

// Buckets holds records split by category, each in input order.
type Buckets struct {
	PID       []*docs.FileRecord
	Reference []*docs.FileRecord
}

// Partition splits records by category. A record with no category counts as
// pid. Records with any other category are left out of both buckets.
func Partition(records []*docs.FileRecord) Buckets {
	b := Buckets{PID: []*docs.FileRecord{}, Reference: []*docs.FileRecord{}}
	for _, r := range records {
		switch r.Category {
		case docs.CategoryPID, "":
			b.PID = append(b.PID, r)
		case docs.CategoryReference:
			b.Reference = append(b.Reference, r)
		}
	}
	return b
}

// Classify decides the DocType of a record. The MIME type wins when present;
// otherwise the name's extension is used.
func Classify(r *docs.FileRecord) DocType {
	mime := strings.ToLower(r.MimeType)
	if mime == "" && r.Name != "" {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(r.Name), "."))
		if ext == "pdf" {
			return TypePDF
		}
		if imageExtensions[ext] {
			return TypeImage
		}
	}
	switch {
	case strings.Contains(mime, "pdf"):
		return TypePDF
	case strings.Contains(mime, "image"):
		return TypeImage
	}
	return TypeOther
}

// FormatSize renders a byte count as "0 KB", "N B", "N.N KB" or "N.NN MB".
func FormatSize(size int64) string {
	switch {
	case size <= 0:
		return "0 KB"
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
}

// FormatDate renders a unix-millisecond timestamp as DD/MM/YYYY in loc, or
// "N/A" when unset.
func FormatDate(unixMilli int64, loc *time.Location) string {
	if unixMilli == 0 {
		return "N/A"
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(unixMilli).In(loc).Format("02/01/2006")
}

// StatusLabel maps a processing status to its display label.
func StatusLabel(status string) string {
	switch status {
	case StatusApproved:
		return "Approved"
	case StatusSuccess:
		return "Processed"
	case StatusNeedApprove:
		return "Need to approve"
	}
	return "Not processed"
}

// Viewable reports whether a drawing has results that can be opened.
func Viewable(status string) bool {
	switch status {
	case StatusApproved, StatusSuccess, StatusNeedApprove:
		return true
	}
	return false
}

// Row is one line of a document table.
type Row struct {
	ID           string  `json:"id"`
	SerialNo     int     `json:"serialNo"`
	Name         string  `json:"name"`
	Type         DocType `json:"type"`
	Size         string  `json:"size"`
	LastModified string  `json:"lastModified"`
	URL          string  `json:"url"`
	Status       string  `json:"status,omitempty"`
	Viewable     bool    `json:"viewable,omitempty"`
}

// Projection is the complete per-project view: subject drawings carry a
// processing status, reference documents do not.
type Projection struct {
	Subject   []Row `json:"subject"`
	Reference []Row `json:"reference"`
}

// Build partitions records and renders both tables. Serial numbers restart
// at 1 in each table.
func Build(records []*docs.FileRecord, statuses StatusMap, loc *time.Location) Projection {
	b := Partition(records)
	p := Projection{
		Subject:   make([]Row, 0, len(b.PID)),
		Reference: make([]Row, 0, len(b.Reference)),
	}
	for i, r := range b.PID {
		row := newRow(i, r, loc)
		status := statuses[r.ID]
		row.Status = StatusLabel(status)
		row.Viewable = Viewable(status)
		p.Subject = append(p.Subject, row)
	}
	for i, r := range b.Reference {
		p.Reference = append(p.Reference, newRow(i, r, loc))
	}
	return p
}

func newRow(i int, r *docs.FileRecord, loc *time.Location) Row {
	name := r.Name
	if name == "" {
		name = "N/A"
	}
	return Row{
		ID:           r.ID,
		SerialNo:     i + 1,
		Name:         name,
		Type:         Classify(r),
		Size:         FormatSize(r.Size),
		LastModified: FormatDate(r.UploadedAt, loc),
		URL:          r.URL,
	}
}
