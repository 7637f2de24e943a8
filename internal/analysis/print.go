package analysis

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"
)

//go:embed templates/print.html
var printSource string

var printTemplate = template.Must(template.New("print").Parse(printSource))

// Summary counts issues by review decision. Issues rejected with
// ApprovalNotApproved fall in none of the buckets.
type Summary struct {
	Approved int
	Ignored  int
	Pending  int
}

func summaryCounts(issues []Issue) Summary {
	var s Summary
	for _, is := range issues {
		switch is.Approval {
		case ApprovalApproved:
			s.Approved++
		case ApprovalIgnored:
			s.Ignored++
		case ApprovalNone, "", StatusPending:
			s.Pending++
		}
	}
	return s
}

type printRow struct {
	PIDNumber      string
	IssueFound     string
	ActionRequired string
	Approved       bool
	Ignored        bool
	Remark         string
	RemarkMuted    bool
	Status         string
	Badge          string
}

type printView struct {
	Title     string
	Generated string
	Rows      []printRow
	Summary   Summary
}

// statusBadge picks the colour class of the status pill.
func statusBadge(is Issue) string {
	switch is.Approval {
	case ApprovalApproved:
		return "approved"
	case ApprovalIgnored:
		return "ignored"
	case ApprovalNone, "":
		return "pending"
	}
	return "other"
}

// WriteHTML writes a self-contained print view of issues, laid out for
// landscape A4. All issue text is escaped.
func WriteHTML(w io.Writer, issues []Issue, title string, now time.Time) error {
	view := printView{
		Title:     title,
		Generated: now.Format("02/01/2006 at 15:04:05"),
		Rows:      make([]printRow, 0, len(issues)),
		Summary:   summaryCounts(issues),
	}
	for _, is := range issues {
		view.Rows = append(view.Rows, printRow{
			PIDNumber:      is.PIDNumber,
			IssueFound:     is.IssueFound,
			ActionRequired: is.ActionRequired,
			Approved:       is.Approval == ApprovalApproved,
			Ignored:        is.Approval == ApprovalIgnored,
			Remark:         remarkDisplay(is),
			RemarkMuted:    is.Approval == ApprovalApproved || strings.TrimSpace(is.Remark) == "",
			Status:         is.Status,
			Badge:          statusBadge(is),
		})
	}
	if err := printTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("rendering print view: %w", err)
	}
	return nil
}
