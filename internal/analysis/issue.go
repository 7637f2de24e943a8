// Package analysis talks to the external drawing-analysis service and
// manages the review of the issues it reports.
package analysis

import (
	"fmt"
	"strings"
)

// Approval decisions a reviewer can record for an issue.
const (
	ApprovalNone        = "Not"
	ApprovalApproved    = "Approved"
	ApprovalNotApproved = "Not Approved"
	ApprovalIgnored     = "Ignored"
)

// Review statuses derived from the approval.
const (
	StatusPending = "Pending"
	StatusGreen   = "Green"
	StatusRed     = "Red"
	StatusGrey    = "Grey"
)

// Issue is one finding reported for a drawing.
type Issue struct {
	ID             int    `json:"id"`
	PIDNumber      string `json:"pidNumber"`
	IssueFound     string `json:"issueFound"`
	ActionRequired string `json:"actionRequired"`
	Approval       string `json:"approval"`
	Remark         string `json:"remark"`
	Status         string `json:"status"`
}

func newIssue(id int, pidNumber, found, action string) Issue {
	return Issue{
		ID:             id,
		PIDNumber:      pidNumber,
		IssueFound:     found,
		ActionRequired: action,
		Approval:       ApprovalNone,
		Status:         StatusPending,
	}
}

// SetApproval records a decision on the issue with id and updates its status.
func SetApproval(issues []Issue, id int, approval string) error {
	i, err := indexOf(issues, id)
	if err != nil {
		return err
	}
	issues[i].Approval = approval
	switch approval {
	case ApprovalApproved:
		issues[i].Status = StatusGreen
	case ApprovalNotApproved:
		issues[i].Status = StatusRed
	default:
		issues[i].Status = StatusGrey
	}
	return nil
}

// SetRemark replaces the reviewer's remark on the issue with id.
func SetRemark(issues []Issue, id int, remark string) error {
	i, err := indexOf(issues, id)
	if err != nil {
		return err
	}
	issues[i].Remark = remark
	return nil
}

func indexOf(issues []Issue, id int) (int, error) {
	for i := range issues {
		if issues[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("issue %d not found", id)
}

// approvalDisplay is the approval as printed in exported reports.
func approvalDisplay(approval string) string {
	switch approval {
	case ApprovalApproved:
		return "APPROVED"
	case ApprovalIgnored:
		return "IGNORED"
	}
	return "PENDING"
}

// remarkDisplay hides remarks of approved issues in printed reports.
func remarkDisplay(is Issue) string {
	if is.Approval == ApprovalApproved {
		return "No remark needed"
	}
	if strings.TrimSpace(is.Remark) == "" {
		return "No remark"
	}
	return is.Remark
}
