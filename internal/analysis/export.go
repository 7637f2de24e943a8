package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

// Format is an issue report output format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// SheetName is the worksheet holding exported issues.
const SheetName = "P&ID Analysis"

var reportHeaders = []string{"P&ID Number", "Issue Found", "Action Required", "Approval", "Remark", "Status"}

// ParseFormat accepts "xlsx", "csv", "pdf" or "html".
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(raw)); f {
	case FormatXLSX, FormatCSV, FormatPDF, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// FileName returns the download name, e.g. PID_Analysis_Results_2024-01-15.xlsx.
func FileName(f Format, now time.Time) string {
	return fmt.Sprintf("PID_Analysis_Results_%s.%s", now.Format("2006-01-02"), f)
}

// Export renders issues in format f. title names the source drawing in the
// PDF and HTML headers and is ignored by the other formats.
func Export(w io.Writer, f Format, issues []Issue, title string, now time.Time) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, issues)
	case FormatCSV:
		return WriteCSV(w, issues)
	case FormatPDF:
		return WritePDF(w, issues, title, now)
	case FormatHTML:
		return WriteHTML(w, issues, title, now)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// WriteXLSX writes a workbook with one sheet of issues. Remarks of approved
// issues are left blank.
func WriteXLSX(w io.Writer, issues []Issue) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(reportHeaders))
	for i, h := range reportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, is := range issues {
		remark := is.Remark
		if is.Approval == ApprovalApproved {
			remark = ""
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{is.PIDNumber, is.IssueFound, is.ActionRequired, is.Approval, remark, is.Status}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	widths := []float64{20, 50, 50, 15, 40, 15}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("setting width of %s: %w", col, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WriteCSV writes a header line and one record per issue.
func WriteCSV(w io.Writer, issues []Issue) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeaders); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, is := range issues {
		rec := []string{is.PIDNumber, is.IssueFound, is.ActionRequired, is.Approval, is.Remark, is.Status}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv row %d: %w", is.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var pdfColumnWidths = []float64{35, 70, 70, 30, 40, 22}

const pdfLineHeight = 5.0

// WritePDF writes a landscape A4 report with a header, a table of issues
// and the review summary counts.
func WritePDF(w io.Writer, issues []Issue, title string, now time.Time) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Text(15, 20, "P&ID Analysis Results")
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(15, 30, tr(fmt.Sprintf("Generated on: %s", now.Format("02/01/2006 at 15:04:05"))))
	pdf.Text(15, 36, fmt.Sprintf("Total Issues: %d", len(issues)))
	pdf.Text(15, 42, tr("Document: "+title))
	pdf.SetY(50)

	headers := append([]string(nil), reportHeaders...)
	headers[3] = "Approval Status"
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(pdfColumnWidths[i], 8, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for n, is := range issues {
		cells := []string{
			is.PIDNumber,
			is.IssueFound,
			is.ActionRequired,
			approvalDisplay(is.Approval),
			remarkDisplay(is),
			strings.ToUpper(is.Status),
		}
		writePDFRow(pdf, tr, cells, n%2 == 1)
	}
	writePDFSummary(pdf, summaryCounts(issues))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

func writePDFSummary(pdf *fpdf.Fpdf, s Summary) {
	_, pageHeight := pdf.GetPageSize()
	left, _, _, bottom := pdf.GetMargins()
	y := pdf.GetY() + 15
	if y+8 > pageHeight-bottom {
		pdf.AddPage()
		_, top, _, _ := pdf.GetMargins()
		y = top + 5
	}

	pdf.SetTextColor(55, 65, 81)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(left, y, "Summary:")
	pdf.SetFont("Helvetica", "", 9)
	pdf.Text(left, y+8, fmt.Sprintf("Approved: %d", s.Approved))
	pdf.Text(left+55, y+8, fmt.Sprintf("Ignored: %d", s.Ignored))
	pdf.Text(left+105, y+8, fmt.Sprintf("Pending: %d", s.Pending))
}

// writePDFRow draws one table row whose height fits the tallest wrapped cell.
func writePDFRow(pdf *fpdf.Fpdf, tr func(string) string, cells []string, shaded bool) {
	lines := 1
	for i, c := range cells {
		if n := len(pdf.SplitText(tr(c), pdfColumnWidths[i]-2)); n > lines {
			lines = n
		}
	}
	height := float64(lines)*pdfLineHeight + 2

	_, pageHeight := pdf.GetPageSize()
	left, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+height > pageHeight-bottom {
		pdf.AddPage()
	}

	if shaded {
		pdf.SetFillColor(245, 245, 245)
	} else {
		pdf.SetFillColor(255, 255, 255)
	}
	x, y := pdf.GetXY()
	for i, c := range cells {
		width := pdfColumnWidths[i]
		pdf.Rect(x, y, width, height, "FD")
		pdf.SetXY(x+1, y+1)
		pdf.MultiCell(width-2, pdfLineHeight, tr(c), "", "L", false)
		x += width
	}
	pdf.SetXY(left, y+height)
}
