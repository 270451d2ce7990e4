package leave

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"leavelite/internal/apperror"
)

// WriteDecisionSlip renders a one-page PDF recording the outcome of a resolved request.
func WriteDecisionSlip(w io.Writer, req LeaveRequest) error {
	if !req.Status.Terminal() {
		return apperror.Conflict("leave request has not been resolved")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Leave decision "+req.ID, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave decision")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	employee := req.UserName
	if req.UserEmail != "" {
		employee = fmt.Sprintf("%s <%s>", req.UserName, req.UserEmail)
	}
	lines := []string{
		fmt.Sprintf("Request: %s", req.ID),
		fmt.Sprintf("Employee: %s", employee),
		fmt.Sprintf("Period: %s to %s (%d days)", req.StartDate.Format(DateLayout), req.EndDate.Format(DateLayout), req.Days),
		fmt.Sprintf("Status: %s", req.Status),
	}
	if req.ResolvedAt != nil {
		lines = append(lines, fmt.Sprintf("Decided: %s", req.ResolvedAt.UTC().Format("2006-01-02 15:04 MST")))
	}
	for _, line := range lines {
		pdf.Cell(0, 8, tr(line))
		pdf.Ln(7)
	}

	pdf.Ln(3)
	pdf.MultiCell(0, 7, "Reason: "+tr(req.Reason), "", "L", false)
	if req.AdminComment != "" {
		pdf.MultiCell(0, 7, "Comment: "+tr(req.AdminComment), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("render slip: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
