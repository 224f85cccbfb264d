package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/audit"
)

// ScorecardRow is one weighted line of a scorecard table.
type ScorecardRow struct {
	Name         string
	Weight       float64
	Achievement  string
	Contribution float64
}

// Scorecard is the printable projection of an evaluation record.
type Scorecard struct {
	Title        string
	EmployeeName string
	Period       string
	Status       string
	Rows         []ScorecardRow
	TotalScore   float64
	History      []audit.Entry
}

// Render produces the scorecard as a PDF document.
func Render(card Scorecard) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, card.Title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", card.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", card.Period))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", card.Status))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(90, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Weight %", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Achievement", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Score", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range card.Rows {
		pdf.CellFormat(90, 7, row.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.2f", row.Weight), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, row.Achievement, "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", row.Contribution), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total score: %.2f", card.TotalScore))
	pdf.Ln(12)

	if len(card.History) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Approval history")
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 10)
		for _, entry := range card.History {
			line := fmt.Sprintf("%s  %s by %s (%s)", entry.CreatedAt.Format(time.RFC3339), entry.Action, entry.ActorName, entry.ActorRole)
			if entry.Comments != "" {
				line += " - " + entry.Comments
			}
			pdf.Cell(0, 6, line)
			pdf.Ln(6)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
