package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/audit"
)

func TestRenderProducesPDF(t *testing.T) {
	card := Scorecard{
		Title:        "KPI Bonus Scorecard",
		EmployeeName: "Alice Employee",
		Period:       "2026-H1",
		Status:       "completed",
		Rows: []ScorecardRow{
			{Name: "Revenue growth", Weight: 60, Achievement: "90.00", Contribution: 54},
			{Name: "Delivery quality", Weight: 40, Achievement: "80.00", Contribution: 32},
		},
		TotalScore: 86,
		History: []audit.Entry{
			{Action: "Submitted", ActorName: "Alice Employee", ActorRole: "employee", CreatedAt: time.Now()},
			{Action: "Approved", ActorName: "Carol Approver", ActorRole: "approver", Comments: "well done", CreatedAt: time.Now()},
		},
	}

	pdf, err := Render(card)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("expected non-empty output")
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected PDF header, got %q", pdf[:8])
	}
}

func TestRenderWithoutHistory(t *testing.T) {
	pdf, err := Render(Scorecard{Title: "KPI Merit Scorecard", EmployeeName: "Bob", Period: "2026", Status: "draft"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("expected PDF header")
	}
}
