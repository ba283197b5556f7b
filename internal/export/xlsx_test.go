package export

import (
	"bytes"
	"testing"

	"github.com/takahara/redmine-issues-mcp/internal/redmine"
)

func TestBuildIssueWorkbook(t *testing.T) {
	issues := []redmine.Issue{
		{
			ID:       1,
			Subject:  "First",
			Project:  redmine.IDName{ID: 1, Name: "Proj"},
			Tracker:  redmine.IDName{ID: 1, Name: "Bug"},
			Status:   redmine.IDName{ID: 1, Name: "New"},
			Priority: redmine.IDName{ID: 2, Name: "Normal"},
			Author:   redmine.IDName{ID: 3, Name: "Admin"},
			CustomFields: []redmine.CustomField{
				{ID: 1, Name: "Severity", Value: "High"},
			},
		},
		{
			ID:         2,
			Subject:    "Second",
			Project:    redmine.IDName{ID: 1, Name: "Proj"},
			Tracker:    redmine.IDName{ID: 2, Name: "Feature"},
			Status:     redmine.IDName{ID: 2, Name: "Closed"},
			Priority:   redmine.IDName{ID: 2, Name: "Normal"},
			Author:     redmine.IDName{ID: 3, Name: "Admin"},
			AssignedTo: &redmine.IDName{ID: 4, Name: "Lee"},
			DoneRatio:  100,
		},
	}

	f, err := BuildIssueWorkbook(issues)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = f.Close() }()

	if got, _ := f.GetCellValue("Issues", "A1"); got != "ID" {
		t.Errorf("A1 = %q, want ID", got)
	}
	if got, _ := f.GetCellValue("Issues", "B2"); got != "First" {
		t.Errorf("B2 = %q, want First", got)
	}
	if got, _ := f.GetCellValue("Issues", "L2"); got != "Severity: High" {
		t.Errorf("L2 = %q, want custom field summary", got)
	}
	if got, _ := f.GetCellValue("Issues", "H3"); got != "Lee" {
		t.Errorf("H3 = %q, want assignee", got)
	}
	if got, _ := f.GetCellValue("Issues", "I3"); got != "100%" {
		t.Errorf("I3 = %q, want 100%%", got)
	}
}

func TestIssueWorkbookBytes(t *testing.T) {
	data, err := IssueWorkbookBytes(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// XLSX containers are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Errorf("expected zip container, got leading bytes %q", data[:2])
	}
}
