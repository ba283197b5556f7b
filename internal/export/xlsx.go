// Package export renders issue lists as XLSX workbooks.
package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/takahara/redmine-issues-mcp/internal/format"
	"github.com/takahara/redmine-issues-mcp/internal/redmine"
)

const sheetName = "Issues"

var headers = []string{
	"ID", "Subject", "Project", "Tracker", "Status", "Priority",
	"Author", "Assigned To", "Progress", "Start Date", "Due Date",
	"Custom Fields", "Created On", "Updated On",
}

// BuildIssueWorkbook creates a single-sheet workbook with one row per issue.
// Custom fields are collapsed into one summary column.
func BuildIssueWorkbook(issues []redmine.Issue) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, issue := range issues {
		assignedTo := ""
		if issue.AssignedTo != nil {
			assignedTo = issue.AssignedTo.Name
		}

		row := []any{
			issue.ID,
			issue.Subject,
			issue.Project.Name,
			issue.Tracker.Name,
			issue.Status.Name,
			issue.Priority.Name,
			issue.Author.Name,
			assignedTo,
			strconv.Itoa(issue.DoneRatio) + "%",
			issue.StartDate,
			issue.DueDate,
			format.SummarizeCustomFields(issue.CustomFields, 5),
			issue.CreatedOn,
			issue.UpdatedOn,
		}

		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}

	return f, nil
}

// IssueWorkbookBytes is BuildIssueWorkbook serialized to the XLSX container
func IssueWorkbookBytes(issues []redmine.Issue) ([]byte, error) {
	f, err := BuildIssueWorkbook(issues)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
