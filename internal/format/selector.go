package format

import (
	"fmt"

	"github.com/takahara/redmine-issues-mcp/internal/redmine"
)

// SelectionResult is a reduced issue plus warnings for selection requests
// that could not be honored. Consumed immediately by the formatter.
type SelectionResult struct {
	Issue    redmine.Issue
	Warnings []string
}

// SelectFields reduces an issue according to the policy. The core identity
// fields always survive; each optional group is copied only when the policy
// enables it and the source value is present. Missing source data is a
// silent omission, never a warning; the exception is explicitly requested
// custom field names, which warn when not found or empty.
func SelectFields(issue redmine.Issue, policy SelectionPolicy) SelectionResult {
	reduced := redmine.Issue{
		ID:        issue.ID,
		Subject:   issue.Subject,
		Project:   issue.Project,
		Tracker:   issue.Tracker,
		Status:    issue.Status,
		Priority:  issue.Priority,
		Author:    issue.Author,
		DoneRatio: issue.DoneRatio,
	}

	if policy.Assignee && issue.AssignedTo != nil {
		reduced.AssignedTo = issue.AssignedTo
	}
	if policy.Category && issue.Category != nil {
		reduced.Category = issue.Category
	}
	if policy.Version && issue.FixedVersion != nil {
		reduced.FixedVersion = issue.FixedVersion
	}

	if policy.Dates {
		reduced.CreatedOn = issue.CreatedOn
		reduced.UpdatedOn = issue.UpdatedOn
		if issue.StartDate != "" {
			reduced.StartDate = issue.StartDate
		}
		if issue.DueDate != "" {
			reduced.DueDate = issue.DueDate
		}
		if issue.ClosedOn != "" {
			reduced.ClosedOn = issue.ClosedOn
		}
	}

	if policy.TimeTracking {
		// Pointer copies keep a genuine zero distinguishable from absent.
		reduced.EstimatedHours = issue.EstimatedHours
		reduced.SpentHours = issue.SpentHours
	}

	// Selection only gates whether the raw description is forwarded; the
	// truncated variant is applied by the formatter at render time.
	if policy.Description != DescriptionDisabled && issue.Description != "" {
		reduced.Description = issue.Description
	}

	// Journals and relations pass through untrimmed; list limiting happens
	// at render time.
	if policy.Journals {
		reduced.Journals = issue.Journals
	}
	if policy.Relations {
		reduced.Relations = issue.Relations
	}
	if policy.Attachments {
		reduced.Attachments = issue.Attachments
	}

	var warnings []string
	switch policy.CustomFields {
	case CustomFieldsAll:
		reduced.CustomFields = nonEmptyCustomFields(issue.CustomFields)
	case CustomFieldsNamed:
		reduced.CustomFields, warnings = selectNamedCustomFields(issue.CustomFields, policy.CustomFieldNames)
	}

	return SelectionResult{Issue: reduced, Warnings: warnings}
}

func nonEmptyCustomFields(fields []redmine.CustomField) []redmine.CustomField {
	var kept []redmine.CustomField
	for _, f := range fields {
		if customFieldHasValue(f) {
			kept = append(kept, f)
		}
	}
	return kept
}

// selectNamedCustomFields keeps requested fields in request order and warns
// for each name that is missing or resolves to an empty value.
func selectNamedCustomFields(fields []redmine.CustomField, names []string) ([]redmine.CustomField, []string) {
	var kept []redmine.CustomField
	var warnings []string

	for _, name := range names {
		found := false
		for _, f := range fields {
			if f.Name != name {
				continue
			}
			found = true
			if customFieldHasValue(f) {
				kept = append(kept, f)
			} else {
				found = false
			}
			break
		}
		if !found {
			warnings = append(warnings, fmt.Sprintf("Custom field %q not found or empty", name))
		}
	}

	return kept, warnings
}
