package format

import (
	"strings"
	"testing"

	"github.com/takahara/redmine-issues-mcp/internal/redmine"
)

func minimalIssue() redmine.Issue {
	return redmine.Issue{
		ID:        1001,
		Subject:   "Simple test issue",
		Project:   redmine.IDName{ID: 1, Name: "Test Project"},
		Tracker:   redmine.IDName{ID: 1, Name: "Bug"},
		Status:    redmine.IDName{ID: 1, Name: "New"},
		Priority:  redmine.IDName{ID: 2, Name: "Normal"},
		Author:    redmine.IDName{ID: 3, Name: "Admin"},
		DoneRatio: 0,
		CreatedOn: "2024-01-01T10:00:00Z",
		UpdatedOn: "2024-01-01T10:00:00Z",
	}
}

func TestFormatIssue_FullMinimal(t *testing.T) {
	out := FormatIssue(minimalIssue(), nil)

	for _, tag := range []string{
		"<id>1001</id>",
		"<subject>Simple test issue</subject>",
		"<project>Test Project</project>",
		"<tracker>Bug</tracker>",
		"<status>New</status>",
		"<priority>Normal</priority>",
		"<author>Admin</author>",
	} {
		if !strings.Contains(out, tag) {
			t.Errorf("output missing %s:\n%s", tag, out)
		}
	}

	if strings.Contains(out, "<custom_fields>") {
		t.Error("absent custom fields must not produce a tag")
	}
	if strings.Contains(out, "<description>") {
		t.Error("absent description must not produce a tag")
	}
	if strings.Contains(out, "<assigned_to>") {
		t.Error("absent assignee must not produce a tag")
	}
	if !strings.Contains(out, "<progress>0%</progress>") {
		t.Error("done_ratio 0 should still render as progress")
	}
}

func TestFormatIssue_FullPopulated(t *testing.T) {
	issue := sampleIssue()
	out := FormatIssue(issue, nil)

	checks := []string{
		"<assigned_to>Lee Park</assigned_to>",
		"<category>Backend</category>",
		"<version>2.1</version>",
		"<start_date>2024-03-01</start_date>",
		"<due_date>2024-03-15</due_date>",
		"<progress>30%</progress>",
		"<estimated_hours>8</estimated_hours>",
		"<spent_hours>0</spent_hours>",
		"<description>It crashes.\n\nEvery time.</description>",
		"<name>Component</name>", // full mode shows empty custom fields too
		"<value>auth, login</value>",
		"<notes>first</notes>",
		"<notes>second</notes>",
		`<relation id="1" issue_id="42" issue_to_id="43" type="blocks"/>`,
		"<created_on>2024-03-01T09:00:00Z</created_on>",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<warnings>") {
		t.Error("full mode must not emit warnings")
	}
}

func TestFormatIssue_Escaping(t *testing.T) {
	issue := minimalIssue()
	issue.Subject = `<b>"bold" & 'loud'</b>`
	out := FormatIssue(issue, nil)

	if !strings.Contains(out, "<subject>&lt;b&gt;&quot;bold&quot; &amp; &#39;loud&#39;&lt;/b&gt;</subject>") {
		t.Errorf("reserved characters not escaped:\n%s", out)
	}
}

func TestFormatIssue_BriefDefaultPolicy(t *testing.T) {
	issue := sampleIssue()
	opts := DefaultOptions()
	opts.DetailLevel = DetailBrief

	out := FormatIssue(issue, &opts)

	if !strings.Contains(out, "<assigned_to>Lee Park</assigned_to>") {
		t.Error("default brief policy keeps the assignee")
	}
	if !strings.Contains(out, "<start_date>") || !strings.Contains(out, "<created_on>") {
		t.Error("default brief policy keeps dates")
	}
	if !strings.Contains(out, "<description>") {
		t.Error("default brief policy keeps a truncated description")
	}
	if strings.Contains(out, "<journals>") {
		t.Error("journals are off by default in brief mode")
	}
	if strings.Contains(out, "<custom_fields>") {
		t.Error("custom fields are off by default in brief mode")
	}
	if strings.Contains(out, "<category>") || strings.Contains(out, "<version>") {
		t.Error("category and version are off by default in brief mode")
	}
}

func TestFormatIssue_BriefShorterThanFull(t *testing.T) {
	issue := sampleIssue()
	issue.Description = strings.Repeat("A very long description. ", 50)

	full := FormatIssue(issue, nil)

	opts := DefaultOptions()
	opts.DetailLevel = DetailBrief
	brief := FormatIssue(issue, &opts)

	if len(brief) >= len(full)/2 {
		t.Errorf("brief output (%d) should be under half of full output (%d)", len(brief), len(full))
	}
}

func TestFormatIssue_BriefDescriptionTruncation(t *testing.T) {
	issue := sampleIssue()
	issue.Description = strings.Repeat("word ", 100)

	policy := DefaultBriefPolicy()
	opts := Options{
		DetailLevel:          DetailBrief,
		Policy:               &policy,
		MaxDescriptionLength: 50,
		MaxJournalEntries:    3,
	}
	out := FormatIssue(issue, &opts)

	start := strings.Index(out, "<description>")
	end := strings.Index(out, "</description>")
	if start < 0 || end < 0 {
		t.Fatalf("description missing:\n%s", out)
	}
	desc := out[start+len("<description>") : end]
	if len([]rune(desc)) > 50 {
		t.Errorf("description not truncated to 50: %d runes", len([]rune(desc)))
	}
	if !strings.HasSuffix(desc, "...") {
		t.Errorf("expected ellipsis, got %q", desc)
	}
}

func TestFormatIssue_BriefDescriptionStripsMarkup(t *testing.T) {
	issue := sampleIssue()
	issue.Description = "<p>Steps to &amp; reproduce</p>"

	opts := DefaultOptions()
	opts.DetailLevel = DetailBrief
	out := FormatIssue(issue, &opts)

	if !strings.Contains(out, "<description>Steps to &amp; reproduce</description>") {
		t.Errorf("expected markup-free description:\n%s", out)
	}
	if strings.Contains(out, "&lt;p&gt;") {
		t.Error("markup leaked into truncated description")
	}
}

func TestFormatIssue_BriefFullDescriptionKeepsMarkup(t *testing.T) {
	issue := sampleIssue()
	issue.Description = "<p>verbatim</p>"

	policy := DefaultBriefPolicy()
	policy.Description = DescriptionFull
	opts := DefaultOptions()
	opts.DetailLevel = DetailBrief
	opts.Policy = &policy

	out := FormatIssue(issue, &opts)
	if !strings.Contains(out, "<description>&lt;p&gt;verbatim&lt;/p&gt;</description>") {
		t.Errorf("full-description policy must not strip markup:\n%s", out)
	}
}

func TestFormatIssue_BriefFullDescription(t *testing.T) {
	issue := sampleIssue()
	issue.Description = strings.Repeat("verbatim ", 60)

	policy := DefaultBriefPolicy()
	policy.Description = DescriptionFull
	opts := Options{
		DetailLevel:          DetailBrief,
		Policy:               &policy,
		MaxDescriptionLength: 50,
		MaxJournalEntries:    3,
	}
	out := FormatIssue(issue, &opts)

	if !strings.Contains(out, issue.Description) {
		t.Error("full description mode must render verbatim")
	}
}

func TestFormatIssue_BriefJournalLimit(t *testing.T) {
	issue := sampleIssue()
	issue.Journals = nil
	for i := 1; i <= 5; i++ {
		issue.Journals = append(issue.Journals, redmine.Journal{
			ID:        i,
			User:      redmine.IDName{ID: 1, Name: "User"},
			Notes:     "entry",
			CreatedOn: "2024-03-02T10:00:00Z",
		})
	}

	policy := DefaultBriefPolicy()
	policy.Journals = true
	opts := Options{
		DetailLevel:          DetailBrief,
		Policy:               &policy,
		MaxDescriptionLength: 200,
		MaxJournalEntries:    2,
	}
	out := FormatIssue(issue, &opts)

	if strings.Contains(out, "<id>3</id>") {
		t.Error("entry 3 should have been dropped")
	}
	pos4 := strings.Index(out, "<id>4</id>")
	pos5 := strings.Index(out, "<id>5</id>")
	if pos4 < 0 || pos5 < 0 {
		t.Fatalf("expected entries 4 and 5:\n%s", out)
	}
	if pos4 > pos5 {
		t.Error("entries out of order")
	}
}

func TestFormatIssue_BriefWarnings(t *testing.T) {
	issue := sampleIssue()
	policy := DefaultBriefPolicy()
	policy.CustomFields = CustomFieldsNamed
	policy.CustomFieldNames = []string{"Severity", "MissingField"}

	opts := DefaultOptions()
	opts.DetailLevel = DetailBrief
	opts.Policy = &policy

	out := FormatIssue(issue, &opts)

	if !strings.Contains(out, "<name>Severity</name>") {
		t.Error("requested existing field missing from output")
	}
	if !strings.Contains(out, "<warning>Custom field &quot;MissingField&quot; not found or empty</warning>") {
		t.Errorf("expected escaped warning:\n%s", out)
	}
}

func TestFormatIssues(t *testing.T) {
	t.Run("wraps issues with pagination attributes", func(t *testing.T) {
		resp := &redmine.IssuesResponse{
			Issues:     []redmine.Issue{minimalIssue(), sampleIssue()},
			TotalCount: 57,
			Offset:     25,
			Limit:      25,
		}
		out := FormatIssues(resp, nil)

		if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
			t.Error("missing XML declaration")
		}
		if !strings.Contains(out, `<issues type="array" total_count="57" offset="25" limit="25">`) {
			t.Errorf("missing wrapper attributes:\n%s", out)
		}
		if strings.Count(out, "<issue>") != 2 {
			t.Errorf("expected 2 issue elements, got %d", strings.Count(out, "<issue>"))
		}
		if !strings.HasSuffix(out, "</issues>") {
			t.Error("missing closing wrapper")
		}
	})

	t.Run("empty response yields self-closed element", func(t *testing.T) {
		for _, resp := range []*redmine.IssuesResponse{nil, {}, {TotalCount: 9}} {
			out := FormatIssues(resp, nil)
			if !strings.Contains(out, `<issues type="array" total_count="0" offset="0" limit="0"/>`) {
				t.Errorf("expected empty-collection element, got:\n%s", out)
			}
		}
	})
}

func TestBuildTextFilterQuery(t *testing.T) {
	t.Run("single subject filter", func(t *testing.T) {
		values := BuildTextFilterQuery(TextFilters{Subject: "foo"})

		fields := values["f[]"]
		if len(fields) != 1 || fields[0] != "subject" {
			t.Errorf("expected f[]=[subject], got %v", fields)
		}
		if op := values.Get("op[subject]"); op != "~" {
			t.Errorf("expected contains operator, got %q", op)
		}
		if v := values["v[subject][]"]; len(v) != 1 || v[0] != "foo" {
			t.Errorf("expected value foo, got %v", v)
		}
	})

	t.Run("whitespace-only filters are skipped entirely", func(t *testing.T) {
		values := BuildTextFilterQuery(TextFilters{Subject: "  "})
		if len(values) != 0 {
			t.Errorf("expected no entries, got %v", values)
		}
	})

	t.Run("multiple filters share the field directive", func(t *testing.T) {
		values := BuildTextFilterQuery(TextFilters{Subject: "foo", Notes: "bar", Description: " "})

		fields := values["f[]"]
		if len(fields) != 2 || fields[0] != "subject" || fields[1] != "notes" {
			t.Errorf("expected [subject notes], got %v", fields)
		}
		if values.Get("op[description]") != "" {
			t.Error("blank description filter must not register an operator")
		}
		if values.Get("v[notes][]") != "bar" {
			t.Errorf("expected notes value bar, got %q", values.Get("v[notes][]"))
		}
	})

	t.Run("values are trimmed", func(t *testing.T) {
		values := BuildTextFilterQuery(TextFilters{Subject: "  hello  "})
		if values.Get("v[subject][]") != "hello" {
			t.Errorf("expected trimmed value, got %q", values.Get("v[subject][]"))
		}
	})
}
