package format

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/takahara/redmine-issues-mcp/internal/redmine"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escape(s string) string {
	return xmlEscaper.Replace(s)
}

// FormatIssue renders one issue in the fixed XML tag layout. A nil opts or
// full detail level renders every present field with no truncation or
// limiting; brief mode renders the reduced record produced by SelectFields.
func FormatIssue(issue redmine.Issue, opts *Options) string {
	if opts == nil || opts.DetailLevel != DetailBrief {
		return renderFull(issue)
	}

	policy := DefaultBriefPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}

	result := SelectFields(issue, policy)
	return renderBrief(result, policy, *opts)
}

// FormatIssues wraps a list response in an enclosing element carrying the
// pagination attributes. A nil or empty response yields a self-closed
// element with zero counts.
func FormatIssues(resp *redmine.IssuesResponse, opts *Options) string {
	if resp == nil || len(resp.Issues) == 0 {
		return xmlHeader + "\n" + `<issues type="array" total_count="0" offset="0" limit="0"/>`
	}

	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString("\n")
	fmt.Fprintf(&b, `<issues type="array" total_count="%d" offset="%d" limit="%d">`,
		resp.TotalCount, resp.Offset, resp.Limit)
	b.WriteString("\n")

	for _, issue := range resp.Issues {
		b.WriteString(FormatIssue(issue, opts))
		b.WriteString("\n")
	}

	b.WriteString("</issues>")
	return b.String()
}

// TextFilters are the free-text "contains" filters for issue lists
type TextFilters struct {
	Subject     string
	Description string
	Notes       string
}

// BuildTextFilterQuery translates text filters into Redmine filter triplets:
// an f[] entry naming each active field, op[<field>]=~ and v[<field>][] with
// the search text. Empty and whitespace-only filters are skipped. The result
// is meant to be merged into an existing query, not to replace it.
func BuildTextFilterQuery(filters TextFilters) url.Values {
	values := url.Values{}

	add := func(field, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		values.Add("f[]", field)
		values.Set("op["+field+"]", "~")
		values.Add("v["+field+"][]", text)
	}

	add("subject", filters.Subject)
	add("description", filters.Description)
	add("notes", filters.Notes)

	return values
}

func renderFull(issue redmine.Issue) string {
	var b strings.Builder
	b.WriteString("<issue>\n")

	writeCore(&b, issue)

	if issue.AssignedTo != nil {
		writeTag(&b, "assigned_to", issue.AssignedTo.Name)
	}
	if issue.Category != nil {
		writeTag(&b, "category", issue.Category.Name)
	}
	if issue.FixedVersion != nil {
		writeTag(&b, "version", issue.FixedVersion.Name)
	}
	if issue.StartDate != "" {
		writeTag(&b, "start_date", issue.StartDate)
	}
	if issue.DueDate != "" {
		writeTag(&b, "due_date", issue.DueDate)
	}

	fmt.Fprintf(&b, "  <progress>%d%%</progress>\n", issue.DoneRatio)

	if issue.EstimatedHours != nil {
		writeTag(&b, "estimated_hours", formatHours(*issue.EstimatedHours))
	}
	if issue.SpentHours != nil {
		writeTag(&b, "spent_hours", formatHours(*issue.SpentHours))
	}

	if issue.Description != "" {
		writeTag(&b, "description", issue.Description)
	}

	// Full mode shows every custom field, empty ones included.
	writeCustomFields(&b, issue.CustomFields)
	writeJournals(&b, issue.Journals)
	writeRelations(&b, issue.Relations)
	writeAttachments(&b, issue.Attachments)

	writeTag(&b, "created_on", issue.CreatedOn)
	writeTag(&b, "updated_on", issue.UpdatedOn)
	if issue.ClosedOn != "" {
		writeTag(&b, "closed_on", issue.ClosedOn)
	}

	b.WriteString("</issue>")
	return b.String()
}

func renderBrief(result SelectionResult, policy SelectionPolicy, opts Options) string {
	issue := result.Issue

	var b strings.Builder
	b.WriteString("<issue>\n")

	writeCore(&b, issue)

	if issue.AssignedTo != nil {
		writeTag(&b, "assigned_to", issue.AssignedTo.Name)
	}
	if issue.Category != nil {
		writeTag(&b, "category", issue.Category.Name)
	}
	if issue.FixedVersion != nil {
		writeTag(&b, "version", issue.FixedVersion.Name)
	}
	if issue.StartDate != "" {
		writeTag(&b, "start_date", issue.StartDate)
	}
	if issue.DueDate != "" {
		writeTag(&b, "due_date", issue.DueDate)
	}

	fmt.Fprintf(&b, "  <progress>%d%%</progress>\n", issue.DoneRatio)

	if issue.EstimatedHours != nil {
		writeTag(&b, "estimated_hours", formatHours(*issue.EstimatedHours))
	}
	if issue.SpentHours != nil {
		writeTag(&b, "spent_hours", formatHours(*issue.SpentHours))
	}

	if issue.Description != "" {
		desc := issue.Description
		if policy.Description == DescriptionTruncated {
			// Markup eats into the truncation limit; full mode and the
			// full-description policy keep the source text verbatim.
			desc = TruncateDescription(StripHTMLTags(desc), opts.MaxDescriptionLength)
		}
		if desc != "" {
			writeTag(&b, "description", desc)
		}
	}

	if policy.CustomFields != CustomFieldsDisabled && len(issue.CustomFields) > 0 {
		writeCustomFields(&b, issue.CustomFields)
	}
	if policy.Journals {
		writeJournals(&b, LimitJournalEntries(issue.Journals, opts.MaxJournalEntries))
	}
	if policy.Relations {
		writeRelations(&b, issue.Relations)
	}
	if policy.Attachments {
		writeAttachments(&b, issue.Attachments)
	}

	if issue.CreatedOn != "" {
		writeTag(&b, "created_on", issue.CreatedOn)
	}
	if issue.UpdatedOn != "" {
		writeTag(&b, "updated_on", issue.UpdatedOn)
	}
	if issue.ClosedOn != "" {
		writeTag(&b, "closed_on", issue.ClosedOn)
	}

	if len(result.Warnings) > 0 {
		b.WriteString("  <warnings>\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "    <warning>%s</warning>\n", escape(w))
		}
		b.WriteString("  </warnings>\n")
	}

	b.WriteString("</issue>")
	return b.String()
}

// writeCore emits the identity fields that every rendering carries
func writeCore(b *strings.Builder, issue redmine.Issue) {
	writeTag(b, "id", strconv.Itoa(issue.ID))
	writeTag(b, "subject", issue.Subject)
	writeTag(b, "project", issue.Project.Name)
	writeTag(b, "tracker", issue.Tracker.Name)
	writeTag(b, "status", issue.Status.Name)
	writeTag(b, "priority", issue.Priority.Name)
	writeTag(b, "author", issue.Author.Name)
}

func writeTag(b *strings.Builder, tag, value string) {
	fmt.Fprintf(b, "  <%s>%s</%s>\n", tag, escape(value), tag)
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func writeCustomFields(b *strings.Builder, fields []redmine.CustomField) {
	if len(fields) == 0 {
		return
	}
	b.WriteString("  <custom_fields>\n")
	for _, f := range fields {
		b.WriteString("    <field>\n")
		fmt.Fprintf(b, "      <id>%d</id>\n", f.ID)
		fmt.Fprintf(b, "      <name>%s</name>\n", escape(f.Name))
		fmt.Fprintf(b, "      <value>%s</value>\n", escape(customFieldValueString(f.Value)))
		b.WriteString("    </field>\n")
	}
	b.WriteString("  </custom_fields>\n")
}

func writeJournals(b *strings.Builder, journals []redmine.Journal) {
	if len(journals) == 0 {
		return
	}
	b.WriteString("  <journals>\n")
	for _, j := range journals {
		b.WriteString("    <journal>\n")
		fmt.Fprintf(b, "      <id>%d</id>\n", j.ID)
		fmt.Fprintf(b, "      <user>%s</user>\n", escape(j.User.Name))
		fmt.Fprintf(b, "      <created_on>%s</created_on>\n", escape(j.CreatedOn))
		if j.PrivateNotes {
			b.WriteString("      <private_notes>true</private_notes>\n")
		}
		if j.Notes != "" {
			fmt.Fprintf(b, "      <notes>%s</notes>\n", escape(j.Notes))
		}
		if len(j.Details) > 0 {
			b.WriteString("      <details>\n")
			for _, d := range j.Details {
				fmt.Fprintf(b, "        <detail property=%q name=%q old_value=%q new_value=%q/>\n",
					escape(d.Property), escape(d.Name), escape(d.OldValue), escape(d.NewValue))
			}
			b.WriteString("      </details>\n")
		}
		b.WriteString("    </journal>\n")
	}
	b.WriteString("  </journals>\n")
}

func writeRelations(b *strings.Builder, relations []redmine.Relation) {
	if len(relations) == 0 {
		return
	}
	b.WriteString("  <relations>\n")
	for _, r := range relations {
		fmt.Fprintf(b, "    <relation id=\"%d\" issue_id=\"%d\" issue_to_id=\"%d\" type=%q",
			r.ID, r.IssueID, r.IssueToID, escape(r.RelationType))
		if r.Delay != 0 {
			fmt.Fprintf(b, " delay=\"%d\"", r.Delay)
		}
		b.WriteString("/>\n")
	}
	b.WriteString("  </relations>\n")
}

func writeAttachments(b *strings.Builder, attachments []redmine.Attachment) {
	if len(attachments) == 0 {
		return
	}
	b.WriteString("  <attachments>\n")
	for _, a := range attachments {
		b.WriteString("    <attachment>\n")
		fmt.Fprintf(b, "      <id>%d</id>\n", a.ID)
		fmt.Fprintf(b, "      <filename>%s</filename>\n", escape(a.Filename))
		fmt.Fprintf(b, "      <filesize>%d</filesize>\n", a.Filesize)
		if a.ContentType != "" {
			fmt.Fprintf(b, "      <content_type>%s</content_type>\n", escape(a.ContentType))
		}
		if a.Description != "" {
			fmt.Fprintf(b, "      <description>%s</description>\n", escape(a.Description))
		}
		fmt.Fprintf(b, "      <author>%s</author>\n", escape(a.Author.Name))
		fmt.Fprintf(b, "      <created_on>%s</created_on>\n", escape(a.CreatedOn))
		b.WriteString("    </attachment>\n")
	}
	b.WriteString("  </attachments>\n")
}
