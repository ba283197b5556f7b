// Package format shapes Redmine issue data into the fixed XML text layout
// consumed by LLM agents, including the brief-mode field selection and
// truncation policy.
package format

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/takahara/redmine-issues-mcp/internal/redmine"
)

const (
	ellipsis = "..."

	// Notes inside limited journal lists are cut to this length.
	maxJournalNoteLength = 100

	maxSummaryValueLength = 50
)

var (
	lineBreakRuns = regexp.MustCompile(`\n{3,}`)
	htmlTags      = regexp.MustCompile(`<[^>]*>`)
)

// Truncate cuts text to at most maxLength runes and appends an ellipsis.
// When the last whitespace inside the cut falls in the final 20% of the
// prefix, the cut moves there so the trailing word is not split. Text that
// already fits is returned unchanged.
func Truncate(text string, maxLength int) string {
	if maxLength <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	// Reserve room for the marker so the result never exceeds maxLength;
	// that keeps repeated truncation at the same limit a no-op.
	cut := maxLength - len(ellipsis)
	if cut <= 0 {
		cut = maxLength
	}

	prefix := runes[:cut]
	lastSpace := -1
	for i, r := range prefix {
		if unicode.IsSpace(r) {
			lastSpace = i
		}
	}

	if lastSpace >= maxLength*8/10 {
		prefix = prefix[:lastSpace]
	}

	return string(prefix) + ellipsis
}

// TruncateDescription normalizes line endings to LF, collapses runs of three
// or more line breaks down to two, trims surrounding whitespace and then
// truncates. Always returns a string; empty input yields "".
func TruncateDescription(text string, maxLength int) string {
	if text == "" {
		return ""
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = lineBreakRuns.ReplaceAllString(normalized, "\n\n")
	normalized = strings.TrimSpace(normalized)

	return Truncate(normalized, maxLength)
}

// LimitJournalEntries keeps the trailing maxEntries journals (callers supply
// them in chronological-ascending order, so the tail is the most recent) and
// truncates each entry's notes. maxEntries <= 0 yields an empty slice.
func LimitJournalEntries(journals []redmine.Journal, maxEntries int) []redmine.Journal {
	if maxEntries <= 0 || len(journals) == 0 {
		return nil
	}

	if len(journals) > maxEntries {
		journals = journals[len(journals)-maxEntries:]
	}

	limited := make([]redmine.Journal, len(journals))
	for i, j := range journals {
		limited[i] = j
		limited[i].Notes = Truncate(j.Notes, maxJournalNoteLength)
	}
	return limited
}

// StripHTMLTags removes tag spans, decodes the five standard entities plus
// non-breaking spaces, and trims the result.
func StripHTMLTags(text string) string {
	stripped := htmlTags.ReplaceAllString(text, "")

	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&amp;", "&",
	)
	return strings.TrimSpace(replacer.Replace(stripped))
}

// SummarizeCustomFields renders the first maxFields non-empty custom fields
// as a single "name: value; name: value" line. Values are truncated to 50
// characters; list values are joined with ", " beforehand. Returns "" when
// nothing is left after filtering.
func SummarizeCustomFields(fields []redmine.CustomField, maxFields int) string {
	var entries []string
	for _, f := range fields {
		if !customFieldHasValue(f) {
			continue
		}
		entries = append(entries, f.Name+": "+Truncate(customFieldValueString(f.Value), maxSummaryValueLength))
		if len(entries) == maxFields {
			break
		}
	}
	return strings.Join(entries, "; ")
}

// customFieldHasValue reports whether a custom field carries a usable value:
// non-nil, and either a string that trims non-empty or a non-empty list with
// at least one element that trims non-empty.
func customFieldHasValue(f redmine.CustomField) bool {
	switch v := f.Value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return true
			}
		}
		return false
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// customFieldValueString flattens a custom field value to display text
func customFieldValueString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	default:
		return ""
	}
}
