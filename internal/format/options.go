package format

import (
	"log/slog"
	"strings"
)

// DetailLevel selects between the full and brief renderings
type DetailLevel string

const (
	DetailFull  DetailLevel = "full"
	DetailBrief DetailLevel = "brief"
)

const (
	DefaultMaxDescriptionLength = 200
	MinDescriptionLength        = 50
	MaxDescriptionLength        = 1000

	DefaultMaxJournalEntries = 3
	MaxJournalEntries        = 10
)

// Options is the per-request formatting configuration. It is built once from
// caller arguments and never persisted.
type Options struct {
	DetailLevel          DetailLevel
	Policy               *SelectionPolicy // nil means the consumer's default applies
	MaxDescriptionLength int
	MaxJournalEntries    int
}

// DefaultOptions returns the configuration used when the caller supplies
// nothing: full detail with default length bounds.
func DefaultOptions() Options {
	return Options{
		DetailLevel:          DetailFull,
		MaxDescriptionLength: DefaultMaxDescriptionLength,
		MaxJournalEntries:    DefaultMaxJournalEntries,
	}
}

// ParseOptions coerces untyped caller arguments into a bounded Options value.
// It never fails: malformed values are dropped and defaults kept, with parse
// failures of brief_fields reported through logger only.
func ParseOptions(args map[string]any, logger *slog.Logger) Options {
	opts := DefaultOptions()
	if args == nil {
		return opts
	}
	if logger == nil {
		logger = slog.Default()
	}

	if v, ok := args["detail_level"].(string); ok {
		if strings.EqualFold(v, string(DetailBrief)) {
			opts.DetailLevel = DetailBrief
		}
	}

	// brief_fields is accepted only as a JSON-encoded string; anything that
	// fails to parse leaves the policy unset.
	if v, ok := args["brief_fields"].(string); ok && v != "" {
		policy, err := ParsePolicy(v)
		if err != nil {
			logger.Warn("ignoring malformed brief_fields", "error", err)
		} else {
			opts.Policy = &policy
		}
	}

	if n, ok := numericArg(args["max_description_length"]); ok {
		opts.MaxDescriptionLength = clamp(n, MinDescriptionLength, MaxDescriptionLength)
	}

	if n, ok := numericArg(args["max_journal_entries"]); ok {
		opts.MaxJournalEntries = clamp(n, 0, MaxJournalEntries)
	}

	return opts
}

// numericArg accepts the numeric shapes JSON decoding can produce. Strings
// and other types fail closed.
func numericArg(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
