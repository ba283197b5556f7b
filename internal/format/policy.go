package format

import (
	"encoding/json"
	"fmt"
)

// DescriptionMode controls how the description field is carried in brief mode
type DescriptionMode int

const (
	DescriptionDisabled DescriptionMode = iota
	DescriptionFull
	DescriptionTruncated
)

// CustomFieldsMode controls which custom fields are carried in brief mode
type CustomFieldsMode int

const (
	CustomFieldsDisabled CustomFieldsMode = iota
	CustomFieldsAll
	CustomFieldsNamed
)

// SelectionPolicy decides which optional field groups survive brief-mode
// selection. Constructed once per request and not mutated afterwards.
type SelectionPolicy struct {
	Assignee     bool
	Dates        bool
	Category     bool
	Version      bool
	TimeTracking bool
	Journals     bool
	Relations    bool
	Attachments  bool

	Description DescriptionMode

	CustomFields     CustomFieldsMode
	CustomFieldNames []string // meaningful only when CustomFields is CustomFieldsNamed
}

// DefaultBriefPolicy is the selection applied when brief mode is requested
// without an explicit brief_fields argument: assignee and dates on,
// description truncated, everything else off.
func DefaultBriefPolicy() SelectionPolicy {
	return SelectionPolicy{
		Assignee:    true,
		Dates:       true,
		Description: DescriptionTruncated,
	}
}

// policyJSON is the caller-facing wire shape of brief_fields. Booleans toggle
// scalar groups; description additionally accepts "full"/"truncated" and
// custom_fields additionally accepts a list of field names.
type policyJSON struct {
	Assignee     *bool           `json:"assignee"`
	Dates        *bool           `json:"dates"`
	Category     *bool           `json:"category"`
	Version      *bool           `json:"version"`
	TimeTracking *bool           `json:"time_tracking"`
	Journals     *bool           `json:"journals"`
	Relations    *bool           `json:"relations"`
	Attachments  *bool           `json:"attachments"`
	Description  json.RawMessage `json:"description"`
	CustomFields json.RawMessage `json:"custom_fields"`
}

// ParsePolicy decodes a JSON-encoded brief_fields value into a
// SelectionPolicy. Groups absent from the JSON stay disabled; description
// defaults to disabled as well. Invalid variant values are an error, not a
// silent false.
func ParsePolicy(raw string) (SelectionPolicy, error) {
	var wire policyJSON
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return SelectionPolicy{}, fmt.Errorf("invalid brief_fields JSON: %w", err)
	}

	policy := SelectionPolicy{
		Assignee:     boolValue(wire.Assignee),
		Dates:        boolValue(wire.Dates),
		Category:     boolValue(wire.Category),
		Version:      boolValue(wire.Version),
		TimeTracking: boolValue(wire.TimeTracking),
		Journals:     boolValue(wire.Journals),
		Relations:    boolValue(wire.Relations),
		Attachments:  boolValue(wire.Attachments),
	}

	var err error
	if policy.Description, err = parseDescriptionMode(wire.Description); err != nil {
		return SelectionPolicy{}, err
	}
	if policy.CustomFields, policy.CustomFieldNames, err = parseCustomFieldsMode(wire.CustomFields); err != nil {
		return SelectionPolicy{}, err
	}

	return policy, nil
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func parseDescriptionMode(raw json.RawMessage) (DescriptionMode, error) {
	if len(raw) == 0 {
		return DescriptionDisabled, nil
	}

	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err == nil {
		if enabled {
			return DescriptionFull, nil
		}
		return DescriptionDisabled, nil
	}

	var mode string
	if err := json.Unmarshal(raw, &mode); err == nil {
		switch mode {
		case "full":
			return DescriptionFull, nil
		case "truncated":
			return DescriptionTruncated, nil
		default:
			return DescriptionDisabled, fmt.Errorf("invalid description mode %q (want \"full\" or \"truncated\")", mode)
		}
	}

	return DescriptionDisabled, fmt.Errorf("invalid description value %s (want boolean or \"full\"/\"truncated\")", string(raw))
}

func parseCustomFieldsMode(raw json.RawMessage) (CustomFieldsMode, []string, error) {
	if len(raw) == 0 {
		return CustomFieldsDisabled, nil, nil
	}

	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err == nil {
		if enabled {
			return CustomFieldsAll, nil, nil
		}
		return CustomFieldsDisabled, nil, nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		if len(names) == 0 {
			return CustomFieldsDisabled, nil, nil
		}
		return CustomFieldsNamed, names, nil
	}

	return CustomFieldsDisabled, nil, fmt.Errorf("invalid custom_fields value %s (want boolean or list of field names)", string(raw))
}
