// Package annotate turns raw classifier findings into merged, run-scoped
// evidence entries with a per-sentence coverage index.
package annotate

import (
	"encoding/json"

	"storycurator/internal/textproc"
)

// SpanRef decodes a classifier span reference that may arrive as a single
// tag number or as a list. Malformed shapes decode to an empty span rather
// than failing the surrounding payload.
type SpanRef []int

func (s *SpanRef) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = nil
		return nil
	}
	*s = SpanRef(textproc.NormalizeSpan(raw))
	return nil
}

// Candidate is one classifier finding, validated and defaulted at the JSON
// boundary before it reaches aggregation.
type Candidate struct {
	// Label names the finding: an issue type or a skill name.
	Label string
	// Ref is an opaque source identifier carried through aggregation,
	// e.g. a skill id. Empty when the finding has none.
	Ref string
	// Category is the display category the finding belongs to.
	Category string
	// Severity is set for safety findings and empty otherwise.
	Severity   string
	Confidence float64
	Rationale  string
	// Span holds the normalized, sorted sentence ids the finding cites.
	Span []int
}
