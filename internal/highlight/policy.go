// Package highlight renders annotated stories as inline-styled HTML, with
// conflict handling for sentences claimed by more than one finding.
package highlight

import (
	"fmt"
	"strings"

	"storycurator/internal/annotate"
)

// Style is one display treatment for a highlighted sentence.
type Style struct {
	Color string
	Class string
}

// Policy maps evidence entries to styles and human-readable titles. It is
// plain immutable data: the overlay renderer stays a pure function of the
// coverage index and the policy it is handed.
type Policy struct {
	styles         map[string]Style
	fallback       Style
	multiple       Style
	multiplePrefix string
	key            func(annotate.Entry) string
	title          func(annotate.Entry) string
	describe       func(annotate.Entry) string
}

// StyleFor returns the style keyed by the entry, or the policy fallback.
func (p Policy) StyleFor(e annotate.Entry) Style {
	if s, ok := p.styles[p.key(e)]; ok {
		return s
	}
	return p.fallback
}

// Title builds the hover title for a sentence covered by a single entry.
func (p Policy) Title(e annotate.Entry) string {
	return p.title(e)
}

// MultipleStyle is the neutral treatment for sentences covered by two or
// more entries, distinct from every per-key style.
func (p Policy) MultipleStyle() Style {
	return p.multiple
}

// MultipleTitle lists every covering entry's description in coverage
// order, joined by "; ".
func (p Policy) MultipleTitle(entries []annotate.Entry) string {
	descriptions := make([]string, len(entries))
	for i, e := range entries {
		descriptions[i] = p.describe(e)
	}
	return p.multiplePrefix + strings.Join(descriptions, "; ")
}

// SeverityPolicy styles safety findings by severity level. Unrecognized
// severities take the Low treatment.
func SeverityPolicy() Policy {
	return Policy{
		styles: map[string]Style{
			"Critical": {Color: "#d32f2f", Class: "flag-critical"},
			"High":     {Color: "#ff6b6b", Class: "flag-high"},
			"Medium":   {Color: "#ffa726", Class: "flag-medium"},
			"Low":      {Color: "#fff59d", Class: "flag-low"},
		},
		fallback:       Style{Color: "#fff59d", Class: "flag-low"},
		multiple:       Style{Color: "#9e9e9e", Class: "flag-multiple"},
		multiplePrefix: "Multiple issues - ",
		key:            func(e annotate.Entry) string { return e.Severity },
		title: func(e annotate.Entry) string {
			return fmt.Sprintf("%s: %s", e.Severity, e.Label)
		},
		describe: func(e annotate.Entry) string {
			return fmt.Sprintf("%s: %s", e.Severity, e.Label)
		},
	}
}

// CategoryPolicy styles skill findings by reading-skill category.
// Unrecognized categories take the Unknown treatment.
func CategoryPolicy() Policy {
	return Policy{
		styles: map[string]Style{
			"Decoding":      {Color: "#3498db", Class: "skill-decoding"},
			"Comprehension": {Color: "#27ae60", Class: "skill-comprehension"},
			"Vocabulary":    {Color: "#e74c3c", Class: "skill-vocabulary"},
			"Knowledge":     {Color: "#f39c12", Class: "skill-knowledge"},
			"Fluency":       {Color: "#9b59b6", Class: "skill-fluency"},
			"Unknown":       {Color: "#95a5a6", Class: "skill-unknown"},
		},
		fallback:       Style{Color: "#95a5a6", Class: "skill-unknown"},
		multiple:       Style{Color: "#9e9e9e", Class: "skill-multiple"},
		multiplePrefix: "Multiple skills - ",
		key:            func(e annotate.Entry) string { return e.Category },
		title: func(e annotate.Entry) string {
			return fmt.Sprintf("%s: %s (confidence: %.2f)", e.Category, e.Label, e.Confidence)
		},
		describe: func(e annotate.Entry) string {
			return fmt.Sprintf("%s: %s", e.Category, e.Label)
		},
	}
}

// SeverityRank orders severity levels for comparison; unknown levels rank
// below Low.
func SeverityRank(severity string) int {
	switch severity {
	case "Critical":
		return 4
	case "High":
		return 3
	case "Medium":
		return 2
	case "Low":
		return 1
	default:
		return 0
	}
}

// ConfidenceLevel buckets a confidence score for display.
func ConfidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.6:
		return "medium"
	default:
		return "low"
	}
}
