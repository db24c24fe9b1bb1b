package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storycurator/internal/annotate"
)

func TestSeverityPolicy_Styles(t *testing.T) {
	p := SeverityPolicy()

	tests := []struct {
		severity string
		color    string
		class    string
	}{
		{"Critical", "#d32f2f", "flag-critical"},
		{"High", "#ff6b6b", "flag-high"},
		{"Medium", "#ffa726", "flag-medium"},
		{"Low", "#fff59d", "flag-low"},
		{"Bogus", "#fff59d", "flag-low"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			st := p.StyleFor(annotate.Entry{Severity: tt.severity})
			assert.Equal(t, tt.color, st.Color)
			assert.Equal(t, tt.class, st.Class)
		})
	}
}

func TestSeverityPolicy_Titles(t *testing.T) {
	p := SeverityPolicy()
	e := annotate.Entry{Severity: "High", Label: "Violence"}

	assert.Equal(t, "High: Violence", p.Title(e))
	assert.Equal(t,
		"Multiple issues - High: Violence; Low: Scary Theme",
		p.MultipleTitle([]annotate.Entry{e, {Severity: "Low", Label: "Scary Theme"}}),
	)
}

func TestCategoryPolicy_Styles(t *testing.T) {
	p := CategoryPolicy()

	tests := []struct {
		category string
		color    string
		class    string
	}{
		{"Decoding", "#3498db", "skill-decoding"},
		{"Comprehension", "#27ae60", "skill-comprehension"},
		{"Vocabulary", "#e74c3c", "skill-vocabulary"},
		{"Knowledge", "#f39c12", "skill-knowledge"},
		{"Fluency", "#9b59b6", "skill-fluency"},
		{"Unknown", "#95a5a6", "skill-unknown"},
		{"Nonsense", "#95a5a6", "skill-unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			st := p.StyleFor(annotate.Entry{Category: tt.category})
			assert.Equal(t, tt.color, st.Color)
			assert.Equal(t, tt.class, st.Class)
		})
	}
}

func TestCategoryPolicy_Titles(t *testing.T) {
	p := CategoryPolicy()
	e := annotate.Entry{Category: "Comprehension", Label: "Character Analysis", Confidence: 0.9}

	assert.Equal(t, "Comprehension: Character Analysis (confidence: 0.90)", p.Title(e))
	assert.Equal(t,
		"Multiple skills - Comprehension: Character Analysis; Vocabulary: Figurative Language",
		p.MultipleTitle([]annotate.Entry{e, {Category: "Vocabulary", Label: "Figurative Language", Confidence: 0.7}}),
	)
}

func TestNeutralMultipleStyle(t *testing.T) {
	assert.Equal(t, Style{Color: "#9e9e9e", Class: "flag-multiple"}, SeverityPolicy().MultipleStyle())
	assert.Equal(t, Style{Color: "#9e9e9e", Class: "skill-multiple"}, CategoryPolicy().MultipleStyle())
}

func TestSeverityRank(t *testing.T) {
	assert.Equal(t, 4, SeverityRank("Critical"))
	assert.Equal(t, 3, SeverityRank("High"))
	assert.Equal(t, 2, SeverityRank("Medium"))
	assert.Equal(t, 1, SeverityRank("Low"))
	assert.Equal(t, 0, SeverityRank("whatever"))
	assert.True(t, SeverityRank("Critical") > SeverityRank("High"))
}

func TestConfidenceLevel(t *testing.T) {
	assert.Equal(t, "high", ConfidenceLevel(0.8))
	assert.Equal(t, "high", ConfidenceLevel(0.95))
	assert.Equal(t, "medium", ConfidenceLevel(0.6))
	assert.Equal(t, "medium", ConfidenceLevel(0.79))
	assert.Equal(t, "low", ConfidenceLevel(0.59))
	assert.Equal(t, "low", ConfidenceLevel(0))
}
