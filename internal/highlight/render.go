package highlight

import (
	"fmt"
	"html"
	"strings"

	"storycurator/internal/annotate"
	"storycurator/internal/textproc"
)

// Render rebuilds the document sentence by sentence, wrapping covered
// sentences in styled spans. Uncovered sentences pass through as plain
// text; sentences covered by a single entry take that entry's style; any
// further coverage collapses into the policy's neutral multiple style.
// Fragments are joined by single spaces in document order.
func Render(mapping []textproc.Sentence, coverage map[int][]annotate.Entry, policy Policy) string {
	parts := make([]string, 0, len(mapping))
	for _, sentence := range mapping {
		covering := coverage[sentence.ID]
		switch len(covering) {
		case 0:
			parts = append(parts, html.EscapeString(sentence.Text))
		case 1:
			parts = append(parts, span(policy.StyleFor(covering[0]), policy.Title(covering[0]), sentence.Text))
		default:
			parts = append(parts, span(policy.MultipleStyle(), policy.MultipleTitle(covering), sentence.Text))
		}
	}
	return strings.Join(parts, " ")
}

func span(st Style, title, text string) string {
	return fmt.Sprintf(
		`<span class="%s" style="background-color: %s; padding: 2px 4px; border-radius: 3px;" title="%s">%s</span>`,
		st.Class, st.Color, html.EscapeString(title), html.EscapeString(text),
	)
}
