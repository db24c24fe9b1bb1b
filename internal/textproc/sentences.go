// Package textproc segments story text into stably numbered sentences and
// resolves classifier span references back into sentence text.
package textproc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Sentence is one segmented sentence with its 1-based position.
type Sentence struct {
	ID   int
	Text string
}

var (
	tagMarker = regexp.MustCompile(`<tag\d+>`)
	tagPair   = regexp.MustCompile(`(?s)<tag(\d+)>(.*?)</tag\d+>`)
)

// Indexer segments raw text into tagged, stably numbered sentences.
type Indexer struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewIndexer loads the English sentence tokenizer.
func NewIndexer() (*Indexer, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}
	return &Indexer{tokenizer: tokenizer}, nil
}

// Split segments text into trimmed, non-empty sentences in document order.
func (ix *Indexer) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := ix.tokenizer.Tokenize(text)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Tag wraps each sentence of text in <tagN>...</tagN> markers, N counting
// from 1 in document order, joined by single spaces. Already-tagged text is
// returned unchanged.
func (ix *Indexer) Tag(text string) string {
	if tagMarker.MatchString(text) {
		return text
	}
	parts := ix.Split(text)
	tagged := make([]string, len(parts))
	for i, s := range parts {
		tagged[i] = fmt.Sprintf("<tag%d>%s</tag%d>", i+1, s, i+1)
	}
	return strings.Join(tagged, " ")
}

// Mapping recovers every (id, text) pair from text in document order,
// tagging it first when no markers are present.
func (ix *Indexer) Mapping(text string) []Sentence {
	tagged := text
	if !tagMarker.MatchString(tagged) {
		tagged = ix.Tag(tagged)
	}
	matches := tagPair.FindAllStringSubmatch(tagged, -1)
	out := make([]Sentence, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, Sentence{ID: id, Text: strings.TrimSpace(m[2])})
	}
	return out
}

// ExtractSentence returns the sentence text carrying the given tag number,
// or "" when the tagged text has no such marker.
func ExtractSentence(tagged string, id int) string {
	for _, m := range tagPair.FindAllStringSubmatch(tagged, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n != id {
			continue
		}
		return strings.TrimSpace(m[2])
	}
	return ""
}
