// Package flagging reviews stories against the safety rubrics, one
// classifier pass per category, and assembles the merged flag report.
package flagging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"storycurator/internal/annotate"
	"storycurator/internal/catalog"
	"storycurator/internal/highlight"
	"storycurator/internal/llm"
	"storycurator/internal/textproc"
)

const (
	defaultMaxTokens       = 4069
	defaultCategoryWorkers = 7
	defaultStoryWorkers    = 5
)

// Options tunes the flagging pipeline.
type Options struct {
	MaxTokens       int
	CategoryWorkers int // parallel rubric checks per story
	StoryWorkers    int // parallel stories per batch
}

// Flag is one reviewed finding in a story's flag report.
type Flag struct {
	Severity     string  `json:"severity"`
	CSSClass     string  `json:"css_class"`
	Color        string  `json:"color"`
	IssueType    string  `json:"issue_type"`
	TextEvidence string  `json:"text_evidence"`
	Rationale    string  `json:"rationale"`
	Confidence   float64 `json:"confidence"`
}

// StoryReview is the flagging result for one story. Flags appear ordered
// by their first cited sentence.
type StoryReview struct {
	StoryID     string `json:"story_id"`
	StoryTitle  string `json:"story_title"`
	GradeLevel  int    `json:"grade_level"`
	FlagCount   int    `json:"flag_count"`
	HasCritical bool   `json:"has_critical"`
	Highlighted string `json:"highlighted_text"`
	Flags       []Flag `json:"flags"`
	Error       string `json:"error,omitempty"`
}

// Flagger runs safety reviews over the loaded corpus.
type Flagger struct {
	catalog *catalog.Catalog
	indexer *textproc.Indexer
	client  llm.Client
	opts    Options
}

func New(cat *catalog.Catalog, ix *textproc.Indexer, client llm.Client, opts Options) *Flagger {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.CategoryWorkers <= 0 {
		opts.CategoryWorkers = defaultCategoryWorkers
	}
	if opts.StoryWorkers <= 0 {
		opts.StoryWorkers = defaultStoryWorkers
	}
	return &Flagger{
		catalog: cat,
		indexer: ix,
		client:  client,
		opts:    opts,
	}
}

// ReviewStory checks one story against every rubric category in parallel
// and merges the findings. A failing category degrades to zero findings
// with a warning; an unknown story id is the only error.
func (f *Flagger) ReviewStory(ctx context.Context, storyID string) (StoryReview, error) {
	story, err := f.catalog.Story(storyID)
	if err != nil {
		return StoryReview{}, err
	}
	tagged := f.indexer.Tag(story.Content)

	results := make([]annotate.CategoryResult, len(catalog.RubricCategories))
	sem := make(chan struct{}, f.opts.CategoryWorkers)
	var wg sync.WaitGroup
	for i, category := range catalog.RubricCategories {
		wg.Add(1)
		go func(slot int, category string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[slot] = f.checkCategory(ctx, story, tagged, category)
		}(i, category)
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			slog.Warn("category check failed", "story", story.ID, "category", r.Category, "error", r.Err)
		}
	}

	merged := annotate.Merge(results)
	policy := highlight.SeverityPolicy()

	review := StoryReview{
		StoryID:     story.ID,
		StoryTitle:  story.Title,
		GradeLevel:  story.GradeLevel,
		FlagCount:   len(merged),
		Highlighted: highlight.Render(f.indexer.Mapping(tagged), annotate.Coverage(merged), policy),
		Flags:       make([]Flag, 0, len(merged)),
	}
	for _, e := range merged {
		style := policy.StyleFor(e)
		if e.Severity == "Critical" {
			review.HasCritical = true
		}
		review.Flags = append(review.Flags, Flag{
			Severity:     e.Severity,
			CSSClass:     style.Class,
			Color:        style.Color,
			IssueType:    e.Label,
			TextEvidence: e.Evidence,
			Rationale:    e.Rationale,
			Confidence:   e.Confidence,
		})
	}
	return review, nil
}

// ReviewBatch reviews the given stories with bounded parallelism, keeping
// results in input order. Per-story failures degrade to error entries.
func (f *Flagger) ReviewBatch(ctx context.Context, stories []catalog.Story) []StoryReview {
	reviews := make([]StoryReview, len(stories))
	sem := make(chan struct{}, f.opts.StoryWorkers)
	var wg sync.WaitGroup
	for i, story := range stories {
		wg.Add(1)
		go func(slot int, storyID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			review, err := f.ReviewStory(ctx, storyID)
			if err != nil {
				slog.Warn("story review failed", "story", storyID, "error", err)
				review = StoryReview{StoryID: storyID, Error: err.Error(), Flags: []Flag{}}
			}
			reviews[slot] = review
		}(i, story.ID)
	}
	wg.Wait()
	return reviews
}

// ReviewAll reviews every story in the catalog.
func (f *Flagger) ReviewAll(ctx context.Context) []StoryReview {
	return f.ReviewBatch(ctx, f.catalog.Stories())
}

func (f *Flagger) checkCategory(ctx context.Context, story catalog.Story, tagged, category string) annotate.CategoryResult {
	result := annotate.CategoryResult{Category: category}

	rubric, ok := f.catalog.Rubric(category)
	if !ok {
		result.Err = fmt.Errorf("no rubric loaded for category %s", category)
		return result
	}

	out, err := f.client.Complete(ctx, llm.Request{
		System:    reviewSystemPrompt,
		Prompt:    buildReviewPrompt(category, rubric, tagged, story.GradeLevel),
		MaxTokens: f.opts.MaxTokens,
		JSONMode:  true,
	})
	if err != nil {
		result.Err = fmt.Errorf("check %s: %w", category, err)
		return result
	}

	var payload flagPayload
	if err := llm.DecodeJSON(out, &payload); err != nil {
		result.Err = fmt.Errorf("parse %s response: %w", category, err)
		return result
	}

	result.Entries = annotate.BuildEntries(tagged, payload.candidates(category))
	return result
}

// flagPayload is the classifier's JSON contract for one rubric check.
type flagPayload struct {
	Flags []flagFinding `json:"flags"`
}

type flagFinding struct {
	IssueType      string           `json:"issue_type"`
	SeverityLevel  string           `json:"severity_level"`
	Confidence     *float64         `json:"confidence"`
	TagNumbers     annotate.SpanRef `json:"tag_numbers"`
	Rationale      string           `json:"rationale"`
	Recommendation string           `json:"recommendation"`
}

// candidates applies the boundary defaults: unnamed issues become
// "Unknown", missing severities "Low", missing confidences 0.5.
func (p flagPayload) candidates(category string) []annotate.Candidate {
	out := make([]annotate.Candidate, 0, len(p.Flags))
	for _, finding := range p.Flags {
		c := annotate.Candidate{
			Label:      finding.IssueType,
			Category:   category,
			Severity:   finding.SeverityLevel,
			Confidence: 0.5,
			Rationale:  finding.Rationale,
			Span:       []int(finding.TagNumbers),
		}
		if c.Label == "" {
			c.Label = "Unknown"
		}
		if c.Severity == "" {
			c.Severity = "Low"
		}
		if finding.Confidence != nil {
			c.Confidence = *finding.Confidence
		}
		out = append(out, c)
	}
	return out
}
