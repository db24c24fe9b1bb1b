// Package tagging labels stories with the reading skills they exercise,
// one taxonomy pass per story.
package tagging

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
	defaultMaxTokens    = 4069
	defaultStoryWorkers = 5
)

// Options tunes the tagging pipeline.
type Options struct {
	MaxTokens    int
	StoryWorkers int // parallel stories per batch
}

// Tag is one skill annotation over a run of consecutive sentences.
type Tag struct {
	SentenceEvidence string  `json:"sentence_evidence"`
	SkillID          string  `json:"skill_id"`
	SkillName        string  `json:"skill_name"`
	Rationale        string  `json:"rationale"`
	Confidence       float64 `json:"confidence"`
}

// StoryTags is the tagging result for one story. Tags appear ordered by
// their first cited sentence.
type StoryTags struct {
	StoryID     string `json:"story_id"`
	StoryTitle  string `json:"story_title"`
	GradeLevel  int    `json:"grade_level"`
	Tags        []Tag  `json:"tags"`
	Highlighted string `json:"highlighted_text"`
	Error       string `json:"error,omitempty"`
}

// Tagger annotates stories with skills from the loaded taxonomy.
type Tagger struct {
	catalog *catalog.Catalog
	indexer *textproc.Indexer
	client  llm.Client
	opts    Options
}

func New(cat *catalog.Catalog, ix *textproc.Indexer, client llm.Client, opts Options) *Tagger {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.StoryWorkers <= 0 {
		opts.StoryWorkers = defaultStoryWorkers
	}
	return &Tagger{
		catalog: cat,
		indexer: ix,
		client:  client,
		opts:    opts,
	}
}

// TagStory annotates one story with skills from the taxonomy. A failed
// or unparseable model response degrades to zero tags with a warning; an
// unknown story id is the only error.
func (t *Tagger) TagStory(ctx context.Context, storyID string) (StoryTags, error) {
	story, err := t.catalog.Story(storyID)
	if err != nil {
		return StoryTags{}, err
	}
	tagged := t.indexer.Tag(story.Content)

	result := annotate.CategoryResult{Category: "skills"}
	candidates, err := t.identifySkills(ctx, tagged, story.GradeLevel)
	if err != nil {
		result.Err = err
		slog.Warn("skill pass failed", "story", story.ID, "error", err)
	} else {
		result.Entries = annotate.BuildEntries(tagged, candidates)
	}

	merged := annotate.Merge([]annotate.CategoryResult{result})
	policy := highlight.CategoryPolicy()

	tags := StoryTags{
		StoryID:     story.ID,
		StoryTitle:  story.Title,
		GradeLevel:  story.GradeLevel,
		Tags:        make([]Tag, 0, len(merged)),
		Highlighted: highlight.Render(t.indexer.Mapping(tagged), annotate.Coverage(merged), policy),
	}
	for _, e := range merged {
		tags.Tags = append(tags.Tags, Tag{
			SentenceEvidence: e.Evidence,
			SkillID:          e.Ref,
			SkillName:        e.Label,
			Rationale:        e.Rationale,
			Confidence:       e.Confidence,
		})
	}
	return tags, nil
}

// TagBatch tags the given stories with bounded parallelism, keeping
// results in input order. Per-story failures degrade to error entries.
func (t *Tagger) TagBatch(ctx context.Context, stories []catalog.Story) []StoryTags {
	results := make([]StoryTags, len(stories))
	sem := make(chan struct{}, t.opts.StoryWorkers)
	var wg sync.WaitGroup
	for i, story := range stories {
		wg.Add(1)
		go func(slot int, storyID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			tags, err := t.TagStory(ctx, storyID)
			if err != nil {
				slog.Warn("story tagging failed", "story", storyID, "error", err)
				tags = StoryTags{StoryID: storyID, Error: err.Error(), Tags: []Tag{}}
			}
			results[slot] = tags
		}(i, story.ID)
	}
	wg.Wait()
	return results
}

// TagAll tags every story in the catalog.
func (t *Tagger) TagAll(ctx context.Context) []StoryTags {
	return t.TagBatch(ctx, t.catalog.Stories())
}

func (t *Tagger) identifySkills(ctx context.Context, tagged string, gradeLevel int) ([]annotate.Candidate, error) {
	out, err := t.client.Complete(ctx, llm.Request{
		System:    taggingSystemPrompt,
		Prompt:    buildTaggingPrompt(t.catalog.Skills(), tagged, gradeLevel),
		MaxTokens: t.opts.MaxTokens,
		JSONMode:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("identify skills: %w", err)
	}

	var payload skillPayload
	if err := llm.DecodeJSON(out, &payload); err != nil {
		return nil, fmt.Errorf("parse skill response: %w", err)
	}
	return payload.candidates(t.catalog), nil
}

// skillPayload is the model's JSON contract for the skill pass.
type skillPayload struct {
	SkillTags []skillFinding `json:"skill_tags"`
}

type skillFinding struct {
	SkillID    string           `json:"skill_id"`
	SkillName  string           `json:"skill_name"`
	Confidence float64          `json:"confidence"`
	TagNumbers annotate.SpanRef `json:"tag_numbers"`
	Rationale  string           `json:"rationale"`
}

// candidates drops findings whose skill id is not in the taxonomy and
// clamps confidences into [0, 1].
func (p skillPayload) candidates(cat *catalog.Catalog) []annotate.Candidate {
	out := make([]annotate.Candidate, 0, len(p.SkillTags))
	for _, finding := range p.SkillTags {
		if _, ok := cat.Skill(finding.SkillID); !ok {
			slog.Warn("model returned unknown skill id", "skill", finding.SkillID)
			continue
		}
		confidence := finding.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		out = append(out, annotate.Candidate{
			Label:      finding.SkillName,
			Ref:        finding.SkillID,
			Category:   catalog.CategoryFromSkillID(finding.SkillID),
			Confidence: confidence,
			Rationale:  finding.Rationale,
			Span:       []int(finding.TagNumbers),
		})
	}
	return out
}
