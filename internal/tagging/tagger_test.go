package tagging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storycurator/internal/catalog"
	"storycurator/internal/llm"
	"storycurator/internal/textproc"
)

type fakeClient struct {
	mu    sync.Mutex
	calls []llm.Request
	reply func(req llm.Request) (string, error)
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.reply == nil {
		return `{"skill_tags": []}`, nil
	}
	return f.reply(req)
}

func writeTaggingCorpus(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()

	stories := "story_id,story_title,story_content,grade_level\n" +
		"STORY-001,First Story,One. Two. Three. Four. Five.,2\n" +
		"STORY-002,Second Story,Alpha. Beta.,3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stories.csv"), []byte(stories), 0644))

	skills := "skill_id,skill_name,skill_category,skill_description\n" +
		"SKILL-DEC-001,Phonics Patterns,Decoding,Recognizing common letter-sound patterns\n" +
		"SKILL-COMP-001,Main Idea,Comprehension,Finding the main idea of a passage\n" +
		"SKILL-VOCAB-002,Context Clues,Vocabulary,Inferring word meaning from context\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skills.csv"), []byte(skills), 0644))

	cat, err := catalog.Load(dir)
	require.NoError(t, err)
	return cat
}

func newTestTagger(t *testing.T, client llm.Client) *Tagger {
	t.Helper()
	ix, err := textproc.NewIndexer()
	require.NoError(t, err)
	return New(writeTaggingCorpus(t), ix, client, Options{})
}

func TestTagger_TagStory_GroupsRunsIntoTags(t *testing.T) {
	client := &fakeClient{reply: func(llm.Request) (string, error) {
		return `{"skill_tags": [{"skill_id": "SKILL-COMP-001", "skill_name": "Main Idea",
			"confidence": 0.9, "tag_numbers": [1, 2, 4], "rationale": "clear central theme"}]}`, nil
	}}
	tg := newTestTagger(t, client)

	tags, err := tg.TagStory(context.Background(), "STORY-001")
	require.NoError(t, err)

	assert.Equal(t, "STORY-001", tags.StoryID)
	assert.Equal(t, "First Story", tags.StoryTitle)
	assert.Equal(t, 2, tags.GradeLevel)
	assert.Empty(t, tags.Error)

	// One finding spanning a gap yields one tag per consecutive run.
	require.Len(t, tags.Tags, 2)
	assert.Equal(t, "One. Two.", tags.Tags[0].SentenceEvidence)
	assert.Equal(t, "Four.", tags.Tags[1].SentenceEvidence)
	for _, tag := range tags.Tags {
		assert.Equal(t, "SKILL-COMP-001", tag.SkillID)
		assert.Equal(t, "Main Idea", tag.SkillName)
		assert.Equal(t, "clear central theme", tag.Rationale)
		assert.Equal(t, 0.9, tag.Confidence)
	}

	assert.Contains(t, tags.Highlighted, `class="skill-comprehension"`)
	assert.Contains(t, tags.Highlighted, `title="Comprehension: Main Idea (confidence: 0.90)">One.</span>`)
	assert.Contains(t, tags.Highlighted, "Three.")

	require.Len(t, client.calls, 1)
	call := client.calls[0]
	assert.True(t, call.JSONMode)
	assert.Equal(t, 4069, call.MaxTokens)
	assert.Contains(t, call.System, "reading specialist")
}

func TestTagger_TagStory_SortsByFirstSentence(t *testing.T) {
	client := &fakeClient{reply: func(llm.Request) (string, error) {
		return `{"skill_tags": [
			{"skill_id": "SKILL-VOCAB-002", "skill_name": "Context Clues", "confidence": 0.7, "tag_numbers": [5]},
			{"skill_id": "SKILL-COMP-001", "skill_name": "Main Idea", "confidence": 0.8, "tag_numbers": 2}
		]}`, nil
	}}
	tg := newTestTagger(t, client)

	tags, err := tg.TagStory(context.Background(), "STORY-001")
	require.NoError(t, err)

	require.Len(t, tags.Tags, 2)
	assert.Equal(t, "Two.", tags.Tags[0].SentenceEvidence)
	assert.Equal(t, "SKILL-COMP-001", tags.Tags[0].SkillID)
	assert.Equal(t, "Five.", tags.Tags[1].SentenceEvidence)
	assert.Equal(t, "SKILL-VOCAB-002", tags.Tags[1].SkillID)
}

func TestTagger_TagStory_DropsUnknownSkills(t *testing.T) {
	client := &fakeClient{reply: func(llm.Request) (string, error) {
		return `{"skill_tags": [
			{"skill_id": "SKILL-FAKE-999", "skill_name": "Invented", "confidence": 0.9, "tag_numbers": [1]},
			{"skill_id": "SKILL-DEC-001", "skill_name": "Phonics Patterns", "confidence": 0.6, "tag_numbers": [3]}
		]}`, nil
	}}
	tg := newTestTagger(t, client)

	tags, err := tg.TagStory(context.Background(), "STORY-001")
	require.NoError(t, err)

	require.Len(t, tags.Tags, 1)
	assert.Equal(t, "SKILL-DEC-001", tags.Tags[0].SkillID)
	assert.Equal(t, "Three.", tags.Tags[0].SentenceEvidence)
	assert.Contains(t, tags.Highlighted, `class="skill-decoding"`)
}

func TestTagger_TagStory_ClampsConfidence(t *testing.T) {
	client := &fakeClient{reply: func(llm.Request) (string, error) {
		return `{"skill_tags": [
			{"skill_id": "SKILL-COMP-001", "skill_name": "Main Idea", "confidence": 1.7, "tag_numbers": [1]},
			{"skill_id": "SKILL-VOCAB-002", "skill_name": "Context Clues", "tag_numbers": [3]}
		]}`, nil
	}}
	tg := newTestTagger(t, client)

	tags, err := tg.TagStory(context.Background(), "STORY-001")
	require.NoError(t, err)

	require.Len(t, tags.Tags, 2)
	assert.Equal(t, 1.0, tags.Tags[0].Confidence)
	assert.Equal(t, 0.0, tags.Tags[1].Confidence)
}

func TestTagger_TagStory_MultiSkillSentence(t *testing.T) {
	client := &fakeClient{reply: func(llm.Request) (string, error) {
		return `{"skill_tags": [
			{"skill_id": "SKILL-COMP-001", "skill_name": "Main Idea", "confidence": 0.8, "tag_numbers": [3]},
			{"skill_id": "SKILL-VOCAB-002", "skill_name": "Context Clues", "confidence": 0.7, "tag_numbers": [3]}
		]}`, nil
	}}
	tg := newTestTagger(t, client)

	tags, err := tg.TagStory(context.Background(), "STORY-001")
	require.NoError(t, err)

	require.Len(t, tags.Tags, 2)
	assert.Contains(t, tags.Highlighted, `class="skill-multiple"`)
	assert.Contains(t, tags.Highlighted,
		`title="Multiple skills - Comprehension: Main Idea; Vocabulary: Context Clues">Three.</span>`)
}

func TestTagger_TagStory_DegradesOnModelError(t *testing.T) {
	client := &fakeClient{reply: func(llm.Request) (string, error) {
		return "", errors.New("upstream timeout")
	}}
	tg := newTestTagger(t, client)

	tags, err := tg.TagStory(context.Background(), "STORY-001")
	require.NoError(t, err, "a failed skill pass must not fail the story")

	assert.Empty(t, tags.Tags)
	assert.Equal(t, "One. Two. Three. Four. Five.", tags.Highlighted)
	assert.Empty(t, tags.Error)
}

func TestTagger_TagStory_UnknownStory(t *testing.T) {
	tg := newTestTagger(t, &fakeClient{})
	_, err := tg.TagStory(context.Background(), "STORY-404")
	assert.Error(t, err)
}

func TestTagger_TagAll_KeepsCatalogOrder(t *testing.T) {
	tg := newTestTagger(t, &fakeClient{})

	results := tg.TagAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "STORY-001", results[0].StoryID)
	assert.Equal(t, "STORY-002", results[1].StoryID)
	for _, tags := range results {
		assert.Empty(t, tags.Error)
		assert.Empty(t, tags.Tags)
		assert.NotEmpty(t, tags.Highlighted)
	}
}
