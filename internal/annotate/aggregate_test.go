package annotate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taggedStory = "<tag1>One.</tag1> <tag2>Two.</tag2> <tag3>Three.</tag3> <tag4>Four.</tag4> <tag5>Five.</tag5>"

func TestBuildEntries_SplitsSpanIntoRuns(t *testing.T) {
	candidates := []Candidate{{
		Label:      "Scary Imagery",
		Category:   "emotional_safety",
		Severity:   "Medium",
		Confidence: 0.7,
		Rationale:  "dark scene",
		Span:       []int{1, 2, 4},
	}}

	entries := BuildEntries(taggedStory, candidates)
	require.Len(t, entries, 2)

	assert.Equal(t, []int{1, 2}, entries[0].Run)
	assert.Equal(t, "One. Two.", entries[0].Evidence)
	assert.Equal(t, []int{4}, entries[1].Run)
	assert.Equal(t, "Four.", entries[1].Evidence)

	for _, e := range entries {
		assert.Equal(t, "Scary Imagery", e.Label)
		assert.Equal(t, "Medium", e.Severity)
		assert.Equal(t, 0.7, e.Confidence)
		assert.Equal(t, "dark scene", e.Rationale)
	}
}

func TestBuildEntries_DropsEmptyAndUnresolvable(t *testing.T) {
	candidates := []Candidate{
		{Label: "no span", Span: nil},
		{Label: "out of range", Span: []int{40, 41}},
		{Label: "kept", Span: []int{3}},
	}

	entries := BuildEntries(taggedStory, candidates)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Label)
	assert.Equal(t, "Three.", entries[0].Evidence)
}

func TestMerge_OrdersByFirstRunID(t *testing.T) {
	results := []CategoryResult{
		{Category: "a", Entries: []Entry{{Label: "late", Run: []int{5}}}},
		{Category: "b", Entries: []Entry{{Label: "early", Run: []int{1}}}},
		{Category: "c", Entries: []Entry{{Label: "middle", Run: []int{3}}}},
	}

	merged := Merge(results)
	require.Len(t, merged, 3)
	assert.Equal(t, "early", merged[0].Label)
	assert.Equal(t, "middle", merged[1].Label)
	assert.Equal(t, "late", merged[2].Label)
}

func TestMerge_TiesKeepCategoryOrder(t *testing.T) {
	results := []CategoryResult{
		{Category: "first", Entries: []Entry{{Label: "from first", Run: []int{2}}}},
		{Category: "second", Entries: []Entry{{Label: "from second", Run: []int{2}}}},
	}

	merged := Merge(results)
	require.Len(t, merged, 2)
	assert.Equal(t, "from first", merged[0].Label)
	assert.Equal(t, "from second", merged[1].Label)
}

func TestMerge_FailedPassContributesNothing(t *testing.T) {
	results := []CategoryResult{
		{Category: "ok", Entries: []Entry{{Label: "kept", Run: []int{1}}}},
		{Category: "broken", Err: errors.New("bad json"), Entries: []Entry{{Label: "ignored", Run: []int{2}}}},
		{Category: "also ok", Entries: []Entry{{Label: "kept too", Run: []int{3}}}},
	}

	merged := Merge(results)
	require.Len(t, merged, 2)
	assert.Equal(t, "kept", merged[0].Label)
	assert.Equal(t, "kept too", merged[1].Label)
}

func TestCoverage_ExplodesRuns(t *testing.T) {
	entries := []Entry{
		{Label: "a", Run: []int{1, 2}},
		{Label: "b", Run: []int{2, 3}},
	}

	index := Coverage(entries)
	require.Len(t, index, 3)
	assert.Len(t, index[1], 1)
	require.Len(t, index[2], 2)
	assert.Len(t, index[3], 1)

	// Shared sentence keeps merged order.
	assert.Equal(t, "a", index[2][0].Label)
	assert.Equal(t, "b", index[2][1].Label)
}
