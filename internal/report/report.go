// Package report renders the merged review results as a single
// self-contained HTML page for human reviewers.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"storycurator/internal/catalog"
	"storycurator/internal/flagging"
	"storycurator/internal/highlight"
	"storycurator/internal/tagging"
)

// Output layout under the output directory.
const (
	MachineDir   = "machine_readable"
	HumanDir     = "human_review"
	FlaggingFile = "story_flagging.json"
	TaggingFile  = "skill_tagging.json"
	ReportFile   = "review_report.html"
)

//go:embed templates/*.html
var templatesFS embed.FS

var reportFuncs = template.FuncMap{
	"extractCategory": catalog.CategoryFromSkillID,
	"confidenceLevel": highlight.ConfidenceLevel,
	"gradeName":       catalog.GradeName,
	"safe":            func(s string) template.HTML { return template.HTML(s) },
}

var templates = template.Must(template.New("").Funcs(reportFuncs).ParseFS(templatesFS, "templates/*.html"))

// Page is the template context for the review report.
type Page struct {
	Stories        []Story
	Categories     []string
	CategoryColors map[string]string
	TotalStories   int
	TotalFlags     int
	TotalSkills    int
	HasAnyCritical bool
}

// Story is one merged row: a story with whichever review results exist
// for it.
type Story struct {
	StoryID        string
	StoryTitle     string
	GradeLevel     int
	Flagging       *flagging.StoryReview
	Tagging        *tagging.StoryTags
	FlagCount      int
	HasCritical    bool
	WorstSeverity  string
	SkillCount     int
	CategoryCounts map[string]int
}

// LoadReviews reads a flagging result file, accepting either an array or
// a single story object. A missing or unreadable file degrades to an
// empty set with a warning.
func LoadReviews(path string) []flagging.StoryReview {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("flagging results not loaded", "path", path, "error", err)
		return nil
	}
	var many []flagging.StoryReview
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one flagging.StoryReview
	if err := json.Unmarshal(raw, &one); err == nil {
		return []flagging.StoryReview{one}
	}
	slog.Warn("flagging results not parseable", "path", path)
	return nil
}

// LoadTags reads a tagging result file with the same shape handling as
// LoadReviews.
func LoadTags(path string) []tagging.StoryTags {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("tagging results not loaded", "path", path, "error", err)
		return nil
	}
	var many []tagging.StoryTags
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one tagging.StoryTags
	if err := json.Unmarshal(raw, &one); err == nil {
		return []tagging.StoryTags{one}
	}
	slog.Warn("tagging results not parseable", "path", path)
	return nil
}

// Build merges flagging and tagging results by story id into one page,
// sorted by story title. A story present in only one result set still
// gets a row.
func Build(reviews []flagging.StoryReview, tags []tagging.StoryTags) Page {
	reviewByID := make(map[string]*flagging.StoryReview, len(reviews))
	for i := range reviews {
		reviewByID[reviews[i].StoryID] = &reviews[i]
	}
	tagsByID := make(map[string]*tagging.StoryTags, len(tags))
	for i := range tags {
		tagsByID[tags[i].StoryID] = &tags[i]
	}

	ids := make([]string, 0, len(reviewByID))
	for _, review := range reviews {
		ids = append(ids, review.StoryID)
	}
	for _, storyTags := range tags {
		if _, ok := reviewByID[storyTags.StoryID]; !ok {
			ids = append(ids, storyTags.StoryID)
		}
	}

	page := Page{
		Categories:     catalog.SkillCategories(),
		CategoryColors: categoryColors(),
	}
	for _, id := range ids {
		review := reviewByID[id]
		storyTags := tagsByID[id]

		story := Story{
			StoryID:        id,
			CategoryCounts: categoryCounts(nil),
		}
		switch {
		case review != nil:
			story.StoryTitle = review.StoryTitle
			story.GradeLevel = review.GradeLevel
		case storyTags != nil:
			story.StoryTitle = storyTags.StoryTitle
			story.GradeLevel = storyTags.GradeLevel
		}
		if story.StoryTitle == "" {
			story.StoryTitle = "Unknown"
		}

		if review != nil {
			story.Flagging = review
			story.FlagCount = review.FlagCount
			if story.FlagCount == 0 {
				story.FlagCount = len(review.Flags)
			}
			story.HasCritical = review.HasCritical
			for _, flag := range review.Flags {
				if highlight.SeverityRank(flag.Severity) > highlight.SeverityRank(story.WorstSeverity) {
					story.WorstSeverity = flag.Severity
				}
			}
		}
		if storyTags != nil {
			story.Tagging = storyTags
			story.SkillCount = len(storyTags.Tags)
			story.CategoryCounts = categoryCounts(storyTags.Tags)
		}

		page.Stories = append(page.Stories, story)
		page.TotalFlags += story.FlagCount
		page.TotalSkills += story.SkillCount
		if story.HasCritical {
			page.HasAnyCritical = true
		}
	}
	page.TotalStories = len(page.Stories)

	sort.SliceStable(page.Stories, func(i, j int) bool {
		return page.Stories[i].StoryTitle < page.Stories[j].StoryTitle
	})
	return page
}

// Render writes the self-contained report page.
func Render(w io.Writer, page Page) error {
	return templates.ExecuteTemplate(w, "review_report.html", page)
}

// WriteFile renders the report into path, creating parent directories.
func WriteFile(path string, page Page) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Render(&buf, page); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func categoryCounts(tags []tagging.Tag) map[string]int {
	counts := make(map[string]int)
	for _, category := range catalog.SkillCategories() {
		counts[category] = 0
	}
	for _, tag := range tags {
		counts[catalog.CategoryFromSkillID(tag.SkillID)]++
	}
	return counts
}

// categoryColors are the display colors for skill categories, matching
// the highlight palette.
func categoryColors() map[string]string {
	return map[string]string{
		"Decoding":      "#3498db",
		"Comprehension": "#27ae60",
		"Vocabulary":    "#e74c3c",
		"Knowledge":     "#f39c12",
		"Fluency":       "#9b59b6",
		"Unknown":       "#95a5a6",
	}
}
