// Package catalog loads the review corpus: the story set, the reading
// skill taxonomy, and the per-category safety rubrics.
package catalog

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// RubricCategories lists the safety rubric categories in canonical review
// order. The order is load-bearing: it fixes merge tie-breaking during
// flagging, so results stay deterministic under concurrent classification.
var RubricCategories = []string{
	"critical_safety",
	"violence_harm",
	"age_appropriateness",
	"cultural_sensitivity",
	"emotional_safety",
	"technical_issues",
	"physical_safety",
}

// Story is one reviewable story row.
type Story struct {
	ID         string
	Title      string
	Content    string
	GradeLevel int
}

// Skill is one taxonomy row.
type Skill struct {
	ID          string
	Name        string
	Category    string
	Description string
}

// Catalog provides indexed access to the loaded corpus.
type Catalog struct {
	stories   []Story
	storyByID map[string]Story
	skills    []Skill
	skillByID map[string]Skill
	rubrics   map[string]string
}

// Load reads stories.csv, skills.csv, and rubrics/*.md from dataDir. The
// two CSV files are required; missing rubric files degrade to warnings
// because flagging isolates rubric problems per category.
func Load(dataDir string) (*Catalog, error) {
	stories, err := loadStories(filepath.Join(dataDir, "stories.csv"))
	if err != nil {
		return nil, err
	}
	skills, err := loadSkills(filepath.Join(dataDir, "skills.csv"))
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		stories:   stories,
		storyByID: make(map[string]Story, len(stories)),
		skills:    skills,
		skillByID: make(map[string]Skill, len(skills)),
		rubrics:   loadRubrics(filepath.Join(dataDir, "rubrics")),
	}
	for _, s := range stories {
		c.storyByID[s.ID] = s
	}
	for _, s := range skills {
		c.skillByID[s.ID] = s
	}
	return c, nil
}

// Stories returns every story in file order.
func (c *Catalog) Stories() []Story {
	return c.stories
}

// StoriesByGrade returns the stories targeting one grade level.
func (c *Catalog) StoriesByGrade(gradeLevel int) []Story {
	var out []Story
	for _, s := range c.stories {
		if s.GradeLevel == gradeLevel {
			out = append(out, s)
		}
	}
	return out
}

// Story looks up one story by id. An unknown id is an error; it is the
// only fatal input condition in the review pipelines.
func (c *Catalog) Story(id string) (Story, error) {
	s, ok := c.storyByID[id]
	if !ok {
		return Story{}, fmt.Errorf("story with id %q not found", id)
	}
	return s, nil
}

// Skills returns the full taxonomy in file order.
func (c *Catalog) Skills() []Skill {
	return c.skills
}

// Skill looks up one taxonomy entry by id.
func (c *Catalog) Skill(id string) (Skill, bool) {
	s, ok := c.skillByID[id]
	return s, ok
}

// Rubric returns the rubric text for a category.
func (c *Catalog) Rubric(category string) (string, bool) {
	r, ok := c.rubrics[category]
	return r, ok
}

func loadStories(path string) ([]Story, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, path, "story_id", "story_title", "story_content", "grade_level")
	if err != nil {
		return nil, err
	}

	stories := make([]Story, 0, len(rows))
	for i, row := range rows {
		grade, err := strconv.Atoi(strings.TrimSpace(row[cols["grade_level"]]))
		if err != nil {
			slog.Warn("skipping story row with bad grade level", "file", path, "row", i+2, "error", err)
			continue
		}
		stories = append(stories, Story{
			ID:         strings.TrimSpace(row[cols["story_id"]]),
			Title:      strings.TrimSpace(row[cols["story_title"]]),
			Content:    row[cols["story_content"]],
			GradeLevel: grade,
		})
	}
	return stories, nil
}

func loadSkills(path string) ([]Skill, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, path, "skill_id", "skill_name", "skill_category", "skill_description")
	if err != nil {
		return nil, err
	}

	skills := make([]Skill, 0, len(rows))
	for _, row := range rows {
		skills = append(skills, Skill{
			ID:          strings.TrimSpace(row[cols["skill_id"]]),
			Name:        strings.TrimSpace(row[cols["skill_name"]]),
			Category:    strings.TrimSpace(row[cols["skill_category"]]),
			Description: strings.TrimSpace(row[cols["skill_description"]]),
		})
	}
	return skills, nil
}

func loadRubrics(dir string) map[string]string {
	rubrics := make(map[string]string, len(RubricCategories))
	for _, category := range RubricCategories {
		path := filepath.Join(dir, category+".md")
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("rubric file not found", "category", category, "path", path)
			continue
		}
		rubrics[category] = string(content)
	}
	return rubrics
}

func readCSV(path string) ([][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	return records[1:], records[0], nil
}

func columnIndex(header []string, path string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%s is missing required column %q", path, name)
		}
	}
	return cols, nil
}
