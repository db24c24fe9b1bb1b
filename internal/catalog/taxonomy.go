package catalog

import (
	"fmt"
	"strings"
)

var skillCategoryNames = map[string]string{
	"DEC":     "Decoding",
	"COMP":    "Comprehension",
	"VOCAB":   "Vocabulary",
	"KNOW":    "Knowledge",
	"FLUENCY": "Fluency",
}

// SkillCategories lists the display categories in taxonomy order.
func SkillCategories() []string {
	return []string{"Decoding", "Comprehension", "Vocabulary", "Knowledge", "Fluency"}
}

// CategoryFromSkillID derives the display category from a skill id prefix,
// e.g. SKILL-COMP-003 -> Comprehension. Unrecognized ids map to Unknown.
func CategoryFromSkillID(skillID string) string {
	parts := strings.Split(skillID, "-")
	if len(parts) < 2 {
		return "Unknown"
	}
	if name, ok := skillCategoryNames[parts[1]]; ok {
		return name
	}
	return "Unknown"
}

// GradeName renders a numeric grade level for prompts and reports.
func GradeName(gradeLevel int) string {
	if gradeLevel == 0 {
		return "Kindergarten"
	}
	return fmt.Sprintf("Grade %d", gradeLevel)
}
