package tagging

import (
	"fmt"
	"strings"

	"storycurator/internal/catalog"
)

const taggingSystemPrompt = "You are an expert reading specialist with deep knowledge of literacy skills, " +
	"reading development, and educational standards for children. You excel at analyzing stories to " +
	"identify which reading skills they can help develop."

// skillGroups fixes the order in which taxonomy sections appear in the
// prompt, keyed by the skill id infix.
var skillGroups = []struct {
	prefix string
	title  string
}{
	{"DEC", "Decoding Skills"},
	{"COMP", "Comprehension Skills"},
	{"VOCAB", "Vocabulary Skills"},
	{"KNOW", "Knowledge & Content Skills"},
	{"FLUENCY", "Fluency Skills"},
}

// buildTaggingPrompt assembles the user prompt for the skill pass. The
// model must answer with tag numbers only; evidence text is resolved
// locally afterwards.
func buildTaggingPrompt(skills []catalog.Skill, taggedContent string, gradeLevel int) string {
	gradeName := catalog.GradeName(gradeLevel)

	var sb strings.Builder
	sb.WriteString("Analyze the following children's story to identify which reading skills it demonstrates or teaches.\n\n")
	fmt.Fprintf(&sb, "TARGET AUDIENCE: %s (%d)\n\n", gradeName, gradeLevel)
	fmt.Fprintf(&sb, "SKILLS TAXONOMY:\n%s\n\n", formatSkillsTaxonomy(skills))
	fmt.Fprintf(&sb, "STORY CONTENT (with numbered sentence tags):\n%s\n\n", taggedContent)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("1. Carefully read the story with its sentence tags (e.g., <tag1>, <tag2>, <tag3>)\n")
	sb.WriteString("2. Identify which skills from the taxonomy are clearly demonstrated or taught in this story\n")
	sb.WriteString("3. For each skill you identify:\n")
	sb.WriteString("   - Assign a confidence score (0.0 to 1.0) based on how strongly the skill is present\n")
	sb.WriteString("   - Note which TAG NUMBERS contain evidence of this skill\n")
	sb.WriteString("   - Provide a brief explanation of why this skill applies\n")
	fmt.Fprintf(&sb, "4. Consider the target grade level (%s) when evaluating appropriateness\n", gradeName)
	sb.WriteString("5. Only include skills with confidence >= 0.5\n")
	sb.WriteString("6. Prioritize quality over quantity - include only skills that are genuinely present\n\n")
	sb.WriteString("CONFIDENCE SCORING GUIDELINES:\n")
	sb.WriteString("- 0.9-1.0: Skill is a primary focus or clearly demonstrated multiple times\n")
	sb.WriteString("- 0.7-0.8: Skill is clearly present with good evidence\n")
	sb.WriteString("- 0.5-0.6: Skill is present but not a major focus\n\n")
	sb.WriteString("EXPECTED JSON FORMAT:\n")
	sb.WriteString(`{
  "skill_tags": [
    {
      "skill_id": "SKILL-XXX-###",
      "skill_name": "Skill name from taxonomy",
      "confidence": 0.85,
      "tag_numbers": [1, 5, 7],
      "rationale": "Brief explanation of why this skill applies and how it's demonstrated"
    }
  ]
}`)
	sb.WriteString("\n\nEXAMPLE OUTPUT:\n")
	sb.WriteString(`{
  "skill_tags": [
    {
      "skill_id": "SKILL-COMP-003",
      "skill_name": "Character Analysis",
      "confidence": 0.9,
      "tag_numbers": [3, 7, 12, 15],
      "rationale": "Story provides detailed descriptions of character traits, motivations, and how the protagonist changes throughout the narrative"
    },
    {
      "skill_id": "SKILL-VOCAB-003",
      "skill_name": "Figurative Language",
      "confidence": 0.7,
      "tag_numbers": [8, 14],
      "rationale": "Contains multiple similes and metaphors that students can identify and interpret"
    }
  ]
}`)
	sb.WriteString("\n\nIMPORTANT:\n")
	sb.WriteString("- Return ONLY skills from the provided taxonomy (use exact skill_id and skill_name)\n")
	sb.WriteString("- DO NOT include text_evidence - only tag numbers (we will extract text later)\n")
	sb.WriteString("- Be selective - only include skills with strong evidence (confidence >= 0.5)\n")
	sb.WriteString("- Consider grade-appropriateness when assigning skills\n")
	sb.WriteString("- If no clear skills are present, return: {\"skill_tags\": []}\n\n")
	sb.WriteString("Return ONLY valid JSON, no additional text.")
	return sb.String()
}

// formatSkillsTaxonomy renders the taxonomy grouped under one heading per
// skill family, in the fixed group order. Families without skills are
// omitted.
func formatSkillsTaxonomy(skills []catalog.Skill) string {
	var parts []string
	for _, group := range skillGroups {
		marker := "SKILL-" + group.prefix
		var lines []string
		for _, skill := range skills {
			if strings.Contains(skill.ID, marker) {
				lines = append(lines, fmt.Sprintf("- %s: %s\n  %s", skill.ID, skill.Name, skill.Description))
			}
		}
		if len(lines) == 0 {
			continue
		}
		parts = append(parts, "\n## "+group.title)
		parts = append(parts, lines...)
	}
	return strings.Join(parts, "\n")
}
