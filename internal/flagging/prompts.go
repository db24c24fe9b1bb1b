package flagging

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storycurator/internal/catalog"
)

const reviewSystemPrompt = "You are an expert children's content reviewer with deep knowledge of " +
	"age-appropriate material, child development, and educational content standards"

// buildReviewPrompt assembles the user prompt for one rubric check. The
// classifier must answer with tag numbers only; evidence text is resolved
// locally afterwards.
func buildReviewPrompt(category, rubric, taggedContent string, gradeLevel int) string {
	categoryName := categoryDisplayName(category)
	gradeName := catalog.GradeName(gradeLevel)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Review the following children's story for issues related to: %s\n\n", categoryName)
	fmt.Fprintf(&sb, "TARGET AUDIENCE: %s (%d)\n\n", gradeName, gradeLevel)
	fmt.Fprintf(&sb, "RUBRIC TO APPLY:\n%s\n\n", rubric)
	fmt.Fprintf(&sb, "STORY CONTENT (with numbered sentence tags):\n%s\n\n", taggedContent)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("1. Carefully read the story with its sentence tags (e.g., <tag1>, <tag2>, <tag3>)\n")
	sb.WriteString("2. Identify any content that matches the rubric criteria\n")
	sb.WriteString("3. For each issue, note which TAG NUMBERS contain the problematic content\n")
	fmt.Fprintf(&sb, "4. Consider the target grade level (%s) when assessing severity\n", gradeName)
	sb.WriteString("5. Provide your findings as a JSON object with a \"flags\" array\n\n")
	sb.WriteString("EXPECTED JSON FORMAT:\n")
	sb.WriteString(`{
  "flags": [
    {
      "issue_type": "Category name (e.g., 'Violence & Physical Harm')",
      "severity_level": "Critical, High, Medium, or Low",
      "confidence": 0.0 to 1.0,
      "tag_numbers": 1,
      "rationale": "Why this is problematic for the target audience",
      "recommendation": "Remove, Revise, Add context, or Teacher guidance"
    }
  ]
}`)
	sb.WriteString("\n\nIMPORTANT:\n")
	sb.WriteString("- If you find NO issues, return: {\"flags\": []}\n")
	sb.WriteString("- DO NOT include text_evidence - only tag numbers (we will extract the text later)\n")
	fmt.Fprintf(&sb, "- Be specific about WHY the content is problematic for %s students\n", gradeName)
	sb.WriteString("- Assign a confidence score (0.0 to 1.0) based on how certain you are this is actually problematic\n")
	sb.WriteString("  * 0.9-1.0: Very clear violation of rubric criteria\n")
	sb.WriteString("  * 0.7-0.9: Likely problematic, minor ambiguity\n")
	sb.WriteString("  * 0.5-0.7: Borderline case, context-dependent\n")
	sb.WriteString("  * Below 0.5: Low confidence, may be acceptable\n\n")
	sb.WriteString("Return ONLY valid JSON, no additional text.")
	return sb.String()
}

// categoryDisplayName turns a rubric key like "violence_harm" into its
// prompt-facing form "Violence Harm".
func categoryDisplayName(category string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(category, "_", " "))
}
