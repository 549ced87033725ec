package analysis

import (
	"fmt"
	"strings"
)

// maxPromptChars bounds the document text embedded in a prompt.
const maxPromptChars = 24000

const responseShape = `{
  "analysis": ["paragraph", "..."],
  "recommendations": ["action", "..."],
  "references": [{"title": "source", "url": "https://..."}],
  "foresight": {
    "predictions": [{"title": "", "description": "", "riskScore": 1-100, "impact": "Low|Medium|High|Critical", "timeframe": "Q3 2025"}],
    "risks": [{"title": "", "description": ""}],
    "opportunities": [{"title": "", "description": ""}]
  },
  "reasoningLog": [{"step": "", "explanation": ""}]
}`

func systemPrompt(s strategy, jurisdiction string) string {
	return fmt.Sprintf(
		"You are an experienced %s working under %s rules. Focus on %s. "+
			"Respond with a single JSON object and nothing else, using exactly this shape:\n%s",
		s.role, jurisdiction, s.focus, responseShape,
	)
}

func userPrompt(s strategy, jurisdiction, text string) string {
	text = strings.TrimSpace(text)
	if len(text) > maxPromptChars {
		text = strings.ToValidUTF8(text[:maxPromptChars], "") + "\n[truncated]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", s.category)
	fmt.Fprintf(&b, "Jurisdiction: %s\n\n", jurisdiction)
	b.WriteString("Document:\n")
	b.WriteString(text)
	return b.String()
}
