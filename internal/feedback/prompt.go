package feedback

import (
	"fmt"
	"strings"

	"github.com/sjawhar/mockview/internal/llm"
	"github.com/sjawhar/mockview/internal/transcribe"
)

const systemPrompt = "You are a professional interviewer analyzing a mock interview. Return only valid JSON."

const userPromptTemplate = `You are an AI interviewer analyzing a mock interview. Your task is to evaluate the candidate based on structured categories. Be thorough and detailed in your analysis. Don't be lenient with the candidate.

Transcript:
%s
Return JSON:
{
  "totalScore": number,
  "categoryScores": [
%s
  ],
  "strengths": [],
  "areasForImprovement": [],
  "finalAssessment": ""
}`

func buildMessages(turns []transcribe.Turn) []llm.Message {
	lines := make([]string, len(Categories))
	for i, name := range Categories {
		lines[i] = fmt.Sprintf(`    { "name": %q, "score": number, "comment": "detailed comment" }`, name)
	}

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptTemplate, transcribe.Format(turns), strings.Join(lines, ",\n"))},
	}
}
