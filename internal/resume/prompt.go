package resume

import (
	"strings"

	"github.com/sjawhar/mockview/internal/llm"
)

const systemPrompt = "You are an expert resume analyzer specializing in ATS optimization and career coaching. Always respond with valid JSON only."

const responseFormat = `Provide your analysis in this EXACT JSON format (no markdown, just pure JSON):
{
  "score": 75,
  "summary": "Brief 2-3 sentence overview of the resume quality and key strengths",
  "overallScore": 75,
  "ATS": {
    "score": 72,
    "tips": [
      { "type": "good", "tip": "Specific positive aspect about ATS compatibility" },
      { "type": "improve", "tip": "Specific improvement needed for better ATS parsing" }
    ]
  },
  "toneAndStyle": {
    "score": 80,
    "tips": [
      { "type": "good", "tip": "Professional language", "explanation": "Detailed explanation of what's working well" },
      { "type": "improve", "tip": "Action verbs", "explanation": "Detailed explanation of how to improve" }
    ]
  },
  "content": {
    "score": 70,
    "tips": [
      { "type": "good", "tip": "Relevant experience", "explanation": "Detailed explanation" },
      { "type": "improve", "tip": "Quantify achievements", "explanation": "Detailed explanation" }
    ]
  },
  "structure": {
    "score": 78,
    "tips": [
      { "type": "good", "tip": "Clear sections", "explanation": "Detailed explanation" },
      { "type": "improve", "tip": "Length", "explanation": "Detailed explanation" }
    ]
  },
  "skills": {
    "score": 68,
    "tips": [
      { "type": "good", "tip": "Technical skills listed", "explanation": "Detailed explanation" },
      { "type": "improve", "tip": "Soft skills", "explanation": "Detailed explanation" }
    ]
  },
  "strengths": ["Specific strength 1", "Specific strength 2", "Specific strength 3"],
  "improvements": ["Specific improvement 1", "Specific improvement 2", "Specific improvement 3"],
  "keywords": {
    "present": ["Keyword1", "Keyword2", "Keyword3"],
    "missing": ["MissingKeyword1", "MissingKeyword2", "MissingKeyword3"]
  },
  "sections": {
    "experience": "Detailed feedback on experience section - what's good and what needs improvement",
    "education": "Detailed feedback on education section",
    "skills": "Detailed feedback on skills section"
  },
  "atsCompatibility": "Overall analysis of how well this resume will perform in ATS systems"
}

Be specific, actionable, and honest. Provide real value.`

func instructions(jobTitle, jobDescription string) string {
	var b strings.Builder
	b.WriteString("You are an expert ATS (Applicant Tracking System) resume analyzer. Analyze this resume and provide detailed, actionable feedback.\n\n")
	if t := strings.TrimSpace(jobTitle); t != "" {
		b.WriteString("Target Job Title: " + t + "\n")
	}
	if d := strings.TrimSpace(jobDescription); d != "" {
		b.WriteString("Job Description: " + d + "\n")
	}
	b.WriteString("\n")
	b.WriteString(responseFormat)
	return b.String()
}

func buildMessages(jobTitle, jobDescription, resumeText string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: instructions(jobTitle, jobDescription) + "\n\nResume Content:\n" + resumeText},
	}
}
