package feedback

import "time"

// Categories are the fixed grading categories, in the order the model must return them.
var Categories = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem-Solving",
	"Cultural & Role Fit",
	"Confidence & Clarity",
}

type CategoryScore struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// Assessment is the structured grade the model returns for one interview.
type Assessment struct {
	TotalScore          int             `json:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`
}

// Record is a persisted Assessment, unique per (InterviewID, UserID).
type Record struct {
	ID          string `json:"id"`
	InterviewID string `json:"interviewId"`
	UserID      string `json:"userId"`
	Assessment
	CreatedAt time.Time `json:"createdAt"`
}
