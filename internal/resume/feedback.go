package resume

// Tip types.
const (
	TipGood    = "good"
	TipImprove = "improve"
)

type Tip struct {
	Type        string `json:"type"`
	Tip         string `json:"tip"`
	Explanation string `json:"explanation,omitempty"`
}

type Section struct {
	Score int   `json:"score"`
	Tips  []Tip `json:"tips"`
}

type Keywords struct {
	Present []string `json:"present"`
	Missing []string `json:"missing"`
}

type SectionNotes struct {
	Experience string `json:"experience"`
	Education  string `json:"education"`
	Skills     string `json:"skills"`
}

// Feedback is the ATS analysis stored on a resume.
type Feedback struct {
	Score            int          `json:"score"`
	Summary          string       `json:"summary"`
	OverallScore     int          `json:"overallScore"`
	ATS              Section      `json:"ATS"`
	ToneAndStyle     Section      `json:"toneAndStyle"`
	Content          Section      `json:"content"`
	Structure        Section      `json:"structure"`
	Skills           Section      `json:"skills"`
	Strengths        []string     `json:"strengths"`
	Improvements     []string     `json:"improvements"`
	Keywords         Keywords     `json:"keywords"`
	Sections         SectionNotes `json:"sections"`
	ATSCompatibility string       `json:"atsCompatibility"`
}
