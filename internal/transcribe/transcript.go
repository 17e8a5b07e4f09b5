package transcribe

import (
	"fmt"
	"strings"
)

// Speaker identifies who produced a transcript turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

func ParseSpeaker(raw string) (Speaker, error) {
	switch s := Speaker(strings.ToLower(strings.TrimSpace(raw))); s {
	case SpeakerUser, SpeakerAssistant, SpeakerSystem:
		return s, nil
	default:
		return "", fmt.Errorf("unknown speaker %q", raw)
	}
}

// Turn is one finalized utterance of a call.
type Turn struct {
	Role    Speaker `json:"role"`
	Content string  `json:"content"`
}

// Format flattens turns into the "- role: content" lines the grading prompt embeds.
func Format(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "- %s: %s\n", t.Role, t.Content)
	}
	return b.String()
}

// Word is a single recognized word with timing, as produced by streaming STT.
type Word struct {
	PunctuatedWord string
	Start          float64
	End            float64
}

// JoinWords renders words as one utterance.
func JoinWords(words []Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if text := strings.TrimSpace(w.PunctuatedWord); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
