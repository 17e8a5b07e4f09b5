package voice

import "github.com/sjawhar/mockview/internal/transcribe"

// utteranceBuffer accumulates words from is_final Deepgram messages until
// speech_final or an utterance end closes the utterance.
type utteranceBuffer struct {
	words []transcribe.Word
}

func (b *utteranceBuffer) Add(words []transcribe.Word) {
	b.words = append(b.words, words...)
}

// Flush returns the buffered utterance text and resets the buffer.
func (b *utteranceBuffer) Flush() string {
	if len(b.words) == 0 {
		return ""
	}
	text := transcribe.JoinWords(b.words)
	b.words = nil
	return text
}

func (b *utteranceBuffer) Len() int {
	return len(b.words)
}
