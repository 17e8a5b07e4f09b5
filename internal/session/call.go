package session

import (
	"strings"
	"sync"

	"github.com/sjawhar/mockview/internal/transcribe"
)

// Call is the ephemeral state of one call attempt: its lifecycle status,
// the accumulated transcript and the one-shot feedback generation latch.
// A new attempt always gets a new Call.
type Call struct {
	mu                sync.Mutex
	status            Status
	transcript        []transcribe.Turn
	generationStarted bool
	generating        bool
}

func NewCall() *Call {
	return &Call{status: StatusIdle}
}

func (c *Call) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Apply transitions the call and returns the new status.
func (c *Call) Apply(t Trigger) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := Transition(c.status, t)
	if err != nil {
		return c.status, err
	}
	c.status = next
	return next, nil
}

// OnFinalTranscriptSegment appends a finalized segment verbatim, in delivery
// order. Segments are only accepted while the call is active; duplicates are
// kept and whitespace-only segments are skipped.
func (c *Call) OnFinalTranscriptSegment(speaker transcribe.Speaker, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive {
		return false
	}
	c.transcript = append(c.transcript, transcribe.Turn{Role: speaker, Content: text})
	return true
}

// Transcript returns a copy of the accumulated turns.
func (c *Call) Transcript() []transcribe.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transcribe.Turn, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// TryStartGeneration returns true exactly once per call, and only when no
// generation is in flight. The latch is never cleared.
func (c *Call) TryStartGeneration() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generationStarted || c.generating {
		return false
	}
	c.generationStarted = true
	c.generating = true
	return true
}

// FinishGeneration marks the in-flight generation as done.
func (c *Call) FinishGeneration() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generating = false
}

func (c *Call) Generating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating
}
