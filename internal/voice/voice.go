// Package voice abstracts the real-time voice agent that conducts a call.
//
// An Agent reports the call through six event types. Implementations may
// deliver events from any goroutine; consumers must synchronise.
package voice

import (
	"context"
	"sync"
)

type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventMessage     EventType = "message"
	EventError       EventType = "error"
)

const (
	MessageTypeTranscript = "transcript"

	TranscriptFinal   = "final"
	TranscriptPartial = "partial"
)

// Message is the payload of an EventMessage.
type Message struct {
	Type           string `json:"type"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Role           string `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
}

// IsFinalTranscript reports whether m is a finalized speech-to-text segment.
func (m Message) IsFinalTranscript() bool {
	return m.Type == MessageTypeTranscript && m.TranscriptType == TranscriptFinal
}

type Event struct {
	Type    EventType
	Message *Message
	Err     error
}

type Handler func(Event)

// Mode selects what a call is for.
type Mode string

const (
	// ModeInterview grades the call when it ends.
	ModeInterview Mode = "interview"
	// ModeGenerate collects interview parameters by voice; nothing is graded.
	ModeGenerate Mode = "generate"
)

func ParseMode(raw string) (Mode, bool) {
	switch Mode(raw) {
	case "", ModeInterview:
		return ModeInterview, true
	case ModeGenerate:
		return ModeGenerate, true
	default:
		return "", false
	}
}

// StartConfig is passed to Agent.Start.
type StartConfig struct {
	Mode        Mode     `json:"mode"`
	InterviewID string   `json:"interviewId,omitempty"`
	UserID      string   `json:"userId"`
	UserName    string   `json:"userName,omitempty"`
	Questions   []string `json:"questions,omitempty"`
}

type Agent interface {
	Start(ctx context.Context, cfg StartConfig) error
	Stop() error
	// Subscribe registers h for all events and returns a func that removes it.
	Subscribe(h Handler) (unsubscribe func())
}

// Emitter fans events out to subscribers. The zero value is ready to use.
type Emitter struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

func (e *Emitter) Subscribe(h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[int]Handler)
	}
	id := e.nextID
	e.nextID++
	e.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.handlers, id)
			e.mu.Unlock()
		})
	}
}

func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
