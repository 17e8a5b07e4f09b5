package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type CallStatusEvent struct {
	Event
	InterviewID string `json:"interview_id,omitempty"`
	Status      string `json:"status"`
}

type TranscriptEvent struct {
	Event
	InterviewID string `json:"interview_id,omitempty"`
	Role        string `json:"role"`
	Content     string `json:"content"`
}

type SpeakingEvent struct {
	Event
	InterviewID string `json:"interview_id,omitempty"`
	Speaking    bool   `json:"speaking"`
}

type CallErrorEvent struct {
	Event
	InterviewID string `json:"interview_id,omitempty"`
	Message     string `json:"message"`
}

type CallFinishedEvent struct {
	Event
	InterviewID string `json:"interview_id,omitempty"`
	Redirect    string `json:"redirect"`
}

type FeedbackReadyEvent struct {
	Event
	InterviewID string `json:"interview_id"`
	FeedbackID  string `json:"feedback_id"`
	Redirect    string `json:"redirect"`
}

type FeedbackFailedEvent struct {
	Event
	InterviewID string `json:"interview_id"`
	Error       string `json:"error"`
	Redirect    string `json:"redirect"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
