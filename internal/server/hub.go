package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sjawhar/mockview/internal/session"
	"github.com/sjawhar/mockview/internal/transcribe"
)

// Hub fans call events out to every open socket of the user they concern.
type Hub struct {
	notifier

	mu      sync.RWMutex
	clients map[string]map[chan []byte]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{clients: make(map[string]map[chan []byte]struct{}), logger: logger}
	h.notifier = notifier{publish: h.publishEvent}
	return h
}

func (h *Hub) Subscribe(userID string) chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[chan []byte]struct{})
	}
	h.clients[userID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(userID string, ch chan []byte) {
	h.mu.Lock()
	if subs, ok := h.clients[userID]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.clients, userID)
		}
	}
	h.mu.Unlock()
	close(ch)
}

// Publish delivers msg to userID's subscribers. Slow subscribers miss messages.
func (h *Hub) Publish(userID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients[userID] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// notifier turns call progress into events and hands them to publish.
type notifier struct {
	publish func(userID string, event any)
}

func (n notifier) CallStatusChanged(userID, interviewID string, status session.Status) {
	n.publish(userID, CallStatusEvent{
		Event:       newEvent("call_status", time.Now().UTC()),
		InterviewID: interviewID,
		Status:      string(status),
	})
}

func (n notifier) TranscriptAppended(userID, interviewID string, turn transcribe.Turn) {
	n.publish(userID, TranscriptEvent{
		Event:       newEvent("transcript", time.Now().UTC()),
		InterviewID: interviewID,
		Role:        string(turn.Role),
		Content:     turn.Content,
	})
}

func (n notifier) SpeakingChanged(userID, interviewID string, speaking bool) {
	n.publish(userID, SpeakingEvent{
		Event:       newEvent("speaking", time.Now().UTC()),
		InterviewID: interviewID,
		Speaking:    speaking,
	})
}

func (n notifier) CallError(userID, interviewID, message string) {
	n.publish(userID, CallErrorEvent{
		Event:       newEvent("call_error", time.Now().UTC()),
		InterviewID: interviewID,
		Message:     message,
	})
}

func (n notifier) CallFinished(userID, interviewID, redirect string) {
	n.publish(userID, CallFinishedEvent{
		Event:       newEvent("call_finished", time.Now().UTC()),
		InterviewID: interviewID,
		Redirect:    redirect,
	})
}

func (n notifier) FeedbackReady(userID, interviewID, feedbackID, redirect string) {
	n.publish(userID, FeedbackReadyEvent{
		Event:       newEvent("feedback_ready", time.Now().UTC()),
		InterviewID: interviewID,
		FeedbackID:  feedbackID,
		Redirect:    redirect,
	})
}

func (n notifier) FeedbackFailed(userID, interviewID, message, redirect string) {
	n.publish(userID, FeedbackFailedEvent{
		Event:       newEvent("feedback_failed", time.Now().UTC()),
		InterviewID: interviewID,
		Error:       message,
		Redirect:    redirect,
	})
}

func (h *Hub) publishEvent(userID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", "error", err)
		return
	}
	h.Publish(userID, payload)
}
