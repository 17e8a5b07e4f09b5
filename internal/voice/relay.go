package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Frame is the JSON envelope exchanged with a browser-hosted voice SDK.
type Frame struct {
	Event   EventType    `json:"event,omitempty"`
	Message *Message     `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Command string       `json:"command,omitempty"`
	Config  *StartConfig `json:"config,omitempty"`
}

const (
	commandStart = "agent_start"
	commandStop  = "agent_stop"
)

// Relay is an Agent whose voice session runs in the browser. Commands go out
// through send; the browser reports SDK events back as frames passed to HandleFrame.
type Relay struct {
	Emitter
	send func(Frame) error
}

func NewRelay(send func(Frame) error) *Relay {
	return &Relay{send: send}
}

func (r *Relay) Start(_ context.Context, cfg StartConfig) error {
	if err := r.send(Frame{Command: commandStart, Config: &cfg}); err != nil {
		return fmt.Errorf("relay start: %w", err)
	}
	return nil
}

func (r *Relay) Stop() error {
	if err := r.send(Frame{Command: commandStop}); err != nil {
		return fmt.Errorf("relay stop: %w", err)
	}
	return nil
}

// HandleFrame decodes one browser frame and emits the matching event.
func (r *Relay) HandleFrame(data []byte) error {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode relay frame: %w", err)
	}

	switch f.Event {
	case EventCallStart, EventCallEnd, EventSpeechStart, EventSpeechEnd:
		r.Emit(Event{Type: f.Event})
	case EventMessage:
		if f.Message == nil {
			return errors.New("relay message frame without message")
		}
		r.Emit(Event{Type: EventMessage, Message: f.Message})
	case EventError:
		msg := f.Error
		if msg == "" {
			msg = "voice agent error"
		}
		r.Emit(Event{Type: EventError, Err: errors.New(msg)})
	default:
		return fmt.Errorf("unknown relay event %q", f.Event)
	}
	return nil
}
