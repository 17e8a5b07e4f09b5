package session

import "fmt"

// Status is the lifecycle state of a call.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusFinished   Status = "finished"
)

// Trigger drives a Status transition.
type Trigger string

const (
	// TriggerStart is the user starting a call attempt.
	TriggerStart Trigger = "start"
	// TriggerStartFailed is the agent failing to start.
	TriggerStartFailed Trigger = "start-failed"
	// TriggerConnected is the agent's call-start event.
	TriggerConnected Trigger = "call-start"
	// TriggerEnded is the agent's call-end event.
	TriggerEnded Trigger = "call-end"
	// TriggerHangUp is the user ending the call.
	TriggerHangUp Trigger = "end"
)

// Transition returns the status reached from current by t. On error the
// current status is returned unchanged.
func Transition(current Status, t Trigger) (Status, error) {
	switch current {
	case StatusIdle:
		switch t {
		case TriggerStart:
			return StatusConnecting, nil
		}
	case StatusConnecting:
		switch t {
		case TriggerConnected:
			return StatusActive, nil
		case TriggerEnded, TriggerHangUp:
			return StatusFinished, nil
		case TriggerStartFailed:
			return StatusIdle, nil
		}
	case StatusActive:
		switch t {
		case TriggerEnded, TriggerHangUp:
			return StatusFinished, nil
		}
	case StatusFinished:
		switch t {
		case TriggerStart:
			return StatusConnecting, nil
		case TriggerEnded:
			// Agents may report the end more than once.
			return StatusFinished, nil
		}
	default:
		return current, fmt.Errorf("unknown call status %q", current)
	}
	return current, fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, current, t)
}
