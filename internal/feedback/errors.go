package feedback

import "errors"

// Kind classifies generation failures. Each Kind is itself an error so
// callers can write errors.Is(err, feedback.ErrUpstreamQuota).
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrValidation      Kind = "validation error"
	ErrEmptyTranscript Kind = "empty transcript"
	ErrUpstreamQuota   Kind = "upstream quota exceeded"
	ErrUpstreamAuth    Kind = "upstream authentication failed"
	ErrUpstreamParse   Kind = "upstream response unparseable"
	ErrUpstream        Kind = "upstream error"
	ErrPersistence     Kind = "persistence error"
)

// Error is a classified generation failure with a message safe to show users.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// UserMessage returns the message for err suitable for API responses.
func UserMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return "Unknown error occurred"
}

// KindOf returns the Kind of err, or ErrUpstream for unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrUpstream
}
