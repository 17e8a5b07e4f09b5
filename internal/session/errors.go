package session

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid call transition")
	ErrNoAgent           = errors.New("no voice agent configured")
)
