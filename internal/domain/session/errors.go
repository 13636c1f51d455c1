package session

import "errors"

// Session domain errors
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionNotActive    = errors.New("session is not active")
	ErrSessionAlreadyEnded = errors.New("session has already ended")
	ErrPauseNotFound       = errors.New("pause record not found")
	ErrInvalidPauseKind    = errors.New("invalid pause kind")
)
