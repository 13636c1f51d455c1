package presence

import "errors"

// Presence domain errors
var (
	ErrPromptNotFound      = errors.New("presence prompt not found")
	ErrPromptAlreadyMissed = errors.New("presence prompt has already been marked missed")
)
