package response

import (
	"errors"
	"net/http"

	"github.com/worklens/presence-backend-go/internal/domain/presence"
	"github.com/worklens/presence-backend-go/internal/domain/session"
	"github.com/worklens/presence-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Session domain errors
	case errors.Is(err, session.ErrSessionNotFound):
		NotFound(w, "Session not found")
	case errors.Is(err, session.ErrSessionNotActive):
		Conflict(w, "Session is not active")
	case errors.Is(err, session.ErrSessionAlreadyEnded):
		Conflict(w, "Session already ended")
	case errors.Is(err, session.ErrPauseNotFound):
		NotFound(w, "Pause not found")
	case errors.Is(err, session.ErrInvalidPauseKind):
		BadRequest(w, "Invalid pause kind", nil)

	// Presence domain errors
	case errors.Is(err, presence.ErrPromptNotFound):
		NotFound(w, "Presence prompt not found")
	case errors.Is(err, presence.ErrPromptAlreadyMissed):
		Conflict(w, "Presence prompt already missed")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
