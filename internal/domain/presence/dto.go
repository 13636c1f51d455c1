package presence

import (
	"time"

	"github.com/worklens/presence-backend-go/internal/pkg/validator"
)

type ConfirmRequest struct {
	PromptID  string `json:"-"`
	Timestamp string `json:"timestamp,omitempty"`

	// Parsed by Validate; zero when the request carried no timestamp
	ParsedTimestamp time.Time `json:"-"`
}

func (r *ConfirmRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PromptID) {
		errs = append(errs, validator.ValidationError{
			Field:   "prompt_id",
			Message: "prompt_id is required",
		})
	} else if !validator.IsValidUUID(r.PromptID) {
		errs = append(errs, validator.ValidationError{
			Field:   "prompt_id",
			Message: "prompt_id must be a valid UUID",
		})
	}

	if !validator.IsEmpty(r.Timestamp) {
		if ts, ok := validator.IsValidDateTime(r.Timestamp); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "timestamp",
				Message: "timestamp must be a valid ISO8601 datetime",
			})
		} else {
			r.ParsedTimestamp = ts.UTC()
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type PromptResponse struct {
	ID          string  `json:"id"`
	SessionID   string  `json:"session_id"`
	ScheduledAt string  `json:"scheduled_at"`
	ExpiresAt   string  `json:"expires_at"`
	TriggeredAt *string `json:"triggered_at,omitempty"`
	RespondedAt *string `json:"responded_at,omitempty"`
	Status      string  `json:"status"`
}
