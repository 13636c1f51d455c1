package session

import (
	"time"

	"github.com/worklens/presence-backend-go/internal/pkg/validator"
)

// ========================================
// SESSION DTOs
// ========================================

type StartSessionRequest struct {
	UserID   string `json:"-"`
	DeviceID string `json:"device_id"`
}

func (r *StartSessionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if validator.IsEmpty(r.DeviceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "device_id",
			Message: "device_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type HeartbeatRequest struct {
	SessionID     string  `json:"-"`
	Timestamp     string  `json:"timestamp"`
	Active        bool    `json:"active"`
	Idle          bool    `json:"idle"`
	IdleSeconds   int     `json:"idle_seconds"`
	KeysCount     int     `json:"keys_count"`
	MouseCount    int     `json:"mouse_count"`
	ForegroundApp *string `json:"foreground_app,omitempty"`

	// Parsed by Validate
	ParsedTimestamp time.Time `json:"-"`
}

func (r *HeartbeatRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SessionID) {
		errs = append(errs, validator.ValidationError{
			Field:   "session_id",
			Message: "session_id is required",
		})
	}

	if validator.IsEmpty(r.Timestamp) {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp is required",
		})
	} else if ts, ok := validator.IsValidDateTime(r.Timestamp); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp must be a valid ISO8601 datetime",
		})
	} else {
		r.ParsedTimestamp = ts.UTC()
	}

	if r.IdleSeconds < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "idle_seconds",
			Message: "idle_seconds must not be negative",
		})
	}

	if r.KeysCount < 0 || r.MouseCount < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "counters",
			Message: "keys_count and mouse_count must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type PauseRequest struct {
	SessionID string `json:"-"`
	Kind      string `json:"-"`
	Timestamp string `json:"timestamp,omitempty"`

	// Parsed by Validate; zero when the request carried no timestamp
	ParsedTimestamp time.Time `json:"-"`
}

func (r *PauseRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SessionID) {
		errs = append(errs, validator.ValidationError{
			Field:   "session_id",
			Message: "session_id is required",
		})
	}

	if !validator.IsInSlice(r.Kind, []string{string(PauseBreak), string(PauseLunch)}) {
		errs = append(errs, validator.ValidationError{
			Field:   "kind",
			Message: "kind must be one of: break, lunch",
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

// ========================================
// RESPONSES
// ========================================

type SessionResponse struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	DeviceID          string  `json:"device_id"`
	Status            string  `json:"status"`
	StartedAt         string  `json:"started_at"`
	EndedAt           *string `json:"ended_at,omitempty"`
	PresencePlanCount int     `json:"presence_plan_count"`
}

type PauseResponse struct {
	ID              string  `json:"id"`
	SessionID       string  `json:"session_id"`
	Kind            string  `json:"kind"`
	Sequence        int     `json:"sequence"`
	StartedAt       string  `json:"started_at"`
	EndedAt         *string `json:"ended_at,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
}

type HeartbeatResponse struct {
	SessionID   string `json:"session_id"`
	MinuteStart string `json:"minute_start"`
	Active      bool   `json:"active"`
	Idle        bool   `json:"idle"`
}

type EventResponse struct {
	ID        int64                  `json:"id"`
	SessionID string                 `json:"session_id"`
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

type SessionDetailResponse struct {
	SessionResponse
	Pauses            []PauseResponse `json:"pauses"`
	ActiveMinutes     int             `json:"active_minutes"`
	IdleMinutes       int             `json:"idle_minutes"`
	TotalPauseMinutes int             `json:"total_pause_minutes"`
	OpenPauseKind     *string         `json:"open_pause_kind,omitempty"`
}
