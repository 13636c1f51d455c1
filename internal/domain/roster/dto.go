package roster

import (
	"github.com/worklens/presence-backend-go/internal/pkg/validator"
)

// Status keys for the roster view, in resolution priority order.
const (
	StatusActive      = "active"
	StatusBreak       = "break"
	StatusLunch       = "lunch"
	StatusPTO         = "pto"
	StatusDayOff      = "day_off"
	StatusMakeUp      = "make_up"
	StatusLoggedOut   = "logged_out"
	StatusNotLoggedIn = "not_logged_in"
)

type RosterRequest struct {
	Date string `json:"date"`
}

func (r *RosterRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsEmpty(r.Date) {
		if _, ok := validator.IsValidDate(r.Date); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Row is one employee's live status for the day.
type Row struct {
	UserID             string  `json:"user_id"`
	EmployeeName       string  `json:"employee_name"`
	StatusKey          string  `json:"status_key"`
	StatusLabel        string  `json:"status_label"`
	StatusSince        *string `json:"status_since,omitempty"`
	IdleSince          *string `json:"idle_since,omitempty"`
	CurrentIdleMinutes int     `json:"current_idle_minutes"`
	TotalIdleMinutes   int     `json:"total_idle_minutes"`
	BreakCount         int     `json:"break_count"`
	BreakMinutes       int     `json:"break_minutes"`
	LunchCount         int     `json:"lunch_count"`
	LunchMinutes       int     `json:"lunch_minutes"`
	FirstLogin         *string `json:"first_login,omitempty"`
	PresenceMisses     int     `json:"presence_misses"`
}

type RosterResponse struct {
	Date string `json:"date"`
	Rows []Row  `json:"rows"`
}
