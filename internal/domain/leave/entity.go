package leave

import (
	"time"
)

// Leave requests are owned by the leave service; this backend only reads
// approved requests to classify "time away" on the roster.

type Type string

const (
	TypePTO    Type = "pto"
	TypeNonPTO Type = "non_pto"
	TypeMakeUp Type = "make_up"
)

// Rank orders leave types for roster tie-breaking: lower wins.
// The ordering is explicit so the priority is auditable.
func (t Type) Rank() int {
	switch t {
	case TypePTO:
		return 0
	case TypeNonPTO:
		return 1
	case TypeMakeUp:
		return 2
	}
	return 3
}

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDenied   RequestStatus = "denied"
)

// Request is an approved (or pending/denied) leave request. StartDate and
// EndDate are inclusive calendar days.
type Request struct {
	ID        string
	UserID    string
	Type      Type
	Status    RequestStatus
	StartDate time.Time
	EndDate   time.Time
}
