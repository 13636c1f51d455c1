package session

import (
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Session is one continuous clock-in-to-clock-out record.
type Session struct {
	ID                string
	UserID            string
	DeviceID          string
	Status            Status
	StartedAt         time.Time
	EndedAt           *time.Time
	PresencePlanCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type PauseKind string

const (
	PauseBreak PauseKind = "break"
	PauseLunch PauseKind = "lunch"
)

// SessionPause is one break or lunch interval nested inside a session.
// Sequence is 1-based per kind per session.
type SessionPause struct {
	ID              string
	SessionID       string
	Kind            PauseKind
	Sequence        int
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationMinutes *int
	CreatedAt       time.Time
}

// MinuteStat is the per-minute activity sample for a session. One row per
// (session, minute start); later heartbeats for the same minute overwrite it.
type MinuteStat struct {
	SessionID     string
	MinuteStart   time.Time
	Active        bool
	Idle          bool
	KeysCount     int
	MouseCount    int
	ForegroundApp *string
	UpdatedAt     time.Time
}

type EventType string

const (
	EventLogin             EventType = "login"
	EventLogout            EventType = "logout"
	EventHeartbeat         EventType = "heartbeat"
	EventBreakStart        EventType = "break_start"
	EventBreakEnd          EventType = "break_end"
	EventLunchStart        EventType = "lunch_start"
	EventLunchEnd          EventType = "lunch_end"
	EventPresenceCheck     EventType = "presence_check"
	EventPresenceMiss      EventType = "presence_miss"
	EventPresenceConfirmed EventType = "presence_confirmed"
)

// Event is an append-only log entry tied to a session. Ordering is by
// timestamp; the serial ID breaks ties by insertion order.
type Event struct {
	ID        int64
	SessionID string
	Type      EventType
	Timestamp time.Time
	Payload   map[string]interface{}
}

// StartEventType returns the event type emitted when a pause of this kind opens.
func (k PauseKind) StartEventType() EventType {
	if k == PauseLunch {
		return EventLunchStart
	}
	return EventBreakStart
}

// EndEventType returns the event type emitted when a pause of this kind closes.
func (k PauseKind) EndEventType() EventType {
	if k == PauseLunch {
		return EventLunchEnd
	}
	return EventBreakEnd
}
