package session

import (
	"context"
	"time"
)

// SessionRepository defines data access for work sessions.
type SessionRepository interface {
	// Create creates a new session. The store enforces at most one active
	// session per user; a concurrent create for the same user surfaces the
	// existing active session instead of a duplicate.
	Create(ctx context.Context, s Session) (Session, error)

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id string) (Session, error)

	// GetActiveByUser returns the user's active session, or nil if none
	GetActiveByUser(ctx context.Context, userID string) (*Session, error)

	// UpdateDevice replaces the device bound to an active session
	UpdateDevice(ctx context.Context, id string, deviceID string) error

	// End transitions an active session to ended. Returns false when the
	// session was not active (already ended by a concurrent request).
	End(ctx context.Context, id string, endedAt time.Time) (bool, error)

	// SetPresencePlanCount records how many presence prompts are planned
	SetPresencePlanCount(ctx context.Context, id string, count int) error

	// ListActive returns all currently-active sessions
	ListActive(ctx context.Context) ([]Session, error)

	// ListByUserTouching returns the user's sessions overlapping [from, to):
	// started before the window end and not ended before the window start.
	ListByUserTouching(ctx context.Context, userID string, from, to time.Time) ([]Session, error)
}

// PauseRepository defines data access for break/lunch intervals.
type PauseRepository interface {
	// Open inserts an open pause. When an open pause of the same kind
	// already exists (unique-index race), the existing one is returned and
	// created is false.
	Open(ctx context.Context, p SessionPause) (pause SessionPause, created bool, err error)

	// GetOpen returns the open pause of the given kind, or nil if none
	GetOpen(ctx context.Context, sessionID string, kind PauseKind) (*SessionPause, error)

	// GetAnyOpen returns the open pause of any kind, or nil if none
	GetAnyOpen(ctx context.Context, sessionID string) (*SessionPause, error)

	// CountByKind counts all pauses of a kind on a session, open or closed
	CountByKind(ctx context.Context, sessionID string, kind PauseKind) (int, error)

	// Close ends an open pause and stores its duration
	Close(ctx context.Context, id string, endedAt time.Time, durationMinutes int) error

	// ListBySession returns the session's pauses ordered by started_at
	ListBySession(ctx context.Context, sessionID string) ([]SessionPause, error)

	// ListBySessions returns pauses for a set of sessions ordered by started_at
	ListBySessions(ctx context.Context, sessionIDs []string) ([]SessionPause, error)
}

// MinuteStatRepository defines data access for per-minute activity samples.
type MinuteStatRepository interface {
	// Upsert writes the stat for (session, minute start); last write wins
	Upsert(ctx context.Context, stat MinuteStat) error

	// ListBySessionBetween returns stats with minute_start in [from, to)
	ListBySessionBetween(ctx context.Context, sessionID string, from, to time.Time) ([]MinuteStat, error)

	// ListBySessionsBetween returns stats for a set of sessions with
	// minute_start in [from, to), ordered by minute_start
	ListBySessionsBetween(ctx context.Context, sessionIDs []string, from, to time.Time) ([]MinuteStat, error)
}

// EventRepository defines access to the append-only session event log.
type EventRepository interface {
	// Append writes an event; events are immutable once written
	Append(ctx context.Context, e Event) (Event, error)

	// ListBySession returns all events for a session in timestamp order
	ListBySession(ctx context.Context, sessionID string) ([]Event, error)

	// ListBySessionsBetween returns events of the given types for a set of
	// sessions with timestamp in [from, to). Empty types means all types.
	ListBySessionsBetween(ctx context.Context, sessionIDs []string, types []EventType, from, to time.Time) ([]Event, error)
}
