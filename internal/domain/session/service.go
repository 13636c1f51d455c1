package session

import (
	"context"
)

// SessionService defines business logic for the session lifecycle, the
// per-minute activity aggregation, and break/lunch tracking.
type SessionService interface {
	// StartSession clocks a user in. When an active session already exists
	// it is reused (the device binding is updated if it changed) instead of
	// creating a duplicate.
	StartSession(ctx context.Context, req StartSessionRequest) (SessionResponse, error)

	// EndSession clocks a session out; ended is terminal
	EndSession(ctx context.Context, sessionID string) (SessionResponse, error)

	// RecordHeartbeat upserts the minute sample for the heartbeat's minute
	// and drives the presence-check evaluation for the session
	RecordHeartbeat(ctx context.Context, req HeartbeatRequest) (HeartbeatResponse, error)

	// StartPause opens a break/lunch interval; idempotent when one is open
	StartPause(ctx context.Context, req PauseRequest) (PauseResponse, error)

	// EndPause closes the open pause of the kind. A missing open pause is
	// not an error: the returned response is nil and a warning is logged.
	EndPause(ctx context.Context, req PauseRequest) (*PauseResponse, error)

	// ListPauses returns a session's pauses ordered by start time
	ListPauses(ctx context.Context, sessionID string) ([]PauseResponse, error)

	// GetSession returns a session with its pauses and daily minute totals
	GetSession(ctx context.Context, sessionID string) (SessionDetailResponse, error)

	// ListEvents returns the session's event log in timestamp order
	ListEvents(ctx context.Context, sessionID string) ([]EventResponse, error)
}
