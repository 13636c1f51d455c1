package presence

import (
	"context"
	"time"
)

// Scheduler defines the presence-check business logic. Every operation takes
// now explicitly so behavior is deterministic under test and survives process
// restarts (the schedule lives in the store, not in timers).
type Scheduler interface {
	// EnsurePlan tops the session's prompt plan up to the expected count
	// for the elapsed time and returns the new plan size. Existing prompts
	// are never removed.
	EnsurePlan(ctx context.Context, sessionID string, sessionStart, now time.Time) (int, error)

	// EvaluateDue triggers the earliest due prompt for the session, unless
	// a pause is open (the prompt is deferred instead) or another triggered
	// prompt is still awaiting its response. Returns the triggered prompt,
	// or nil when nothing fired.
	EvaluateDue(ctx context.Context, sessionID string, now time.Time) (*PromptResponse, error)

	// ExpireDue marks every overdue triggered prompt missed and returns how
	// many were expired. Expiry is lazy: it only happens when this is called
	// (from heartbeats via EvaluateDue's session scope, and from the sweep).
	ExpireDue(ctx context.Context, now time.Time) (int, error)

	// Confirm records the employee's response. Confirming an already-missed
	// prompt fails with ErrPromptAlreadyMissed; confirming twice is a no-op.
	Confirm(ctx context.Context, req ConfirmRequest) (PromptResponse, error)
}
