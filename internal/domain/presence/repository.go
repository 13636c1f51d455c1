package presence

import (
	"context"
	"time"
)

// PromptRepository defines data access for presence prompts. Status
// transitions are conditional updates: the returned bool reports whether the
// row was in the required state, which is how concurrent evaluators lose
// races without corrupting the state machine.
type PromptRepository interface {
	// CreateBatch inserts the missing prompt slots for a session plan
	CreateBatch(ctx context.Context, prompts []PresencePrompt) error

	// GetByID retrieves a prompt by ID
	GetByID(ctx context.Context, id string) (PresencePrompt, error)

	// CountBySession counts all prompts planned for a session
	CountBySession(ctx context.Context, sessionID string) (int, error)

	// GetEarliestDue returns the earliest pending prompt with
	// scheduled_at <= now, or nil if none
	GetEarliestDue(ctx context.Context, sessionID string, now time.Time) (*PresencePrompt, error)

	// HasTriggeredOutstanding reports whether a triggered, unanswered
	// prompt exists for the session
	HasTriggeredOutstanding(ctx context.Context, sessionID string) (bool, error)

	// Defer pushes a pending prompt's schedule forward
	Defer(ctx context.Context, id string, scheduledAt, expiresAt time.Time) (bool, error)

	// MarkTriggered transitions pending -> triggered
	MarkTriggered(ctx context.Context, id string, at time.Time) (bool, error)

	// MarkConfirmed transitions pending/triggered -> confirmed
	MarkConfirmed(ctx context.Context, id string, at time.Time) (bool, error)

	// MarkMissed transitions an unanswered triggered prompt to missed
	MarkMissed(ctx context.Context, id string) (bool, error)

	// ListExpiredTriggered returns triggered prompts whose expiry has
	// passed without a response, across all sessions
	ListExpiredTriggered(ctx context.Context, now time.Time) ([]PresencePrompt, error)

	// ListExpiredTriggeredBySession is ListExpiredTriggered scoped to one session
	ListExpiredTriggeredBySession(ctx context.Context, sessionID string, now time.Time) ([]PresencePrompt, error)

	// ListBySession returns a session's prompts ordered by scheduled_at
	ListBySession(ctx context.Context, sessionID string) ([]PresencePrompt, error)
}
