package presence

import (
	"time"
)

type PromptStatus string

const (
	PromptPending   PromptStatus = "pending"
	PromptTriggered PromptStatus = "triggered"
	PromptConfirmed PromptStatus = "confirmed"
	PromptMissed    PromptStatus = "missed"
)

// PresencePrompt is one scheduled "are you there" check. Prompts are rows
// with persisted scheduled/expiry timestamps, re-evaluated on heartbeats and
// by the sweep job; there are no in-process timers.
//
// State machine: pending -> triggered -> {confirmed | missed}. A due prompt
// that coincides with an open pause is deferred: scheduled_at moves forward
// and the prompt stays pending.
type PresencePrompt struct {
	ID          string
	SessionID   string
	ScheduledAt time.Time
	ExpiresAt   time.Time
	TriggeredAt *time.Time
	RespondedAt *time.Time
	Status      PromptStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
