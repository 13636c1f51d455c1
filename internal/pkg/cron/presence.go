package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/worklens/presence-backend-go/internal/domain/presence"
	"github.com/worklens/presence-backend-go/internal/domain/session"
	"github.com/worklens/presence-backend-go/internal/pkg/sse"
)

// PresenceJobs drives the presence-check lifecycle for sessions whose
// heartbeats have gone quiet. Heartbeats evaluate prompts inline; the sweep
// is the safety net that keeps plans topped up and expires overdue prompts
// even when a client stops reporting.
type PresenceJobs struct {
	sessionRepo session.SessionRepository
	scheduler   presence.Scheduler
	hub         *sse.Hub
}

func NewPresenceJobs(
	sessionRepo session.SessionRepository,
	scheduler presence.Scheduler,
	hub *sse.Hub,
) *PresenceJobs {
	return &PresenceJobs{
		sessionRepo: sessionRepo,
		scheduler:   scheduler,
		hub:         hub,
	}
}

func (j *PresenceJobs) RegisterJobs(scheduler *Scheduler, sweepInterval time.Duration) {
	scheduler.AddJob("presence_sweep", sweepInterval, j.Sweep)
}

// Sweep tops up every active session's prompt plan, triggers any due prompt,
// and marks overdue triggered prompts missed. Per-session failures are logged
// and skipped so one bad session cannot stall the rest.
func (j *PresenceJobs) Sweep(ctx context.Context) error {
	now := time.Now().UTC()

	sessions, err := j.sessionRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	triggered := 0
	for _, s := range sessions {
		if _, err := j.scheduler.EnsurePlan(ctx, s.ID, s.StartedAt, now); err != nil {
			slog.Error("Cron: Failed to extend presence plan", "session_id", s.ID, "error", err)
			continue
		}

		prompt, err := j.scheduler.EvaluateDue(ctx, s.ID, now)
		if err != nil {
			slog.Error("Cron: Failed to evaluate presence prompts", "session_id", s.ID, "error", err)
			continue
		}
		if prompt != nil {
			triggered++
			if j.hub != nil {
				j.hub.Broadcast(sse.Event{Event: "presence_check", Data: prompt})
			}
		}
	}

	expired, err := j.scheduler.ExpireDue(ctx, now)
	if err != nil {
		return err
	}

	if triggered > 0 || expired > 0 {
		slog.Info("Cron: Presence sweep completed",
			"sessions", len(sessions), "triggered", triggered, "expired", expired)
		if expired > 0 && j.hub != nil {
			j.hub.Broadcast(sse.Event{Event: "roster_changed", Data: map[string]interface{}{
				"reason": "presence_miss",
				"count":  expired,
			}})
		}
	}

	return nil
}
