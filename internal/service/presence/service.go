package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/worklens/presence-backend-go/internal/domain/presence"
	"github.com/worklens/presence-backend-go/internal/domain/session"
)

// Config carries the presence-check timing knobs.
type Config struct {
	Cadence        time.Duration
	ResponseWindow time.Duration
	DeferDelay     time.Duration
}

type SchedulerImpl struct {
	presence.PromptRepository
	sessionRepo session.SessionRepository
	pauseRepo   session.PauseRepository
	eventRepo   session.EventRepository
	cfg         Config
}

func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := timeToString(*t)
	return &s
}

func toPromptResponse(p presence.PresencePrompt) presence.PromptResponse {
	return presence.PromptResponse{
		ID:          p.ID,
		SessionID:   p.SessionID,
		ScheduledAt: timeToString(p.ScheduledAt),
		ExpiresAt:   timeToString(p.ExpiresAt),
		TriggeredAt: timePtrToString(p.TriggeredAt),
		RespondedAt: timePtrToString(p.RespondedAt),
		Status:      string(p.Status),
	}
}

// EnsurePlan implements presence.Scheduler.
func (s *SchedulerImpl) EnsurePlan(ctx context.Context, sessionID string, sessionStart, now time.Time) (int, error) {
	expected := expectedPromptCount(sessionStart, now, s.cfg.Cadence)

	current, err := s.PromptRepository.CountBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if current >= expected {
		return current, nil
	}

	prompts := make([]presence.PresencePrompt, 0, expected-current)
	for k := current; k < expected; k++ {
		scheduledAt := slotTime(sessionStart, k, s.cfg.Cadence)
		prompts = append(prompts, presence.PresencePrompt{
			ID:          uuid.NewString(),
			SessionID:   sessionID,
			ScheduledAt: scheduledAt,
			ExpiresAt:   scheduledAt.Add(s.cfg.ResponseWindow),
			Status:      presence.PromptPending,
		})
	}

	if err := s.PromptRepository.CreateBatch(ctx, prompts); err != nil {
		return 0, err
	}
	if err := s.sessionRepo.SetPresencePlanCount(ctx, sessionID, expected); err != nil {
		return 0, err
	}

	return expected, nil
}

// EvaluateDue implements presence.Scheduler.
func (s *SchedulerImpl) EvaluateDue(ctx context.Context, sessionID string, now time.Time) (*presence.PromptResponse, error) {
	// Expire this session's overdue triggered prompts first so a dead prompt
	// cannot block the next one forever.
	expired, err := s.PromptRepository.ListExpiredTriggeredBySession(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	for _, p := range expired {
		if err := s.expirePrompt(ctx, p); err != nil {
			return nil, err
		}
	}

	// Only one triggered prompt may await its response at a time.
	outstanding, err := s.PromptRepository.HasTriggeredOutstanding(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if outstanding {
		return nil, nil
	}

	due, err := s.PromptRepository.GetEarliestDue(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if due == nil {
		return nil, nil
	}

	open, err := s.pauseRepo.GetAnyOpen(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		// Presence checks never fire during a sanctioned pause. The prompt
		// stays pending with a strictly later scheduled time, so every
		// planned slot still gets a live check once the pause ends.
		newScheduled := due.ScheduledAt.Add(s.cfg.DeferDelay)
		newExpires := newScheduled.Add(s.cfg.ResponseWindow)
		if _, err := s.PromptRepository.Defer(ctx, due.ID, newScheduled, newExpires); err != nil {
			return nil, err
		}
		slog.Debug("Presence prompt deferred",
			"prompt_id", due.ID, "session_id", sessionID,
			"scheduled_at", newScheduled, "pause_kind", open.Kind)
		return nil, nil
	}

	ok, err := s.PromptRepository.MarkTriggered(ctx, due.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race against another evaluator; its trigger stands.
		return nil, nil
	}

	_, err = s.eventRepo.Append(ctx, session.Event{
		SessionID: sessionID,
		Type:      session.EventPresenceCheck,
		Timestamp: now,
		Payload: map[string]interface{}{
			"prompt_id":    due.ID,
			"scheduled_at": timeToString(due.ScheduledAt),
		},
	})
	if err != nil {
		return nil, err
	}

	due.Status = presence.PromptTriggered
	triggeredAt := now
	due.TriggeredAt = &triggeredAt

	resp := toPromptResponse(*due)
	return &resp, nil
}

// ExpireDue implements presence.Scheduler.
func (s *SchedulerImpl) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.PromptRepository.ListExpiredTriggered(ctx, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range overdue {
		if err := s.expirePrompt(ctx, p); err != nil {
			slog.Error("Failed to expire presence prompt", "prompt_id", p.ID, "error", err)
			continue
		}
		count++
	}

	return count, nil
}

func (s *SchedulerImpl) expirePrompt(ctx context.Context, p presence.PresencePrompt) error {
	ok, err := s.PromptRepository.MarkMissed(ctx, p.ID)
	if err != nil {
		return err
	}
	if !ok {
		// Confirmed or expired concurrently; nothing to record.
		return nil
	}

	_, err = s.eventRepo.Append(ctx, session.Event{
		SessionID: p.SessionID,
		Type:      session.EventPresenceMiss,
		Timestamp: p.ExpiresAt,
		Payload:   map[string]interface{}{"prompt_id": p.ID},
	})
	return err
}

// Confirm implements presence.Scheduler.
func (s *SchedulerImpl) Confirm(ctx context.Context, req presence.ConfirmRequest) (presence.PromptResponse, error) {
	if err := req.Validate(); err != nil {
		return presence.PromptResponse{}, err
	}
	now := req.ParsedTimestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	prompt, err := s.PromptRepository.GetByID(ctx, req.PromptID)
	if err != nil {
		return presence.PromptResponse{}, err
	}

	switch prompt.Status {
	case presence.PromptConfirmed:
		// Confirming twice is a no-op.
		return toPromptResponse(prompt), nil
	case presence.PromptMissed:
		return presence.PromptResponse{}, presence.ErrPromptAlreadyMissed
	}

	// A response after the window closes counts as a miss even when the
	// expiry sweep has not caught the prompt yet.
	if prompt.Status == presence.PromptTriggered && now.After(prompt.ExpiresAt) {
		if err := s.expirePrompt(ctx, prompt); err != nil {
			return presence.PromptResponse{}, err
		}
		return presence.PromptResponse{}, presence.ErrPromptAlreadyMissed
	}

	ok, err := s.PromptRepository.MarkConfirmed(ctx, prompt.ID, now)
	if err != nil {
		return presence.PromptResponse{}, err
	}
	if !ok {
		// Raced with a concurrent transition; re-read to see who won.
		current, err := s.PromptRepository.GetByID(ctx, prompt.ID)
		if err != nil {
			return presence.PromptResponse{}, err
		}
		if current.Status == presence.PromptConfirmed {
			return toPromptResponse(current), nil
		}
		return presence.PromptResponse{}, presence.ErrPromptAlreadyMissed
	}

	_, err = s.eventRepo.Append(ctx, session.Event{
		SessionID: prompt.SessionID,
		Type:      session.EventPresenceConfirmed,
		Timestamp: now,
		Payload:   map[string]interface{}{"prompt_id": prompt.ID},
	})
	if err != nil {
		return presence.PromptResponse{}, err
	}

	prompt.Status = presence.PromptConfirmed
	respondedAt := now
	prompt.RespondedAt = &respondedAt

	return toPromptResponse(prompt), nil
}

func NewScheduler(
	promptRepo presence.PromptRepository,
	sessionRepo session.SessionRepository,
	pauseRepo session.PauseRepository,
	eventRepo session.EventRepository,
	cfg Config,
) presence.Scheduler {
	return &SchedulerImpl{
		PromptRepository: promptRepo,
		sessionRepo:      sessionRepo,
		pauseRepo:        pauseRepo,
		eventRepo:        eventRepo,
		cfg:              cfg,
	}
}
