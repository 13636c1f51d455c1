package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/worklens/presence-backend-go/internal/domain/presence"
	"github.com/worklens/presence-backend-go/internal/domain/session"
	"github.com/worklens/presence-backend-go/internal/pkg/database"
	"github.com/worklens/presence-backend-go/internal/pkg/sse"
	"github.com/worklens/presence-backend-go/internal/repository/postgresql"
)

type SessionServiceImpl struct {
	db *database.DB
	session.SessionRepository
	session.PauseRepository
	session.MinuteStatRepository
	session.EventRepository
	scheduler presence.Scheduler
	hub       *sse.Hub
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

// ceilMinutes rounds a duration up to whole minutes, clamped to >= 0.
// A 61-second pause counts as 2 minutes; a negative span counts as 0.
func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

func toSessionResponse(s session.Session) session.SessionResponse {
	return session.SessionResponse{
		ID:                s.ID,
		UserID:            s.UserID,
		DeviceID:          s.DeviceID,
		Status:            string(s.Status),
		StartedAt:         timeToString(s.StartedAt),
		EndedAt:           timePtrToString(s.EndedAt),
		PresencePlanCount: s.PresencePlanCount,
	}
}

func toPauseResponse(p session.SessionPause) session.PauseResponse {
	return session.PauseResponse{
		ID:              p.ID,
		SessionID:       p.SessionID,
		Kind:            string(p.Kind),
		Sequence:        p.Sequence,
		StartedAt:       timeToString(p.StartedAt),
		EndedAt:         timePtrToString(p.EndedAt),
		DurationMinutes: p.DurationMinutes,
	}
}

// StartSession implements session.SessionService.
func (s *SessionServiceImpl) StartSession(ctx context.Context, req session.StartSessionRequest) (session.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return session.SessionResponse{}, err
	}
	now := time.Now().UTC()

	// Clock-in is idempotent: an existing active session is reused, only the
	// device binding moves.
	existing, err := s.SessionRepository.GetActiveByUser(ctx, req.UserID)
	if err != nil {
		return session.SessionResponse{}, err
	}
	if existing != nil {
		if existing.DeviceID != req.DeviceID {
			if err := s.SessionRepository.UpdateDevice(ctx, existing.ID, req.DeviceID); err != nil {
				return session.SessionResponse{}, err
			}
			existing.DeviceID = req.DeviceID
		}
		return toSessionResponse(*existing), nil
	}

	created := session.Session{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		DeviceID:  req.DeviceID,
		Status:    session.StatusActive,
		StartedAt: now,
	}

	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		stored, err := s.SessionRepository.Create(ctx, created)
		if err != nil {
			return err
		}
		if stored.ID != created.ID {
			// Lost the clock-in race; the winner's session is the session.
			created = stored
			return nil
		}
		created = stored

		_, err = s.EventRepository.Append(ctx, session.Event{
			SessionID: created.ID,
			Type:      session.EventLogin,
			Timestamp: now,
			Payload:   map[string]interface{}{"device_id": req.DeviceID},
		})
		return err
	})
	if err != nil {
		return session.SessionResponse{}, fmt.Errorf("failed to start session: %w", err)
	}

	// Seed the presence plan. Failure here is not fatal to the clock-in: the
	// sweep job tops plans up on its next pass.
	count, err := s.scheduler.EnsurePlan(ctx, created.ID, created.StartedAt, now)
	if err != nil {
		slog.Error("Failed to seed presence plan", "session_id", created.ID, "error", err)
	} else {
		created.PresencePlanCount = count
	}

	if s.hub != nil {
		s.hub.Broadcast(sse.Event{Event: "roster_changed", Data: map[string]interface{}{
			"user_id": created.UserID, "reason": "login",
		}})
	}

	return toSessionResponse(created), nil
}

// EndSession implements session.SessionService.
func (s *SessionServiceImpl) EndSession(ctx context.Context, sessionID string) (session.SessionResponse, error) {
	existing, err := s.SessionRepository.GetByID(ctx, sessionID)
	if err != nil {
		return session.SessionResponse{}, err
	}
	if existing.Status != session.StatusActive {
		return session.SessionResponse{}, session.ErrSessionAlreadyEnded
	}
	now := time.Now().UTC()

	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		ended, err := s.SessionRepository.End(ctx, sessionID, now)
		if err != nil {
			return err
		}
		if !ended {
			return session.ErrSessionAlreadyEnded
		}

		// An open pause does not survive clock-out; it closes at session end.
		if open, err := s.PauseRepository.GetAnyOpen(ctx, sessionID); err != nil {
			return err
		} else if open != nil {
			duration := ceilMinutes(now.Sub(open.StartedAt))
			if err := s.PauseRepository.Close(ctx, open.ID, now, duration); err != nil {
				return err
			}
			_, err = s.EventRepository.Append(ctx, session.Event{
				SessionID: sessionID,
				Type:      open.Kind.EndEventType(),
				Timestamp: now,
				Payload:   map[string]interface{}{"duration_minutes": duration, "auto_closed": true},
			})
			if err != nil {
				return err
			}
		}

		_, err = s.EventRepository.Append(ctx, session.Event{
			SessionID: sessionID,
			Type:      session.EventLogout,
			Timestamp: now,
		})
		return err
	})
	if err != nil {
		return session.SessionResponse{}, err
	}

	existing.Status = session.StatusEnded
	existing.EndedAt = &now

	if s.hub != nil {
		s.hub.Broadcast(sse.Event{Event: "roster_changed", Data: map[string]interface{}{
			"user_id": existing.UserID, "reason": "logout",
		}})
	}

	return toSessionResponse(existing), nil
}

// RecordHeartbeat implements session.SessionService.
func (s *SessionServiceImpl) RecordHeartbeat(ctx context.Context, req session.HeartbeatRequest) (session.HeartbeatResponse, error) {
	if err := req.Validate(); err != nil {
		return session.HeartbeatResponse{}, err
	}

	existing, err := s.SessionRepository.GetByID(ctx, req.SessionID)
	if err != nil {
		return session.HeartbeatResponse{}, err
	}
	if existing.Status != session.StatusActive {
		return session.HeartbeatResponse{}, session.ErrSessionNotActive
	}

	minuteStart := req.ParsedTimestamp.Truncate(time.Minute)

	err = s.MinuteStatRepository.Upsert(ctx, session.MinuteStat{
		SessionID:     req.SessionID,
		MinuteStart:   minuteStart,
		Active:        req.Active,
		Idle:          req.Idle,
		KeysCount:     req.KeysCount,
		MouseCount:    req.MouseCount,
		ForegroundApp: req.ForegroundApp,
	})
	if err != nil {
		return session.HeartbeatResponse{}, err
	}

	_, err = s.EventRepository.Append(ctx, session.Event{
		SessionID: req.SessionID,
		Type:      session.EventHeartbeat,
		Timestamp: req.ParsedTimestamp,
		Payload: map[string]interface{}{
			"active":       req.Active,
			"idle":         req.Idle,
			"idle_seconds": req.IdleSeconds,
		},
	})
	if err != nil {
		return session.HeartbeatResponse{}, err
	}

	// Heartbeats drive the presence schedule at their own timestamp. Prompt
	// failures must never fail the heartbeat; they are logged and retried by
	// the next heartbeat or the sweep.
	if _, err := s.scheduler.EnsurePlan(ctx, req.SessionID, existing.StartedAt, req.ParsedTimestamp); err != nil {
		slog.Error("Failed to extend presence plan", "session_id", req.SessionID, "error", err)
	} else if prompt, err := s.scheduler.EvaluateDue(ctx, req.SessionID, req.ParsedTimestamp); err != nil {
		slog.Error("Failed to evaluate presence prompts", "session_id", req.SessionID, "error", err)
	} else if prompt != nil && s.hub != nil {
		s.hub.Broadcast(sse.Event{Event: "presence_check", Data: prompt})
	}

	return session.HeartbeatResponse{
		SessionID:   req.SessionID,
		MinuteStart: timeToString(minuteStart),
		Active:      req.Active,
		Idle:        req.Idle,
	}, nil
}

// StartPause implements session.SessionService.
func (s *SessionServiceImpl) StartPause(ctx context.Context, req session.PauseRequest) (session.PauseResponse, error) {
	if err := req.Validate(); err != nil {
		return session.PauseResponse{}, err
	}
	kind := session.PauseKind(req.Kind)
	ts := req.ParsedTimestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	existing, err := s.SessionRepository.GetByID(ctx, req.SessionID)
	if err != nil {
		return session.PauseResponse{}, err
	}
	if existing.Status != session.StatusActive {
		return session.PauseResponse{}, session.ErrSessionNotActive
	}

	// Idempotent start: an already-open pause of the kind is returned as-is.
	if open, err := s.PauseRepository.GetOpen(ctx, req.SessionID, kind); err != nil {
		return session.PauseResponse{}, err
	} else if open != nil {
		return toPauseResponse(*open), nil
	}

	count, err := s.PauseRepository.CountByKind(ctx, req.SessionID, kind)
	if err != nil {
		return session.PauseResponse{}, err
	}

	var stored session.SessionPause
	var created bool
	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		stored, created, err = s.PauseRepository.Open(ctx, session.SessionPause{
			ID:        uuid.NewString(),
			SessionID: req.SessionID,
			Kind:      kind,
			Sequence:  count + 1,
			StartedAt: ts,
		})
		if err != nil {
			return err
		}
		if !created {
			return nil
		}

		_, err = s.EventRepository.Append(ctx, session.Event{
			SessionID: req.SessionID,
			Type:      kind.StartEventType(),
			Timestamp: ts,
			Payload:   map[string]interface{}{"sequence": stored.Sequence},
		})
		return err
	})
	if err != nil {
		return session.PauseResponse{}, err
	}

	if created && s.hub != nil {
		s.hub.Broadcast(sse.Event{Event: "roster_changed", Data: map[string]interface{}{
			"user_id": existing.UserID, "reason": string(kind.StartEventType()),
		}})
	}

	return toPauseResponse(stored), nil
}

// EndPause implements session.SessionService.
func (s *SessionServiceImpl) EndPause(ctx context.Context, req session.PauseRequest) (*session.PauseResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	kind := session.PauseKind(req.Kind)
	ts := req.ParsedTimestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	existing, err := s.SessionRepository.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	open, err := s.PauseRepository.GetOpen(ctx, req.SessionID, kind)
	if err != nil {
		return nil, err
	}
	if open == nil {
		// End without a matching start is telemetry noise, not corruption.
		slog.Warn("Pause end without open pause",
			"session_id", req.SessionID, "kind", req.Kind)
		return nil, nil
	}

	duration := ceilMinutes(ts.Sub(open.StartedAt))

	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		if err := s.PauseRepository.Close(ctx, open.ID, ts, duration); err != nil {
			return err
		}
		_, err := s.EventRepository.Append(ctx, session.Event{
			SessionID: req.SessionID,
			Type:      kind.EndEventType(),
			Timestamp: ts,
			Payload:   map[string]interface{}{"sequence": open.Sequence, "duration_minutes": duration},
		})
		return err
	})
	if err != nil {
		if errors.Is(err, session.ErrPauseNotFound) {
			// Raced with another close; same no-op outcome.
			slog.Warn("Pause already closed", "session_id", req.SessionID, "kind", req.Kind)
			return nil, nil
		}
		return nil, err
	}

	open.EndedAt = &ts
	open.DurationMinutes = &duration

	if s.hub != nil {
		s.hub.Broadcast(sse.Event{Event: "roster_changed", Data: map[string]interface{}{
			"user_id": existing.UserID, "reason": string(kind.EndEventType()),
		}})
	}

	resp := toPauseResponse(*open)
	return &resp, nil
}

// ListPauses implements session.SessionService.
func (s *SessionServiceImpl) ListPauses(ctx context.Context, sessionID string) ([]session.PauseResponse, error) {
	if _, err := s.SessionRepository.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	pauses, err := s.PauseRepository.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	responses := make([]session.PauseResponse, 0, len(pauses))
	for _, p := range pauses {
		responses = append(responses, toPauseResponse(p))
	}
	return responses, nil
}

// GetSession implements session.SessionService.
func (s *SessionServiceImpl) GetSession(ctx context.Context, sessionID string) (session.SessionDetailResponse, error) {
	existing, err := s.SessionRepository.GetByID(ctx, sessionID)
	if err != nil {
		return session.SessionDetailResponse{}, err
	}
	now := time.Now().UTC()

	end := now
	if existing.EndedAt != nil {
		end = *existing.EndedAt
	}

	pauses, err := s.PauseRepository.ListBySession(ctx, sessionID)
	if err != nil {
		return session.SessionDetailResponse{}, err
	}

	stats, err := s.MinuteStatRepository.ListBySessionBetween(ctx,
		sessionID, existing.StartedAt.Truncate(time.Minute), end.Add(time.Minute))
	if err != nil {
		return session.SessionDetailResponse{}, err
	}

	detail := session.SessionDetailResponse{
		SessionResponse: toSessionResponse(existing),
		Pauses:          make([]session.PauseResponse, 0, len(pauses)),
	}

	for _, p := range pauses {
		detail.Pauses = append(detail.Pauses, toPauseResponse(p))
		if p.EndedAt == nil {
			kind := string(p.Kind)
			detail.OpenPauseKind = &kind
			detail.TotalPauseMinutes += ceilMinutes(end.Sub(p.StartedAt))
		} else if p.DurationMinutes != nil {
			detail.TotalPauseMinutes += *p.DurationMinutes
		}
	}

	for _, st := range stats {
		if st.Active {
			detail.ActiveMinutes++
		}
		if st.Idle {
			detail.IdleMinutes++
		}
	}

	return detail, nil
}

// ListEvents implements session.SessionService.
func (s *SessionServiceImpl) ListEvents(ctx context.Context, sessionID string) ([]session.EventResponse, error) {
	if _, err := s.SessionRepository.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	events, err := s.EventRepository.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	responses := make([]session.EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, session.EventResponse{
			ID:        e.ID,
			SessionID: e.SessionID,
			Type:      string(e.Type),
			Timestamp: timeToString(e.Timestamp),
			Payload:   e.Payload,
		})
	}
	return responses, nil
}

func NewSessionService(
	db *database.DB,
	sessionRepo session.SessionRepository,
	pauseRepo session.PauseRepository,
	minuteStatRepo session.MinuteStatRepository,
	eventRepo session.EventRepository,
	scheduler presence.Scheduler,
	hub *sse.Hub,
) session.SessionService {
	return &SessionServiceImpl{
		db:                   db,
		SessionRepository:    sessionRepo,
		PauseRepository:      pauseRepo,
		MinuteStatRepository: minuteStatRepo,
		EventRepository:      eventRepo,
		scheduler:            scheduler,
		hub:                  hub,
	}
}
