package session

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worklens/presence-backend-go/internal/domain/presence"
	"github.com/worklens/presence-backend-go/internal/domain/session"
)

// ---- in-memory fakes ----

type memSessionRepo struct {
	sessions map[string]*session.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*session.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, s session.Session) (session.Session, error) {
	// Mirrors the partial unique index: one active session per user
	for _, existing := range r.sessions {
		if existing.UserID == s.UserID && existing.Status == session.StatusActive {
			return *existing, nil
		}
	}
	cp := s
	r.sessions[s.ID] = &cp
	return cp, nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id string) (session.Session, error) {
	if s, ok := r.sessions[id]; ok {
		return *s, nil
	}
	return session.Session{}, session.ErrSessionNotFound
}

func (r *memSessionRepo) GetActiveByUser(_ context.Context, userID string) (*session.Session, error) {
	for _, s := range r.sessions {
		if s.UserID == userID && s.Status == session.StatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) UpdateDevice(_ context.Context, id, deviceID string) error {
	s, ok := r.sessions[id]
	if !ok {
		return session.ErrSessionNotFound
	}
	s.DeviceID = deviceID
	return nil
}

func (r *memSessionRepo) End(_ context.Context, id string, endedAt time.Time) (bool, error) {
	s, ok := r.sessions[id]
	if !ok || s.Status != session.StatusActive {
		return false, nil
	}
	s.Status = session.StatusEnded
	s.EndedAt = &endedAt
	return true, nil
}

func (r *memSessionRepo) SetPresencePlanCount(_ context.Context, id string, count int) error {
	if s, ok := r.sessions[id]; ok {
		s.PresencePlanCount = count
	}
	return nil
}

func (r *memSessionRepo) ListActive(_ context.Context) ([]session.Session, error) {
	var out []session.Session
	for _, s := range r.sessions {
		if s.Status == session.StatusActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) ListByUserTouching(_ context.Context, userID string, from, to time.Time) ([]session.Session, error) {
	var out []session.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.StartedAt.Before(to) && (s.EndedAt == nil || !s.EndedAt.Before(from)) {
			out = append(out, *s)
		}
	}
	return out, nil
}

type memPauseRepo struct {
	pauses map[string]*session.SessionPause
}

func newMemPauseRepo() *memPauseRepo {
	return &memPauseRepo{pauses: make(map[string]*session.SessionPause)}
}

func (r *memPauseRepo) Open(ctx context.Context, p session.SessionPause) (session.SessionPause, bool, error) {
	if existing, _ := r.GetOpen(ctx, p.SessionID, p.Kind); existing != nil {
		return *existing, false, nil
	}
	cp := p
	r.pauses[p.ID] = &cp
	return cp, true, nil
}

func (r *memPauseRepo) GetOpen(_ context.Context, sessionID string, kind session.PauseKind) (*session.SessionPause, error) {
	for _, p := range r.pauses {
		if p.SessionID == sessionID && p.Kind == kind && p.EndedAt == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPauseRepo) GetAnyOpen(_ context.Context, sessionID string) (*session.SessionPause, error) {
	for _, p := range r.pauses {
		if p.SessionID == sessionID && p.EndedAt == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPauseRepo) CountByKind(_ context.Context, sessionID string, kind session.PauseKind) (int, error) {
	count := 0
	for _, p := range r.pauses {
		if p.SessionID == sessionID && p.Kind == kind {
			count++
		}
	}
	return count, nil
}

func (r *memPauseRepo) Close(_ context.Context, id string, endedAt time.Time, durationMinutes int) error {
	p, ok := r.pauses[id]
	if !ok || p.EndedAt != nil {
		return session.ErrPauseNotFound
	}
	p.EndedAt = &endedAt
	p.DurationMinutes = &durationMinutes
	return nil
}

func (r *memPauseRepo) ListBySession(_ context.Context, sessionID string) ([]session.SessionPause, error) {
	var out []session.SessionPause
	for _, p := range r.pauses {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r *memPauseRepo) ListBySessions(ctx context.Context, sessionIDs []string) ([]session.SessionPause, error) {
	var out []session.SessionPause
	for _, id := range sessionIDs {
		list, _ := r.ListBySession(ctx, id)
		out = append(out, list...)
	}
	return out, nil
}

type statKey struct {
	sessionID string
	minute    int64
}

type memMinuteStatRepo struct {
	stats map[statKey]session.MinuteStat
}

func newMemMinuteStatRepo() *memMinuteStatRepo {
	return &memMinuteStatRepo{stats: make(map[statKey]session.MinuteStat)}
}

func (r *memMinuteStatRepo) Upsert(_ context.Context, stat session.MinuteStat) error {
	r.stats[statKey{stat.SessionID, stat.MinuteStart.Unix()}] = stat
	return nil
}

func (r *memMinuteStatRepo) ListBySessionBetween(_ context.Context, sessionID string, from, to time.Time) ([]session.MinuteStat, error) {
	var out []session.MinuteStat
	for _, st := range r.stats {
		if st.SessionID == sessionID && !st.MinuteStart.Before(from) && st.MinuteStart.Before(to) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinuteStart.Before(out[j].MinuteStart) })
	return out, nil
}

func (r *memMinuteStatRepo) ListBySessionsBetween(ctx context.Context, sessionIDs []string, from, to time.Time) ([]session.MinuteStat, error) {
	var out []session.MinuteStat
	for _, id := range sessionIDs {
		list, _ := r.ListBySessionBetween(ctx, id, from, to)
		out = append(out, list...)
	}
	return out, nil
}

type memEventRepo struct {
	events []session.Event
}

func (r *memEventRepo) Append(_ context.Context, e session.Event) (session.Event, error) {
	e.ID = int64(len(r.events) + 1)
	r.events = append(r.events, e)
	return e, nil
}

func (r *memEventRepo) ListBySession(_ context.Context, sessionID string) ([]session.Event, error) {
	var out []session.Event
	for _, e := range r.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEventRepo) ListBySessionsBetween(_ context.Context, _ []string, _ []session.EventType, _, _ time.Time) ([]session.Event, error) {
	return r.events, nil
}

func (r *memEventRepo) typesFor(sessionID string) []session.EventType {
	var out []session.EventType
	for _, e := range r.events {
		if e.SessionID == sessionID {
			out = append(out, e.Type)
		}
	}
	return out
}

type fakeScheduler struct {
	ensureCalls   int
	evaluateCalls int
}

func (s *fakeScheduler) EnsurePlan(_ context.Context, _ string, _, _ time.Time) (int, error) {
	s.ensureCalls++
	return 1, nil
}

func (s *fakeScheduler) EvaluateDue(_ context.Context, _ string, _ time.Time) (*presence.PromptResponse, error) {
	s.evaluateCalls++
	return nil, nil
}

func (s *fakeScheduler) ExpireDue(_ context.Context, _ time.Time) (int, error) { return 0, nil }

func (s *fakeScheduler) Confirm(_ context.Context, _ presence.ConfirmRequest) (presence.PromptResponse, error) {
	return presence.PromptResponse{}, nil
}

type testEnv struct {
	svc       session.SessionService
	sessions  *memSessionRepo
	pauses    *memPauseRepo
	stats     *memMinuteStatRepo
	events    *memEventRepo
	scheduler *fakeScheduler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		sessions:  newMemSessionRepo(),
		pauses:    newMemPauseRepo(),
		stats:     newMemMinuteStatRepo(),
		events:    &memEventRepo{},
		scheduler: &fakeScheduler{},
	}
	env.svc = NewSessionService(nil, env.sessions, env.pauses, env.stats, env.events, env.scheduler, nil)
	return env
}

// ---- tests ----

func TestStartSessionIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	first, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, "active", first.Status)
	assert.Equal(t, 1, env.scheduler.ensureCalls)

	// Same user from a new device: the session is reused, the device moves
	second, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "desktop"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "desktop", second.DeviceID)

	active, err := env.sessions.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	// Only the original clock-in logs a login event
	assert.Equal(t, []session.EventType{session.EventLogin}, env.events.typesFor(first.ID))
}

func TestStartSessionValidation(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.StartSession(context.Background(), session.StartSessionRequest{UserID: "u1"})
	assert.Error(t, err)
}

func TestEndSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	started, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)

	ended, err := env.svc.EndSession(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, "ended", ended.Status)
	require.NotNil(t, ended.EndedAt)

	// Ended is terminal
	_, err = env.svc.EndSession(ctx, started.ID)
	assert.ErrorIs(t, err, session.ErrSessionAlreadyEnded)

	_, err = env.svc.EndSession(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestEndSessionClosesOpenPause(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	started, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)
	_, err = env.svc.StartPause(ctx, session.PauseRequest{SessionID: started.ID, Kind: "break"})
	require.NoError(t, err)

	_, err = env.svc.EndSession(ctx, started.ID)
	require.NoError(t, err)

	open, err := env.pauses.GetAnyOpen(ctx, started.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestRecordHeartbeatUpsertsMinute(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	started, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)

	ts := time.Date(2025, 3, 10, 9, 5, 42, 0, time.UTC)
	resp, err := env.svc.RecordHeartbeat(ctx, session.HeartbeatRequest{
		SessionID: started.ID,
		Timestamp: ts.Format(time.RFC3339),
		Active:    true,
		Idle:      false,
		KeysCount: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10T09:05:00Z", resp.MinuteStart)
	assert.Equal(t, 1, env.scheduler.evaluateCalls)

	// A second heartbeat for the same minute overwrites, never duplicates
	_, err = env.svc.RecordHeartbeat(ctx, session.HeartbeatRequest{
		SessionID: started.ID,
		Timestamp: ts.Add(10 * time.Second).Format(time.RFC3339),
		Active:    true,
		Idle:      true,
	})
	require.NoError(t, err)

	minute := ts.Truncate(time.Minute)
	stats, err := env.stats.ListBySessionBetween(ctx, started.ID, minute, minute.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.True(t, stats[0].Idle)
}

func TestRecordHeartbeatRejectsEndedSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	started, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)
	_, err = env.svc.EndSession(ctx, started.ID)
	require.NoError(t, err)

	_, err = env.svc.RecordHeartbeat(ctx, session.HeartbeatRequest{
		SessionID: started.ID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	assert.ErrorIs(t, err, session.ErrSessionNotActive)
}

func TestStartPauseIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	started, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)

	ts := time.Date(2025, 3, 10, 9, 20, 0, 0, time.UTC)
	first, err := env.svc.StartPause(ctx, session.PauseRequest{
		SessionID: started.ID, Kind: "break", Timestamp: ts.Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sequence)

	// Starting again returns the same open pause with the original start
	second, err := env.svc.StartPause(ctx, session.PauseRequest{
		SessionID: started.ID, Kind: "break", Timestamp: ts.Add(time.Minute).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.StartedAt, second.StartedAt)

	pauses, err := env.svc.ListPauses(ctx, started.ID)
	require.NoError(t, err)
	assert.Len(t, pauses, 1)
}

func TestPauseSequencePerKind(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	started, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		_, err = env.svc.StartPause(ctx, session.PauseRequest{
			SessionID: started.ID, Kind: "break", Timestamp: start.Format(time.RFC3339),
		})
		require.NoError(t, err)
		_, err = env.svc.EndPause(ctx, session.PauseRequest{
			SessionID: started.ID, Kind: "break", Timestamp: start.Add(10 * time.Minute).Format(time.RFC3339),
		})
		require.NoError(t, err)
	}
	lunch, err := env.svc.StartPause(ctx, session.PauseRequest{
		SessionID: started.ID, Kind: "lunch", Timestamp: base.Add(3 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	pauses, err := env.svc.ListPauses(ctx, started.ID)
	require.NoError(t, err)
	require.Len(t, pauses, 3)
	assert.Equal(t, 1, pauses[0].Sequence)
	assert.Equal(t, 2, pauses[1].Sequence)
	// Lunch numbering is independent of break numbering
	assert.Equal(t, 1, lunch.Sequence)
}

func TestEndPauseCeilsDuration(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	started, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)

	start := time.Date(2025, 3, 10, 9, 20, 0, 0, time.UTC)
	_, err = env.svc.StartPause(ctx, session.PauseRequest{
		SessionID: started.ID, Kind: "lunch", Timestamp: start.Format(time.RFC3339),
	})
	require.NoError(t, err)

	// 10 minutes and one second rounds up to 11
	ended, err := env.svc.EndPause(ctx, session.PauseRequest{
		SessionID: started.ID, Kind: "lunch",
		Timestamp: start.Add(10*time.Minute + time.Second).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.NotNil(t, ended)
	require.NotNil(t, ended.DurationMinutes)
	assert.Equal(t, 11, *ended.DurationMinutes)

	assert.Contains(t, env.events.typesFor(started.ID), session.EventLunchStart)
	assert.Contains(t, env.events.typesFor(started.ID), session.EventLunchEnd)
}

func TestEndPauseWithoutOpenIsNoOp(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	started, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)

	resp, err := env.svc.EndPause(ctx, session.PauseRequest{SessionID: started.ID, Kind: "break"})
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestCeilMinutes(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{-time.Minute, 0},
		{time.Second, 1},
		{60 * time.Second, 1},
		{61 * time.Second, 2},
		{10 * time.Minute, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ceilMinutes(tt.d), "ceilMinutes(%v)", tt.d)
	}
}

func TestGetSessionDetail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	started, err := env.svc.StartSession(ctx, session.StartSessionRequest{UserID: "u1", DeviceID: "laptop"})
	require.NoError(t, err)

	// Backdate the session so the heartbeat minutes fall inside its window
	base := time.Now().UTC().Add(-10 * time.Minute)
	env.sessions.sessions[started.ID].StartedAt = base

	for i := 0; i < 5; i++ {
		_, err = env.svc.RecordHeartbeat(ctx, session.HeartbeatRequest{
			SessionID: started.ID,
			Timestamp: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			Active:    true,
			Idle:      i >= 3,
		})
		require.NoError(t, err)
	}
	_, err = env.svc.StartPause(ctx, session.PauseRequest{SessionID: started.ID, Kind: "break"})
	require.NoError(t, err)

	detail, err := env.svc.GetSession(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, detail.ID)
	assert.Equal(t, 5, detail.ActiveMinutes)
	assert.Equal(t, 2, detail.IdleMinutes)
	require.NotNil(t, detail.OpenPauseKind)
	assert.Equal(t, "break", *detail.OpenPauseKind)
}
