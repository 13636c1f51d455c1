package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worklens/presence-backend-go/internal/domain/leave"
	"github.com/worklens/presence-backend-go/internal/domain/roster"
	"github.com/worklens/presence-backend-go/internal/domain/session"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func baseInput(now time.Time) resolveInput {
	return resolveInput{
		Employee: roster.Employee{ID: "u1", FullName: "Dana Whitfield"},
		DayStart: day,
		DayEnd:   day.Add(24 * time.Hour),
		Now:      now,
	}
}

func activeSession(start time.Time) session.Session {
	return session.Session{
		ID: "s1", UserID: "u1", Status: session.StatusActive, StartedAt: start,
	}
}

func stat(minute time.Time, active, idle bool) session.MinuteStat {
	return session.MinuteStat{SessionID: "s1", MinuteStart: minute, Active: active, Idle: idle}
}

// minuteRange appends one stat per minute in [from, to).
func minuteRange(stats []session.MinuteStat, from, to time.Time, active, idle bool) []session.MinuteStat {
	for m := from; m.Before(to); m = m.Add(time.Minute) {
		stats = append(stats, stat(m, active, idle))
	}
	return stats
}

func closedPause(kind session.PauseKind, seq int, start, end time.Time) session.SessionPause {
	minutes := int(end.Sub(start) / time.Minute)
	return session.SessionPause{
		ID: "p-" + string(kind), SessionID: "s1", Kind: kind, Sequence: seq,
		StartedAt: start, EndedAt: &end, DurationMinutes: &minutes,
	}
}

func TestResolveWorkingAfterBreak(t *testing.T) {
	// Session starts 09:00; minutes 09:00-09:10 active, 09:10-09:20 idle;
	// break 09:20-09:30; resolved at 09:31 with no open pause.
	in := baseInput(at(9, 31))
	in.Sessions = []session.Session{activeSession(at(9, 0))}
	in.Pauses = []session.SessionPause{closedPause(session.PauseBreak, 1, at(9, 20), at(9, 30))}
	in.Stats = minuteRange(nil, at(9, 0), at(9, 10), true, false)
	in.Stats = minuteRange(in.Stats, at(9, 10), at(9, 20), true, true)
	in.Events = []session.Event{{SessionID: "s1", Type: session.EventLogin, Timestamp: at(9, 0)}}

	row := resolveRow(in)

	assert.Equal(t, roster.StatusActive, row.StatusKey)
	assert.Equal(t, "Working", row.StatusLabel)
	require.NotNil(t, row.StatusSince)
	assert.Equal(t, at(9, 30).Format(time.RFC3339), *row.StatusSince)

	// The break boundary kills the idle streak; no idle minutes after 09:30
	assert.Equal(t, 0, row.CurrentIdleMinutes)
	assert.Nil(t, row.IdleSince)
	assert.Equal(t, 10, row.TotalIdleMinutes)

	assert.Equal(t, 1, row.BreakCount)
	assert.Equal(t, 10, row.BreakMinutes)
	assert.Equal(t, 0, row.LunchCount)

	require.NotNil(t, row.FirstLogin)
	assert.Equal(t, at(9, 0).Format(time.RFC3339), *row.FirstLogin)
}

func TestResolveIdleStreakAnchoredAtNow(t *testing.T) {
	now := at(10, 0).Add(30 * time.Second)
	in := baseInput(now)
	in.Sessions = []session.Session{activeSession(at(9, 0))}
	in.Stats = minuteRange(nil, at(9, 0), at(9, 50), true, false)
	in.Stats = minuteRange(in.Stats, at(9, 50), at(10, 0), true, true)

	row := resolveRow(in)

	assert.Equal(t, roster.StatusActive, row.StatusKey)
	require.NotNil(t, row.IdleSince)
	assert.Equal(t, at(9, 50).Format(time.RFC3339), *row.IdleSince)
	// ceil((10:00:30 - 09:50:00) / 60s) = 11
	assert.Equal(t, 11, row.CurrentIdleMinutes)
	assert.Equal(t, 10, row.TotalIdleMinutes)
}

func TestResolveIdleStreakBrokenByGap(t *testing.T) {
	in := baseInput(at(10, 0))
	in.Sessions = []session.Session{activeSession(at(9, 0))}
	// Idle run ends at 09:55; minutes 09:55-10:00 have no stats at all
	in.Stats = minuteRange(nil, at(9, 45), at(9, 55), true, true)

	row := resolveRow(in)

	assert.Equal(t, 0, row.CurrentIdleMinutes)
	assert.Nil(t, row.IdleSince)
	assert.Equal(t, 10, row.TotalIdleMinutes)
}

func TestResolveIdleDuringPauseNotCounted(t *testing.T) {
	in := baseInput(at(10, 0))
	in.Sessions = []session.Session{activeSession(at(9, 0))}
	in.Pauses = []session.SessionPause{closedPause(session.PauseLunch, 1, at(9, 20), at(9, 40))}
	// Idle reported during the lunch window is pause time, not idle time
	in.Stats = minuteRange(nil, at(9, 20), at(9, 40), true, true)

	row := resolveRow(in)

	assert.Equal(t, 0, row.TotalIdleMinutes)
	assert.Equal(t, 1, row.LunchCount)
	assert.Equal(t, 20, row.LunchMinutes)
}

func TestResolveOpenPauseStatus(t *testing.T) {
	in := baseInput(at(12, 10))
	in.Sessions = []session.Session{activeSession(at(9, 0))}
	open := session.SessionPause{
		ID: "p1", SessionID: "s1", Kind: session.PauseLunch, Sequence: 2,
		StartedAt: at(12, 0),
	}
	in.Pauses = []session.SessionPause{
		closedPause(session.PauseLunch, 1, at(10, 0), at(10, 30)),
		open,
	}

	row := resolveRow(in)

	assert.Equal(t, roster.StatusLunch, row.StatusKey)
	assert.Equal(t, "On Lunch (x2)", row.StatusLabel)
	require.NotNil(t, row.StatusSince)
	assert.Equal(t, at(12, 0).Format(time.RFC3339), *row.StatusSince)
	// Open lunch runs through now for minute accounting
	assert.Equal(t, 2, row.LunchCount)
	assert.Equal(t, 40, row.LunchMinutes)
}

func TestResolveBreakLabels(t *testing.T) {
	assert.Equal(t, "On Break", pauseLabel(session.PauseBreak, 1))
	assert.Equal(t, "On Break (#3)", pauseLabel(session.PauseBreak, 3))
	assert.Equal(t, "On Lunch", pauseLabel(session.PauseLunch, 1))
	assert.Equal(t, "On Lunch (x2)", pauseLabel(session.PauseLunch, 2))
}

func TestResolvePTO(t *testing.T) {
	in := baseInput(at(10, 0))
	in.Leaves = []leave.Request{{
		ID: "l1", UserID: "u1", Type: leave.TypePTO, Status: leave.RequestStatusApproved,
		StartDate: day.AddDate(0, 0, -2), EndDate: day.AddDate(0, 0, 2),
	}}

	row := resolveRow(in)

	assert.Equal(t, roster.StatusPTO, row.StatusKey)
	assert.Equal(t, "On PTO", row.StatusLabel)
	require.NotNil(t, row.StatusSince)
	// Leave started before the day: since is clamped to day start
	assert.Equal(t, day.Format(time.RFC3339), *row.StatusSince)
}

func TestResolveLeavePriority(t *testing.T) {
	in := baseInput(at(10, 0))
	in.Leaves = []leave.Request{
		{ID: "l1", Type: leave.TypeMakeUp, StartDate: day, EndDate: day},
		{ID: "l2", Type: leave.TypeNonPTO, StartDate: day, EndDate: day},
		{ID: "l3", Type: leave.TypePTO, StartDate: day.Add(2 * time.Hour), EndDate: day.AddDate(0, 0, 1)},
	}

	row := resolveRow(in)

	// PTO outranks day-off and make-up regardless of start order
	assert.Equal(t, roster.StatusPTO, row.StatusKey)
	require.NotNil(t, row.StatusSince)
	assert.Equal(t, day.Add(2*time.Hour).Format(time.RFC3339), *row.StatusSince)
}

func TestResolveLeaveTieBreak(t *testing.T) {
	in := baseInput(at(10, 0))
	in.Leaves = []leave.Request{
		{ID: "l1", Type: leave.TypeNonPTO, StartDate: day.Add(3 * time.Hour), EndDate: day.AddDate(0, 0, 1)},
		{ID: "l2", Type: leave.TypeNonPTO, StartDate: day.Add(1 * time.Hour), EndDate: day.AddDate(0, 0, 1)},
	}

	row := resolveRow(in)

	assert.Equal(t, roster.StatusDayOff, row.StatusKey)
	assert.Equal(t, "Day Off", row.StatusLabel)
	require.NotNil(t, row.StatusSince)
	assert.Equal(t, day.Add(1*time.Hour).Format(time.RFC3339), *row.StatusSince)
}

func TestResolveLoggedOut(t *testing.T) {
	endedAt := at(15, 0)
	in := baseInput(at(16, 0))
	in.Sessions = []session.Session{{
		ID: "s1", UserID: "u1", Status: session.StatusEnded,
		StartedAt: at(9, 0), EndedAt: &endedAt,
	}}

	row := resolveRow(in)

	assert.Equal(t, roster.StatusLoggedOut, row.StatusKey)
	assert.Equal(t, "Logged Out", row.StatusLabel)
	require.NotNil(t, row.StatusSince)
	assert.Equal(t, endedAt.Format(time.RFC3339), *row.StatusSince)
	require.NotNil(t, row.FirstLogin)
	assert.Equal(t, at(9, 0).Format(time.RFC3339), *row.FirstLogin)
}

func TestResolveNotLoggedIn(t *testing.T) {
	in := baseInput(at(10, 0))

	row := resolveRow(in)

	assert.Equal(t, roster.StatusNotLoggedIn, row.StatusKey)
	assert.Equal(t, "Not Logged In", row.StatusLabel)
	assert.Nil(t, row.StatusSince)
	assert.Nil(t, row.FirstLogin)
}

func TestResolveActiveSessionBeatsLeave(t *testing.T) {
	// An employee who logged in anyway is working, not on leave
	in := baseInput(at(10, 0))
	in.Sessions = []session.Session{activeSession(at(9, 0))}
	in.Leaves = []leave.Request{{
		ID: "l1", Type: leave.TypePTO, StartDate: day, EndDate: day,
	}}

	row := resolveRow(in)

	assert.Equal(t, roster.StatusActive, row.StatusKey)
}

func TestResolvePresenceMisses(t *testing.T) {
	in := baseInput(at(12, 0))
	in.Sessions = []session.Session{activeSession(at(9, 0))}
	in.Events = []session.Event{
		{SessionID: "s1", Type: session.EventLogin, Timestamp: at(9, 0)},
		{SessionID: "s1", Type: session.EventPresenceMiss, Timestamp: at(9, 55)},
		{SessionID: "s1", Type: session.EventPresenceMiss, Timestamp: at(11, 25)},
	}

	row := resolveRow(in)

	assert.Equal(t, 2, row.PresenceMisses)
}

func TestClampPauses(t *testing.T) {
	now := at(13, 0)
	dayEnd := day.Add(24 * time.Hour)
	openStart := at(12, 30)
	beforeDay := day.Add(-time.Hour)
	endEarly := day.Add(30 * time.Minute)

	intervals := clampPauses([]session.SessionPause{
		// Open pause: runs through now
		{Kind: session.PauseBreak, StartedAt: openStart},
		// Straddles the day boundary: clamped to day start
		{Kind: session.PauseLunch, StartedAt: beforeDay, EndedAt: &endEarly},
		// Entirely before the day: dropped
		{Kind: session.PauseBreak, StartedAt: beforeDay, EndedAt: &day},
	}, day, dayEnd, now)

	require.Len(t, intervals, 2)
	assert.Equal(t, openStart, intervals[0].start)
	assert.Equal(t, now, intervals[0].end)
	assert.Equal(t, day, intervals[1].start)
	assert.Equal(t, endEarly, intervals[1].end)
}
