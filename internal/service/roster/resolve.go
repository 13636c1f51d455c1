package roster

import (
	"fmt"
	"sort"
	"time"

	"github.com/worklens/presence-backend-go/internal/domain/leave"
	"github.com/worklens/presence-backend-go/internal/domain/roster"
	"github.com/worklens/presence-backend-go/internal/domain/session"
)

// interval is a half-open [start, end) span inside the day window.
type interval struct {
	start time.Time
	end   time.Time
	kind  session.PauseKind
}

// resolveInput is everything the resolver needs for one employee. All slices
// are pre-filtered to sessions touching [DayStart, DayEnd).
type resolveInput struct {
	Employee roster.Employee
	DayStart time.Time
	DayEnd   time.Time
	Now      time.Time

	Sessions []session.Session
	Pauses   []session.SessionPause
	Stats    []session.MinuteStat // sorted by minute start
	Events   []session.Event      // login and presence_miss only
	Leaves   []leave.Request
}

func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func timePtr(t time.Time) *string {
	s := timeToString(t)
	return &s
}

func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// clampPauses converts pauses to day-window intervals. An open pause runs
// through now; empty and inverted spans are dropped.
func clampPauses(pauses []session.SessionPause, dayStart, dayEnd, now time.Time) []interval {
	var intervals []interval
	for _, p := range pauses {
		end := now
		if p.EndedAt != nil {
			end = *p.EndedAt
		}
		start := maxTime(p.StartedAt, dayStart)
		end = minTime(end, dayEnd)
		if !end.After(start) {
			continue
		}
		intervals = append(intervals, interval{start: start, end: end, kind: p.Kind})
	}
	return intervals
}

// minuteOverlaps reports whether the minute [m, m+60s) intersects any interval.
func minuteOverlaps(m time.Time, intervals []interval) bool {
	mEnd := m.Add(time.Minute)
	for _, iv := range intervals {
		if m.Before(iv.end) && mEnd.After(iv.start) {
			return true
		}
	}
	return false
}

// idleStreak finds the trailing run of idle minutes anchored at now: walking
// minute by minute backward, it is broken by a non-idle minute, a minute
// inside the exclusion set, or a gap with no recorded stat. Adjacency is
// exact 60-second continuity. Returns the zero time when there is no streak.
func idleStreak(stats []session.MinuteStat, exclusion []interval, now time.Time) time.Time {
	byMinute := make(map[int64]session.MinuteStat, len(stats))
	for _, st := range stats {
		byMinute[st.MinuteStart.Unix()] = st
	}

	// The current minute's heartbeat may not have landed yet; the run may
	// start one minute back.
	cur := now.Truncate(time.Minute)
	if _, ok := byMinute[cur.Unix()]; !ok {
		cur = cur.Add(-time.Minute)
	}

	var idleSince time.Time
	for {
		st, ok := byMinute[cur.Unix()]
		if !ok || !st.Idle || minuteOverlaps(cur, exclusion) {
			break
		}
		idleSince = cur
		cur = cur.Add(-time.Minute)
	}

	return idleSince
}

// bestLeave picks the winning approved leave: PTO beats day-off beats
// make-up, ties broken by earliest start date.
func bestLeave(leaves []leave.Request) *leave.Request {
	var best *leave.Request
	for i := range leaves {
		lr := &leaves[i]
		if best == nil ||
			lr.Type.Rank() < best.Type.Rank() ||
			(lr.Type.Rank() == best.Type.Rank() && lr.StartDate.Before(best.StartDate)) {
			best = lr
		}
	}
	return best
}

func leaveStatus(t leave.Type) (key, label string) {
	switch t {
	case leave.TypePTO:
		return roster.StatusPTO, "On PTO"
	case leave.TypeMakeUp:
		return roster.StatusMakeUp, "Make-Up Time"
	}
	return roster.StatusDayOff, "Day Off"
}

func pauseLabel(kind session.PauseKind, sequence int) string {
	if kind == session.PauseLunch {
		if sequence >= 2 {
			return fmt.Sprintf("On Lunch (x%d)", sequence)
		}
		return "On Lunch"
	}
	if sequence >= 2 {
		return fmt.Sprintf("On Break (#%d)", sequence)
	}
	return "On Break"
}

// resolveRow turns one employee's raw day data into a roster row.
func resolveRow(in resolveInput) roster.Row {
	row := roster.Row{
		UserID:       in.Employee.ID,
		EmployeeName: in.Employee.FullName,
	}

	sort.Slice(in.Stats, func(i, j int) bool {
		return in.Stats[i].MinuteStart.Before(in.Stats[j].MinuteStart)
	})

	intervals := clampPauses(in.Pauses, in.DayStart, in.DayEnd, in.Now)
	for _, iv := range intervals {
		minutes := ceilMinutes(iv.end.Sub(iv.start))
		if iv.kind == session.PauseLunch {
			row.LunchCount++
			row.LunchMinutes += minutes
		} else {
			row.BreakCount++
			row.BreakMinutes += minutes
		}
	}

	// Idle time spent inside a pause is pause time, not idle time.
	for _, st := range in.Stats {
		if st.Active && st.Idle &&
			!st.MinuteStart.Before(in.DayStart) && st.MinuteStart.Before(in.DayEnd) &&
			!minuteOverlaps(st.MinuteStart, intervals) {
			row.TotalIdleMinutes++
		}
	}

	row.FirstLogin = firstLogin(in)
	for _, e := range in.Events {
		if e.Type == session.EventPresenceMiss &&
			!e.Timestamp.Before(in.DayStart) && e.Timestamp.Before(in.DayEnd) {
			row.PresenceMisses++
		}
	}

	var active *session.Session
	for i := range in.Sessions {
		if in.Sessions[i].Status == session.StatusActive {
			active = &in.Sessions[i]
			break
		}
	}

	if active != nil {
		if open := openPause(in.Pauses, active.ID); open != nil {
			if open.Kind == session.PauseLunch {
				row.StatusKey = roster.StatusLunch
			} else {
				row.StatusKey = roster.StatusBreak
			}
			row.StatusLabel = pauseLabel(open.Kind, open.Sequence)
			row.StatusSince = timePtr(open.StartedAt)
			return row
		}

		row.StatusKey = roster.StatusActive
		row.StatusLabel = "Working"
		row.StatusSince = timePtr(workingSince(*active, in.Pauses, in.Now))

		if idleSince := idleStreak(in.Stats, intervals, in.Now); !idleSince.IsZero() {
			row.IdleSince = timePtr(idleSince)
			row.CurrentIdleMinutes = ceilMinutes(in.Now.Sub(idleSince))
		}
		return row
	}

	if best := bestLeave(in.Leaves); best != nil {
		row.StatusKey, row.StatusLabel = leaveStatus(best.Type)
		row.StatusSince = timePtr(maxTime(best.StartDate, in.DayStart))
		return row
	}

	if endedAt := latestEndInWindow(in.Sessions, in.DayStart, in.DayEnd); endedAt != nil {
		row.StatusKey = roster.StatusLoggedOut
		row.StatusLabel = "Logged Out"
		row.StatusSince = timePtr(*endedAt)
		return row
	}

	row.StatusKey = roster.StatusNotLoggedIn
	row.StatusLabel = "Not Logged In"
	return row
}

// workingSince is the end of the most recently closed pause that ended
// before now, or the session start when the session has no closed pause.
func workingSince(s session.Session, pauses []session.SessionPause, now time.Time) time.Time {
	since := s.StartedAt
	for _, p := range pauses {
		if p.SessionID != s.ID || p.EndedAt == nil {
			continue
		}
		if p.EndedAt.Before(now) && p.EndedAt.After(since) {
			since = *p.EndedAt
		}
	}
	return since
}

func openPause(pauses []session.SessionPause, sessionID string) *session.SessionPause {
	var open *session.SessionPause
	for i := range pauses {
		p := &pauses[i]
		if p.SessionID != sessionID || p.EndedAt != nil {
			continue
		}
		if open == nil || p.StartedAt.After(open.StartedAt) {
			open = p
		}
	}
	return open
}

func latestEndInWindow(sessions []session.Session, dayStart, dayEnd time.Time) *time.Time {
	var latest *time.Time
	for i := range sessions {
		endedAt := sessions[i].EndedAt
		if endedAt == nil || endedAt.Before(dayStart) || !endedAt.Before(dayEnd) {
			continue
		}
		if latest == nil || endedAt.After(*latest) {
			latest = endedAt
		}
	}
	return latest
}

// firstLogin is the earliest login event in the window, falling back to the
// earliest session start inside the window when no login event was recorded.
func firstLogin(in resolveInput) *string {
	var earliest time.Time
	for _, e := range in.Events {
		if e.Type != session.EventLogin ||
			e.Timestamp.Before(in.DayStart) || !e.Timestamp.Before(in.DayEnd) {
			continue
		}
		if earliest.IsZero() || e.Timestamp.Before(earliest) {
			earliest = e.Timestamp
		}
	}
	if earliest.IsZero() {
		for _, s := range in.Sessions {
			if s.StartedAt.Before(in.DayStart) || !s.StartedAt.Before(in.DayEnd) {
				continue
			}
			if earliest.IsZero() || s.StartedAt.Before(earliest) {
				earliest = s.StartedAt
			}
		}
	}
	if earliest.IsZero() {
		return nil
	}
	return timePtr(earliest)
}
