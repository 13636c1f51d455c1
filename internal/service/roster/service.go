package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/worklens/presence-backend-go/internal/domain/leave"
	"github.com/worklens/presence-backend-go/internal/domain/roster"
	"github.com/worklens/presence-backend-go/internal/domain/session"
)

type RosterServiceImpl struct {
	directory      roster.Directory
	sessionRepo    session.SessionRepository
	pauseRepo      session.PauseRepository
	minuteStatRepo session.MinuteStatRepository
	eventRepo      session.EventRepository
	leaveRepo      leave.RequestRepository
	loc            *time.Location
}

// GetRoster implements roster.RosterService. The day window is midnight to
// midnight in the configured business timezone; an empty date means today.
func (s *RosterServiceImpl) GetRoster(ctx context.Context, req roster.RosterRequest) (roster.RosterResponse, error) {
	if err := req.Validate(); err != nil {
		return roster.RosterResponse{}, err
	}
	now := time.Now().UTC()

	var dayStart time.Time
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
		if err != nil {
			return roster.RosterResponse{}, fmt.Errorf("failed to parse roster date: %w", err)
		}
		dayStart = parsed
	} else {
		nowLocal := now.In(s.loc)
		dayStart = time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, s.loc)
	}
	dayEnd := dayStart.Add(24 * time.Hour)

	employees, err := s.directory.ListEmployees(ctx)
	if err != nil {
		return roster.RosterResponse{}, err
	}

	resp := roster.RosterResponse{
		Date: dayStart.Format("2006-01-02"),
		Rows: make([]roster.Row, 0, len(employees)),
	}

	for _, emp := range employees {
		row, err := s.resolveEmployee(ctx, emp, dayStart, dayEnd, now)
		if err != nil {
			return roster.RosterResponse{}, fmt.Errorf("failed to resolve roster row for %s: %w", emp.ID, err)
		}
		resp.Rows = append(resp.Rows, row)
	}

	return resp, nil
}

func (s *RosterServiceImpl) resolveEmployee(ctx context.Context, emp roster.Employee, dayStart, dayEnd, now time.Time) (roster.Row, error) {
	in := resolveInput{
		Employee: emp,
		DayStart: dayStart.UTC(),
		DayEnd:   dayEnd.UTC(),
		Now:      now,
	}

	sessions, err := s.sessionRepo.ListByUserTouching(ctx, emp.ID, in.DayStart, in.DayEnd)
	if err != nil {
		return roster.Row{}, err
	}
	in.Sessions = sessions

	if len(sessions) > 0 {
		ids := make([]string, 0, len(sessions))
		for _, sess := range sessions {
			ids = append(ids, sess.ID)
		}

		if in.Pauses, err = s.pauseRepo.ListBySessions(ctx, ids); err != nil {
			return roster.Row{}, err
		}
		if in.Stats, err = s.minuteStatRepo.ListBySessionsBetween(ctx, ids, in.DayStart, in.DayEnd); err != nil {
			return roster.Row{}, err
		}
		in.Events, err = s.eventRepo.ListBySessionsBetween(ctx, ids,
			[]session.EventType{session.EventLogin, session.EventPresenceMiss}, in.DayStart, in.DayEnd)
		if err != nil {
			return roster.Row{}, err
		}
	}

	if in.Leaves, err = s.leaveRepo.ListApprovedOverlapping(ctx, emp.ID, in.DayStart, in.DayEnd); err != nil {
		return roster.Row{}, err
	}

	return resolveRow(in), nil
}

func NewRosterService(
	directory roster.Directory,
	sessionRepo session.SessionRepository,
	pauseRepo session.PauseRepository,
	minuteStatRepo session.MinuteStatRepository,
	eventRepo session.EventRepository,
	leaveRepo leave.RequestRepository,
	loc *time.Location,
) roster.RosterService {
	return &RosterServiceImpl{
		directory:      directory,
		sessionRepo:    sessionRepo,
		pauseRepo:      pauseRepo,
		minuteStatRepo: minuteStatRepo,
		eventRepo:      eventRepo,
		leaveRepo:      leaveRepo,
		loc:            loc,
	}
}
