package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultSessionDuration is assumed for sessions without a duration.
	DefaultSessionDuration = 180 * time.Minute
	// CalendarFetchBuffer widens the fetch window on both sides.
	CalendarFetchBuffer = 7 * 24 * time.Hour
)

// CalendarService maps game sessions into a calendar event feed.
type CalendarService struct {
	sessions GameSessionRepository
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewCalendarService wires dependencies for the calendar feed. Default windows
// are computed in loc, or UTC when loc is nil.
func NewCalendarService(sessions GameSessionRepository, loc *time.Location, now func() time.Time) *CalendarService {
	return NewCalendarServiceWithLogger(sessions, loc, now, nil)
}

// NewCalendarServiceWithLogger wires dependencies with a specific logger.
func NewCalendarServiceWithLogger(sessions GameSessionRepository, loc *time.Location, now func() time.Time, logger *slog.Logger) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarService{sessions: sessions, location: loc, now: now, logger: defaultLogger(logger)}
}

// Events returns the sessions in the requested window widened by the fetch
// buffer. A missing start defaults to the first day of the current month and a
// missing end to one month after the start.
func (s *CalendarService) Events(ctx context.Context, params CalendarParams) (view CalendarView, err error) {
	if s == nil {
		err = fmt.Errorf("CalendarService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "CalendarService", "Events", "principal_id", params.Principal.UserID, "gm_id", params.GMID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to build calendar", "calendar built", "count", len(view.Events))
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	start := s.monthStart()
	if params.Start != nil {
		start = *params.Start
	}
	end := start.AddDate(0, 1, 0)
	if params.End != nil {
		end = *params.End
	}
	if !end.After(start) {
		err = newValidationError("end_date", "end_date must be after start_date")
		return
	}

	from := start.Add(-CalendarFetchBuffer)
	to := end.Add(CalendarFetchBuffer)

	var sessions []Session
	sessions, err = s.sessions.ListGameSessions(ctx, SessionRepositoryFilter{
		From: &from,
		To:   &to,
		GMID: strings.TrimSpace(params.GMID),
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	events := make([]CalendarEvent, 0, len(sessions))
	for _, session := range sessions {
		duration := DefaultSessionDuration
		if session.Duration != nil && *session.Duration > 0 {
			duration = time.Duration(*session.Duration) * time.Minute
		}
		events = append(events, CalendarEvent{
			Session: session,
			Start:   session.Date,
			End:     session.Date.Add(duration),
		})
	}

	view = CalendarView{
		Start:     start.UTC(),
		End:       end.UTC(),
		Events:    events,
		CanCreate: canManageSessions(params.Principal),
	}
	return
}

func (s *CalendarService) monthStart() time.Time {
	y, m, _ := s.now().In(s.location).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, s.location)
}
