package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

// 2024-04-10 is a Wednesday.
var sessionNow = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

func newSessionFixture(seed ...Session) (*SessionService, *gameSessionRepositoryStub, *availabilityRepositoryStub) {
	sessions := newGameSessionRepositoryStub(seed...)
	availabilities := newAvailabilityRepositoryStub()
	svc := NewSessionService(sessions, availabilities, nil, func() string { return "session-new" }, func() time.Time { return sessionNow })
	return svc, sessions, availabilities
}

func storedSession(id, gm string, date time.Time) Session {
	return Session{
		ID:        id,
		Title:     "Session " + id,
		Date:      date,
		GMID:      gm,
		CreatedAt: sessionNow.Add(-24 * time.Hour),
		UpdatedAt: sessionNow.Add(-24 * time.Hour),
	}
}

func sessionIDs(sessions []Session) []string {
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	return ids
}

func TestSessionService_CreateSession(t *testing.T) {
	t.Parallel()

	input := SessionInput{
		Title:      "  Curse of Strahd  ",
		Date:       time.Date(2024, 4, 12, 19, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
		Duration:   ptr(240),
		Location:   ptr("  "),
		MaxPlayers: ptr(5),
	}

	t.Run("persists sessions for GMs", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newSessionFixture()
		created, err := svc.CreateSession(context.Background(), CreateSessionParams{Principal: gmPrincipal, Input: input})
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		if created.ID != "session-new" || created.GMID != "gm-1" || created.Title != "Curse of Strahd" {
			t.Fatalf("unexpected session: %#v", created)
		}
		if created.Date.Location() != time.UTC || created.Date.Hour() != 17 {
			t.Fatalf("expected date normalized to UTC, got %v", created.Date)
		}
		if created.Location != nil {
			t.Fatalf("expected blank location to be dropped, got %q", *created.Location)
		}
		if _, ok := repo.rows["session-new"]; !ok {
			t.Fatalf("expected row to be stored")
		}
	})

	t.Run("rejects players", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSessionFixture()
		if _, err := svc.CreateSession(context.Background(), CreateSessionParams{Principal: playerPrincipal, Input: input}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("requires title and date", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSessionFixture()
		_, err := svc.CreateSession(context.Background(), CreateSessionParams{Principal: adminPrincipal, Input: SessionInput{Title: " ", MaxPlayers: ptr(0)}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.FieldErrors["title"] != "title is required" || vErr.FieldErrors["date"] != "date is required" {
			t.Fatalf("unexpected field errors: %v", vErr.FieldErrors)
		}
	})

	t.Run("bounds duration and player count", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSessionFixture()
		bad := input
		bad.Duration = ptr(2000)
		bad.MaxPlayers = ptr(101)
		_, err := svc.CreateSession(context.Background(), CreateSessionParams{Principal: gmPrincipal, Input: bad})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["duration"] == "" || vErr.FieldErrors["max_players"] == "" {
			t.Fatalf("expected duration and max_players errors, got %v", err)
		}
	})
}

func TestSessionService_ListSessions(t *testing.T) {
	t.Parallel()

	seed := []Session{
		storedSession("past", "gm-1", sessionNow.Add(-time.Hour)),
		storedSession("now", "gm-2", sessionNow),
		storedSession("soon", "gm-1", sessionNow.Add(24*time.Hour)),
		storedSession("later", "gm-2", sessionNow.Add(72*time.Hour)),
	}

	tests := []struct {
		name   string
		params ListSessionsParams
		want   []string
	}{
		{name: "everything", params: ListSessionsParams{}, want: []string{"past", "now", "soon", "later"}},
		{name: "upcoming includes now", params: ListSessionsParams{Upcoming: true}, want: []string{"now", "soon", "later"}},
		{name: "by gm", params: ListSessionsParams{GMID: "gm-1"}, want: []string{"past", "soon"}},
		{name: "limit", params: ListSessionsParams{Upcoming: true, Limit: 2}, want: []string{"now", "soon"}},
		{
			name:   "date range composes with upcoming",
			params: ListSessionsParams{Upcoming: true, StartDate: ptr(sessionNow.Add(-48 * time.Hour)), EndDate: ptr(sessionNow.Add(24 * time.Hour))},
			want:   []string{"now", "soon"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, _, _ := newSessionFixture(seed...)
			params := tc.params
			params.Principal = playerPrincipal

			sessions, err := svc.ListSessions(context.Background(), params)
			if err != nil {
				t.Fatalf("ListSessions failed: %v", err)
			}
			got := sessionIDs(sessions)
			if !equalIDs(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	t.Run("rejects negative limits and inverted ranges", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSessionFixture(seed...)
		_, err := svc.ListSessions(context.Background(), ListSessionsParams{
			Principal: playerPrincipal,
			Limit:     -1,
			StartDate: ptr(sessionNow),
			EndDate:   ptr(sessionNow.Add(-time.Hour)),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["limit"] == "" || vErr.FieldErrors["end_date"] == "" {
			t.Fatalf("expected limit and end_date errors, got %v", err)
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSessionFixture(seed...)
		if _, err := svc.ListSessions(context.Background(), ListSessionsParams{}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})
}

func TestSessionService_NextSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSessionFixture(
		storedSession("past", "gm-1", sessionNow.Add(-time.Minute)),
		storedSession("later", "gm-1", sessionNow.Add(48*time.Hour)),
		storedSession("soon", "gm-1", sessionNow.Add(time.Hour)),
	)

	next, err := svc.NextSession(context.Background(), playerPrincipal)
	if err != nil {
		t.Fatalf("NextSession failed: %v", err)
	}
	if next == nil || next.ID != "soon" {
		t.Fatalf("expected soon, got %#v", next)
	}

	empty, _, _ := newSessionFixture(storedSession("past", "gm-1", sessionNow.Add(-time.Minute)))
	next, err = empty.NextSession(context.Background(), playerPrincipal)
	if err != nil || next != nil {
		t.Fatalf("expected no next session, got %#v (%v)", next, err)
	}
}

func TestSessionService_UpdateSession(t *testing.T) {
	t.Parallel()

	t.Run("owning GM may update", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newSessionFixture(storedSession("s1", "gm-1", sessionNow))
		moved := sessionNow.Add(24 * time.Hour)

		updated, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			Principal: gmPrincipal,
			SessionID: "s1",
			Patch:     SessionPatch{Date: &moved, Duration: ptr(90)},
		})
		if err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}
		if !updated.Date.Equal(moved) || updated.Duration == nil || *updated.Duration != 90 || updated.Title != "Session s1" {
			t.Fatalf("unexpected merge result: %#v", updated)
		}
		if !repo.rows["s1"].UpdatedAt.Equal(sessionNow) {
			t.Fatalf("expected UpdatedAt to be refreshed")
		}
	})

	t.Run("other GMs are rejected and admins allowed", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSessionFixture(storedSession("s1", "gm-2", sessionNow))
		patch := SessionPatch{Title: ptr("Renamed")}

		if _, err := svc.UpdateSession(context.Background(), UpdateSessionParams{Principal: gmPrincipal, SessionID: "s1", Patch: patch}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.UpdateSession(context.Background(), UpdateSessionParams{Principal: adminPrincipal, SessionID: "s1", Patch: patch}); err != nil {
			t.Fatalf("expected admin update to succeed, got %v", err)
		}
	})

	t.Run("re-validates the merged record", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSessionFixture(storedSession("s1", "gm-1", sessionNow))
		_, err := svc.UpdateSession(context.Background(), UpdateSessionParams{Principal: gmPrincipal, SessionID: "s1", Patch: SessionPatch{Title: ptr("")}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["title"] == "" {
			t.Fatalf("expected title validation error, got %v", err)
		}
	})

	t.Run("missing sessions", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSessionFixture()
		if _, err := svc.UpdateSession(context.Background(), UpdateSessionParams{Principal: adminPrincipal, SessionID: "ghost"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSessionService_DeleteSession(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newSessionFixture(storedSession("s1", "gm-2", sessionNow), storedSession("s2", "gm-1", sessionNow))

	if err := svc.DeleteSession(context.Background(), gmPrincipal, "s1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for foreign session, got %v", err)
	}
	if err := svc.DeleteSession(context.Background(), gmPrincipal, "s2"); err != nil {
		t.Fatalf("expected own delete to succeed, got %v", err)
	}
	if err := svc.DeleteSession(context.Background(), adminPrincipal, "s1"); err != nil {
		t.Fatalf("expected admin delete to succeed, got %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("expected all rows deleted, got %d", len(repo.rows))
	}
	if err := svc.DeleteSession(context.Background(), adminPrincipal, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionService_AvailablePlayers(t *testing.T) {
	t.Parallel()

	// Wednesday 19:00 UTC.
	svc, _, availabilities := newSessionFixture(storedSession("s1", "gm-1", time.Date(2024, 4, 17, 19, 0, 0, 0, time.UTC)))

	created := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	rows := []Availability{
		{ID: "evening", UserID: "p1", SelectedDays: []time.Weekday{time.Wednesday}, TimeOption: TimeOptionSpecific, StartTime: ptr("18:00"), EndTime: ptr("23:00"), RepeatOption: RepeatForever, CreatedAt: created},
		{ID: "morning", UserID: "p2", SelectedDays: []time.Weekday{time.Wednesday}, TimeOption: TimeOptionSpecific, StartTime: ptr("08:00"), EndTime: ptr("12:00"), RepeatOption: RepeatForever, CreatedAt: created},
		{ID: "all-day", UserID: "p3", SelectedDays: []time.Weekday{time.Wednesday, time.Friday}, TimeOption: TimeOptionAllDay, RepeatOption: RepeatWeeks, RepeatWeeks: ptr(4), CreatedAt: created},
		{ID: "expired", UserID: "p4", SelectedDays: []time.Weekday{time.Wednesday}, TimeOption: TimeOptionAllDay, RepeatOption: RepeatNone, CreatedAt: created},
		{ID: "tuesday", UserID: "p5", SelectedDays: []time.Weekday{time.Tuesday}, TimeOption: TimeOptionAllDay, RepeatOption: RepeatForever, CreatedAt: created},
	}
	for _, row := range rows {
		availabilities.rows[row.ID] = row
	}
	availabilities.owners = map[string]AvailabilityWithOwner{"p1": {OwnerName: "Rin"}}

	if _, err := svc.AvailablePlayers(context.Background(), playerPrincipal, "s1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	matched, err := svc.AvailablePlayers(context.Background(), gmPrincipal, "s1")
	if err != nil {
		t.Fatalf("AvailablePlayers failed: %v", err)
	}
	ids := make([]string, 0, len(matched))
	for _, row := range matched {
		ids = append(ids, row.ID)
	}
	sort.Strings(ids)
	if !equalIDs(ids, []string{"all-day", "evening"}) {
		t.Fatalf("unexpected matches: %v", ids)
	}
	for _, row := range matched {
		if row.ID == "all-day" && row.OwnerName != UnknownPlayerName {
			t.Fatalf("expected default owner name, got %q", row.OwnerName)
		}
	}

	if _, err := svc.AvailablePlayers(context.Background(), gmPrincipal, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// gameSessionRepositoryStub keeps sessions in memory and applies filters like the SQL repository.
type gameSessionRepositoryStub struct {
	rows    map[string]Session
	listErr error
	filters []SessionRepositoryFilter
}

func newGameSessionRepositoryStub(rows ...Session) *gameSessionRepositoryStub {
	stub := &gameSessionRepositoryStub{rows: make(map[string]Session)}
	for _, row := range rows {
		stub.rows[row.ID] = row
	}
	return stub
}

func (s *gameSessionRepositoryStub) CreateGameSession(ctx context.Context, session Session) (Session, error) {
	s.rows[session.ID] = session
	return session, nil
}

func (s *gameSessionRepositoryStub) GetGameSession(ctx context.Context, id string) (Session, error) {
	row, ok := s.rows[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return row, nil
}

func (s *gameSessionRepositoryStub) UpdateGameSession(ctx context.Context, session Session) (Session, error) {
	if _, ok := s.rows[session.ID]; !ok {
		return Session{}, persistence.ErrNotFound
	}
	s.rows[session.ID] = session
	return session, nil
}

func (s *gameSessionRepositoryStub) DeleteGameSession(ctx context.Context, id string) error {
	if _, ok := s.rows[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *gameSessionRepositoryStub) ListGameSessions(ctx context.Context, filter SessionRepositoryFilter) ([]Session, error) {
	s.filters = append(s.filters, filter)
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Session, 0, len(s.rows))
	for _, row := range s.rows {
		if filter.From != nil && row.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && row.Date.After(*filter.To) {
			continue
		}
		if filter.GMID != "" && row.GMID != filter.GMID {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func TestSessionService_ListSessionsTranslatesStorageErrors(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newSessionFixture()
	repo.listErr = fmt.Errorf("list game sessions: %w", persistence.ErrNotFound)

	if _, err := svc.ListSessions(context.Background(), ListSessionsParams{Principal: playerPrincipal}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.NextSession(context.Background(), playerPrincipal); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NextSession to surface ErrNotFound, got %v", err)
	}
}
