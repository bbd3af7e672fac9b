package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

func TestCalendarService_Events(t *testing.T) {
	t.Parallel()

	t.Run("defaults to the current month with a fetch buffer", func(t *testing.T) {
		t.Parallel()

		cet := time.FixedZone("CET", 60*60)
		repo := newGameSessionRepositoryStub(
			Session{ID: "short", Date: time.Date(2024, 4, 5, 18, 0, 0, 0, time.UTC), Duration: ptr(90)},
			Session{ID: "default", Date: time.Date(2024, 3, 28, 18, 0, 0, 0, time.UTC)},
			Session{ID: "outside", Date: time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)},
		)
		svc := NewCalendarService(repo, cet, func() time.Time { return sessionNow })

		view, err := svc.Events(context.Background(), CalendarParams{Principal: playerPrincipal})
		if err != nil {
			t.Fatalf("Events failed: %v", err)
		}

		if got := view.Start.Format(time.RFC3339); got != "2024-03-31T23:00:00Z" {
			t.Fatalf("expected April 1 CET as start, got %s", got)
		}
		if got := view.End.Format(time.RFC3339); got != "2024-04-30T23:00:00Z" {
			t.Fatalf("expected May 1 CET as end, got %s", got)
		}
		if view.CanCreate {
			t.Fatalf("expected players not to create sessions")
		}

		filter := repo.filters[0]
		if got := filter.From.UTC().Format(time.RFC3339); got != "2024-03-24T23:00:00Z" {
			t.Fatalf("expected buffered lower bound, got %s", got)
		}

		if len(view.Events) != 2 {
			t.Fatalf("expected two events, got %d", len(view.Events))
		}
		ends := map[string]time.Duration{}
		for _, event := range view.Events {
			ends[event.Session.ID] = event.End.Sub(event.Start)
		}
		if ends["short"] != 90*time.Minute || ends["default"] != DefaultSessionDuration {
			t.Fatalf("unexpected durations: %v", ends)
		}
	})

	t.Run("honors explicit bounds and gm filter", func(t *testing.T) {
		t.Parallel()

		repo := newGameSessionRepositoryStub()
		svc := NewCalendarService(repo, nil, func() time.Time { return sessionNow })
		start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)

		view, err := svc.Events(context.Background(), CalendarParams{Principal: gmPrincipal, Start: &start, End: &end, GMID: "gm-1"})
		if err != nil {
			t.Fatalf("Events failed: %v", err)
		}
		if !view.CanCreate {
			t.Fatalf("expected GMs to create sessions")
		}
		filter := repo.filters[0]
		if filter.GMID != "gm-1" || !filter.To.Equal(end.Add(CalendarFetchBuffer)) {
			t.Fatalf("unexpected filter: %#v", filter)
		}
	})

	t.Run("rejects inverted windows", func(t *testing.T) {
		t.Parallel()

		svc := NewCalendarService(newGameSessionRepositoryStub(), nil, func() time.Time { return sessionNow })
		start := sessionNow
		end := sessionNow.Add(-time.Hour)
		_, err := svc.Events(context.Background(), CalendarParams{Principal: playerPrincipal, Start: &start, End: &end})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		t.Parallel()

		svc := NewCalendarService(newGameSessionRepositoryStub(), nil, nil)
		if _, err := svc.Events(context.Background(), CalendarParams{}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})
}

func TestCalendarService_EventsTranslatesStorageErrors(t *testing.T) {
	t.Parallel()

	repo := newGameSessionRepositoryStub()
	repo.listErr = fmt.Errorf("list game sessions: %w", persistence.ErrNotFound)
	svc := NewCalendarService(repo, time.UTC, func() time.Time { return sessionNow })

	if _, err := svc.Events(context.Background(), CalendarParams{Principal: playerPrincipal}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
