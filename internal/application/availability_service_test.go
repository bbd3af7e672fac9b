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

// 2024-03-04 is a Monday.
var availabilityNow = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func ptr[T any](value T) *T {
	return &value
}

func eveningInput() AvailabilityInput {
	return AvailabilityInput{
		Name:         "Weeknights",
		SelectedDays: []string{"wednesday", "Monday", "monday"},
		TimeOption:   "specific",
		StartTime:    "18:00",
		EndTime:      "22:00",
		RepeatOption: "forever",
	}
}

func newAvailabilityFixture(allowNewRole bool, seed ...Availability) (*AvailabilityService, *availabilityRepositoryStub) {
	repo := newAvailabilityRepositoryStub(seed...)
	svc := NewAvailabilityService(repo, nil, func() string { return "availability-new" }, func() time.Time { return availabilityNow }, allowNewRole)
	return svc, repo
}

func storedAvailability(id, owner string) Availability {
	return Availability{
		ID:           id,
		UserID:       owner,
		Name:         "Weekends",
		SelectedDays: []time.Weekday{time.Saturday},
		TimeOption:   TimeOptionSpecific,
		StartTime:    ptr("10:00"),
		EndTime:      ptr("16:00"),
		RepeatOption: RepeatWeeks,
		RepeatWeeks:  ptr(4),
		CreatedAt:    availabilityNow.Add(-time.Hour),
		UpdatedAt:    availabilityNow.Add(-time.Hour),
	}
}

func TestAvailabilityService_CreateAvailability(t *testing.T) {
	t.Parallel()

	t.Run("persists normalized availability for players", func(t *testing.T) {
		t.Parallel()

		svc, repo := newAvailabilityFixture(false)
		input := eveningInput()
		input.RepeatWeeks = ptr(3)

		created, err := svc.CreateAvailability(context.Background(), CreateAvailabilityParams{Principal: playerPrincipal, Input: input})
		if err != nil {
			t.Fatalf("CreateAvailability failed: %v", err)
		}

		if created.ID != "availability-new" || created.UserID != "player-1" {
			t.Fatalf("unexpected identity: %#v", created)
		}
		if len(created.SelectedDays) != 2 || created.SelectedDays[0] != time.Monday || created.SelectedDays[1] != time.Wednesday {
			t.Fatalf("expected deduplicated ordered days, got %v", created.SelectedDays)
		}
		if created.RepeatWeeks != nil {
			t.Fatalf("expected repeat_weeks to be cleared for forever, got %v", *created.RepeatWeeks)
		}
		if created.StartTime == nil || *created.StartTime != "18:00" {
			t.Fatalf("expected start time to be kept, got %v", created.StartTime)
		}
		if _, ok := repo.rows["availability-new"]; !ok {
			t.Fatalf("expected row to be stored")
		}
	})

	t.Run("rejects start times that do not precede end times", func(t *testing.T) {
		t.Parallel()

		svc, repo := newAvailabilityFixture(false)
		for _, end := range []string{"18:00", "17:30"} {
			input := eveningInput()
			input.EndTime = end

			_, err := svc.CreateAvailability(context.Background(), CreateAvailabilityParams{Principal: playerPrincipal, Input: input})
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.FieldErrors["end_time"] != "end_time must be after start_time" {
				t.Fatalf("expected end_time validation error for %s, got %v", end, err)
			}
		}
		if len(repo.rows) != 0 {
			t.Fatalf("expected nothing to be stored")
		}
	})

	t.Run("requires times for specific windows and weeks for weekly repeats", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAvailabilityFixture(false)
		input := eveningInput()
		input.StartTime = ""
		input.RepeatOption = "weeks"

		_, err := svc.CreateAvailability(context.Background(), CreateAvailabilityParams{Principal: playerPrincipal, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.FieldErrors["start_time"] == "" || vErr.FieldErrors["repeat_weeks"] == "" {
			t.Fatalf("unexpected field errors: %v", vErr.FieldErrors)
		}
	})

	t.Run("drops times for all day windows", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAvailabilityFixture(false)
		input := eveningInput()
		input.TimeOption = "allDay"
		input.StartTime = "garbage"

		created, err := svc.CreateAvailability(context.Background(), CreateAvailabilityParams{Principal: playerPrincipal, Input: input})
		if err != nil {
			t.Fatalf("CreateAvailability failed: %v", err)
		}
		if created.StartTime != nil || created.EndTime != nil {
			t.Fatalf("expected times to be cleared, got %v/%v", created.StartTime, created.EndTime)
		}
	})

	t.Run("blocks role new unless enabled", func(t *testing.T) {
		t.Parallel()

		newcomer := Principal{UserID: "newbie", Role: RoleNew}

		blocked, _ := newAvailabilityFixture(false)
		if _, err := blocked.CreateAvailability(context.Background(), CreateAvailabilityParams{Principal: newcomer, Input: eveningInput()}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}

		allowed, _ := newAvailabilityFixture(true)
		if _, err := allowed.CreateAvailability(context.Background(), CreateAvailabilityParams{Principal: newcomer, Input: eveningInput()}); err != nil {
			t.Fatalf("expected role new to be allowed, got %v", err)
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAvailabilityFixture(true)
		if _, err := svc.CreateAvailability(context.Background(), CreateAvailabilityParams{Input: eveningInput()}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("surfaces persistence failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("disk full")
		svc, repo := newAvailabilityFixture(false)
		repo.createErr = expected
		if _, err := svc.CreateAvailability(context.Background(), CreateAvailabilityParams{Principal: playerPrincipal, Input: eveningInput()}); !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestAvailabilityService_Validate(t *testing.T) {
	t.Parallel()

	svc, repo := newAvailabilityFixture(false)

	availability, err := svc.Validate(context.Background(), playerPrincipal, eveningInput())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if availability.UserID != "player-1" || availability.ID != "" {
		t.Fatalf("unexpected availability: %#v", availability)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("expected validation not to persist")
	}

	if _, err := svc.Validate(context.Background(), playerPrincipal, AvailabilityInput{}); err == nil {
		t.Fatalf("expected empty input to fail validation")
	}
}

func TestAvailabilityService_ListAvailabilities(t *testing.T) {
	t.Parallel()

	svc, _ := newAvailabilityFixture(false, storedAvailability("a1", "player-1"), storedAvailability("a2", "player-2"))

	all, err := svc.ListAvailabilities(context.Background(), ListAvailabilitiesParams{Principal: playerPrincipal})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected two rows, got %d (%v)", len(all), err)
	}

	own, err := svc.ListAvailabilities(context.Background(), ListAvailabilitiesParams{Principal: playerPrincipal, OwnOnly: true})
	if err != nil || len(own) != 1 || own[0].ID != "a1" {
		t.Fatalf("expected only own row, got %#v (%v)", own, err)
	}

	if _, err := svc.ListAvailabilities(context.Background(), ListAvailabilitiesParams{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAvailabilityService_ListAvailabilitiesWithOwners(t *testing.T) {
	t.Parallel()

	svc, repo := newAvailabilityFixture(false, storedAvailability("a1", "player-1"), storedAvailability("a2", "player-2"))
	repo.owners = map[string]AvailabilityWithOwner{
		"player-1": {OwnerName: "Rin", OwnerEmail: "rin@example.com"},
		"player-2": {OwnerEmail: "anon@example.com"},
	}

	if _, err := svc.ListAvailabilitiesWithOwners(context.Background(), playerPrincipal); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected players to be rejected, got %v", err)
	}

	rows, err := svc.ListAvailabilitiesWithOwners(context.Background(), gmPrincipal)
	if err != nil {
		t.Fatalf("ListAvailabilitiesWithOwners failed: %v", err)
	}
	names := map[string]string{}
	for _, row := range rows {
		names[row.ID] = row.OwnerName
	}
	if names["a1"] != "Rin" || names["a2"] != UnknownPlayerName {
		t.Fatalf("unexpected owner names: %v", names)
	}
}

func TestAvailabilityService_UpdateAvailability(t *testing.T) {
	t.Parallel()

	t.Run("merges partial updates and clears stale repeat weeks", func(t *testing.T) {
		t.Parallel()

		svc, repo := newAvailabilityFixture(false, storedAvailability("a1", "player-1"))
		updated, err := svc.UpdateAvailability(context.Background(), UpdateAvailabilityParams{
			Principal:      playerPrincipal,
			AvailabilityID: "a1",
			Patch:          AvailabilityPatch{Name: ptr("Sundays"), RepeatOption: ptr("forever")},
		})
		if err != nil {
			t.Fatalf("UpdateAvailability failed: %v", err)
		}

		if updated.Name != "Sundays" || updated.RepeatOption != RepeatForever || updated.RepeatWeeks != nil {
			t.Fatalf("unexpected merge result: %#v", updated)
		}
		if updated.StartTime == nil || *updated.StartTime != "10:00" {
			t.Fatalf("expected untouched start time, got %v", updated.StartTime)
		}
		if !updated.UpdatedAt.Equal(availabilityNow) || !updated.CreatedAt.Equal(availabilityNow.Add(-time.Hour)) {
			t.Fatalf("unexpected timestamps: %v / %v", updated.CreatedAt, updated.UpdatedAt)
		}
		if repo.rows["a1"].Name != "Sundays" {
			t.Fatalf("expected row to be persisted")
		}
	})

	t.Run("re-validates the merged record", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAvailabilityFixture(false, storedAvailability("a1", "player-1"))
		_, err := svc.UpdateAvailability(context.Background(), UpdateAvailabilityParams{
			Principal:      playerPrincipal,
			AvailabilityID: "a1",
			Patch:          AvailabilityPatch{EndTime: ptr("09:00")},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["end_time"] == "" {
			t.Fatalf("expected end_time validation error, got %v", err)
		}
	})

	t.Run("allows GMs but not other players", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAvailabilityFixture(false, storedAvailability("a1", "player-2"))
		patch := AvailabilityPatch{Name: ptr("Renamed")}

		if _, err := svc.UpdateAvailability(context.Background(), UpdateAvailabilityParams{Principal: playerPrincipal, AvailabilityID: "a1", Patch: patch}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.UpdateAvailability(context.Background(), UpdateAvailabilityParams{Principal: gmPrincipal, AvailabilityID: "a1", Patch: patch}); err != nil {
			t.Fatalf("expected GM update to succeed, got %v", err)
		}
	})

	t.Run("returns ErrNotFound for missing rows", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAvailabilityFixture(false)
		_, err := svc.UpdateAvailability(context.Background(), UpdateAvailabilityParams{Principal: adminPrincipal, AvailabilityID: "ghost"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAvailabilityService_DeleteAvailability(t *testing.T) {
	t.Parallel()

	t.Run("players may delete their own rows only", func(t *testing.T) {
		t.Parallel()

		svc, repo := newAvailabilityFixture(false, storedAvailability("mine", "player-1"), storedAvailability("theirs", "player-2"))

		if err := svc.DeleteAvailability(context.Background(), playerPrincipal, "theirs"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if err := svc.DeleteAvailability(context.Background(), playerPrincipal, "mine"); err != nil {
			t.Fatalf("expected own delete to succeed, got %v", err)
		}
		if _, ok := repo.rows["mine"]; ok {
			t.Fatalf("expected row to be deleted")
		}
		if _, ok := repo.rows["theirs"]; !ok {
			t.Fatalf("expected other row to survive")
		}
	})

	t.Run("admins may delete any row", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAvailabilityFixture(false, storedAvailability("theirs", "player-2"))
		if err := svc.DeleteAvailability(context.Background(), adminPrincipal, "theirs"); err != nil {
			t.Fatalf("expected admin delete to succeed, got %v", err)
		}
	})

	t.Run("maps missing rows and persistence failures", func(t *testing.T) {
		t.Parallel()

		svc, repo := newAvailabilityFixture(false, storedAvailability("a1", "player-1"))
		if err := svc.DeleteAvailability(context.Background(), adminPrincipal, "ghost"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		expected := errors.New("locked")
		repo.deleteErr = expected
		if err := svc.DeleteAvailability(context.Background(), adminPrincipal, "a1"); !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestAvailabilityService_Occurrences(t *testing.T) {
	t.Parallel()

	row := storedAvailability("a1", "player-1")
	row.SelectedDays = []time.Weekday{time.Monday}
	row.RepeatWeeks = ptr(2)
	svc, _ := newAvailabilityFixture(false, row)

	from := availabilityNow
	to := availabilityNow.AddDate(0, 1, 0)

	occurrences, err := svc.Occurrences(context.Background(), playerPrincipal, "a1", from, to)
	if err != nil {
		t.Fatalf("Occurrences failed: %v", err)
	}
	if len(occurrences) != 2 {
		t.Fatalf("expected two weekly occurrences, got %d", len(occurrences))
	}
	if got := occurrences[1].Start.Format(time.RFC3339); got != "2024-03-11T10:00:00Z" {
		t.Fatalf("unexpected second occurrence start %s", got)
	}

	if _, err := svc.Occurrences(context.Background(), playerPrincipal, "a1", to, from); err == nil {
		t.Fatalf("expected inverted range to be rejected")
	}
	if _, err := svc.Occurrences(context.Background(), playerPrincipal, "ghost", from, to); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// availabilityRepositoryStub keeps availabilities in memory for service tests.
type availabilityRepositoryStub struct {
	rows   map[string]Availability
	owners map[string]AvailabilityWithOwner

	createErr error
	deleteErr error
}

func newAvailabilityRepositoryStub(rows ...Availability) *availabilityRepositoryStub {
	stub := &availabilityRepositoryStub{rows: make(map[string]Availability)}
	for _, row := range rows {
		stub.rows[row.ID] = row
	}
	return stub
}

func (s *availabilityRepositoryStub) CreateAvailability(ctx context.Context, availability Availability) (Availability, error) {
	if s.createErr != nil {
		return Availability{}, s.createErr
	}
	s.rows[availability.ID] = availability
	return availability, nil
}

func (s *availabilityRepositoryStub) GetAvailability(ctx context.Context, id string) (Availability, error) {
	row, ok := s.rows[id]
	if !ok {
		return Availability{}, fmt.Errorf("get availability %s: %w", id, persistence.ErrNotFound)
	}
	return row, nil
}

func (s *availabilityRepositoryStub) UpdateAvailability(ctx context.Context, availability Availability) (Availability, error) {
	if _, ok := s.rows[availability.ID]; !ok {
		return Availability{}, persistence.ErrNotFound
	}
	s.rows[availability.ID] = availability
	return availability, nil
}

func (s *availabilityRepositoryStub) DeleteAvailability(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.rows[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *availabilityRepositoryStub) ListAvailabilities(ctx context.Context, userID string) ([]Availability, error) {
	out := make([]Availability, 0, len(s.rows))
	for _, row := range s.rows {
		if userID != "" && row.UserID != userID {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *availabilityRepositoryStub) ListAvailabilitiesWithOwners(ctx context.Context) ([]AvailabilityWithOwner, error) {
	rows, _ := s.ListAvailabilities(ctx, "")
	out := make([]AvailabilityWithOwner, 0, len(rows))
	for _, row := range rows {
		owner := s.owners[row.UserID]
		out = append(out, AvailabilityWithOwner{Availability: row, OwnerName: owner.OwnerName, OwnerEmail: owner.OwnerEmail})
	}
	return out, nil
}
