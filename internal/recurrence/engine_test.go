package recurrence

import (
	"errors"
	"testing"
	"time"
)

// 2024-03-04 is a Monday.
var anchor = time.Date(2024, time.March, 4, 15, 0, 0, 0, time.UTC)

func eveningRule(weeks int, days ...time.Weekday) Rule {
	return Rule{
		ID:          "availability-1",
		Weekdays:    days,
		StartMinute: 18 * 60,
		EndMinute:   22 * 60,
		StartsOn:    anchor,
		Weeks:       weeks,
	}
}

func startDates(occurrences []Occurrence) []string {
	out := make([]string, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, occ.Start.Format("2006-01-02 15:04"))
	}
	return out
}

func equalStrings(a, b []string) bool {
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

func TestEngine_GenerateOccurrences(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)

	t.Run("respects weekday selections within the repeat window", func(t *testing.T) {
		t.Parallel()

		occurrences, err := engine.GenerateOccurrences(eveningRule(2, time.Monday, time.Wednesday), GenerateOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"2024-03-04 18:00", "2024-03-06 18:00", "2024-03-11 18:00", "2024-03-13 18:00"}
		if got := startDates(occurrences); !equalStrings(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		if end := occurrences[0].End; end.Hour() != 22 {
			t.Fatalf("expected occurrences to end at 22:00, got %v", end)
		}
	})

	t.Run("single week rules stop after seven days", func(t *testing.T) {
		t.Parallel()

		occurrences, err := engine.GenerateOccurrences(eveningRule(1, time.Monday, time.Sunday), GenerateOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"2024-03-04 18:00", "2024-03-10 18:00"}
		if got := startDates(occurrences); !equalStrings(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("requires a range end for forever rules", func(t *testing.T) {
		t.Parallel()

		if _, err := engine.GenerateOccurrences(eveningRule(0, time.Monday), GenerateOptions{}); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("clips occurrences to the requested period", func(t *testing.T) {
		t.Parallel()

		from := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
		to := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
		occurrences, err := engine.GenerateOccurrences(eveningRule(0, time.Monday, time.Wednesday), GenerateOptions{RangeStart: &from, RangeEnd: &to})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"2024-03-13 18:00", "2024-03-18 18:00"}
		if got := startDates(occurrences); !equalStrings(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("all day rules span whole days", func(t *testing.T) {
		t.Parallel()

		rule := Rule{ID: "all-day", Weekdays: []time.Weekday{time.Tuesday}, AllDay: true, StartsOn: anchor, Weeks: 1}
		occurrences, err := engine.GenerateOccurrences(rule, GenerateOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 1 {
			t.Fatalf("expected one occurrence, got %d", len(occurrences))
		}
		occ := occurrences[0]
		if !occ.AllDay || occ.Start.Format(time.RFC3339) != "2024-03-05T00:00:00Z" || occ.End.Sub(occ.Start) != 24*time.Hour {
			t.Fatalf("unexpected all day occurrence: %#v", occ)
		}
	})

	t.Run("interprets days in the engine location", func(t *testing.T) {
		t.Parallel()

		cet := time.FixedZone("CET", 60*60)
		local := NewEngine(cet)
		rule := eveningRule(1, time.Monday)
		rule.StartsOn = time.Date(2024, time.March, 3, 23, 30, 0, 0, time.UTC)

		occurrences, err := local.GenerateOccurrences(rule, GenerateOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 1 {
			t.Fatalf("expected one occurrence, got %d", len(occurrences))
		}
		if got := occurrences[0].Start.UTC().Format(time.RFC3339); got != "2024-03-04T17:00:00Z" {
			t.Fatalf("expected 18:00 CET, got %s", got)
		}
	})

	t.Run("rejects inverted time ranges", func(t *testing.T) {
		t.Parallel()

		rule := eveningRule(1, time.Monday)
		rule.EndMinute = rule.StartMinute
		if _, err := engine.GenerateOccurrences(rule, GenerateOptions{}); !errors.Is(err, ErrInvalidTimeRange) {
			t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
		}
	})
}

func TestEngine_Covers(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	rule := eveningRule(2, time.Monday)

	tests := []struct {
		name    string
		instant time.Time
		want    bool
	}{
		{name: "inside the window", instant: time.Date(2024, 3, 11, 19, 0, 0, 0, time.UTC), want: true},
		{name: "window start is inclusive", instant: time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC), want: true},
		{name: "window end is exclusive", instant: time.Date(2024, 3, 11, 22, 0, 0, 0, time.UTC), want: false},
		{name: "unselected weekday", instant: time.Date(2024, 3, 12, 19, 0, 0, 0, time.UTC), want: false},
		{name: "after the last week", instant: time.Date(2024, 3, 18, 19, 0, 0, 0, time.UTC), want: false},
		{name: "before the rule starts", instant: time.Date(2024, 2, 26, 19, 0, 0, 0, time.UTC), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := engine.Covers(rule, tc.instant); got != tc.want {
				t.Fatalf("Covers(%v) = %v, want %v", tc.instant, got, tc.want)
			}
		})
	}

	t.Run("all day rules cover any time on active days", func(t *testing.T) {
		t.Parallel()
		allDay := Rule{Weekdays: []time.Weekday{time.Monday}, AllDay: true, StartsOn: anchor}
		if !engine.Covers(allDay, time.Date(2030, 1, 7, 3, 0, 0, 0, time.UTC)) {
			t.Fatalf("expected forever all day rule to cover a future Monday")
		}
	})
}
