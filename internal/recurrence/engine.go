package recurrence

import (
	"errors"
	"time"
)

// Rule describes a weekly availability pattern.
type Rule struct {
	ID       string
	Weekdays []time.Weekday
	// AllDay rules span whole days and ignore StartMinute/EndMinute.
	AllDay bool
	// StartMinute and EndMinute are minutes since local midnight.
	StartMinute int
	EndMinute   int
	// StartsOn anchors the rule; its local day is the first active day.
	StartsOn time.Time
	// Weeks bounds the rule to that many weeks from StartsOn. Zero repeats forever.
	Weeks int
}

// GenerateOptions defines optional range bounds for occurrence generation.
type GenerateOptions struct {
	RangeStart *time.Time
	RangeEnd   *time.Time
}

// Occurrence represents a generated instance of a recurrence rule.
type Occurrence struct {
	RuleID string
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Engine expands recurrence rules into occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that interprets rules in the provided location.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// ErrInvalidWindow indicates the generation window is unbounded.
var ErrInvalidWindow = errors.New("recurrence: generation window requires an end bound")

// ErrInvalidTimeRange indicates a timed rule whose end does not follow its start.
var ErrInvalidTimeRange = errors.New("recurrence: end time must be after start time")

func (e *Engine) loc() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// GenerateOccurrences produces the rule's occurrences that overlap the requested window.
//
// The engine enforces the following semantics:
//   - Days are evaluated in the engine's location.
//   - The window is bounded by the rule's last week and the optional range end;
//     a forever rule needs a range end.
//   - Only selected weekdays produce occurrences.
func (e *Engine) GenerateOccurrences(rule Rule, opts GenerateOptions) ([]Occurrence, error) {
	loc := e.loc()

	if !rule.AllDay && rule.EndMinute <= rule.StartMinute {
		return nil, ErrInvalidTimeRange
	}

	ruleStart := startOfDay(rule.StartsOn, loc)
	windowEnd, bounded := lastDay(rule, ruleStart)

	upperBound := windowEnd
	if opts.RangeEnd != nil {
		rangeEnd := opts.RangeEnd.In(loc)
		if !bounded || rangeEnd.Before(upperBound) {
			upperBound = rangeEnd
		}
		bounded = true
	}
	if !bounded {
		return nil, ErrInvalidWindow
	}

	day := ruleStart
	var rangeStart time.Time
	if opts.RangeStart != nil {
		rangeStart = opts.RangeStart.In(loc)
		if first := startOfDay(rangeStart, loc); first.After(day) {
			day = first
		}
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, weekday := range rule.Weekdays {
		weekdaySet[weekday] = struct{}{}
	}
	if len(weekdaySet) == 0 {
		return nil, nil
	}

	occurrences := make([]Occurrence, 0)
	for day.Before(upperBound) {
		if _, ok := weekdaySet[day.Weekday()]; ok {
			occ := occurrenceOn(rule, day, loc)
			if occ.End.After(rangeStart) && occ.Start.Before(upperBound) {
				occurrences = append(occurrences, occ)
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return occurrences, nil
}

// Covers reports whether the instant falls inside one of the rule's
// occurrences. For all-day rules any instant on an active selected day counts.
func (e *Engine) Covers(rule Rule, instant time.Time) bool {
	loc := e.loc()
	local := instant.In(loc)
	day := startOfDay(local, loc)

	ruleStart := startOfDay(rule.StartsOn, loc)
	if day.Before(ruleStart) {
		return false
	}
	if end, bounded := lastDay(rule, ruleStart); bounded && !day.Before(end) {
		return false
	}

	selected := false
	for _, weekday := range rule.Weekdays {
		if weekday == local.Weekday() {
			selected = true
			break
		}
	}
	if !selected {
		return false
	}
	if rule.AllDay {
		return true
	}

	minute := local.Hour()*60 + local.Minute()
	return minute >= rule.StartMinute && minute < rule.EndMinute
}

// lastDay returns the exclusive end of a bounded rule.
func lastDay(rule Rule, ruleStart time.Time) (time.Time, bool) {
	if rule.Weeks <= 0 {
		return time.Time{}, false
	}
	return ruleStart.AddDate(0, 0, 7*rule.Weeks), true
}

func occurrenceOn(rule Rule, day time.Time, loc *time.Location) Occurrence {
	if rule.AllDay {
		return Occurrence{RuleID: rule.ID, Start: day, End: day.AddDate(0, 0, 1), AllDay: true}
	}
	y, m, d := day.Date()
	return Occurrence{
		RuleID: rule.ID,
		Start:  time.Date(y, m, d, 0, rule.StartMinute, 0, 0, loc),
		End:    time.Date(y, m, d, 0, rule.EndMinute, 0, 0, loc),
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
