package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/recurrence"
)

// UnknownPlayerName labels availabilities whose owner has no display name.
const UnknownPlayerName = "Unknown Player"

// maxOccurrenceRange bounds a single occurrence expansion.
const maxOccurrenceRange = 366 * 24 * time.Hour

// AvailabilityRepository captures the persistence interactions needed by the availability service.
type AvailabilityRepository interface {
	CreateAvailability(ctx context.Context, availability Availability) (Availability, error)
	GetAvailability(ctx context.Context, id string) (Availability, error)
	UpdateAvailability(ctx context.Context, availability Availability) (Availability, error)
	DeleteAvailability(ctx context.Context, id string) error
	// ListAvailabilities returns rows newest first; an empty userID lists every owner.
	ListAvailabilities(ctx context.Context, userID string) ([]Availability, error)
	ListAvailabilitiesWithOwners(ctx context.Context) ([]AvailabilityWithOwner, error)
}

// AvailabilityService orchestrates validation, authorization, and persistence for availabilities.
type AvailabilityService struct {
	availabilities AvailabilityRepository
	engine         *recurrence.Engine
	idGenerator    func() string
	now            func() time.Time
	creators       []Role
	logger         *slog.Logger
}

// NewAvailabilityService wires dependencies for availability operations.
// When allowNewRole is false, accounts with role new cannot create availabilities.
func NewAvailabilityService(availabilities AvailabilityRepository, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, allowNewRole bool) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(availabilities, engine, idGenerator, now, allowNewRole, nil)
}

// NewAvailabilityServiceWithLogger wires dependencies with a specific logger.
func NewAvailabilityServiceWithLogger(availabilities AvailabilityRepository, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, allowNewRole bool, logger *slog.Logger) *AvailabilityService {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	creators := []Role{RolePlayer, RoleGM, RoleAdmin}
	if allowNewRole {
		creators = append(creators, RoleNew)
	}
	return &AvailabilityService{
		availabilities: availabilities,
		engine:         engine,
		idGenerator:    idGenerator,
		now:            now,
		creators:       creators,
		logger:         defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// Validate runs the create validation without persisting and returns the normalized availability.
func (s *AvailabilityService) Validate(ctx context.Context, principal Principal, input AvailabilityInput) (Availability, error) {
	if s == nil {
		return Availability{}, fmt.Errorf("AvailabilityService is nil")
	}
	if principal.UserID == "" {
		return Availability{}, ErrUnauthenticated
	}
	availability, vErr := buildAvailability(input)
	if vErr.HasErrors() {
		return Availability{}, vErr
	}
	availability.UserID = principal.UserID
	return availability, nil
}

// CreateAvailability validates input and persists an availability owned by the caller.
func (s *AvailabilityService) CreateAvailability(ctx context.Context, params CreateAvailabilityParams) (availability Availability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.availabilities == nil {
		err = fmt.Errorf("availability repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateAvailability", "principal_id", params.Principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create availability", "availability created", "availability_id", availability.ID)
	}()

	if err = Authorize(params.Principal, "", s.creators...); err != nil {
		return
	}

	built, vErr := buildAvailability(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	built.ID = s.idGenerator()
	built.UserID = params.Principal.UserID
	built.CreatedAt = now
	built.UpdatedAt = now

	availability, err = s.availabilities.CreateAvailability(ctx, built)
	err = mapRepoError(err)
	return
}

// ListAvailabilities returns every availability, or only the caller's own when OwnOnly is set.
func (s *AvailabilityService) ListAvailabilities(ctx context.Context, params ListAvailabilitiesParams) (availabilities []Availability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.availabilities == nil {
		err = fmt.Errorf("availability repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListAvailabilities", "principal_id", params.Principal.UserID, "own_only", params.OwnOnly)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list availabilities", "availabilities listed", "count", len(availabilities))
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	userID := ""
	if params.OwnOnly {
		userID = params.Principal.UserID
	}
	availabilities, err = s.availabilities.ListAvailabilities(ctx, userID)
	err = mapRepoError(err)
	return
}

// ListAvailabilitiesWithOwners returns every availability with its owner's identity. GM or admin only.
func (s *AvailabilityService) ListAvailabilitiesWithOwners(ctx context.Context, principal Principal) (rows []AvailabilityWithOwner, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.availabilities == nil {
		err = fmt.Errorf("availability repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListAvailabilitiesWithOwners", "principal_id", principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list player availability", "player availability listed", "count", len(rows))
	}()

	if err = Authorize(principal, "", RoleGM, RoleAdmin); err != nil {
		return
	}

	rows, err = s.availabilities.ListAvailabilitiesWithOwners(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	for i := range rows {
		if strings.TrimSpace(rows[i].OwnerName) == "" {
			rows[i].OwnerName = UnknownPlayerName
		}
	}
	return
}

// UpdateAvailability merges a partial update into the stored row and re-validates the result.
// Owner, GM or admin.
func (s *AvailabilityService) UpdateAvailability(ctx context.Context, params UpdateAvailabilityParams) (availability Availability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.availabilities == nil {
		err = fmt.Errorf("availability repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateAvailability",
		"principal_id", params.Principal.UserID,
		"availability_id", params.AvailabilityID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update availability", "availability updated")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	var existing Availability
	existing, err = s.availabilities.GetAvailability(ctx, params.AvailabilityID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if err = Authorize(params.Principal, existing.UserID, RoleGM, RoleAdmin); err != nil {
		return
	}

	merged, vErr := buildAvailability(applyAvailabilityPatch(availabilityInputFrom(existing), params.Patch))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	merged.ID = existing.ID
	merged.UserID = existing.UserID
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = s.now()

	availability, err = s.availabilities.UpdateAvailability(ctx, merged)
	err = mapRepoError(err)
	return
}

// DeleteAvailability removes an availability. Owner, GM or admin.
func (s *AvailabilityService) DeleteAvailability(ctx context.Context, principal Principal, availabilityID string) (err error) {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	if s.availabilities == nil {
		return fmt.Errorf("availability repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteAvailability", "principal_id", principal.UserID, "availability_id", availabilityID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete availability", "availability deleted")
	}()

	if principal.UserID == "" {
		return ErrUnauthenticated
	}

	var existing Availability
	existing, err = s.availabilities.GetAvailability(ctx, availabilityID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if err = Authorize(principal, existing.UserID, RoleGM, RoleAdmin); err != nil {
		return
	}

	err = mapRepoError(s.availabilities.DeleteAvailability(ctx, availabilityID))
	return
}

// Occurrences expands an availability into concrete windows between from and to.
func (s *AvailabilityService) Occurrences(ctx context.Context, principal Principal, availabilityID string, from, to time.Time) ([]Occurrence, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	if s.availabilities == nil {
		return nil, fmt.Errorf("availability repository not configured")
	}
	if principal.UserID == "" {
		return nil, ErrUnauthenticated
	}

	if !to.After(from) {
		return nil, newValidationError("end_date", "end_date must be after start_date")
	}
	if to.Sub(from) > maxOccurrenceRange {
		return nil, newValidationError("end_date", "end_date must be within 366 days of start_date")
	}

	availability, err := s.availabilities.GetAvailability(ctx, availabilityID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	generated, err := s.engine.GenerateOccurrences(availabilityRule(availability), recurrence.GenerateOptions{RangeStart: &from, RangeEnd: &to})
	if err != nil {
		return nil, err
	}

	out := make([]Occurrence, 0, len(generated))
	for _, occ := range generated {
		out = append(out, Occurrence{Start: occ.Start.UTC(), End: occ.End.UTC(), AllDay: occ.AllDay})
	}
	return out, nil
}

// availabilityRule converts a stored availability into a recurrence rule.
func availabilityRule(a Availability) recurrence.Rule {
	rule := recurrence.Rule{
		ID:       a.ID,
		Weekdays: a.SelectedDays,
		AllDay:   a.TimeOption == TimeOptionAllDay,
		StartsOn: a.CreatedAt,
	}
	if !rule.AllDay && a.StartTime != nil && a.EndTime != nil {
		rule.StartMinute, _ = parseClock(*a.StartTime)
		rule.EndMinute, _ = parseClock(*a.EndTime)
	}
	switch a.RepeatOption {
	case RepeatNone:
		rule.Weeks = 1
	case RepeatWeeks:
		if a.RepeatWeeks != nil {
			rule.Weeks = *a.RepeatWeeks
		}
	}
	return rule
}

// buildAvailability validates input and produces the normalized availability
// fields. Times are cleared for all-day windows and repeat_weeks is cleared
// unless the repeat option is weeks.
func buildAvailability(input AvailabilityInput) (Availability, *ValidationError) {
	input.Name = strings.TrimSpace(input.Name)
	input.StartTime = strings.TrimSpace(input.StartTime)
	input.EndTime = strings.TrimSpace(input.EndTime)
	if input.TimeOption == string(TimeOptionAllDay) {
		input.StartTime, input.EndTime = "", ""
	}
	if input.RepeatOption != string(RepeatWeeks) {
		input.RepeatWeeks = nil
	}

	vErr := validateStruct(input)

	days := make([]time.Weekday, 0, len(input.SelectedDays))
	for _, name := range input.SelectedDays {
		if day, ok := ParseWeekday(name); ok && !slices.Contains(days, day) {
			days = append(days, day)
		}
	}
	slices.Sort(days)

	availability := Availability{
		Name:         input.Name,
		SelectedDays: days,
		TimeOption:   TimeOption(input.TimeOption),
		RepeatOption: RepeatOption(input.RepeatOption),
	}

	if availability.TimeOption == TimeOptionSpecific {
		if input.StartTime == "" {
			vErr.add("start_time", "start_time is required for specific times")
		}
		if input.EndTime == "" {
			vErr.add("end_time", "end_time is required for specific times")
		}
		start, startOK := parseClock(input.StartTime)
		end, endOK := parseClock(input.EndTime)
		if startOK && endOK && start >= end {
			vErr.add("end_time", "end_time must be after start_time")
		}
		availability.StartTime = stringPtr(input.StartTime)
		availability.EndTime = stringPtr(input.EndTime)
	}

	if availability.RepeatOption == RepeatWeeks {
		if input.RepeatWeeks == nil {
			vErr.add("repeat_weeks", "repeat_weeks is required when repeating for weeks")
		} else if weeks := *input.RepeatWeeks; weeks < 1 || weeks > 52 {
			vErr.add("repeat_weeks", "repeat_weeks must be between 1 and 52")
		} else {
			availability.RepeatWeeks = &weeks
		}
	}

	return availability, vErr
}

func availabilityInputFrom(a Availability) AvailabilityInput {
	input := AvailabilityInput{
		Name:         a.Name,
		SelectedDays: make([]string, 0, len(a.SelectedDays)),
		TimeOption:   string(a.TimeOption),
		RepeatOption: string(a.RepeatOption),
		RepeatWeeks:  a.RepeatWeeks,
	}
	for _, day := range a.SelectedDays {
		input.SelectedDays = append(input.SelectedDays, day.String())
	}
	if a.StartTime != nil {
		input.StartTime = *a.StartTime
	}
	if a.EndTime != nil {
		input.EndTime = *a.EndTime
	}
	return input
}

func applyAvailabilityPatch(input AvailabilityInput, patch AvailabilityPatch) AvailabilityInput {
	if patch.Name != nil {
		input.Name = *patch.Name
	}
	if patch.SelectedDays != nil {
		input.SelectedDays = patch.SelectedDays
	}
	if patch.TimeOption != nil {
		input.TimeOption = *patch.TimeOption
	}
	if patch.StartTime != nil {
		input.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		input.EndTime = *patch.EndTime
	}
	if patch.RepeatOption != nil {
		input.RepeatOption = *patch.RepeatOption
	}
	if patch.RepeatWeeks != nil {
		input.RepeatWeeks = patch.RepeatWeeks
	}
	return input
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
