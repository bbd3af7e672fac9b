package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/persistence"
)

var (
	userCounter         uint64
	availabilityCounter uint64
	gameSessionCounter  uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Tuesday.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account that can be materialised for
// application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         application.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic player account with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		Name:         fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RolePlayer,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the identifier.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUserEmail overrides the email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

// WithUserName overrides the display name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) { f.Name = name }
}

// WithUserRole overrides the role.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) { f.Role = role }
}

// WithPasswordHash overrides the stored password hash.
func WithPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// Application converts the fixture into an application.User.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Email:     f.Email,
		Name:      f.Name,
		Role:      f.Role,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Principal returns the principal an authenticated request by this user carries.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Email: f.Email, Role: f.Role}
}

// Persistence converts the fixture into a persistence.User.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		Name:         f.Name,
		PasswordHash: f.PasswordHash,
		Role:         string(f.Role),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ------------------------- Availability fixtures --------------------------

// AvailabilityFixture describes a weekly availability window.
type AvailabilityFixture struct {
	ID           string
	UserID       string
	Name         string
	SelectedDays []time.Weekday
	TimeOption   application.TimeOption
	StartTime    *string
	EndTime      *string
	RepeatOption application.RepeatOption
	RepeatWeeks  *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvailabilityOption configures the generated availability fixture.
type AvailabilityOption func(*AvailabilityFixture)

// NewAvailabilityFixture returns an evening window on Tuesdays that repeats forever.
func NewAvailabilityFixture(userID string, opts ...AvailabilityOption) AvailabilityFixture {
	idx := atomic.AddUint64(&availabilityCounter, 1)
	start, end := "18:00", "23:00"
	fixture := AvailabilityFixture{
		ID:           fmt.Sprintf("availability-%03d", idx),
		UserID:       userID,
		Name:         fmt.Sprintf("Window %03d", idx),
		SelectedDays: []time.Weekday{time.Tuesday},
		TimeOption:   application.TimeOptionSpecific,
		StartTime:    &start,
		EndTime:      &end,
		RepeatOption: application.RepeatForever,
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAvailabilityID overrides the identifier.
func WithAvailabilityID(id string) AvailabilityOption {
	return func(f *AvailabilityFixture) { f.ID = id }
}

// WithSelectedDays overrides the weekdays the window applies to.
func WithSelectedDays(days ...time.Weekday) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.SelectedDays = append([]time.Weekday(nil), days...)
	}
}

// WithTimeRange switches the fixture to a specific window between start and end.
func WithTimeRange(start, end string) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.TimeOption = application.TimeOptionSpecific
		f.StartTime = &start
		f.EndTime = &end
	}
}

// WithAllDay switches the fixture to cover whole days.
func WithAllDay() AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.TimeOption = application.TimeOptionAllDay
		f.StartTime = nil
		f.EndTime = nil
	}
}

// WithRepeatWeeks limits the recurrence to the given number of weeks.
func WithRepeatWeeks(weeks int) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.RepeatOption = application.RepeatWeeks
		f.RepeatWeeks = &weeks
	}
}

// WithSingleWeek limits the recurrence to the creation week.
func WithSingleWeek() AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.RepeatOption = application.RepeatNone
		f.RepeatWeeks = nil
	}
}

// WithAvailabilityCreatedAt overrides both timestamps; recurrences are anchored on it.
func WithAvailabilityCreatedAt(created time.Time) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.CreatedAt = created
		f.UpdatedAt = created
	}
}

// Application converts the fixture into an application.Availability.
func (f AvailabilityFixture) Application() application.Availability {
	return application.Availability{
		ID:           f.ID,
		UserID:       f.UserID,
		Name:         f.Name,
		SelectedDays: append([]time.Weekday(nil), f.SelectedDays...),
		TimeOption:   f.TimeOption,
		StartTime:    copyString(f.StartTime),
		EndTime:      copyString(f.EndTime),
		RepeatOption: f.RepeatOption,
		RepeatWeeks:  copyInt(f.RepeatWeeks),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Persistence converts the fixture into a persistence.Availability.
func (f AvailabilityFixture) Persistence() persistence.Availability {
	days := make([]string, 0, len(f.SelectedDays))
	for _, day := range f.SelectedDays {
		days = append(days, day.String())
	}
	return persistence.Availability{
		ID:           f.ID,
		UserID:       f.UserID,
		Name:         f.Name,
		SelectedDays: days,
		TimeOption:   string(f.TimeOption),
		StartTime:    copyString(f.StartTime),
		EndTime:      copyString(f.EndTime),
		RepeatOption: string(f.RepeatOption),
		RepeatWeeks:  copyInt(f.RepeatWeeks),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ------------------------- Game session fixtures --------------------------

// GameSessionFixture describes a scheduled game session.
type GameSessionFixture struct {
	ID          string
	Title       string
	Date        time.Time
	GMID        string
	Duration    *int
	Location    *string
	Description *string
	MaxPlayers  *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GameSessionOption configures the generated game session fixture.
type GameSessionOption func(*GameSessionFixture)

// NewGameSessionFixture returns a session one week after the reference time,
// at 19:00 UTC.
func NewGameSessionFixture(gmID string, opts ...GameSessionOption) GameSessionFixture {
	idx := atomic.AddUint64(&gameSessionCounter, 1)
	date := time.Date(2024, time.January, 9, 19, 0, 0, 0, time.UTC)
	fixture := GameSessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		Title:     fmt.Sprintf("Session %03d", idx),
		Date:      date,
		GMID:      gmID,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithGameSessionID overrides the identifier.
func WithGameSessionID(id string) GameSessionOption {
	return func(f *GameSessionFixture) { f.ID = id }
}

// WithSessionDate overrides the start of the session.
func WithSessionDate(date time.Time) GameSessionOption {
	return func(f *GameSessionFixture) { f.Date = date }
}

// WithDuration sets the length of the session in minutes.
func WithDuration(minutes int) GameSessionOption {
	return func(f *GameSessionFixture) { f.Duration = &minutes }
}

// WithSessionLocation sets where the session takes place.
func WithSessionLocation(location string) GameSessionOption {
	return func(f *GameSessionFixture) { f.Location = &location }
}

// Application converts the fixture into an application.Session.
func (f GameSessionFixture) Application() application.Session {
	return application.Session{
		ID:          f.ID,
		Title:       f.Title,
		Date:        f.Date,
		GMID:        f.GMID,
		Duration:    copyInt(f.Duration),
		Location:    copyString(f.Location),
		Description: copyString(f.Description),
		MaxPlayers:  copyInt(f.MaxPlayers),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence converts the fixture into a persistence.GameSession.
func (f GameSessionFixture) Persistence() persistence.GameSession {
	return persistence.GameSession{
		ID:          f.ID,
		Title:       f.Title,
		Date:        f.Date,
		GMID:        f.GMID,
		Duration:    copyInt(f.Duration),
		Location:    copyString(f.Location),
		Description: copyString(f.Description),
		MaxPlayers:  copyInt(f.MaxPlayers),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func copyInt(value *int) *int {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
