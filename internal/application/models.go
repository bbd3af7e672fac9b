package application

import (
	"strings"
	"time"
)

// Role is the flat permission level of an account.
type Role string

const (
	RoleNew    Role = "new"
	RolePlayer Role = "player"
	RoleGM     Role = "gm"
	RoleAdmin  Role = "admin"
)

// ParseRole converts a stored or submitted role name into a Role.
func ParseRole(value string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleNew, RolePlayer, RoleGM, RoleAdmin:
		return role, true
	}
	return "", false
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// User represents an account exposed by the application services.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// RegisterParams captures a self-service sign up.
type RegisterParams struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

// UpdateUserRoleParams wraps the data required to change a user's role.
type UpdateUserRoleParams struct {
	Principal Principal
	UserID    string
	Role      string
}

// TimeOption selects whether an availability covers a time range or the whole day.
type TimeOption string

const (
	TimeOptionSpecific TimeOption = "specific"
	TimeOptionAllDay   TimeOption = "allDay"
)

// RepeatOption selects how long an availability recurs.
type RepeatOption string

const (
	RepeatNone    RepeatOption = "none"
	RepeatWeeks   RepeatOption = "weeks"
	RepeatForever RepeatOption = "forever"
)

// Availability is a recurring window in which a user can play.
type Availability struct {
	ID           string
	UserID       string
	Name         string
	SelectedDays []time.Weekday
	TimeOption   TimeOption
	StartTime    *string
	EndTime      *string
	RepeatOption RepeatOption
	RepeatWeeks  *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvailabilityWithOwner decorates an availability with its owner's identity.
type AvailabilityWithOwner struct {
	Availability
	OwnerName  string
	OwnerEmail string
}

// AvailabilityInput captures caller provided availability fields.
type AvailabilityInput struct {
	Name         string   `json:"name" validate:"required,max=100"`
	SelectedDays []string `json:"selected_days" validate:"required,min=1,max=7,dive,weekday"`
	TimeOption   string   `json:"time_option" validate:"required,oneof=specific allDay"`
	StartTime    string   `json:"start_time" validate:"omitempty,hhmm"`
	EndTime      string   `json:"end_time" validate:"omitempty,hhmm"`
	RepeatOption string   `json:"repeat_option" validate:"required,oneof=none weeks forever"`
	RepeatWeeks  *int     `json:"repeat_weeks" validate:"omitempty,min=1,max=52"`
}

// AvailabilityPatch carries the fields of a partial availability update.
// Nil fields keep their stored value.
type AvailabilityPatch struct {
	Name         *string
	SelectedDays []string
	TimeOption   *string
	StartTime    *string
	EndTime      *string
	RepeatOption *string
	RepeatWeeks  *int
}

// CreateAvailabilityParams wraps the data required to create an availability.
type CreateAvailabilityParams struct {
	Principal Principal
	Input     AvailabilityInput
}

// UpdateAvailabilityParams wraps the data required to update an availability.
type UpdateAvailabilityParams struct {
	Principal      Principal
	AvailabilityID string
	Patch          AvailabilityPatch
}

// ListAvailabilitiesParams selects between every availability and the caller's own.
type ListAvailabilitiesParams struct {
	Principal Principal
	OwnOnly   bool
}

// Occurrence is one concrete window expanded from an availability.
type Occurrence struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Session represents a scheduled game session run by a GM.
type Session struct {
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

// SessionInput captures caller provided game session fields.
type SessionInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Date        time.Time `json:"date"`
	Duration    *int      `json:"duration" validate:"omitempty,min=1,max=1440"`
	Location    *string   `json:"location" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	MaxPlayers  *int      `json:"max_players" validate:"omitempty,min=1,max=100"`
}

// SessionPatch carries the fields of a partial session update.
type SessionPatch struct {
	Title       *string
	Date        *time.Time
	Duration    *int
	Location    *string
	Description *string
	MaxPlayers  *int
}

// CreateSessionParams wraps the data required to create a game session.
type CreateSessionParams struct {
	Principal Principal
	Input     SessionInput
}

// UpdateSessionParams wraps the data required to update a game session.
type UpdateSessionParams struct {
	Principal Principal
	SessionID string
	Patch     SessionPatch
}

// ListSessionsParams holds the composable session filters. Zero values disable a filter.
type ListSessionsParams struct {
	Principal Principal
	Upcoming  bool
	StartDate *time.Time
	EndDate   *time.Time
	GMID      string
	Limit     int
}

// SessionRepositoryFilter narrows queries issued to the session repository.
type SessionRepositoryFilter struct {
	From  *time.Time
	To    *time.Time
	GMID  string
	Limit int
}

// CalendarEvent is one game session placed on the calendar.
type CalendarEvent struct {
	Session Session
	Start   time.Time
	End     time.Time
}

// CalendarParams selects the calendar window. Nil bounds fall back to the current month.
type CalendarParams struct {
	Principal Principal
	Start     *time.Time
	End       *time.Time
	GMID      string
}

// CalendarView is the calendar feed for a window.
type CalendarView struct {
	Start     time.Time
	End       time.Time
	Events    []CalendarEvent
	CanCreate bool
}

// AuthSession represents a login session backing an issued token.
type AuthSession struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session AuthSession
	Token   string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session AuthSession
	Token   string
}
