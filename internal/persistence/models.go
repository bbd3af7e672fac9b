package persistence

import "time"

// User represents a registered account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Availability represents a recurring window in which a user can play.
type Availability struct {
	ID           string
	UserID       string
	Name         string
	SelectedDays []string
	TimeOption   string
	StartTime    *string
	EndTime      *string
	RepeatOption string
	RepeatWeeks  *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvailabilityWithOwner joins an availability with the identity of its owner.
type AvailabilityWithOwner struct {
	Availability
	OwnerName  *string
	OwnerEmail *string
}

// GameSession represents a scheduled game event run by a GM.
type GameSession struct {
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

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
