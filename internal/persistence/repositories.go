package persistence

import (
	"context"
	"time"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Roles []string
}

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)
	UpdateUserRole(ctx context.Context, id, role string, updatedAt time.Time) error
	DeleteUser(ctx context.Context, id string) error
}

// AvailabilityFilter narrows availability listings.
type AvailabilityFilter struct {
	UserID string
}

// AvailabilityRepository stores availability windows.
type AvailabilityRepository interface {
	CreateAvailability(ctx context.Context, availability Availability) error
	GetAvailability(ctx context.Context, id string) (Availability, error)
	UpdateAvailability(ctx context.Context, availability Availability) error
	DeleteAvailability(ctx context.Context, id string) error
	ListAvailabilities(ctx context.Context, filter AvailabilityFilter) ([]Availability, error)
	ListAvailabilitiesWithOwners(ctx context.Context) ([]AvailabilityWithOwner, error)
}

// GameSessionFilter narrows game session queries. Bounds are inclusive.
type GameSessionFilter struct {
	From  *time.Time
	To    *time.Time
	GMID  string
	Limit int
}

// GameSessionRepository stores game sessions.
type GameSessionRepository interface {
	CreateGameSession(ctx context.Context, session GameSession) error
	GetGameSession(ctx context.Context, id string) (GameSession, error)
	UpdateGameSession(ctx context.Context, session GameSession) error
	DeleteGameSession(ctx context.Context, id string) error
	ListGameSessions(ctx context.Context, filter GameSessionFilter) ([]GameSession, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
