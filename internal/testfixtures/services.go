package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/recurrence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation overrides the zone recurrences and calendar months are computed in.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

func (f *ServiceFactory) ids(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) clock(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users        application.UserRepository
	HashPassword application.PasswordHasher
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewUserService builds a user service. A nil hasher stores the password
// prefixed with "hashed:" so tests avoid bcrypt's cost.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	hasher := deps.HashPassword
	if hasher == nil {
		hasher = func(password string) (string, error) { return "hashed:" + password, nil }
	}
	return application.NewUserServiceWithLogger(deps.Users, hasher, f.ids(deps.IDGenerator), f.clock(deps.Now), deps.Logger)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	Secret         string
	PasswordVerify application.PasswordVerifier
	IDGenerator    func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service. Unset fields fall back to a fixed
// secret, a one hour TTL and a verifier matching NewUserService's default hasher.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	secret := deps.Secret
	if secret == "" {
		secret = "fixture-signing-secret"
	}
	verify := deps.PasswordVerify
	if verify == nil {
		verify = func(hashed, password string) error {
			if hashed != "hashed:"+password {
				return application.ErrInvalidCredentials
			}
			return nil
		}
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		application.NewTokenCodec(secret),
		verify,
		f.ids(deps.IDGenerator),
		f.clock(deps.Now),
		ttl,
		deps.Logger,
	)
}

// AvailabilityServiceDeps captures dependencies for constructing an availability service.
type AvailabilityServiceDeps struct {
	Availabilities     application.AvailabilityRepository
	NewRoleCanSchedule bool
	IDGenerator        func() string
	Now                func() time.Time
	Logger             *slog.Logger
}

// NewAvailabilityService builds an availability service expanding windows in
// the factory location.
func (f *ServiceFactory) NewAvailabilityService(deps AvailabilityServiceDeps) *application.AvailabilityService {
	return application.NewAvailabilityServiceWithLogger(
		deps.Availabilities,
		recurrence.NewEngine(f.Location),
		f.ids(deps.IDGenerator),
		f.clock(deps.Now),
		deps.NewRoleCanSchedule,
		deps.Logger,
	)
}

// SessionServiceDeps captures dependencies for constructing a game session service.
type SessionServiceDeps struct {
	Sessions       application.GameSessionRepository
	Availabilities application.AvailabilityRepository
	IDGenerator    func() string
	Now            func() time.Time
	Logger         *slog.Logger
}

// NewSessionService builds a game session service.
func (f *ServiceFactory) NewSessionService(deps SessionServiceDeps) *application.SessionService {
	return application.NewSessionServiceWithLogger(
		deps.Sessions,
		deps.Availabilities,
		recurrence.NewEngine(f.Location),
		f.ids(deps.IDGenerator),
		f.clock(deps.Now),
		deps.Logger,
	)
}

// CalendarServiceDeps captures dependencies for constructing a calendar service.
type CalendarServiceDeps struct {
	Sessions application.GameSessionRepository
	Now      func() time.Time
	Logger   *slog.Logger
}

// NewCalendarService builds a calendar service.
func (f *ServiceFactory) NewCalendarService(deps CalendarServiceDeps) *application.CalendarService {
	return application.NewCalendarServiceWithLogger(deps.Sessions, f.Location, f.clock(deps.Now), deps.Logger)
}
