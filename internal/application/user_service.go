package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

// InvalidRoleMessage is reported when a role change names admin or an unknown role.
const InvalidRoleMessage = "Invalid role; cannot assign 'admin' or unsupported role."

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, roles []Role) ([]User, error)
	UpdateUserRole(ctx context.Context, id string, role Role, updatedAt time.Time) (User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hasher, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specific logger.
func NewUserServiceWithLogger(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:        users,
		hashPassword: hasher,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register creates an account with role new. An email that is already
// registered yields ErrAlreadyExists without writing anything.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)

	logger := s.loggerWith(ctx, "Register", "email", params.Email)
	defer func() {
		logOutcome(ctx, logger, err, "registration failed", "user registered", "user_id", user.ID)
	}()

	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}

	if len(params.Password) > MaxPasswordBytes {
		err = newValidationError("password", fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
		return
	}

	if _, lookupErr := s.users.GetUserByEmail(ctx, params.Email); lookupErr == nil {
		err = ErrAlreadyExists
		return
	} else if !errors.Is(mapRepoError(lookupErr), ErrNotFound) {
		err = lookupErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user, err = s.users.CreateUser(ctx, User{
		ID:        s.idGenerator(),
		Email:     params.Email,
		Name:      params.Name,
		Role:      RoleNew,
		CreatedAt: now,
		UpdatedAt: now,
	}, hash)
	err = mapRepoError(err)
	return
}

// CurrentUser returns the profile of the authenticated caller.
func (s *UserService) CurrentUser(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if principal.UserID == "" {
		return User{}, ErrUnauthenticated
	}
	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

// ListUsers returns every user, newest first, optionally narrowed to one role. Admin only.
func (s *UserService) ListUsers(ctx context.Context, principal Principal, role string) (users []User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListUsers", "principal_id", principal.UserID, "role_filter", role)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list users", "users listed", "count", len(users))
	}()

	if err = Authorize(principal, "", RoleAdmin); err != nil {
		return
	}

	var roles []Role
	if strings.TrimSpace(role) != "" {
		parsed, ok := ParseRole(role)
		if !ok {
			err = newValidationError("role", "role must be one of: new, player, gm, admin")
			return
		}
		roles = []Role{parsed}
	}

	users, err = s.users.ListUsers(ctx, roles)
	err = mapRepoError(err)
	return
}

// UpdateUserRole changes a user's role. Admin only; admin itself is never assignable.
func (s *UserService) UpdateUserRole(ctx context.Context, params UpdateUserRoleParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUserRole",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
		"role", params.Role,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update user role", "user role updated")
	}()

	if err = Authorize(params.Principal, "", RoleAdmin); err != nil {
		return
	}

	role, ok := ParseRole(params.Role)
	if !ok || role == RoleAdmin {
		err = newValidationError("role", InvalidRoleMessage)
		return
	}

	user, err = s.users.UpdateUserRole(ctx, params.UserID, role, s.now())
	err = mapRepoError(err)
	return
}

// DeleteUser removes an account. Admins may delete anyone; users may delete themselves.
// Users that still run game sessions cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser", "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete user", "user deleted")
	}()

	if err = Authorize(principal, userID, RoleAdmin); err != nil {
		return
	}

	err = s.users.DeleteUser(ctx, userID)
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		err = newValidationError("user", "user still runs game sessions; reassign or delete them first")
		return
	}
	err = mapRepoError(err)
	return
}

// PromoteToAdmin grants the admin role to a registered email. It is the only
// path to an admin account and runs at start-up, outside any request.
func (s *UserService) PromoteToAdmin(ctx context.Context, email string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	email = strings.ToLower(strings.TrimSpace(email))
	logger := s.loggerWith(ctx, "PromoteToAdmin", "email", email)
	defer func() {
		logOutcome(ctx, logger, err, "failed to promote admin", "admin promoted", "user_id", user.ID)
	}()

	user, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if user.Role == RoleAdmin {
		return
	}

	user, err = s.users.UpdateUserRole(ctx, user.ID, RoleAdmin, s.now())
	err = mapRepoError(err)
	return
}
