package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CredentialStore exposes user credential lookup operations required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionRepository captures the persistence interactions for login sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session AuthSession) (AuthSession, error)
	GetSession(ctx context.Context, id string) (AuthSession, error)
	UpdateSession(ctx context.Context, session AuthSession) (AuthSession, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (AuthSession, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// AuthService coordinates authentication flows such as login and session refresh.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	tokens         *TokenCodec
	verifyPassword PasswordVerifier
	idGenerator    func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, tokens *TokenCodec, verify PasswordVerifier, idGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, tokens, verify, idGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, tokens *TokenCodec, verify PasswordVerifier, idGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		tokens:         tokens,
		verifyPassword: verify,
		idGenerator:    idGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials, persists a login session and issues a signed token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))

	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		logOutcome(ctx, logger, err, "authentication failed", "authentication succeeded",
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		)
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	session := AuthSession{
		ID:        s.idGenerator(),
		UserID:    creds.User.ID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return
	}
	session, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		return
	}

	var token string
	token, err = s.tokens.Issue(creds.User, session.ID, now, session.ExpiresAt)
	if err != nil {
		return
	}

	result = AuthenticateResult{User: creds.User, Session: session, Token: token}
	return
}

// activeSession parses a token and loads its login session, rejecting revoked
// or expired sessions.
func (s *AuthService) activeSession(ctx context.Context, token string, now time.Time) (TokenClaims, AuthSession, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return TokenClaims{}, AuthSession{}, ErrUnauthenticated
	}

	claims, err := s.tokens.Parse(trimmed, now)
	if err != nil {
		return TokenClaims{}, AuthSession{}, err
	}

	session, err := s.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return TokenClaims{}, AuthSession{}, ErrUnauthenticated
		}
		return TokenClaims{}, AuthSession{}, err
	}
	if session.UserID != claims.Subject {
		return TokenClaims{}, AuthSession{}, ErrUnauthenticated
	}
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return TokenClaims{}, AuthSession{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.After(now) {
		return TokenClaims{}, AuthSession{}, ErrSessionExpired
	}
	return claims, session, nil
}

// RefreshSession extends a still valid login session and issues a new token for it.
func (s *AuthService) RefreshSession(ctx context.Context, token string) (result RefreshSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	logger := s.loggerWith(ctx, "RefreshSession")
	defer func() {
		logOutcome(ctx, logger, err, "session refresh failed", "session refreshed",
			"session_id", result.Session.ID,
			"user_id", result.Session.UserID,
		)
	}()

	now := s.now()
	var session AuthSession
	if _, session, err = s.activeSession(ctx, token, now); err != nil {
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrUnauthenticated
		}
		return
	}

	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.sessionTTL)
	session, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var signed string
	signed, err = s.tokens.Issue(user, session.ID, now, session.ExpiresAt)
	if err != nil {
		return
	}

	result = RefreshSessionResult{Session: session, Token: signed}
	return
}

// RevokeSession logs a token out and prunes expired login sessions.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil || s.tokens == nil {
		return fmt.Errorf("auth service not configured")
	}

	logger := s.loggerWith(ctx, "RevokeSession")
	defer func() {
		logOutcome(ctx, logger, err, "failed to revoke session", "session revoked")
	}()

	now := s.now()
	var session AuthSession
	if _, session, err = s.activeSession(ctx, token, now); err != nil {
		return
	}

	if _, err = s.sessions.RevokeSession(ctx, session.ID, now); err != nil {
		err = mapRepoError(err)
		return
	}

	err = s.sessions.DeleteExpiredSessions(ctx, now)
	return
}

// ValidateSession verifies that the provided token corresponds to an active
// session and returns the principal with the user's current role.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", strings.TrimSpace(token) != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	var session AuthSession
	if _, session, err = s.activeSession(ctx, token, s.now()); err != nil {
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrUnauthenticated
		}
		return
	}

	principal = Principal{UserID: user.ID, Email: user.Email, Role: user.Role}
	return
}
