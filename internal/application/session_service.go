package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/recurrence"
)

// GameSessionRepository captures the persistence interactions needed by the session service.
type GameSessionRepository interface {
	CreateGameSession(ctx context.Context, session Session) (Session, error)
	GetGameSession(ctx context.Context, id string) (Session, error)
	UpdateGameSession(ctx context.Context, session Session) (Session, error)
	DeleteGameSession(ctx context.Context, id string) error
	// ListGameSessions returns sessions ordered by date ascending. Bounds are inclusive.
	ListGameSessions(ctx context.Context, filter SessionRepositoryFilter) ([]Session, error)
}

// SessionService orchestrates validation, authorization, and persistence for game sessions.
type SessionService struct {
	sessions       GameSessionRepository
	availabilities AvailabilityRepository
	engine         *recurrence.Engine
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewSessionService wires dependencies for game session operations.
func NewSessionService(sessions GameSessionRepository, availabilities AvailabilityRepository, engine *recurrence.Engine, idGenerator func() string, now func() time.Time) *SessionService {
	return NewSessionServiceWithLogger(sessions, availabilities, engine, idGenerator, now, nil)
}

// NewSessionServiceWithLogger wires dependencies with a specific logger.
func NewSessionServiceWithLogger(sessions GameSessionRepository, availabilities AvailabilityRepository, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:       sessions,
		availabilities: availabilities,
		engine:         engine,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession validates input and persists a session run by the caller. GM or admin only.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateSession", "principal_id", params.Principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create session", "session created", "session_id", session.ID)
	}()

	if err = Authorize(params.Principal, "", RoleGM, RoleAdmin); err != nil {
		return
	}

	built, vErr := buildSession(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	built.ID = s.idGenerator()
	built.GMID = params.Principal.UserID
	built.CreatedAt = now
	built.UpdatedAt = now

	session, err = s.sessions.CreateGameSession(ctx, built)
	err = mapRepoError(err)
	return
}

// ListSessions returns sessions matching the composable filters, earliest first.
func (s *SessionService) ListSessions(ctx context.Context, params ListSessionsParams) (sessions []Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListSessions",
		"principal_id", params.Principal.UserID,
		"upcoming", params.Upcoming,
		"gm_id", params.GMID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list sessions", "sessions listed", "count", len(sessions))
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	vErr := &ValidationError{}
	if params.Limit < 0 {
		vErr.add("limit", "limit must be greater than 0")
	}
	if params.StartDate != nil && params.EndDate != nil && params.EndDate.Before(*params.StartDate) {
		vErr.add("end_date", "end_date must not be before start_date")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	filter := SessionRepositoryFilter{
		From:  params.StartDate,
		To:    params.EndDate,
		GMID:  strings.TrimSpace(params.GMID),
		Limit: params.Limit,
	}
	if params.Upcoming {
		now := s.now()
		if filter.From == nil || filter.From.Before(now) {
			filter.From = &now
		}
	}

	sessions, err = s.sessions.ListGameSessions(ctx, filter)
	err = mapRepoError(err)
	return
}

// GetSession returns a single session.
func (s *SessionService) GetSession(ctx context.Context, principal Principal, sessionID string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}
	if principal.UserID == "" {
		return Session{}, ErrUnauthenticated
	}
	session, err := s.sessions.GetGameSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapRepoError(err)
	}
	return session, nil
}

// NextSession returns the earliest session dated now or later, or nil when none is scheduled.
func (s *SessionService) NextSession(ctx context.Context, principal Principal) (*Session, error) {
	sessions, err := s.ListSessions(ctx, ListSessionsParams{Principal: principal, Upcoming: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	next := sessions[0]
	return &next, nil
}

// UpdateSession merges a partial update into a session. Owning GM or admin only.
func (s *SessionService) UpdateSession(ctx context.Context, params UpdateSessionParams) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSession",
		"principal_id", params.Principal.UserID,
		"session_id", params.SessionID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update session", "session updated")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	var existing Session
	existing, err = s.sessions.GetGameSession(ctx, params.SessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if err = Authorize(params.Principal, existing.GMID, RoleAdmin); err != nil {
		return
	}

	merged, vErr := buildSession(applySessionPatch(sessionInputFrom(existing), params.Patch))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	merged.ID = existing.ID
	merged.GMID = existing.GMID
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = s.now()

	session, err = s.sessions.UpdateGameSession(ctx, merged)
	err = mapRepoError(err)
	return
}

// DeleteSession removes a session. Owning GM or admin only.
func (s *SessionService) DeleteSession(ctx context.Context, principal Principal, sessionID string) (err error) {
	if s == nil {
		return fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSession", "principal_id", principal.UserID, "session_id", sessionID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete session", "session deleted")
	}()

	if principal.UserID == "" {
		return ErrUnauthenticated
	}

	var existing Session
	existing, err = s.sessions.GetGameSession(ctx, sessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if err = Authorize(principal, existing.GMID, RoleAdmin); err != nil {
		return
	}

	err = mapRepoError(s.sessions.DeleteGameSession(ctx, sessionID))
	return
}

// AvailablePlayers lists the availabilities that cover a session's start.
// The match is best-effort and nothing is persisted. GM or admin only.
func (s *SessionService) AvailablePlayers(ctx context.Context, principal Principal, sessionID string) (rows []AvailabilityWithOwner, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil || s.availabilities == nil {
		err = fmt.Errorf("session service not configured")
		return
	}

	logger := s.loggerWith(ctx, "AvailablePlayers", "principal_id", principal.UserID, "session_id", sessionID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to match available players", "available players matched", "count", len(rows))
	}()

	if err = Authorize(principal, "", RoleGM, RoleAdmin); err != nil {
		return
	}

	var session Session
	session, err = s.sessions.GetGameSession(ctx, sessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var candidates []AvailabilityWithOwner
	candidates, err = s.availabilities.ListAvailabilitiesWithOwners(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	rows = make([]AvailabilityWithOwner, 0, len(candidates))
	for _, candidate := range candidates {
		if !s.engine.Covers(availabilityRule(candidate.Availability), session.Date) {
			continue
		}
		if strings.TrimSpace(candidate.OwnerName) == "" {
			candidate.OwnerName = UnknownPlayerName
		}
		rows = append(rows, candidate)
	}
	return
}

func buildSession(input SessionInput) (Session, *ValidationError) {
	input.Title = strings.TrimSpace(input.Title)
	input.Location = trimmedPtr(input.Location)
	input.Description = trimmedPtr(input.Description)

	vErr := validateStruct(input)
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}

	return Session{
		Title:       input.Title,
		Date:        input.Date.UTC(),
		Duration:    input.Duration,
		Location:    input.Location,
		Description: input.Description,
		MaxPlayers:  input.MaxPlayers,
	}, vErr
}

func sessionInputFrom(session Session) SessionInput {
	return SessionInput{
		Title:       session.Title,
		Date:        session.Date,
		Duration:    session.Duration,
		Location:    session.Location,
		Description: session.Description,
		MaxPlayers:  session.MaxPlayers,
	}
}

func applySessionPatch(input SessionInput, patch SessionPatch) SessionInput {
	if patch.Title != nil {
		input.Title = *patch.Title
	}
	if patch.Date != nil {
		input.Date = *patch.Date
	}
	if patch.Duration != nil {
		input.Duration = patch.Duration
	}
	if patch.Location != nil {
		input.Location = patch.Location
	}
	if patch.Description != nil {
		input.Description = patch.Description
	}
	if patch.MaxPlayers != nil {
		input.MaxPlayers = patch.MaxPlayers
	}
	return input
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	return stringPtr(strings.TrimSpace(*value))
}
