package main

import (
	"context"
	"time"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/persistence"
)

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByEmail(ctx context.Context, email string) (application.User, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context, roles []application.Role) ([]application.User, error) {
	filter := persistence.UserFilter{}
	for _, role := range roles {
		filter.Roles = append(filter.Roles, string(role))
	}
	models, err := a.repo.ListUsers(ctx, filter)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userRepositoryAdapter) UpdateUserRole(ctx context.Context, id string, role application.Role, updatedAt time.Time) (application.User, error) {
	if err := a.repo.UpdateUserRole(ctx, id, string(role), updatedAt); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, id)
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

type availabilityRepositoryAdapter struct {
	repo persistence.AvailabilityRepository
}

func newAvailabilityRepositoryAdapter(repo persistence.AvailabilityRepository) *availabilityRepositoryAdapter {
	return &availabilityRepositoryAdapter{repo: repo}
}

func (a *availabilityRepositoryAdapter) CreateAvailability(ctx context.Context, availability application.Availability) (application.Availability, error) {
	if err := a.repo.CreateAvailability(ctx, toPersistenceAvailability(availability)); err != nil {
		return application.Availability{}, err
	}
	return a.GetAvailability(ctx, availability.ID)
}

func (a *availabilityRepositoryAdapter) GetAvailability(ctx context.Context, id string) (application.Availability, error) {
	stored, err := a.repo.GetAvailability(ctx, id)
	if err != nil {
		return application.Availability{}, err
	}
	return toApplicationAvailability(stored), nil
}

func (a *availabilityRepositoryAdapter) UpdateAvailability(ctx context.Context, availability application.Availability) (application.Availability, error) {
	if err := a.repo.UpdateAvailability(ctx, toPersistenceAvailability(availability)); err != nil {
		return application.Availability{}, err
	}
	return a.GetAvailability(ctx, availability.ID)
}

func (a *availabilityRepositoryAdapter) DeleteAvailability(ctx context.Context, id string) error {
	return a.repo.DeleteAvailability(ctx, id)
}

func (a *availabilityRepositoryAdapter) ListAvailabilities(ctx context.Context, userID string) ([]application.Availability, error) {
	models, err := a.repo.ListAvailabilities(ctx, persistence.AvailabilityFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	availabilities := make([]application.Availability, 0, len(models))
	for _, model := range models {
		availabilities = append(availabilities, toApplicationAvailability(model))
	}
	return availabilities, nil
}

func (a *availabilityRepositoryAdapter) ListAvailabilitiesWithOwners(ctx context.Context) ([]application.AvailabilityWithOwner, error) {
	models, err := a.repo.ListAvailabilitiesWithOwners(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]application.AvailabilityWithOwner, 0, len(models))
	for _, model := range models {
		row := application.AvailabilityWithOwner{Availability: toApplicationAvailability(model.Availability)}
		if model.OwnerName != nil {
			row.OwnerName = *model.OwnerName
		}
		if model.OwnerEmail != nil {
			row.OwnerEmail = *model.OwnerEmail
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type gameSessionRepositoryAdapter struct {
	repo persistence.GameSessionRepository
}

func newGameSessionRepositoryAdapter(repo persistence.GameSessionRepository) *gameSessionRepositoryAdapter {
	return &gameSessionRepositoryAdapter{repo: repo}
}

func (a *gameSessionRepositoryAdapter) CreateGameSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := a.repo.CreateGameSession(ctx, toPersistenceGameSession(session)); err != nil {
		return application.Session{}, err
	}
	return a.GetGameSession(ctx, session.ID)
}

func (a *gameSessionRepositoryAdapter) GetGameSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetGameSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationGameSession(stored), nil
}

func (a *gameSessionRepositoryAdapter) UpdateGameSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := a.repo.UpdateGameSession(ctx, toPersistenceGameSession(session)); err != nil {
		return application.Session{}, err
	}
	return a.GetGameSession(ctx, session.ID)
}

func (a *gameSessionRepositoryAdapter) DeleteGameSession(ctx context.Context, id string) error {
	return a.repo.DeleteGameSession(ctx, id)
}

func (a *gameSessionRepositoryAdapter) ListGameSessions(ctx context.Context, filter application.SessionRepositoryFilter) ([]application.Session, error) {
	models, err := a.repo.ListGameSessions(ctx, persistence.GameSessionFilter{
		From:  filter.From,
		To:    filter.To,
		GMID:  filter.GMID,
		Limit: filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	sessions := make([]application.Session, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationGameSession(model))
	}
	return sessions, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.AuthSession) (application.AuthSession, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.AuthSession, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.AuthSession) (application.AuthSession, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (application.AuthSession, error) {
	stored, err := a.repo.RevokeSession(ctx, id, revokedAt)
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func toApplicationUser(model persistence.User) application.User {
	role, ok := application.ParseRole(model.Role)
	if !ok {
		role = application.RoleNew
	}
	return application.User{
		ID:        model.ID,
		Email:     model.Email,
		Name:      model.Name,
		Role:      role,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: passwordHash,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationAvailability(model persistence.Availability) application.Availability {
	days := make([]time.Weekday, 0, len(model.SelectedDays))
	for _, name := range model.SelectedDays {
		if day, ok := application.ParseWeekday(name); ok {
			days = append(days, day)
		}
	}
	return application.Availability{
		ID:           model.ID,
		UserID:       model.UserID,
		Name:         model.Name,
		SelectedDays: days,
		TimeOption:   application.TimeOption(model.TimeOption),
		StartTime:    cloneString(model.StartTime),
		EndTime:      cloneString(model.EndTime),
		RepeatOption: application.RepeatOption(model.RepeatOption),
		RepeatWeeks:  cloneInt(model.RepeatWeeks),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceAvailability(availability application.Availability) persistence.Availability {
	days := make([]string, 0, len(availability.SelectedDays))
	for _, day := range availability.SelectedDays {
		days = append(days, day.String())
	}
	return persistence.Availability{
		ID:           availability.ID,
		UserID:       availability.UserID,
		Name:         availability.Name,
		SelectedDays: days,
		TimeOption:   string(availability.TimeOption),
		StartTime:    cloneString(availability.StartTime),
		EndTime:      cloneString(availability.EndTime),
		RepeatOption: string(availability.RepeatOption),
		RepeatWeeks:  cloneInt(availability.RepeatWeeks),
		CreatedAt:    availability.CreatedAt,
		UpdatedAt:    availability.UpdatedAt,
	}
}

func toApplicationGameSession(model persistence.GameSession) application.Session {
	return application.Session{
		ID:          model.ID,
		Title:       model.Title,
		Date:        model.Date,
		GMID:        model.GMID,
		Duration:    cloneInt(model.Duration),
		Location:    cloneString(model.Location),
		Description: cloneString(model.Description),
		MaxPlayers:  cloneInt(model.MaxPlayers),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceGameSession(session application.Session) persistence.GameSession {
	return persistence.GameSession{
		ID:          session.ID,
		Title:       session.Title,
		Date:        session.Date,
		GMID:        session.GMID,
		Duration:    cloneInt(session.Duration),
		Location:    cloneString(session.Location),
		Description: cloneString(session.Description),
		MaxPlayers:  cloneInt(session.MaxPlayers),
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.AuthSession {
	return application.AuthSession{
		ID:        model.ID,
		UserID:    model.UserID,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.AuthSession) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
