package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/session-scheduler/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository on the auth_sessions table
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

type sessionRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	ExpiresAt string         `db:"expires_at"`
	RevokedAt sql.NullString `db:"revoked_at"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

const sessionColumns = `id, user_id, expires_at, revoked_at, created_at, updated_at`

func newSessionRow(session persistence.Session) sessionRow {
	return sessionRow{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: formatTime(session.ExpiresAt),
		RevokedAt: formatTimePtr(session.RevokedAt),
		CreatedAt: formatTime(session.CreatedAt),
		UpdatedAt: formatTime(session.UpdatedAt),
	}
}

func (row sessionRow) toModel() (persistence.Session, error) {
	expiresAt, err := parseTime("expires_at", row.ExpiresAt)
	if err != nil {
		return persistence.Session{}, err
	}
	revokedAt, err := parseTimePtr("revoked_at", row.RevokedAt)
	if err != nil {
		return persistence.Session{}, err
	}
	createdAt, err := parseTime("created_at", row.CreatedAt)
	if err != nil {
		return persistence.Session{}, err
	}
	updatedAt, err := parseTime("updated_at", row.UpdatedAt)
	if err != nil {
		return persistence.Session{}, err
	}
	return persistence.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		ExpiresAt: expiresAt,
		RevokedAt: revokedAt,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// CreateSession stores a new login session
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if strings.TrimSpace(session.ID) == "" || session.UserID == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO auth_sessions (id, user_id, expires_at, revoked_at, created_at, updated_at)
		VALUES (:id, :user_id, :expires_at, :revoked_at, :created_at, :updated_at)
	`
	row := newSessionRow(session)
	if _, err := r.pool.DB().NamedExecContext(ctx, query, row); err != nil {
		return persistence.Session{}, mapError(err)
	}
	return row.toModel()
}

// GetSession retrieves a login session by its ID
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if strings.TrimSpace(id) == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var row sessionRow
	if err := r.pool.DB().GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM auth_sessions WHERE id = ?`, id); err != nil {
		return persistence.Session{}, mapError(err)
	}
	return row.toModel()
}

// UpdateSession updates the expiry and revocation fields of an existing session
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		UPDATE auth_sessions
		SET expires_at = :expires_at, revoked_at = :revoked_at, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.pool.DB().NamedExecContext(ctx, query, newSessionRow(session))
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	if err := requireAffected(result); err != nil {
		return persistence.Session{}, err
	}
	return r.GetSession(ctx, session.ID)
}

// RevokeSession marks a session as revoked. Revoking twice keeps the first timestamp.
func (r *SessionRepository) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (persistence.Session, error) {
	if strings.TrimSpace(id) == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var revoked persistence.Session
	err := r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		stamp := formatTime(revokedAt)
		result, err := tx.ExecContext(ctx,
			`UPDATE auth_sessions SET revoked_at = COALESCE(revoked_at, ?), updated_at = ? WHERE id = ?`,
			stamp, stamp, id,
		)
		if err != nil {
			return mapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}

		var row sessionRow
		if err := tx.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM auth_sessions WHERE id = ?`, id); err != nil {
			return mapError(err)
		}
		revoked, err = row.toModel()
		return err
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return revoked, nil
}

// DeleteExpiredSessions removes sessions that expired on or before the provided timestamp
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if _, err := r.pool.DB().ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= ?`, formatTime(reference)); err != nil {
		return mapError(err)
	}
	return nil
}
