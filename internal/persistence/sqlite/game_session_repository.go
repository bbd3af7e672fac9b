package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/session-scheduler/internal/persistence"
)

// GameSessionRepository implements persistence.GameSessionRepository using SQLite
type GameSessionRepository struct {
	pool *ConnectionPool
}

// NewGameSessionRepository creates a new SQLite game session repository
func NewGameSessionRepository(pool *ConnectionPool) *GameSessionRepository {
	return &GameSessionRepository{pool: pool}
}

type gameSessionRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Date        string         `db:"session_date"`
	GMID        string         `db:"gm_id"`
	Duration    sql.NullInt64  `db:"duration"`
	Location    sql.NullString `db:"location"`
	Description sql.NullString `db:"description"`
	MaxPlayers  sql.NullInt64  `db:"max_players"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

const gameSessionColumns = `id, title, session_date, gm_id, duration, location, description, max_players, created_at, updated_at`

func newGameSessionRow(session persistence.GameSession) gameSessionRow {
	return gameSessionRow{
		ID:          session.ID,
		Title:       session.Title,
		Date:        formatTime(session.Date),
		GMID:        session.GMID,
		Duration:    nullInt(session.Duration),
		Location:    nullString(session.Location),
		Description: nullString(session.Description),
		MaxPlayers:  nullInt(session.MaxPlayers),
		CreatedAt:   formatTime(session.CreatedAt),
		UpdatedAt:   formatTime(session.UpdatedAt),
	}
}

func (row gameSessionRow) toModel() (persistence.GameSession, error) {
	date, err := parseTime("session_date", row.Date)
	if err != nil {
		return persistence.GameSession{}, err
	}
	createdAt, err := parseTime("created_at", row.CreatedAt)
	if err != nil {
		return persistence.GameSession{}, err
	}
	updatedAt, err := parseTime("updated_at", row.UpdatedAt)
	if err != nil {
		return persistence.GameSession{}, err
	}
	return persistence.GameSession{
		ID:          row.ID,
		Title:       row.Title,
		Date:        date,
		GMID:        row.GMID,
		Duration:    intPtr(row.Duration),
		Location:    stringPtr(row.Location),
		Description: stringPtr(row.Description),
		MaxPlayers:  intPtr(row.MaxPlayers),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// CreateGameSession inserts a new game session
func (r *GameSessionRepository) CreateGameSession(ctx context.Context, session persistence.GameSession) error {
	if session.ID == "" || session.GMID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO game_sessions (id, title, session_date, gm_id, duration, location, description, max_players, created_at, updated_at)
		VALUES (:id, :title, :session_date, :gm_id, :duration, :location, :description, :max_players, :created_at, :updated_at)
	`
	if _, err := r.pool.DB().NamedExecContext(ctx, query, newGameSessionRow(session)); err != nil {
		return mapError(err)
	}
	return nil
}

// GetGameSession retrieves a game session by ID
func (r *GameSessionRepository) GetGameSession(ctx context.Context, id string) (persistence.GameSession, error) {
	if id == "" {
		return persistence.GameSession{}, persistence.ErrNotFound
	}

	var row gameSessionRow
	if err := r.pool.DB().GetContext(ctx, &row, `SELECT `+gameSessionColumns+` FROM game_sessions WHERE id = ?`, id); err != nil {
		return persistence.GameSession{}, mapError(err)
	}
	return row.toModel()
}

// UpdateGameSession replaces the mutable fields of a game session. The GM
// and creation time never change.
func (r *GameSessionRepository) UpdateGameSession(ctx context.Context, session persistence.GameSession) error {
	if session.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE game_sessions
		SET title = :title, session_date = :session_date, duration = :duration, location = :location,
			description = :description, max_players = :max_players, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.pool.DB().NamedExecContext(ctx, query, newGameSessionRow(session))
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// DeleteGameSession removes a game session by ID
func (r *GameSessionRepository) DeleteGameSession(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM game_sessions WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// ListGameSessions returns sessions matching the filter ordered by date ascending.
func (r *GameSessionRepository) ListGameSessions(ctx context.Context, filter persistence.GameSessionFilter) ([]persistence.GameSession, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.From != nil {
		clauses = append(clauses, "session_date >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		clauses = append(clauses, "session_date <= ?")
		args = append(args, formatTime(*filter.To))
	}
	if filter.GMID != "" {
		clauses = append(clauses, "gm_id = ?")
		args = append(args, filter.GMID)
	}

	query := `SELECT ` + gameSessionColumns + ` FROM game_sessions`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY session_date ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []gameSessionRow
	if err := r.pool.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}

	sessions := make([]persistence.GameSession, 0, len(rows))
	for _, row := range rows {
		session, err := row.toModel()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
