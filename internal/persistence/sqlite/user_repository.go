package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/session-scheduler/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

type userRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	Name         string `db:"name"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

const userColumns = `id, email, name, password_hash, role, created_at, updated_at`

func (row userRow) toModel() (persistence.User, error) {
	createdAt, err := parseTime("created_at", row.CreatedAt)
	if err != nil {
		return persistence.User{}, err
	}
	updatedAt, err := parseTime("updated_at", row.UpdatedAt)
	if err != nil {
		return persistence.User{}, err
	}
	return persistence.User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		Role:         row.Role,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// CreateUser inserts a new user. The email is stored lower-cased.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	row := userRow{
		ID:           user.ID,
		Email:        normalizeEmail(user.Email),
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    formatTime(user.CreatedAt),
		UpdatedAt:    formatTime(user.UpdatedAt),
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
		VALUES (:id, :email, :name, :password_hash, :role, :created_at, :updated_at)
	`
	if _, err := r.pool.DB().NamedExecContext(ctx, query, row); err != nil {
		return mapError(err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	var row userRow
	if err := r.pool.DB().GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return persistence.User{}, mapError(err)
	}
	return row.toModel()
}

// GetUserByEmail retrieves a user by email address, case-insensitively
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	var row userRow
	if err := r.pool.DB().GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalized); err != nil {
		return persistence.User{}, mapError(err)
	}
	return row.toModel()
}

// ListUsers returns users newest first, optionally restricted to a set of roles.
func (r *UserRepository) ListUsers(ctx context.Context, filter persistence.UserFilter) ([]persistence.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if len(filter.Roles) > 0 {
		var err error
		query, args, err = sqlx.In(query+` WHERE role IN (?)`, filter.Roles)
		if err != nil {
			return nil, fmt.Errorf("failed to build role filter: %w", err)
		}
	}
	query += ` ORDER BY created_at DESC, id ASC`

	var rows []userRow
	if err := r.pool.DB().SelectContext(ctx, &rows, r.pool.DB().Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}

	users := make([]persistence.User, 0, len(rows))
	for _, row := range rows {
		user, err := row.toModel()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// UpdateUserRole changes the role of an existing user.
func (r *UserRepository) UpdateUserRole(ctx context.Context, id, role string, updatedAt time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, formatTime(updatedAt), id,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// DeleteUser removes a user. Availabilities and login sessions cascade;
// a user who still runs game sessions yields ErrForeignKeyViolation.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}
