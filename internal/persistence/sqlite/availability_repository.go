package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/session-scheduler/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository using SQLite
type AvailabilityRepository struct {
	pool *ConnectionPool
}

// NewAvailabilityRepository creates a new SQLite availability repository
func NewAvailabilityRepository(pool *ConnectionPool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

type availabilityRow struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	Name         string         `db:"name"`
	SelectedDays string         `db:"selected_days"`
	TimeOption   string         `db:"time_option"`
	StartTime    sql.NullString `db:"start_time"`
	EndTime      sql.NullString `db:"end_time"`
	RepeatOption string         `db:"repeat_option"`
	RepeatWeeks  sql.NullInt64  `db:"repeat_weeks"`
	CreatedAt    string         `db:"created_at"`
	UpdatedAt    string         `db:"updated_at"`
}

type availabilityOwnerRow struct {
	availabilityRow
	OwnerName  sql.NullString `db:"owner_name"`
	OwnerEmail sql.NullString `db:"owner_email"`
}

const availabilityColumns = `a.id, a.user_id, a.name, a.selected_days, a.time_option, a.start_time, a.end_time,
	a.repeat_option, a.repeat_weeks, a.created_at, a.updated_at`

func newAvailabilityRow(availability persistence.Availability) (availabilityRow, error) {
	days := availability.SelectedDays
	if days == nil {
		days = []string{}
	}
	encoded, err := json.Marshal(days)
	if err != nil {
		return availabilityRow{}, fmt.Errorf("failed to encode selected_days: %w", err)
	}
	return availabilityRow{
		ID:           availability.ID,
		UserID:       availability.UserID,
		Name:         availability.Name,
		SelectedDays: string(encoded),
		TimeOption:   availability.TimeOption,
		StartTime:    nullString(availability.StartTime),
		EndTime:      nullString(availability.EndTime),
		RepeatOption: availability.RepeatOption,
		RepeatWeeks:  nullInt(availability.RepeatWeeks),
		CreatedAt:    formatTime(availability.CreatedAt),
		UpdatedAt:    formatTime(availability.UpdatedAt),
	}, nil
}

func (row availabilityRow) toModel() (persistence.Availability, error) {
	var days []string
	if err := json.Unmarshal([]byte(row.SelectedDays), &days); err != nil {
		return persistence.Availability{}, fmt.Errorf("failed to decode selected_days: %w", err)
	}
	createdAt, err := parseTime("created_at", row.CreatedAt)
	if err != nil {
		return persistence.Availability{}, err
	}
	updatedAt, err := parseTime("updated_at", row.UpdatedAt)
	if err != nil {
		return persistence.Availability{}, err
	}
	return persistence.Availability{
		ID:           row.ID,
		UserID:       row.UserID,
		Name:         row.Name,
		SelectedDays: days,
		TimeOption:   row.TimeOption,
		StartTime:    stringPtr(row.StartTime),
		EndTime:      stringPtr(row.EndTime),
		RepeatOption: row.RepeatOption,
		RepeatWeeks:  intPtr(row.RepeatWeeks),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// CreateAvailability inserts a new availability window
func (r *AvailabilityRepository) CreateAvailability(ctx context.Context, availability persistence.Availability) error {
	if availability.ID == "" || availability.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	row, err := newAvailabilityRow(availability)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO availabilities (id, user_id, name, selected_days, time_option, start_time, end_time,
			repeat_option, repeat_weeks, created_at, updated_at)
		VALUES (:id, :user_id, :name, :selected_days, :time_option, :start_time, :end_time,
			:repeat_option, :repeat_weeks, :created_at, :updated_at)
	`
	if _, err := r.pool.DB().NamedExecContext(ctx, query, row); err != nil {
		return mapError(err)
	}
	return nil
}

// GetAvailability retrieves an availability by ID
func (r *AvailabilityRepository) GetAvailability(ctx context.Context, id string) (persistence.Availability, error) {
	if id == "" {
		return persistence.Availability{}, persistence.ErrNotFound
	}

	var row availabilityRow
	if err := r.pool.DB().GetContext(ctx, &row, `SELECT `+availabilityColumns+` FROM availabilities a WHERE a.id = ?`, id); err != nil {
		return persistence.Availability{}, mapError(err)
	}
	return row.toModel()
}

// UpdateAvailability replaces the mutable fields of an availability. Owner
// and creation time never change.
func (r *AvailabilityRepository) UpdateAvailability(ctx context.Context, availability persistence.Availability) error {
	if availability.ID == "" {
		return persistence.ErrNotFound
	}

	row, err := newAvailabilityRow(availability)
	if err != nil {
		return err
	}

	query := `
		UPDATE availabilities
		SET name = :name, selected_days = :selected_days, time_option = :time_option,
			start_time = :start_time, end_time = :end_time, repeat_option = :repeat_option,
			repeat_weeks = :repeat_weeks, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.pool.DB().NamedExecContext(ctx, query, row)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// DeleteAvailability removes an availability by ID
func (r *AvailabilityRepository) DeleteAvailability(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM availabilities WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// ListAvailabilities returns availabilities newest first, optionally for one user.
func (r *AvailabilityRepository) ListAvailabilities(ctx context.Context, filter persistence.AvailabilityFilter) ([]persistence.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities a`
	var args []any
	if filter.UserID != "" {
		query += ` WHERE a.user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY a.created_at DESC, a.id ASC`

	var rows []availabilityRow
	if err := r.pool.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}

	availabilities := make([]persistence.Availability, 0, len(rows))
	for _, row := range rows {
		availability, err := row.toModel()
		if err != nil {
			return nil, err
		}
		availabilities = append(availabilities, availability)
	}
	return availabilities, nil
}

// ListAvailabilitiesWithOwners returns every availability joined with its owner's name and email.
func (r *AvailabilityRepository) ListAvailabilitiesWithOwners(ctx context.Context) ([]persistence.AvailabilityWithOwner, error) {
	query := `
		SELECT ` + availabilityColumns + `, NULLIF(u.name, '') AS owner_name, u.email AS owner_email
		FROM availabilities a
		LEFT JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC, a.id ASC
	`

	var rows []availabilityOwnerRow
	if err := r.pool.DB().SelectContext(ctx, &rows, query); err != nil {
		return nil, mapError(err)
	}

	result := make([]persistence.AvailabilityWithOwner, 0, len(rows))
	for _, row := range rows {
		availability, err := row.availabilityRow.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, persistence.AvailabilityWithOwner{
			Availability: availability,
			OwnerName:    stringPtr(row.OwnerName),
			OwnerEmail:   stringPtr(row.OwnerEmail),
		})
	}
	return result, nil
}
