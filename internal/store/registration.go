package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/campusevents/apiserver/types"
)

// RegistrationRepository handles persistence for registrations, including
// the atomic admission write that keeps the capacity counter honest.
type RegistrationRepository struct {
	db *sql.DB
}

func NewRegistrationRepository(db *sql.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, event_id, user_id, status, attended, attended_at, registered_at`

func scanRegistration(row interface{ Scan(...any) error }) (types.Registration, error) {
	var reg types.Registration
	var attendedAt sql.NullTime
	if err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.Status,
		&reg.Attended,
		&attendedAt,
		&reg.RegisteredAt,
	); err != nil {
		return types.Registration{}, err
	}
	if attendedAt.Valid {
		reg.AttendedAt = &attendedAt.Time
	}
	return reg, nil
}

// FindActive returns the non-cancelled registration for (user, event), or
// ErrNotFound when no such registration exists.
func (r *RegistrationRepository) FindActive(ctx context.Context, userID, eventID int) (types.Registration, error) {
	const query = `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1 AND event_id = $2 AND status <> 'cancelled'`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, userID, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Registration{}, ErrNotFound
		}
		return types.Registration{}, err
	}
	return reg, nil
}

// CreateConfirmed admits one registration as a single transaction: a
// conditional increment of the event's confirmed count followed by the
// insert of the registration row.
//
// Returns ErrCapacityConflict when the conditional update affects zero rows
// (the event filled up since the caller's read) and ErrDuplicate when the
// insert violates the active-registration unique index.
func (r *RegistrationRepository) CreateConfirmed(ctx context.Context, userID, eventID int) (types.Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Registration{}, err
	}
	defer tx.Rollback()

	const incrementQuery = `
		UPDATE events
		SET current_count = current_count + 1, updated_at = $1
		WHERE id = $2 AND (max_participants = 0 OR current_count < max_participants)`
	result, err := tx.ExecContext(ctx, incrementQuery, time.Now(), eventID)
	if err != nil {
		return types.Registration{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Registration{}, err
	}
	if affected == 0 {
		return types.Registration{}, ErrCapacityConflict
	}

	reg := types.Registration{
		EventID:      eventID,
		UserID:       userID,
		Status:       types.RegistrationConfirmed,
		RegisteredAt: time.Now(),
	}

	const insertQuery = `
		INSERT INTO registrations (event_id, user_id, status, registered_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, insertQuery, reg.EventID, reg.UserID, reg.Status, reg.RegisteredAt).Scan(&reg.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Registration{}, ErrDuplicate
		}
		return types.Registration{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Registration{}, err
	}
	return reg, nil
}

// Cancel marks the user's active registration cancelled and returns the
// freed seat to the event, in one transaction.
func (r *RegistrationRepository) Cancel(ctx context.Context, userID, eventID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const cancelQuery = `
		UPDATE registrations
		SET status = 'cancelled'
		WHERE user_id = $1 AND event_id = $2 AND status <> 'cancelled'`
	result, err := tx.ExecContext(ctx, cancelQuery, userID, eventID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	const decrementQuery = `
		UPDATE events
		SET current_count = current_count - 1, updated_at = $1
		WHERE id = $2 AND current_count > 0`
	if _, err := tx.ExecContext(ctx, decrementQuery, time.Now(), eventID); err != nil {
		return err
	}

	return tx.Commit()
}

// MarkAttendance records that the registered user was present.
func (r *RegistrationRepository) MarkAttendance(ctx context.Context, registrationID int64) error {
	const query = `
		UPDATE registrations
		SET attended = TRUE, attended_at = $1
		WHERE id = $2 AND status = 'confirmed'`
	result, err := r.db.ExecContext(ctx, query, time.Now(), registrationID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByEvent returns all non-cancelled registrations for an event.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int) ([]types.Registration, error) {
	const query = `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND status <> 'cancelled'
		ORDER BY registered_at, id`
	return r.list(ctx, query, eventID)
}

// ListByUser returns all of a user's registrations, newest first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID int) ([]types.Registration, error) {
	const query = `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1
		ORDER BY registered_at DESC, id DESC`
	return r.list(ctx, query, userID)
}

func (r *RegistrationRepository) list(ctx context.Context, query string, arg any) ([]types.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []types.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// ParticipationRow is one line of the participation analytics report.
type ParticipationRow struct {
	EventID    int    `json:"event_id"`
	EventTitle string `json:"event_title"`
	Department string `json:"department"`
	Confirmed  int    `json:"confirmed"`
	Attended   int    `json:"attended"`
}

// Participation aggregates confirmed and attended counts per event and
// registrant department.
func (r *RegistrationRepository) Participation(ctx context.Context) ([]ParticipationRow, error) {
	const query = `
		SELECT e.id, e.title, u.department,
		       COUNT(*) FILTER (WHERE r.status = 'confirmed'),
		       COUNT(*) FILTER (WHERE r.attended)
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		JOIN users u ON u.id = r.user_id
		WHERE r.status <> 'cancelled'
		GROUP BY e.id, e.title, u.department
		ORDER BY e.id, u.department`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []ParticipationRow
	for rows.Next() {
		var row ParticipationRow
		if err := rows.Scan(&row.EventID, &row.EventTitle, &row.Department, &row.Confirmed, &row.Attended); err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	return report, rows.Err()
}
