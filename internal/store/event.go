package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/campusevents/apiserver/types"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, location, category, organizer_id, status, eligibility,
		       reg_required, reg_start_date, reg_end_date, max_participants, is_open, current_count,
		       poster_key, starts_at, ends_at, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (types.Event, error) {
	var event types.Event
	var eligibilityJSON []byte
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.Category,
		&event.OrganizerID,
		&event.Status,
		&eligibilityJSON,
		&event.Registration.Required,
		&event.Registration.StartDate,
		&event.Registration.EndDate,
		&event.Registration.MaxParticipants,
		&event.Registration.IsOpen,
		&event.Registration.CurrentCount,
		&event.PosterKey,
		&event.StartsAt,
		&event.EndsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return types.Event{}, err
	}

	_ = json.Unmarshal(eligibilityJSON, &event.Eligibility)
	return event, nil
}

// List returns a page of events, optionally filtered by lifecycle status,
// together with the total count for the filter.
func (r *EventRepository) List(ctx context.Context, status types.EventStatus, offset, limit int) ([]types.Event, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	if status == "" {
		const countQuery = `SELECT COUNT(1) FROM events`
		if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
			return nil, 0, err
		}
	} else {
		const countQuery = `SELECT COUNT(1) FROM events WHERE status = $1`
		if err := r.db.QueryRowContext(ctx, countQuery, status).Scan(&total); err != nil {
			return nil, 0, err
		}
	}

	var rows *sql.Rows
	var err error
	if status == "" {
		const listQuery = `
			SELECT ` + eventColumns + `
			FROM events
			ORDER BY starts_at, id
			OFFSET $1 LIMIT $2`
		rows, err = r.db.QueryContext(ctx, listQuery, offset, limit)
	} else {
		const listQuery = `
			SELECT ` + eventColumns + `
			FROM events
			WHERE status = $1
			ORDER BY starts_at, id
			OFFSET $2 LIMIT $3`
		rows, err = r.db.QueryContext(ctx, listQuery, status, offset, limit)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]types.Event, 0, limit)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (r *EventRepository) Get(ctx context.Context, id int) (types.Event, error) {
	const query = `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1`
	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Event{}, ErrNotFound
		}
		return types.Event{}, err
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, event types.Event) (types.Event, error) {
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	eligibilityJSON, err := json.Marshal(event.Eligibility)
	if err != nil {
		return types.Event{}, err
	}

	const query = `
		INSERT INTO events (title, description, location, category, organizer_id, status, eligibility,
				    reg_required, reg_start_date, reg_end_date, max_participants, is_open, current_count,
				    poster_key, starts_at, ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		event.Title,
		event.Description,
		event.Location,
		event.Category,
		event.OrganizerID,
		event.Status,
		eligibilityJSON,
		event.Registration.Required,
		event.Registration.StartDate,
		event.Registration.EndDate,
		event.Registration.MaxParticipants,
		event.Registration.IsOpen,
		event.Registration.CurrentCount,
		event.PosterKey,
		event.StartsAt,
		event.EndsAt,
		event.CreatedAt,
		event.UpdatedAt,
	).Scan(&event.ID); err != nil {
		return types.Event{}, err
	}

	return event, nil
}

// Update persists event fields. CurrentCount is deliberately excluded; it
// only moves through the conditional updates in the registration repository.
func (r *EventRepository) Update(ctx context.Context, event types.Event) (types.Event, error) {
	event.UpdatedAt = time.Now()

	eligibilityJSON, err := json.Marshal(event.Eligibility)
	if err != nil {
		return types.Event{}, err
	}

	const query = `
		UPDATE events
		SET title = $1,
			description = $2,
			location = $3,
			category = $4,
			eligibility = $5,
			reg_required = $6,
			reg_start_date = $7,
			reg_end_date = $8,
			max_participants = $9,
			is_open = $10,
			poster_key = $11,
			starts_at = $12,
			ends_at = $13,
			updated_at = $14
		WHERE id = $15`
	result, err := r.db.ExecContext(
		ctx,
		query,
		event.Title,
		event.Description,
		event.Location,
		event.Category,
		eligibilityJSON,
		event.Registration.Required,
		event.Registration.StartDate,
		event.Registration.EndDate,
		event.Registration.MaxParticipants,
		event.Registration.IsOpen,
		event.PosterKey,
		event.StartsAt,
		event.EndsAt,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return types.Event{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Event{}, err
	}
	if affected == 0 {
		return types.Event{}, ErrNotFound
	}

	return event, nil
}

// UpdateStatus moves an event to the given lifecycle stage. The previous
// stage is matched in the WHERE clause so concurrent transitions cannot
// leapfrog each other.
func (r *EventRepository) UpdateStatus(ctx context.Context, id int, from, to types.EventStatus) error {
	const query = `
		UPDATE events
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
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

func (r *EventRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM events WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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
