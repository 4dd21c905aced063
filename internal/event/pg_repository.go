package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/practice-scheduling/internal/overlap"
)

const eventColumns = `id, practitioner_id, title, description, location, hex_color, start_time, end_time,
	is_all_day, is_confirmed, created_by, updated_by, rrule, is_recurring, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanEvent(row pgx.Row) (*PractitionerEvent, error) {
	var e PractitionerEvent
	err := row.Scan(
		&e.ID,
		&e.PractitionerID,
		&e.Title,
		&e.Description,
		&e.Location,
		&e.HexColor,
		&e.StartTime,
		&e.EndTime,
		&e.IsAllDay,
		&e.IsConfirmed,
		&e.CreatedByID,
		&e.UpdatedByID,
		&e.RRule,
		&e.IsRecurring,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*PractitionerEvent, error) {
	return scanEvent(r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM practitioner_events
		WHERE id = $1
	`, id))
}

func (r *PgRepository) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]PractitionerEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM practitioner_events
		WHERE practitioner_id = $1
		  AND tstzrange(start_time, end_time, '()') && tstzrange($2, $3, '()')
		ORDER BY start_time
	`, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PractitionerEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) FindOverlap(ctx context.Context, q overlap.Query) (bool, error) {
	var endingAfter *time.Time
	if !q.EndingAfter.IsZero() {
		endingAfter = &q.EndingAfter
	}
	var excludeID *uuid.UUID
	if q.ExcludeID != uuid.Nil {
		excludeID = &q.ExcludeID
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM practitioner_events
			WHERE practitioner_id = $1
			  AND is_confirmed
			  AND tstzrange(start_time, end_time, '()') && tstzrange($2, $3, '()')
			  AND ($4::timestamptz IS NULL OR end_time >= $4)
			  AND ($5::uuid IS NULL OR id <> $5)
		)
	`, q.PractitionerID, q.Start, q.End, endingAfter, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query overlapping events: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) Insert(ctx context.Context, e *PractitionerEvent) (*PractitionerEvent, error) {
	return scanEvent(r.pool.QueryRow(ctx, `
		INSERT INTO practitioner_events (id, practitioner_id, title, description, location, hex_color,
			start_time, end_time, is_all_day, is_confirmed, created_by, rrule, is_recurring, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING `+eventColumns,
		uuid.New(), e.PractitionerID, e.Title, e.Description, e.Location, e.HexColor,
		e.StartTime, e.EndTime, e.IsAllDay, e.IsConfirmed, e.CreatedByID, e.RRule, e.IsRecurring))
}

func (r *PgRepository) Update(ctx context.Context, e *PractitionerEvent) (*PractitionerEvent, error) {
	return scanEvent(r.pool.QueryRow(ctx, `
		UPDATE practitioner_events
		SET title = $2,
		    description = $3,
		    location = $4,
		    hex_color = $5,
		    start_time = $6,
		    end_time = $7,
		    is_all_day = $8,
		    is_confirmed = $9,
		    updated_by = $10,
		    rrule = $11,
		    is_recurring = $12,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+eventColumns,
		e.ID, e.Title, e.Description, e.Location, e.HexColor, e.StartTime, e.EndTime,
		e.IsAllDay, e.IsConfirmed, e.UpdatedByID, e.RRule, e.IsRecurring))
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM practitioner_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}
