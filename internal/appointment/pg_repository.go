package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/practice-scheduling/internal/overlap"
)

const exclusionViolation = "23P01"

const appointmentColumns = `id, practitioner_id, user_id, start_time, end_time, is_virtual, user_notes, status,
	cancellation_reason, cancellation_time, cancelled_by_practitioner,
	doctor_video_url, user_video_url, virtual_meeting_id, review_id,
	created_at, updated_at, updated_by`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PractitionerID,
		&a.UserID,
		&a.StartTime,
		&a.EndTime,
		&a.IsVirtual,
		&a.UserNotes,
		&a.Status,
		&a.CancellationReason,
		&a.CancellationTime,
		&a.CancelledByPractitioner,
		&a.DoctorVideoURL,
		&a.UserVideoURL,
		&a.VirtualMeetingID,
		&a.ReviewID,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.UpdatedByID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolation
}

// Interface methods

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND tstzrange(start_time, end_time, '()') && tstzrange($2, $3, '()')
		ORDER BY start_time
	`, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// FindOverlap uses open ranges so touching bookings never collide.
func (r *PgRepository) FindOverlap(ctx context.Context, q overlap.Query) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE practitioner_id = $1
			  AND tstzrange(start_time, end_time, '()') && tstzrange($2, $3, '()')
			  AND NOT (status = ANY($4))
			  AND ($5::uuid IS NULL OR id <> $5)
		)
	`, q.PractitionerID, q.Start, q.End, q.IgnoreStatuses, nullableID(q.ExcludeID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query overlapping appointments: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, practitioner_id, user_id, start_time, end_time, is_virtual, user_notes,
			status, cancelled_by_practitioner, created_at, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, now(), now(), $9)
		RETURNING `+appointmentColumns,
		id, a.PractitionerID, a.UserID, a.StartTime, a.EndTime, a.IsVirtual, a.UserNotes, a.Status, a.UpdatedByID)

	created, err := scanAppointment(row)
	if err != nil {
		if isExclusionViolation(err) {
			return nil, ErrOverlap
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) Discard(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("discard appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) SetMeeting(ctx context.Context, id uuid.UUID, m MeetingDetails) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET doctor_video_url = $2,
		    user_video_url = $3,
		    virtual_meeting_id = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, m.DoctorVideoURL, m.UserVideoURL, m.VirtualMeetingID)
	return scanAppointment(row)
}

func (r *PgRepository) ClearMeeting(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET doctor_video_url = NULL,
		    user_video_url = NULL,
		    virtual_meeting_id = NULL,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns, id)
	return scanAppointment(row)
}

func (r *PgRepository) MarkCancelled(ctx context.Context, id uuid.UUID, from AppointmentStatus, c Cancellation) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = $3,
		    cancellation_time = $4,
		    cancelled_by_practitioner = $5,
		    updated_by = $6,
		    doctor_video_url = CASE WHEN $7 THEN NULL ELSE doctor_video_url END,
		    user_video_url = CASE WHEN $7 THEN NULL ELSE user_video_url END,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns,
		id, from, c.Reason, c.At, c.ByPractitioner, c.ActorID, c.ClearVideo)
	return scanAppointment(row)
}

func (r *PgRepository) ListCancelledWithMeeting(ctx context.Context, limit int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'cancelled'
		  AND virtual_meeting_id IS NOT NULL
		ORDER BY updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
