package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const microsPerMinute = int64(60 * 1000 * 1000)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func toPgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * microsPerMinute, Valid: true}
}

func fromPgTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / microsPerMinute)
}

func scanWindow(row pgx.Row) (*Window, error) {
	var (
		w          Window
		day        int16
		start, end pgtype.Time
	)

	err := row.Scan(
		&w.ID,
		&w.PractitionerID,
		&day,
		&start,
		&end,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.DayOfWeek = Weekday(day)
	w.StartTime = fromPgTime(start)
	w.EndTime = fromPgTime(end)
	return &w, nil
}

func collectWindows(rows pgx.Rows) ([]Window, error) {
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) ReplaceForPractitioner(ctx context.Context, practitionerID uuid.UUID, windows []Window) ([]Window, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM practitioner_schedules
		WHERE practitioner_id = $1
	`, practitionerID); err != nil {
		return nil, fmt.Errorf("delete schedules: %w", err)
	}

	saved := make([]Window, 0, len(windows))
	for _, w := range windows {
		row := tx.QueryRow(ctx, `
			INSERT INTO practitioner_schedules (id, practitioner_id, day_of_week, start_time, end_time, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
			RETURNING id, practitioner_id, day_of_week, start_time, end_time, created_at
		`, uuid.New(), practitionerID, int16(w.DayOfWeek), toPgTime(w.StartTime), toPgTime(w.EndTime))

		s, err := scanWindow(row)
		if err != nil {
			return nil, fmt.Errorf("insert schedule: %w", err)
		}
		saved = append(saved, *s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit schedules: %w", err)
	}
	return saved, nil
}

func (r *PgRepository) ListByDay(ctx context.Context, practitionerID uuid.UUID, day Weekday) ([]Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, day_of_week, start_time, end_time, created_at
		FROM practitioner_schedules
		WHERE practitioner_id = $1 AND day_of_week = $2
		ORDER BY start_time
	`, practitionerID, int16(day))
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, day_of_week, start_time, end_time, created_at
		FROM practitioner_schedules
		WHERE practitioner_id = $1
		ORDER BY day_of_week, start_time
	`, practitionerID)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}
