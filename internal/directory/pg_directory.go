package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func (d *PgDirectory) ResolveUserID(ctx context.Context, externalUID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := d.pool.QueryRow(ctx, `SELECT id FROM users WHERE external_uid = $1`, externalUID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("resolve user: %w", err)
	}
	return id, nil
}

func (d *PgDirectory) OwnedPractitionerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := d.pool.Query(ctx, `SELECT id FROM practitioners WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned practitioners: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan owned practitioners: %w", err)
	}
	return ids, nil
}

func (d *PgDirectory) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := d.pool.QueryRow(ctx, `
		SELECT id, external_uid, name, email, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.ExternalUID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (d *PgDirectory) GetPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	var p Practitioner
	err := d.pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, appointment_time_slot, created_at
		FROM practitioners
		WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.AppointmentTimeSlot, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, fmt.Errorf("get practitioner: %w", err)
	}
	return &p, nil
}

func (d *PgDirectory) CreatePractitioner(ctx context.Context, in NewPractitioner) (*Practitioner, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var p Practitioner
	err := d.pool.QueryRow(ctx, `
		INSERT INTO practitioners (id, user_id, name, email, appointment_time_slot, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, user_id, name, email, appointment_time_slot, created_at
	`, uuid.New(), in.UserID, in.Name, in.Email, in.AppointmentTimeSlot).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.AppointmentTimeSlot, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert practitioner: %w", err)
	}
	return &p, nil
}
