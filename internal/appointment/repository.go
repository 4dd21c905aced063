package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/apperr"
	"github.com/hackgods/practice-scheduling/internal/overlap"
)

var (
	ErrAppointmentNotFound = fmt.Errorf("%w: appointment not found", apperr.ErrNotFound)
	ErrOverlap             = fmt.Errorf("%w: the appointment overlaps with other existing appointments", apperr.ErrConflict)
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// For conflict checks
	overlap.Source

	// Create returns ErrOverlap when the store's exclusion constraint rejects the row.
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	// Discard removes a row that never became visible to its owners, used to
	// roll back a creation whose meeting room could not be provisioned.
	Discard(ctx context.Context, id uuid.UUID) error

	SetMeeting(ctx context.Context, id uuid.UUID, m MeetingDetails) (*Appointment, error)
	ClearMeeting(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// MarkCancelled only applies when the row is still in status from.
	MarkCancelled(ctx context.Context, id uuid.UUID, from AppointmentStatus, c Cancellation) (*Appointment, error)

	// Meeting reaper
	ListCancelledWithMeeting(ctx context.Context, limit int) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
