package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/apperr"
	"github.com/hackgods/practice-scheduling/internal/overlap"
)

var (
	ErrEventNotFound = fmt.Errorf("%w: event not found", apperr.ErrNotFound)
	ErrEventOverlap  = fmt.Errorf("%w: the event overlaps with other confirmed events", apperr.ErrConflict)
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*PractitionerEvent, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]PractitionerEvent, error)

	// FindOverlap only considers confirmed events.
	overlap.Source

	Insert(ctx context.Context, e *PractitionerEvent) (*PractitionerEvent, error)
	Update(ctx context.Context, e *PractitionerEvent) (*PractitionerEvent, error)
	// Delete returns ErrEventNotFound when no row was removed.
	Delete(ctx context.Context, id uuid.UUID) error
}
