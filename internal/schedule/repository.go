package schedule

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists weekly windows.
type Repository interface {
	// ReplaceForPractitioner deletes every stored window for the practitioner
	// and inserts windows in the same transaction.
	ReplaceForPractitioner(ctx context.Context, practitionerID uuid.UUID, windows []Window) ([]Window, error)

	ListByDay(ctx context.Context, practitionerID uuid.UUID, day Weekday) ([]Window, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]Window, error)
}
