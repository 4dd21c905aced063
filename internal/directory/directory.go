// Package directory maps external identities to users and the practitioner
// profiles they own.
package directory

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/apperr"
)

const (
	DefaultTimeSlotMinutes = 30
	MinTimeSlotMinutes     = 5
	MaxTimeSlotMinutes     = 240
)

var (
	ErrUserNotFound         = fmt.Errorf("%w: user not found", apperr.ErrNotFound)
	ErrPractitionerNotFound = fmt.Errorf("%w: practitioner not found", apperr.ErrNotFound)
)

type User struct {
	ID          uuid.UUID
	ExternalUID string
	Name        string
	Email       string
	CreatedAt   time.Time
}

type Practitioner struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	Name                string
	Email               string
	AppointmentTimeSlot int // minutes
	CreatedAt           time.Time
}

type NewPractitioner struct {
	UserID              uuid.UUID
	Name                string
	Email               string
	AppointmentTimeSlot int
}

// Validate trims the input and fills the default slot length.
func (n *NewPractitioner) Validate() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Email = strings.TrimSpace(n.Email)

	if n.Name == "" {
		return apperr.Validation("practitioner name cannot be empty")
	}
	if _, err := mail.ParseAddress(n.Email); err != nil {
		return apperr.Validation("practitioner email is invalid")
	}
	if n.AppointmentTimeSlot == 0 {
		n.AppointmentTimeSlot = DefaultTimeSlotMinutes
	}
	if n.AppointmentTimeSlot < MinTimeSlotMinutes || n.AppointmentTimeSlot > MaxTimeSlotMinutes {
		return apperr.Validation(fmt.Sprintf("appointment time slot must be between %d and %d minutes",
			MinTimeSlotMinutes, MaxTimeSlotMinutes))
	}
	return nil
}

// Directory is the identity collaborator used by the HTTP layer and the
// notification dispatcher.
type Directory interface {
	ResolveUserID(ctx context.Context, externalUID string) (uuid.UUID, error)
	OwnedPractitionerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	CreatePractitioner(ctx context.Context, in NewPractitioner) (*Practitioner, error)
}

// Owns reports whether id is among owned.
func Owns(owned []uuid.UUID, id uuid.UUID) bool {
	for _, o := range owned {
		if o == id {
			return true
		}
	}
	return false
}
