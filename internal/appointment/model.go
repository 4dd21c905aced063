package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/overlap"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// nonBlockingStatuses never conflict with a new booking.
var nonBlockingStatuses = []string{string(StatusCancelled), string(StatusPending)}

func (s AppointmentStatus) Cancellable() bool {
	return s == StatusConfirmed || s == StatusPending
}

type Appointment struct {
	ID                      uuid.UUID
	PractitionerID          uuid.UUID
	UserID                  uuid.UUID
	StartTime               time.Time
	EndTime                 time.Time
	IsVirtual               bool
	UserNotes               *string
	Status                  AppointmentStatus
	CancellationReason      *string
	CancellationTime        *time.Time
	CancelledByPractitioner bool
	DoctorVideoURL          *string
	UserVideoURL            *string
	VirtualMeetingID        *string
	ReviewID                *uuid.UUID
	CreatedAt               time.Time
	UpdatedAt               time.Time
	UpdatedByID             uuid.UUID
}

func (a *Appointment) Interval() overlap.Interval {
	return overlap.Interval{Start: a.StartTime, End: a.EndTime}
}

// HasMeeting reports whether a provider room is still recorded on the row.
func (a *Appointment) HasMeeting() bool {
	return a.VirtualMeetingID != nil && *a.VirtualMeetingID != ""
}

// MeetingDetails are the provider identifiers stored after provisioning.
type MeetingDetails struct {
	DoctorVideoURL   string
	UserVideoURL     string
	VirtualMeetingID string
}

// Cancellation is the state written by a cancel transition.
type Cancellation struct {
	Reason         string
	At             time.Time
	ByPractitioner bool
	ActorID        uuid.UUID
	// ClearVideo drops the room links in the same write. It is false while a
	// provider room still exists so the links survive a failed teardown.
	ClearVideo bool
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
