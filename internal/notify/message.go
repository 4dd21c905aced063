// Package notify turns appointment lifecycle transitions into outbound
// notification messages and hands them to a sink.
package notify

import (
	"time"

	"github.com/hackgods/practice-scheduling/internal/appointment"
	"github.com/hackgods/practice-scheduling/internal/directory"
)

type Kind string

const (
	KindUserAppointmentConfirmed          Kind = "user-appointment-confirmed"
	KindPractitionerAppointmentReceived   Kind = "practitioner-appointment-received"
	KindInternalAppointmentCreated        Kind = "internal-appointment-created"
	KindUserVideoDetails                  Kind = "user-video-details"
	KindPractitionerVideoDetails          Kind = "practitioner-video-details"
	KindUserCancelledByPractitioner       Kind = "user-cancelled-by-practitioner"
	KindUserCancellationConfirmation      Kind = "user-cancellation-confirmation"
	KindPractitionerCancelledByUser       Kind = "practitioner-cancelled-by-user"
	KindPractitionerCancellationConfirmed Kind = "practitioner-cancellation-confirmation"
)

const (
	dateLayout = "January 2, 2006"
	timeLayout = "3:04 PM"
)

type Payload struct {
	AppointmentID      string `json:"appointmentId"`
	UserName           string `json:"userName"`
	UserEmail          string `json:"userEmail"`
	PractitionerName   string `json:"practitionerName"`
	PractitionerEmail  string `json:"practitionerEmail"`
	Date               string `json:"date"`
	Weekday            string `json:"weekday"`
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	IsVirtual          bool   `json:"isVirtual"`
	VideoURL           string `json:"videoUrl,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`
}

type Message struct {
	Kind      Kind      `json:"kind"`
	Recipient string    `json:"recipient"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// Catalogue renders messages with times formatted in loc.
type Catalogue struct {
	loc           *time.Location
	internalEmail string
}

func NewCatalogue(loc *time.Location, internalEmail string) *Catalogue {
	if loc == nil {
		loc = time.UTC
	}
	return &Catalogue{loc: loc, internalEmail: internalEmail}
}

func (c *Catalogue) payload(a appointment.Appointment, u *directory.User, p *directory.Practitioner) Payload {
	start := a.StartTime.In(c.loc)
	pl := Payload{
		AppointmentID:     a.ID.String(),
		UserName:          u.Name,
		UserEmail:         u.Email,
		PractitionerName:  p.Name,
		PractitionerEmail: p.Email,
		Date:              start.Format(dateLayout),
		Weekday:           start.Weekday().String(),
		StartTime:         start.Format(timeLayout),
		EndTime:           a.EndTime.In(c.loc).Format(timeLayout),
		IsVirtual:         a.IsVirtual,
	}
	if a.CancellationReason != nil {
		pl.CancellationReason = *a.CancellationReason
	}
	return pl
}

// Created returns the messages for a newly booked appointment.
func (c *Catalogue) Created(a appointment.Appointment, u *directory.User, p *directory.Practitioner, now time.Time) []Message {
	base := c.payload(a, u, p)

	msgs := []Message{
		{Kind: KindUserAppointmentConfirmed, Recipient: u.Email, Payload: base},
		{Kind: KindPractitionerAppointmentReceived, Recipient: p.Email, Payload: base},
	}
	if c.internalEmail != "" {
		msgs = append(msgs, Message{Kind: KindInternalAppointmentCreated, Recipient: c.internalEmail, Payload: base})
	}

	if a.IsVirtual && a.UserVideoURL != nil && a.DoctorVideoURL != nil {
		userPl := base
		userPl.VideoURL = *a.UserVideoURL
		pracPl := base
		pracPl.VideoURL = *a.DoctorVideoURL
		msgs = append(msgs,
			Message{Kind: KindUserVideoDetails, Recipient: u.Email, Payload: userPl},
			Message{Kind: KindPractitionerVideoDetails, Recipient: p.Email, Payload: pracPl},
		)
	}

	return stamp(msgs, now)
}

// Cancelled picks templates by which party cancelled.
func (c *Catalogue) Cancelled(a appointment.Appointment, u *directory.User, p *directory.Practitioner, now time.Time) []Message {
	base := c.payload(a, u, p)

	var msgs []Message
	if a.CancelledByPractitioner {
		msgs = []Message{
			{Kind: KindUserCancelledByPractitioner, Recipient: u.Email, Payload: base},
			{Kind: KindPractitionerCancellationConfirmed, Recipient: p.Email, Payload: base},
		}
	} else {
		msgs = []Message{
			{Kind: KindUserCancellationConfirmation, Recipient: u.Email, Payload: base},
			{Kind: KindPractitionerCancelledByUser, Recipient: p.Email, Payload: base},
		}
	}
	return stamp(msgs, now)
}

func stamp(msgs []Message, now time.Time) []Message {
	for i := range msgs {
		msgs[i].CreatedAt = now
	}
	return msgs
}
