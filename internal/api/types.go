package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/appointment"
	"github.com/hackgods/practice-scheduling/internal/directory"
	"github.com/hackgods/practice-scheduling/internal/event"
	"github.com/hackgods/practice-scheduling/internal/schedule"
)

type CreateAppointmentRequest struct {
	PractitionerID string    `json:"practitionerId" validate:"required,uuid"`
	StartTime      time.Time `json:"startTime" validate:"required"`
	IsVirtual      bool      `json:"isVirtual"`
	UserNotes      *string   `json:"userNotes" validate:"omitempty,max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type AppointmentResponse struct {
	ID                      uuid.UUID  `json:"id"`
	PractitionerID          uuid.UUID  `json:"practitionerId"`
	UserID                  uuid.UUID  `json:"userId"`
	StartTime               time.Time  `json:"startTime"`
	EndTime                 time.Time  `json:"endTime"`
	IsVirtual               bool       `json:"isVirtual"`
	UserNotes               *string    `json:"userNotes,omitempty"`
	Status                  string     `json:"status"`
	CancellationReason      *string    `json:"cancellationReason,omitempty"`
	CancellationTime        *time.Time `json:"cancellationTime,omitempty"`
	CancelledByPractitioner bool       `json:"cancelledByPractitioner"`
	DoctorVideoURL          *string    `json:"doctorVideoUrl,omitempty"`
	UserVideoURL            *string    `json:"userVideoUrl,omitempty"`
	VirtualMeetingID        *string    `json:"virtualMeetingId,omitempty"`
	ReviewID                *uuid.UUID `json:"reviewId,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// toAppointmentResponse hides the host link from anyone but the practitioner.
func toAppointmentResponse(a *appointment.Appointment, asPractitioner bool) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                      a.ID,
		PractitionerID:          a.PractitionerID,
		UserID:                  a.UserID,
		StartTime:               a.StartTime,
		EndTime:                 a.EndTime,
		IsVirtual:               a.IsVirtual,
		UserNotes:               a.UserNotes,
		Status:                  string(a.Status),
		CancellationReason:      a.CancellationReason,
		CancellationTime:        a.CancellationTime,
		CancelledByPractitioner: a.CancelledByPractitioner,
		UserVideoURL:            a.UserVideoURL,
		VirtualMeetingID:        a.VirtualMeetingID,
		ReviewID:                a.ReviewID,
		CreatedAt:               a.CreatedAt,
		UpdatedAt:               a.UpdatedAt,
	}
	if asPractitioner {
		resp.DoctorVideoURL = a.DoctorVideoURL
	}
	return resp
}

type ScheduleDefinition struct {
	DaysOfWeek []int  `json:"daysOfWeek" validate:"required,min=1,dive,min=1,max=7"`
	StartTime  string `json:"startTime" validate:"required"`
	EndTime    string `json:"endTime" validate:"required"`
}

type ReplaceSchedulesRequest struct {
	Schedules []ScheduleDefinition `json:"schedules" validate:"dive"`
}

type ScheduleWindowResponse struct {
	ID        uuid.UUID `json:"id"`
	DayOfWeek int       `json:"dayOfWeek"`
	Day       string    `json:"day"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
}

func toScheduleResponse(windows []schedule.Window) []ScheduleWindowResponse {
	out := make([]ScheduleWindowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, ScheduleWindowResponse{
			ID:        w.ID,
			DayOfWeek: int(w.DayOfWeek),
			Day:       w.DayOfWeek.String(),
			StartTime: w.StartTime.String(),
			EndTime:   w.EndTime.String(),
		})
	}
	return out
}

type CreatePractitionerRequest struct {
	Name                string `json:"name" validate:"required,max=200"`
	Email               string `json:"email" validate:"required,email"`
	AppointmentTimeSlot int    `json:"appointmentTimeSlot" validate:"omitempty,min=5,max=240"`
}

type PractitionerResponse struct {
	ID                  uuid.UUID                `json:"id"`
	UserID              uuid.UUID                `json:"userId"`
	Name                string                   `json:"name"`
	Email               string                   `json:"email"`
	AppointmentTimeSlot int                      `json:"appointmentTimeSlot"`
	Schedules           []ScheduleWindowResponse `json:"schedules,omitempty"`
}

func toPractitionerResponse(p *directory.Practitioner, windows []schedule.Window) PractitionerResponse {
	return PractitionerResponse{
		ID:                  p.ID,
		UserID:              p.UserID,
		Name:                p.Name,
		Email:               p.Email,
		AppointmentTimeSlot: p.AppointmentTimeSlot,
		Schedules:           toScheduleResponse(windows),
	}
}

type CreateEventRequest struct {
	PractitionerID string    `json:"practitionerId" validate:"required,uuid"`
	Title          string    `json:"title" validate:"required,max=150"`
	Description    *string   `json:"description" validate:"omitempty,max=1500"`
	Location       *string   `json:"location" validate:"omitempty,max=250"`
	HexColor       string    `json:"hexColor" validate:"omitempty,hexcolor"`
	StartTime      time.Time `json:"startTime" validate:"required"`
	EndTime        time.Time `json:"endTime" validate:"required"`
	IsAllDay       bool      `json:"isAllDay"`
	IsConfirmed    bool      `json:"isConfirmed"`
	RRule          *string   `json:"rrule" validate:"omitempty,max=500"`
	IsRecurring    bool      `json:"isRecurring"`
}

type UpdateEventRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=150"`
	Description *string    `json:"description" validate:"omitempty,max=1500"`
	Location    *string    `json:"location" validate:"omitempty,max=250"`
	HexColor    *string    `json:"hexColor" validate:"omitempty,hexcolor"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	IsAllDay    *bool      `json:"isAllDay"`
	IsConfirmed *bool      `json:"isConfirmed"`
	RRule       *string    `json:"rrule" validate:"omitempty,max=500"`
	IsRecurring *bool      `json:"isRecurring"`
}

func (r UpdateEventRequest) patch() event.Patch {
	return event.Patch{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		HexColor:    r.HexColor,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		IsAllDay:    r.IsAllDay,
		IsConfirmed: r.IsConfirmed,
		RRule:       r.RRule,
		IsRecurring: r.IsRecurring,
	}
}

type EventResponse struct {
	ID             uuid.UUID  `json:"id"`
	PractitionerID uuid.UUID  `json:"practitionerId"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Location       *string    `json:"location,omitempty"`
	HexColor       string     `json:"hexColor"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        time.Time  `json:"endTime"`
	IsAllDay       bool       `json:"isAllDay"`
	IsConfirmed    bool       `json:"isConfirmed"`
	CreatedByID    uuid.UUID  `json:"createdById"`
	UpdatedByID    *uuid.UUID `json:"updatedById,omitempty"`
	RRule          *string    `json:"rrule,omitempty"`
	IsRecurring    bool       `json:"isRecurring"`
}

func toEventResponse(e *event.PractitionerEvent) EventResponse {
	return EventResponse{
		ID:             e.ID,
		PractitionerID: e.PractitionerID,
		Title:          e.Title,
		Description:    e.Description,
		Location:       e.Location,
		HexColor:       e.HexColor,
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		IsAllDay:       e.IsAllDay,
		IsConfirmed:    e.IsConfirmed,
		CreatedByID:    e.CreatedByID,
		UpdatedByID:    e.UpdatedByID,
		RRule:          e.RRule,
		IsRecurring:    e.IsRecurring,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
