package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/apperr"
	"github.com/hackgods/practice-scheduling/internal/clock"
	"github.com/hackgods/practice-scheduling/internal/meeting"
	"github.com/hackgods/practice-scheduling/internal/overlap"
	redisclient "github.com/hackgods/practice-scheduling/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventMeetingProvisionFail = "MEETING_PROVISION_FAILED"
	EventMeetingDeleted       = "MEETING_DELETED"
	EventMeetingDeleteFailed  = "MEETING_DELETE_FAILED"
)

var (
	ErrStartInPast           = fmt.Errorf("%w: the start time cannot be before the current time", apperr.ErrValidation)
	ErrInvalidSlot           = fmt.Errorf("%w: appointment length must be positive", apperr.ErrValidation)
	ErrInvalidReason         = fmt.Errorf("%w: invalid cancellation reason", apperr.ErrValidation)
	ErrInvalidRange          = fmt.Errorf("%w: range end must be after its start", apperr.ErrValidation)
	ErrCancellationTooLate   = fmt.Errorf("%w: cannot cancel an appointment this close to its start", apperr.ErrConflict)
	ErrNotCancellable        = fmt.Errorf("%w: cannot cancel an appointment in this status", apperr.ErrConflict)
	ErrCalendarBusy          = fmt.Errorf("%w: practitioner calendar is being updated, please retry", apperr.ErrConflict)
	ErrMeetingNotProvisioned = fmt.Errorf("%w: meeting room could not be provisioned", apperr.ErrInfrastructure)
)

// Fitter checks an interval against weekly availability.
type Fitter interface {
	Fits(ctx context.Context, practitionerID uuid.UUID, start, end time.Time) error
}

// Notifier emits side effects for lifecycle transitions. Implementations must
// not block the caller and must swallow their own failures.
type Notifier interface {
	AppointmentCreated(ctx context.Context, a Appointment)
	AppointmentCancelled(ctx context.Context, a Appointment)
}

type Policy struct {
	CancellationLeadTime time.Duration
	ReasonMinLen         int
	ReasonMaxLen         int
	RoomNamePrefix       string
}

type Deps struct {
	Repo     Repository
	Matcher  Fitter
	Locker   redisclient.Locker
	Meetings meeting.Provider
	Notifier Notifier
	Clock    clock.Clock
	Log      *zap.Logger
}

type Service struct {
	repo     Repository
	matcher  Fitter
	overlaps *overlap.Detector
	locker   redisclient.Locker
	meetings meeting.Provider
	notifier Notifier
	clock    clock.Clock
	policy   Policy
	log      *zap.Logger
}

func NewService(deps Deps, policy Policy) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Meetings == nil {
		deps.Meetings = meeting.Disabled()
	}
	return &Service{
		repo:     deps.Repo,
		matcher:  deps.Matcher,
		overlaps: overlap.NewDetector(deps.Repo),
		locker:   deps.Locker,
		meetings: deps.Meetings,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		policy:   policy,
		log:      deps.Log,
	}
}

type CreateRequest struct {
	UserID         uuid.UUID
	PractitionerID uuid.UUID
	StartTime      time.Time
	IsVirtual      bool
	UserNotes      *string
	SlotMinutes    int
}

// CreateAppointment books a confirmed appointment of SlotMinutes length.
// The overlap check and the insert run under the practitioner's calendar
// lock, and the store's exclusion constraint backs them up.
func (s *Service) CreateAppointment(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if !req.StartTime.After(s.clock.Now()) {
		return nil, ErrStartInPast
	}
	if req.SlotMinutes <= 0 {
		return nil, ErrInvalidSlot
	}

	start := req.StartTime
	end := start.Add(time.Duration(req.SlotMinutes) * time.Minute)

	if err := s.matcher.Fits(ctx, req.PractitionerID, start, end); err != nil {
		return nil, err
	}

	var created *Appointment

	err := s.locker.WithPractitionerLock(ctx, req.PractitionerID, func(lockCtx context.Context) error {
		found, err := s.overlaps.HasOverlap(lockCtx, overlap.Query{
			PractitionerID: req.PractitionerID,
			Interval:       overlap.Interval{Start: start, End: end},
			IgnoreStatuses: nonBlockingStatuses,
		})
		if err != nil {
			return err
		}
		if found {
			return ErrOverlap
		}

		appt, err := s.repo.Create(lockCtx, &Appointment{
			PractitionerID: req.PractitionerID,
			UserID:         req.UserID,
			StartTime:      start,
			EndTime:        end,
			IsVirtual:      req.IsVirtual,
			UserNotes:      req.UserNotes,
			Status:         StatusConfirmed,
			UpdatedByID:    req.UserID,
		})
		if err != nil {
			if errors.Is(err, ErrOverlap) {
				return err
			}
			return apperr.Infra("create appointment", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"practitioner_id": created.PractitionerID.String(),
		"user_id":         created.UserID.String(),
		"start_time":      created.StartTime,
		"end_time":        created.EndTime,
		"is_virtual":      created.IsVirtual,
	})

	if created.IsVirtual {
		withRoom, err := s.provisionMeeting(ctx, created)
		if err != nil {
			s.rollbackCreation(ctx, created, err)
			return nil, fmt.Errorf("%w: %w", ErrMeetingNotProvisioned, err)
		}
		created = withRoom
	}

	s.notifier.AppointmentCreated(ctx, *created)

	return created, nil
}

func (s *Service) provisionMeeting(ctx context.Context, appt *Appointment) (*Appointment, error) {
	m, err := s.meetings.CreateMeeting(ctx, meeting.CreateRequest{
		StartDate:      appt.StartTime,
		EndDate:        appt.EndTime,
		RoomNamePrefix: fmt.Sprintf("%s-%s", s.policy.RoomNamePrefix, appt.ID),
		IsLocked:       true,
		RoomMode:       meeting.RoomModeNormal,
		Fields:         []string{meeting.FieldHostRoomURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	updated, err := s.repo.SetMeeting(ctx, appt.ID, MeetingDetails{
		DoctorVideoURL:   m.HostRoomURL,
		UserVideoURL:     m.RoomURL,
		VirtualMeetingID: m.MeetingID,
	})
	if err != nil {
		// The room exists but is not recorded; remove it before rolling back.
		if _, delErr := s.meetings.DeleteMeeting(ctx, m.MeetingID); delErr != nil {
			s.log.Error("failed to delete unrecorded meeting",
				zap.String("appointment_id", appt.ID.String()),
				zap.String("meeting_id", m.MeetingID),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("store meeting details: %w", err)
	}

	return updated, nil
}

// rollbackCreation removes an appointment that would otherwise be left
// virtual but roomless.
func (s *Service) rollbackCreation(ctx context.Context, appt *Appointment, cause error) {
	s.logEvent(ctx, appt.ID, EventMeetingProvisionFail, map[string]any{
		"error": cause.Error(),
	})

	if err := s.repo.Discard(context.WithoutCancel(ctx), appt.ID); err != nil {
		s.log.Error("failed to roll back appointment after meeting provisioning failure",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
		return
	}

	s.log.Warn("appointment rolled back after meeting provisioning failure",
		zap.String("appointment_id", appt.ID.String()),
		zap.Error(cause),
	)
}

type CancelRequest struct {
	AppointmentID  uuid.UUID
	ActingUserID   uuid.UUID
	ByPractitioner bool
	Reason         string
}

// CancelAppointment moves a confirmed or pending appointment to cancelled.
// Video links are kept until the provider confirms the room is gone.
func (s *Service) CancelAppointment(ctx context.Context, req CancelRequest) (*Appointment, error) {
	reason := strings.TrimSpace(req.Reason)
	if err := s.validateReason(reason); err != nil {
		return nil, err
	}

	appt, err := s.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if now.After(appt.StartTime.Add(-s.policy.CancellationLeadTime)) {
		return nil, ErrCancellationTooLate
	}

	if !appt.Status.Cancellable() {
		return nil, ErrNotCancellable
	}

	cancelled, err := s.repo.MarkCancelled(ctx, appt.ID, appt.Status, Cancellation{
		Reason:         reason,
		At:             now,
		ByPractitioner: req.ByPractitioner,
		ActorID:        req.ActingUserID,
		ClearVideo:     !appt.HasMeeting(),
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status changed between the read and the conditional update.
			return nil, ErrNotCancellable
		}
		return nil, apperr.Infra("cancel appointment", err)
	}

	s.logEvent(ctx, cancelled.ID, EventAppointmentCancelled, map[string]any{
		"cancelled_by_practitioner": req.ByPractitioner,
		"actor_id":                  req.ActingUserID.String(),
		"previous_status":           string(appt.Status),
	})

	if cancelled.IsVirtual && cancelled.HasMeeting() {
		cancelled = s.teardownMeeting(ctx, cancelled)
	}

	s.notifier.AppointmentCancelled(ctx, *cancelled)

	return cancelled, nil
}

func (s *Service) validateReason(reason string) error {
	n := utf8.RuneCountInString(reason)
	if n == 0 {
		return fmt.Errorf("%w: the cancellation reason cannot be empty", ErrInvalidReason)
	}
	if s.policy.ReasonMinLen > 0 && n < s.policy.ReasonMinLen {
		return fmt.Errorf("%w: the cancellation reason must be at least %d characters", ErrInvalidReason, s.policy.ReasonMinLen)
	}
	if s.policy.ReasonMaxLen > 0 && n > s.policy.ReasonMaxLen {
		return fmt.Errorf("%w: the cancellation reason must be at most %d characters", ErrInvalidReason, s.policy.ReasonMaxLen)
	}
	return nil
}

// teardownMeeting deletes the provider room and only then clears the stored
// links. On failure the row keeps its meeting id so the reaper can retry.
func (s *Service) teardownMeeting(ctx context.Context, appt *Appointment) *Appointment {
	meetingID := *appt.VirtualMeetingID

	deleted, err := s.meetings.DeleteMeeting(ctx, meetingID)
	if err != nil || !deleted {
		s.log.Warn("meeting deletion not confirmed, will retry",
			zap.String("appointment_id", appt.ID.String()),
			zap.String("meeting_id", meetingID),
			zap.Error(err),
		)
		payload := map[string]any{"meeting_id": meetingID}
		if err != nil {
			payload["error"] = err.Error()
		}
		s.logEvent(ctx, appt.ID, EventMeetingDeleteFailed, payload)
		return appt
	}

	cleared, err := s.repo.ClearMeeting(ctx, appt.ID)
	if err != nil {
		s.log.Error("meeting deleted but links not cleared",
			zap.String("appointment_id", appt.ID.String()),
			zap.String("meeting_id", meetingID),
			zap.Error(err),
		)
		return appt
	}

	s.logEvent(ctx, appt.ID, EventMeetingDeleted, map[string]any{"meeting_id": meetingID})
	return cleared
}

// ReapCancelledMeetings retries room deletion for cancelled appointments that
// still carry a meeting id. It is intended to be called by the worker periodically.
func (s *Service) ReapCancelledMeetings(ctx context.Context, batchSize int) (int, error) {
	candidates, err := s.repo.ListCancelledWithMeeting(ctx, batchSize)
	if err != nil {
		return 0, apperr.Infra("find cancelled appointments with meetings", err)
	}

	cleared := 0
	for i := range candidates {
		if ctx.Err() != nil {
			return cleared, ctx.Err()
		}
		appt := &candidates[i]
		if !s.teardownMeeting(ctx, appt).HasMeeting() {
			cleared++
		}
	}

	return cleared, nil
}

// GetAppointment returns ErrAppointmentNotFound for a missing id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, apperr.Infra("load appointment", err)
	}
	return appt, nil
}

// ListForPractitioner returns appointments intersecting [from, to).
func (s *Service) ListForPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	if !to.After(from) {
		return nil, ErrInvalidRange
	}
	appts, err := s.repo.ListByPractitioner(ctx, practitionerID, from, to)
	if err != nil {
		return nil, apperr.Infra("list appointments", err)
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return appts, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.InsertEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
