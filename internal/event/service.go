package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/apperr"
	"github.com/hackgods/practice-scheduling/internal/clock"
	"github.com/hackgods/practice-scheduling/internal/overlap"
	redisclient "github.com/hackgods/practice-scheduling/internal/redis"
)

var (
	ErrStartInPast     = fmt.Errorf("%w: the start time cannot be before the current time", apperr.ErrValidation)
	ErrInvalidInterval = fmt.Errorf("%w: the end time must be after the start time", apperr.ErrValidation)
	ErrInvalidTitle    = fmt.Errorf("%w: the title is required and must be at most %d characters", apperr.ErrValidation, MaxTitleLen)
	ErrInvalidRange    = fmt.Errorf("%w: range end must be after its start", apperr.ErrValidation)
	ErrCalendarBusy    = fmt.Errorf("%w: practitioner calendar is being updated, please retry", apperr.ErrConflict)
)

type CreateInput struct {
	PractitionerID uuid.UUID
	ActorID        uuid.UUID
	Title          string
	Description    *string
	Location       *string
	HexColor       string
	StartTime      time.Time
	EndTime        time.Time
	IsAllDay       bool
	IsConfirmed    bool
	RRule          *string
	IsRecurring    bool
}

type Service struct {
	repo     Repository
	overlaps *overlap.Detector
	locker   redisclient.Locker
	clock    clock.Clock
	log      *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, clk clock.Clock, log *zap.Logger) *Service {
	if clk == nil {
		clk = clock.System()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		overlaps: overlap.NewDetector(repo),
		locker:   locker,
		clock:    clk,
		log:      log,
	}
}

func (s *Service) CreateEvent(ctx context.Context, in CreateInput) (*PractitionerEvent, error) {
	if in.StartTime.Before(s.clock.Now()) {
		return nil, ErrStartInPast
	}

	ev := PractitionerEvent{
		PractitionerID: in.PractitionerID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Location:       in.Location,
		HexColor:       in.HexColor,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		IsAllDay:       in.IsAllDay,
		IsConfirmed:    in.IsConfirmed,
		CreatedByID:    in.ActorID,
		RRule:          in.RRule,
		IsRecurring:    in.IsRecurring,
	}
	if ev.HexColor == "" {
		ev.HexColor = DefaultHexColor
	}

	if err := prepare(&ev); err != nil {
		return nil, err
	}

	var created *PractitionerEvent
	err := s.write(ctx, &ev, func(ctx context.Context) error {
		out, err := s.repo.Insert(ctx, &ev)
		if err != nil {
			return apperr.Infra("insert event", err)
		}
		created = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("practitioner event created",
		zap.String("event_id", created.ID.String()),
		zap.String("practitioner_id", created.PractitionerID.String()),
		zap.Bool("confirmed", created.IsConfirmed),
	)
	return created, nil
}

// UpdateEvent merges p into the stored event and re-applies every rule,
// excluding the event itself from the overlap check.
func (s *Service) UpdateEvent(ctx context.Context, id, actorID uuid.UUID, p Patch) (*PractitionerEvent, error) {
	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	ev := p.Merge(*current)
	ev.UpdatedByID = &actorID

	if err := prepare(&ev); err != nil {
		return nil, err
	}

	var updated *PractitionerEvent
	err = s.write(ctx, &ev, func(ctx context.Context) error {
		out, err := s.repo.Update(ctx, &ev)
		if err != nil {
			if errors.Is(err, ErrEventNotFound) {
				return err
			}
			return apperr.Infra("update event", err)
		}
		updated = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetEvent(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return err
		}
		return apperr.Infra("delete event", err)
	}
	s.log.Info("practitioner event deleted", zap.String("event_id", id.String()))
	return nil
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*PractitionerEvent, error) {
	ev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, err
		}
		return nil, apperr.Infra("load event", err)
	}
	return ev, nil
}

// GetPractitionerIDForEvent returns nil without an error when the event does
// not exist.
func (s *Service) GetPractitionerIDForEvent(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	ev, err := s.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, nil
		}
		return nil, err
	}
	pid := ev.PractitionerID
	return &pid, nil
}

func (s *Service) ListForPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]PractitionerEvent, error) {
	if !to.After(from) {
		return nil, ErrInvalidRange
	}
	evs, err := s.repo.ListByPractitioner(ctx, practitionerID, from, to)
	if err != nil {
		return nil, apperr.Infra("list events", err)
	}
	if evs == nil {
		evs = []PractitionerEvent{}
	}
	return evs, nil
}

// write runs persist directly for unconfirmed events. Confirmed events are
// checked for overlap and persisted under the practitioner's calendar lock.
func (s *Service) write(ctx context.Context, ev *PractitionerEvent, persist func(context.Context) error) error {
	if !ev.IsConfirmed {
		return persist(ctx)
	}

	err := s.locker.WithPractitionerLock(ctx, ev.PractitionerID, func(ctx context.Context) error {
		found, err := s.overlaps.HasOverlap(ctx, overlap.Query{
			PractitionerID: ev.PractitionerID,
			Interval:       ev.Interval(),
			ExcludeID:      ev.ID,
			EndingAfter:    s.clock.Now(),
		})
		if err != nil {
			return err
		}
		if found {
			return ErrEventOverlap
		}
		return persist(ctx)
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrCalendarBusy
	}
	return err
}

// prepare normalizes all-day events and validates the result.
func prepare(ev *PractitionerEvent) error {
	if ev.IsAllDay {
		ev.EndTime = NormalizeAllDay(ev.StartTime, ev.EndTime)
	}
	if !ev.EndTime.After(ev.StartTime) {
		return ErrInvalidInterval
	}

	n := utf8.RuneCountInString(ev.Title)
	if n == 0 || n > MaxTitleLen {
		return ErrInvalidTitle
	}
	if ev.Description != nil && utf8.RuneCountInString(*ev.Description) > MaxDescriptionLen {
		return apperr.Validation(fmt.Sprintf("the description must be at most %d characters", MaxDescriptionLen))
	}
	if ev.Location != nil && utf8.RuneCountInString(*ev.Location) > MaxLocationLen {
		return apperr.Validation(fmt.Sprintf("the location must be at most %d characters", MaxLocationLen))
	}
	return nil
}
