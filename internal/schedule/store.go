package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/apperr"
)

// Store owns a practitioner's weekly availability. Schedules are only ever
// replaced wholesale.
type Store struct {
	repo Repository
	log  *zap.Logger
}

func NewStore(repo Repository, log *zap.Logger) *Store {
	return &Store{repo: repo, log: log}
}

// InjectDefaultSchedule wipes any existing windows and installs the default
// Monday to Friday schedule.
func (s *Store) InjectDefaultSchedule(ctx context.Context, practitionerID uuid.UUID) ([]Window, error) {
	windows, err := Expand(practitionerID, []Definition{DefaultDefinition})
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.ReplaceForPractitioner(ctx, practitionerID, windows)
	if err != nil {
		return nil, apperr.Infra("inject default schedule", err)
	}

	s.log.Info("default schedule injected",
		zap.String("practitioner_id", practitionerID.String()),
		zap.Int("windows", len(saved)),
	)
	return saved, nil
}

// ReplaceCurrentSchedules validates the full set before touching storage, so
// a rejected replacement leaves the previous schedule intact.
func (s *Store) ReplaceCurrentSchedules(ctx context.Context, practitionerID uuid.UUID, windows []Window) ([]Window, error) {
	normalized := make([]Window, len(windows))
	for i, w := range windows {
		w.PractitionerID = practitionerID
		if err := w.Validate(); err != nil {
			return nil, err
		}
		normalized[i] = w
	}

	if err := CheckNoOverlap(normalized); err != nil {
		return nil, err
	}

	saved, err := s.repo.ReplaceForPractitioner(ctx, practitionerID, normalized)
	if err != nil {
		return nil, apperr.Infra("replace schedules", err)
	}

	s.log.Info("schedule replaced",
		zap.String("practitioner_id", practitionerID.String()),
		zap.Int("windows", len(saved)),
	)
	return saved, nil
}

// GetSchedulesForDayOfWeek never turns a lookup failure into "no availability".
func (s *Store) GetSchedulesForDayOfWeek(ctx context.Context, practitionerID uuid.UUID, day Weekday) ([]Window, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: day of week %d must be between 1 and 7", ErrInvalidWindow, int(day))
	}

	windows, err := s.repo.ListByDay(ctx, practitionerID, day)
	if err != nil {
		return nil, apperr.Infra("load schedules for day", err)
	}
	if windows == nil {
		windows = []Window{}
	}
	return windows, nil
}

func (s *Store) GetWeeklySchedule(ctx context.Context, practitionerID uuid.UUID) ([]Window, error) {
	windows, err := s.repo.ListByPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, apperr.Infra("load weekly schedule", err)
	}
	if windows == nil {
		windows = []Window{}
	}
	return windows, nil
}
