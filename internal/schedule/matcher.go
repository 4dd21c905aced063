package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/apperr"
	"github.com/hackgods/practice-scheduling/internal/overlap"
)

// DayLookup is the slice of Store the matcher needs.
type DayLookup interface {
	GetSchedulesForDayOfWeek(ctx context.Context, practitionerID uuid.UUID, day Weekday) ([]Window, error)
}

// Matcher checks a candidate interval against a practitioner's weekly
// windows, interpreted in loc.
type Matcher struct {
	schedules DayLookup
	loc       *time.Location
}

func NewMatcher(schedules DayLookup, loc *time.Location) *Matcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Matcher{schedules: schedules, loc: loc}
}

// Fits returns nil when [start, end] lies inside a window of start's day, or
// inside a window of the previous day that runs past midnight. Otherwise it
// returns ErrNoScheduleForDay when the previous day has no windows at all and
// ErrOutsideSchedule when windows exist but none contains the interval.
// Lookup failures come back as infrastructure errors.
func (m *Matcher) Fits(ctx context.Context, practitionerID uuid.UUID, start, end time.Time) error {
	candidate := overlap.Interval{Start: start, End: end}
	if !candidate.Valid() {
		return apperr.Validation("interval end must be after its start")
	}

	day := WeekdayOf(start, m.loc)
	windows, err := m.schedules.GetSchedulesForDayOfWeek(ctx, practitionerID, day)
	if err != nil {
		return err
	}
	if anyContains(windows, start, candidate, m.loc) {
		return nil
	}

	prevDate := start.In(m.loc).AddDate(0, 0, -1)
	prevWindows, err := m.schedules.GetSchedulesForDayOfWeek(ctx, practitionerID, day.Previous())
	if err != nil {
		return err
	}
	if anyContains(prevWindows, prevDate, candidate, m.loc) {
		return nil
	}

	if len(prevWindows) == 0 {
		return ErrNoScheduleForDay
	}
	return ErrOutsideSchedule
}

func anyContains(windows []Window, anchor time.Time, candidate overlap.Interval, loc *time.Location) bool {
	for _, w := range windows {
		if w.On(anchor, loc).Contains(candidate) {
			return true
		}
	}
	return false
}
