package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/apperr"
	"github.com/hackgods/practice-scheduling/internal/overlap"
)

var (
	ErrInvalidWindow      = fmt.Errorf("%w: invalid schedule window", apperr.ErrValidation)
	ErrOverlappingWindows = fmt.Errorf("%w: schedule windows for the same day cannot overlap", apperr.ErrConflict)
	ErrNoScheduleForDay   = fmt.Errorf("%w: no schedule configured for that day of the week", apperr.ErrConflict)
	ErrOutsideSchedule    = fmt.Errorf("%w: interval does not fit any available schedule", apperr.ErrConflict)
)

// Window is one recurring weekly availability block. A window whose EndTime
// is earlier than its StartTime runs past midnight into the next day.
type Window struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	DayOfWeek      Weekday
	StartTime      TimeOfDay
	EndTime        TimeOfDay
	CreatedAt      time.Time
}

// Definition is the grouped input shape: one time range applied to several days.
type Definition struct {
	DaysOfWeek []Weekday
	StartTime  TimeOfDay
	EndTime    TimeOfDay
}

// DefaultDefinition is injected for every new practitioner.
var DefaultDefinition = Definition{
	DaysOfWeek: []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday},
	StartTime:  NewTimeOfDay(7, 0),
	EndTime:    NewTimeOfDay(15, 0),
}

func (w Window) CrossesMidnight() bool {
	return w.EndTime < w.StartTime
}

// Minutes is the window length.
func (w Window) Minutes() int {
	return w.StartTime.MinutesUntil(w.EndTime)
}

func (w Window) Validate() error {
	if !w.DayOfWeek.Valid() {
		return fmt.Errorf("%w: day of week %d must be between 1 and 7", ErrInvalidWindow, int(w.DayOfWeek))
	}
	if !w.StartTime.Valid() || !w.EndTime.Valid() {
		return fmt.Errorf("%w: time of day out of range", ErrInvalidWindow)
	}
	if w.StartTime == w.EndTime {
		return fmt.Errorf("%w: start and end time cannot be equal", ErrInvalidWindow)
	}
	return nil
}

// On materialises the window on the calendar date of day in loc.
func (w Window) On(day time.Time, loc *time.Location) overlap.Interval {
	start := w.StartTime.On(day, loc)
	endDay := day
	if w.CrossesMidnight() {
		endDay = start.AddDate(0, 0, 1)
	}
	return overlap.Interval{Start: start, End: w.EndTime.On(endDay, loc)}
}

// minuteRange is the half-open minute span from the window's own midnight.
func (w Window) minuteRange() (int, int) {
	start := int(w.StartTime)
	return start, start + w.Minutes()
}

// Collides reports whether two windows on the same day share any minute.
func (w Window) Collides(o Window) bool {
	if w.DayOfWeek != o.DayOfWeek {
		return false
	}
	s1, e1 := w.minuteRange()
	s2, e2 := o.minuteRange()
	return s1 < e2 && s2 < e1
}

// Expand turns grouped definitions into one window per day.
func Expand(practitionerID uuid.UUID, defs []Definition) ([]Window, error) {
	var windows []Window
	for _, def := range defs {
		if len(def.DaysOfWeek) == 0 {
			return nil, fmt.Errorf("%w: at least one day of week is required", ErrInvalidWindow)
		}
		for _, day := range def.DaysOfWeek {
			w := Window{
				PractitionerID: practitionerID,
				DayOfWeek:      day,
				StartTime:      def.StartTime,
				EndTime:        def.EndTime,
			}
			if err := w.Validate(); err != nil {
				return nil, err
			}
			windows = append(windows, w)
		}
	}
	return windows, nil
}

// CheckNoOverlap compares every pair of windows, not just neighbours.
func CheckNoOverlap(windows []Window) error {
	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			if windows[i].Collides(windows[j]) {
				return fmt.Errorf("%w: %s %s-%s collides with %s-%s", ErrOverlappingWindows,
					windows[i].DayOfWeek, windows[i].StartTime, windows[i].EndTime,
					windows[j].StartTime, windows[j].EndTime)
			}
		}
	}
	return nil
}
