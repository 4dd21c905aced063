package schedule

import (
	"fmt"
	"time"
)

// Weekday is the canonical day-of-week numbering used in storage and on the
// wire: 1 = Sunday through 7 = Saturday. Values coming from time.Weekday
// (0 = Sunday) must pass through WeekdayOf or FromTimeWeekday.
type Weekday int

const (
	Sunday Weekday = iota + 1
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// FromTimeWeekday converts Go's 0-based weekday.
func FromTimeWeekday(d time.Weekday) Weekday {
	return Weekday(d) + 1
}

// WeekdayOf returns the canonical weekday of t in loc.
func WeekdayOf(t time.Time, loc *time.Location) Weekday {
	return FromTimeWeekday(t.In(loc).Weekday())
}

func (d Weekday) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// Previous wraps from Sunday to Saturday.
func (d Weekday) Previous() Weekday {
	if d == Sunday {
		return Saturday
	}
	return d - 1
}

func (d Weekday) TimeWeekday() time.Weekday {
	return time.Weekday(d - 1)
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return d.TimeWeekday().String()
}
