// Package event manages a practitioner's own calendar entries: blocks of
// time such as meetings or leave that sit beside patient appointments.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/overlap"
)

const (
	DefaultHexColor = "#EDED85"

	MaxTitleLen       = 150
	MaxDescriptionLen = 1500
	MaxLocationLen    = 250
)

type PractitionerEvent struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Title          string
	Description    *string
	Location       *string
	HexColor       string
	StartTime      time.Time
	EndTime        time.Time
	IsAllDay       bool
	IsConfirmed    bool
	CreatedByID    uuid.UUID
	UpdatedByID    *uuid.UUID
	RRule          *string
	IsRecurring    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (e *PractitionerEvent) Interval() overlap.Interval {
	return overlap.Interval{Start: e.StartTime, End: e.EndTime}
}

// NormalizeAllDay returns the end an all-day event starting at start must
// carry. A span shorter than one day becomes exactly one nominal day ending a
// second before start's clock time on the following day. A longer span keeps
// its last date and is cut a second before start's clock time on that date.
func NormalizeAllDay(start, end time.Time) time.Time {
	const day = 24 * time.Hour
	if end.Sub(start) < day {
		return start.AddDate(0, 0, 1).Add(-time.Second)
	}

	y, m, d := end.In(start.Location()).Date()
	h, mi, s := start.Clock()
	anchored := time.Date(y, m, d, h, mi, s, start.Nanosecond(), start.Location())
	return anchored.Add(-time.Second)
}
