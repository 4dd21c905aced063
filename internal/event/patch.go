package event

import (
	"strings"
	"time"
)

// Patch carries the fields of a partial update. A nil field keeps the stored
// value.
type Patch struct {
	Title       *string
	Description *string
	Location    *string
	HexColor    *string
	StartTime   *time.Time
	EndTime     *time.Time
	IsAllDay    *bool
	IsConfirmed *bool
	RRule       *string
	IsRecurring *bool
}

// Merge applies p on top of a copy of e. A title that is blank after trimming
// is ignored.
func (p Patch) Merge(e PractitionerEvent) PractitionerEvent {
	if p.Title != nil {
		if t := strings.TrimSpace(*p.Title); t != "" {
			e.Title = t
		}
	}
	if p.Description != nil {
		e.Description = p.Description
	}
	if p.Location != nil {
		e.Location = p.Location
	}
	if p.HexColor != nil && *p.HexColor != "" {
		e.HexColor = *p.HexColor
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.IsAllDay != nil {
		e.IsAllDay = *p.IsAllDay
	}
	if p.IsConfirmed != nil {
		e.IsConfirmed = *p.IsConfirmed
	}
	if p.RRule != nil {
		e.RRule = p.RRule
	}
	if p.IsRecurring != nil {
		e.IsRecurring = *p.IsRecurring
	}
	return e
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}
