// Package overlap decides whether a proposed interval collides with records
// already persisted for a practitioner.
//
// Two intervals overlap when their open interiors intersect, so back-to-back
// bookings that share an endpoint never conflict. Containment, used by the
// availability matcher, is inclusive on both ends.
package overlap

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/apperr"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether (i.Start, i.End) and (o.Start, o.End) intersect.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies within [i.Start, i.End].
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Query describes one conflict lookup. Sources ignore the fields that do not
// apply to the records they hold.
type Query struct {
	PractitionerID uuid.UUID
	Interval

	// ExcludeID removes the record being updated from the candidate set.
	ExcludeID uuid.UUID

	// IgnoreStatuses lists record statuses that never block.
	IgnoreStatuses []string

	// EndingAfter, when set, only counts records whose end is at or after it.
	EndingAfter time.Time
}

// Source runs the range query against a store.
type Source interface {
	FindOverlap(ctx context.Context, q Query) (bool, error)
}

// Detector validates a query and classifies store failures so callers never
// mistake an unreachable store for a free calendar.
type Detector struct {
	src Source
}

func NewDetector(src Source) *Detector {
	return &Detector{src: src}
}

func (d *Detector) HasOverlap(ctx context.Context, q Query) (bool, error) {
	if !q.Valid() {
		return false, apperr.Validation("interval end must be after its start")
	}

	found, err := d.src.FindOverlap(ctx, q)
	if err != nil {
		return false, apperr.Infra("find overlapping records", err)
	}
	return found, nil
}

// Any reports whether candidate overlaps any of existing.
func Any(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return true
		}
	}
	return false
}

// Ignored reports whether status is in the ignore list.
func (q Query) Ignored(status string) bool {
	for _, s := range q.IgnoreStatuses {
		if s == status {
			return true
		}
	}
	return false
}
