// ABOUTME: TimeRange value type shared by sleep sessions and export batches.
// ABOUTME: Batches treat it as half-open, sleep samples as closed.
package models

import "time"

// TimeRange is an interval between two instants.
type TimeRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// IsEmpty reports whether the range covers no time.
func (r TimeRange) IsEmpty() bool {
	return !r.End.After(r.Start)
}

// Contains reports whether t lies in the half-open range [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Union returns the smallest range covering both r and o.
func (r TimeRange) Union(o TimeRange) TimeRange {
	u := r
	if o.Start.Before(u.Start) {
		u.Start = o.Start
	}
	if o.End.After(u.End) {
		u.End = o.End
	}
	return u
}

// Expanded widens the range by d on both sides.
func (r TimeRange) Expanded(d time.Duration) TimeRange {
	return TimeRange{Start: r.Start.Add(-d), End: r.End.Add(d)}
}

// Intersects reports whether the closed ranges share at least one instant.
func (r TimeRange) Intersects(o TimeRange) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

// Equal compares the instants, ignoring location.
func (r TimeRange) Equal(o TimeRange) bool {
	return r.Start.Equal(o.Start) && r.End.Equal(o.End)
}
