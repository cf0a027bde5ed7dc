// ABOUTME: Descriptor: the persistable scheduling state of one bulk export.
// ABOUTME: Tracks pending and completed batches; every batch lives in exactly one list.
package export

import (
	"context"
	"time"

	"github.com/harperreed/healthexport/internal/models"
)

// Descriptor is the persisted snapshot of an export session.
//
// Pending holds unscheduled batches (FIFO) followed by failed batches in the
// order they failed. Completed holds successful batches.
type Descriptor struct {
	SessionID string    `json:"session_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Pending   []Batch   `json:"pending"`
	Completed []Batch   `json:"completed"`
}

// NewDescriptor returns an empty descriptor for a session.
func NewDescriptor(sessionID string) *Descriptor {
	return &Descriptor{SessionID: sessionID}
}

// HasSampleType reports whether any pending or completed batch has this type.
func (d *Descriptor) HasSampleType(st models.SampleType) bool {
	for _, b := range d.Pending {
		if b.SampleType == st {
			return true
		}
	}
	for _, b := range d.Completed {
		if b.SampleType == st {
			return true
		}
	}
	return false
}

// SampleTypes lists the scheduled sample types in first-seen order.
func (d *Descriptor) SampleTypes() []models.SampleType {
	seen := make(map[models.SampleType]bool)
	var out []models.SampleType
	for _, list := range [][]Batch{d.Pending, d.Completed} {
		for _, b := range list {
			if !seen[b.SampleType] {
				seen[b.SampleType] = true
				out = append(out, b.SampleType)
			}
		}
	}
	return out
}

// Add schedules batches covering [start, end) for a sample type. It is a
// no-op when the type already has pending or completed batches, which keeps
// repeated calls for the same session idempotent. It returns the number of
// batches added.
func (d *Descriptor) Add(ctx context.Context, p Provider, st models.SampleType, start StartDate, end time.Time, size BatchSize) (int, error) {
	if d.HasSampleType(st) {
		return 0, nil
	}
	from, ok, err := start.Resolve(ctx, p, st, end)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return d.addRange(st, from, end, size), nil
}

func (d *Descriptor) addRange(st models.SampleType, start, end time.Time, size BatchSize) int {
	if d.HasSampleType(st) {
		return 0
	}
	return d.appendPending(partition(st, start, end, size))
}

// ExtendEndDate schedules batches for [previous end, end) for every sample
// type already present. Types whose batches already reach end are untouched.
func (d *Descriptor) ExtendEndDate(end time.Time, size BatchSize) int {
	latest := make(map[models.SampleType]time.Time)
	for _, list := range [][]Batch{d.Pending, d.Completed} {
		for _, b := range list {
			if b.Range.End.After(latest[b.SampleType]) {
				latest[b.SampleType] = b.Range.End
			}
		}
	}

	added := 0
	for _, st := range d.SampleTypes() {
		added += d.appendPending(partition(st, latest[st], end, size))
	}
	if end.After(d.EndDate) {
		d.EndDate = end
	}
	return added
}

// appendPending adds batches not already present in either list.
func (d *Descriptor) appendPending(batches []Batch) int {
	if len(batches) == 0 {
		return 0
	}
	known := make(map[BatchKey]bool, len(d.Pending)+len(d.Completed))
	for _, list := range [][]Batch{d.Pending, d.Completed} {
		for _, b := range list {
			known[b.Key()] = true
		}
	}

	// Unscheduled batches go ahead of failed ones so new work is picked up first.
	insertAt := len(d.Pending)
	for i, b := range d.Pending {
		if b.IsFailed() {
			insertAt = i
			break
		}
	}

	var fresh []Batch
	for _, b := range batches {
		if known[b.Key()] {
			continue
		}
		known[b.Key()] = true
		b.Result = nil
		fresh = append(fresh, b)
		if d.StartDate.IsZero() || b.Range.Start.Before(d.StartDate) {
			d.StartDate = b.Range.Start
		}
		if b.Range.End.After(d.EndDate) {
			d.EndDate = b.Range.End
		}
	}

	pending := make([]Batch, 0, len(d.Pending)+len(fresh))
	pending = append(pending, d.Pending[:insertAt]...)
	pending = append(pending, fresh...)
	pending = append(pending, d.Pending[insertAt:]...)
	d.Pending = pending
	return len(fresh)
}

// UnmarkAllFailedBatches clears every failure so those batches run again.
// Completed batches are never touched. It returns the number reset.
func (d *Descriptor) UnmarkAllFailedBatches() int {
	n := 0
	for i := range d.Pending {
		if d.Pending[i].IsFailed() {
			d.Pending[i].Result = nil
			n++
		}
	}
	return n
}

// nextUnscheduled returns the first unscheduled pending batch not in skip.
func (d *Descriptor) nextUnscheduled(skip map[BatchKey]Batch) (Batch, bool) {
	for _, b := range d.Pending {
		if !b.IsUnscheduled() {
			continue
		}
		if _, busy := skip[b.Key()]; busy {
			continue
		}
		return b, true
	}
	return Batch{}, false
}

// markCompleted moves a pending batch to the completed list.
func (d *Descriptor) markCompleted(key BatchKey) bool {
	b, ok := d.removePending(key)
	if !ok {
		return false
	}
	b.Result = Succeeded()
	d.Completed = append(d.Completed, b)
	return true
}

// markFailed records a failure and moves the batch to the back of pending.
func (d *Descriptor) markFailed(key BatchKey, err error) bool {
	b, ok := d.removePending(key)
	if !ok {
		return false
	}
	b.Result = Failed(err)
	d.Pending = append(d.Pending, b)
	return true
}

func (d *Descriptor) removePending(key BatchKey) (Batch, bool) {
	for i, b := range d.Pending {
		if b.Key() == key {
			d.Pending = append(d.Pending[:i:i], d.Pending[i+1:]...)
			return b, true
		}
	}
	return Batch{}, false
}

// Counts summarises the descriptor.
func (d *Descriptor) Counts() Progress {
	p := Progress{Completed: len(d.Completed)}
	for _, b := range d.Pending {
		if b.IsFailed() {
			p.Failed++
		} else {
			p.Pending++
		}
	}
	return p
}

// Clone returns a deep copy.
func (d *Descriptor) Clone() Descriptor {
	c := *d
	c.Pending = cloneBatches(d.Pending)
	c.Completed = cloneBatches(d.Completed)
	return c
}

func cloneBatches(in []Batch) []Batch {
	if in == nil {
		return nil
	}
	out := make([]Batch, len(in))
	for i, b := range in {
		out[i] = b.clone()
	}
	return out
}

// Progress counts batches by status.
type Progress struct {
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Completed int `json:"completed"`
	InFlight  int `json:"in_flight"`
}

// Total returns the number of batches in the descriptor.
func (p Progress) Total() int {
	return p.Pending + p.Failed + p.Completed
}
