// ABOUTME: Batch model: one (sample type, date range) unit of export work.
// ABOUTME: Results are stored with stringified errors so batches stay serialisable.
package export

import (
	"github.com/harperreed/healthexport/internal/models"
)

// Outcome is the terminal status of a processed batch.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// BatchResult records how a batch finished. A nil result means unscheduled.
type BatchResult struct {
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// Succeeded returns a success result.
func Succeeded() *BatchResult {
	return &BatchResult{Outcome: OutcomeSuccess}
}

// Failed returns a failure result carrying err's text.
func Failed(err error) *BatchResult {
	return &BatchResult{Outcome: OutcomeFailure, Error: err.Error()}
}

// Batch is a half-open [Range.Start, Range.End) slice of one sample type.
type Batch struct {
	SampleType models.SampleType `json:"sample_type"`
	Range      models.TimeRange  `json:"range"`
	Result     *BatchResult      `json:"result,omitempty"`
}

// BatchKey identifies a batch independently of its result.
type BatchKey struct {
	SampleType models.SampleType
	Start      int64
	End        int64
}

// Key returns the batch's identity.
func (b Batch) Key() BatchKey {
	return BatchKey{SampleType: b.SampleType, Start: b.Range.Start.UnixNano(), End: b.Range.End.UnixNano()}
}

// IsFailed reports whether the batch carries a failure result.
func (b Batch) IsFailed() bool {
	return b.Result != nil && b.Result.Outcome == OutcomeFailure
}

// IsUnscheduled reports whether the batch still needs to run.
func (b Batch) IsUnscheduled() bool {
	return b.Result == nil
}

// Equal compares sample type, range and result.
func (b Batch) Equal(o Batch) bool {
	if b.Key() != o.Key() {
		return false
	}
	if b.Result == nil || o.Result == nil {
		return b.Result == nil && o.Result == nil
	}
	return *b.Result == *o.Result
}

func (b Batch) clone() Batch {
	if b.Result != nil {
		r := *b.Result
		b.Result = &r
	}
	return b
}
