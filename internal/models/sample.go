// ABOUTME: Sample model for interval-based health data returned by the data provider.
// ABOUTME: Quantity samples carry a value; category samples (sleep) carry a category.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Sample is one immutable health sample over the closed interval [Start, End].
type Sample struct {
	ID         uuid.UUID  `json:"id" yaml:"id"`
	SampleType SampleType `json:"sample_type" yaml:"sample_type"`
	Start      time.Time  `json:"start" yaml:"start"`
	End        time.Time  `json:"end" yaml:"end"`
	Source     string     `json:"source" yaml:"source"`
	Value      float64    `json:"value,omitempty" yaml:"value,omitempty"`
	Unit       string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Category   string     `json:"category,omitempty" yaml:"category,omitempty"`
}

// NewSample creates a quantity sample with a generated UUID.
// End is clamped to Start when it precedes it.
func NewSample(sampleType SampleType, start, end time.Time, value float64) *Sample {
	if end.Before(start) {
		end = start
	}
	return &Sample{
		ID:         uuid.New(),
		SampleType: sampleType,
		Start:      start,
		End:        end,
		Value:      value,
		Unit:       SampleUnits[sampleType],
	}
}

// NewSleepSample creates a sleep analysis sample for the given phase.
func NewSleepSample(phase SleepPhase, start, end time.Time) *Sample {
	s := NewSample(SampleSleepAnalysis, start, end, 0)
	s.Category = string(phase)
	return s
}

// WithSource sets the recording source.
func (s *Sample) WithSource(source string) *Sample {
	s.Source = source
	return s
}

// WithID sets a fixed identifier, mostly useful for deterministic fixtures.
func (s *Sample) WithID(id uuid.UUID) *Sample {
	s.ID = id
	return s
}

// Duration returns End - Start.
func (s Sample) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Range returns the sample's interval.
func (s Sample) Range() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

// SleepPhase returns the sleep classification of a sleep analysis sample.
// Unrecognised categories map to SleepPhaseUnknown.
func (s Sample) SleepPhase() SleepPhase {
	return ParseSleepPhase(s.Category)
}
