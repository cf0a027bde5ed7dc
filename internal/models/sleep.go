// ABOUTME: SleepPhase enum classifying sleep analysis samples.
// ABOUTME: Covers in-bed, awake and the asleep stages.
package models

// SleepPhase classifies a sleep analysis sample.
type SleepPhase string

const (
	SleepPhaseInBed             SleepPhase = "in_bed"
	SleepPhaseAsleepUnspecified SleepPhase = "asleep_unspecified"
	SleepPhaseAwake             SleepPhase = "awake"
	SleepPhaseAsleepCore        SleepPhase = "asleep_core"
	SleepPhaseAsleepDeep        SleepPhase = "asleep_deep"
	SleepPhaseAsleepREM         SleepPhase = "asleep_rem"
	SleepPhaseUnknown           SleepPhase = "unknown"
)

// AllSleepPhases lists the phases in display order.
var AllSleepPhases = []SleepPhase{
	SleepPhaseInBed, SleepPhaseAsleepUnspecified, SleepPhaseAwake,
	SleepPhaseAsleepCore, SleepPhaseAsleepDeep, SleepPhaseAsleepREM, SleepPhaseUnknown,
}

// ParseSleepPhase maps a category string to a phase, falling back to SleepPhaseUnknown.
func ParseSleepPhase(s string) SleepPhase {
	for _, p := range AllSleepPhases {
		if string(p) == s {
			return p
		}
	}
	return SleepPhaseUnknown
}

// IsAsleep reports whether the phase counts as time asleep.
func (p SleepPhase) IsAsleep() bool {
	switch p {
	case SleepPhaseAsleepUnspecified, SleepPhaseAsleepCore, SleepPhaseAsleepDeep, SleepPhaseAsleepREM:
		return true
	default:
		return false
	}
}
