// ABOUTME: Immutable SleepSession produced by the builder.
// ABOUTME: Holds the sorted samples and per-phase time tracked.
package sleep

import (
	"sort"
	"time"

	"github.com/harperreed/healthexport/internal/models"
)

// TotalTimeMode selects how per-phase time is accumulated.
type TotalTimeMode int

const (
	// TotalTimeUnion measures the union of same-phase intervals, so overlapping
	// samples are not counted twice. This is the default.
	TotalTimeUnion TotalTimeMode = iota
	// TotalTimeSum adds up each sample's duration.
	TotalTimeSum
)

func (m TotalTimeMode) String() string {
	switch m {
	case TotalTimeSum:
		return "sum"
	default:
		return "union"
	}
}

// ParseTotalTimeMode accepts "sum" or "union".
func ParseTotalTimeMode(s string) (TotalTimeMode, bool) {
	switch s {
	case "sum":
		return TotalTimeSum, true
	case "union", "":
		return TotalTimeUnion, true
	default:
		return TotalTimeUnion, false
	}
}

// Session is a cluster of sleep samples from one source. It is never empty.
type Session struct {
	source    string
	samples   []models.Sample
	timeRange models.TimeRange
	mode      TotalTimeMode
	totals    map[models.SleepPhase]time.Duration
}

func newSession(source string, c *cluster, mode TotalTimeMode) Session {
	samples := c.samples.Items()
	return Session{
		source:    source,
		samples:   samples,
		timeRange: c.timeRange(),
		mode:      mode,
		totals:    phaseTotals(samples, mode),
	}
}

// Source returns the recording source shared by every sample.
func (s Session) Source() string { return s.source }

// Samples returns the samples sorted by start time then ID.
func (s Session) Samples() []models.Sample {
	out := make([]models.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Len returns the number of samples.
func (s Session) Len() int { return len(s.samples) }

// Start returns the earliest sample start.
func (s Session) Start() time.Time { return s.timeRange.Start }

// End returns the latest sample end.
func (s Session) End() time.Time { return s.timeRange.End }

// Range returns [Start, End].
func (s Session) Range() models.TimeRange { return s.timeRange }

// TotalTimeMode reports how the phase totals were computed.
func (s Session) TotalTimeMode() TotalTimeMode { return s.mode }

// TimeTracked returns the time recorded for one phase.
func (s Session) TimeTracked(phase models.SleepPhase) time.Duration {
	return s.totals[phase]
}

// TotalAsleep sums every asleep phase.
func (s Session) TotalAsleep() time.Duration {
	var total time.Duration
	for phase, d := range s.totals {
		if phase.IsAsleep() {
			total += d
		}
	}
	return total
}

// Totals returns a copy of the per-phase totals.
func (s Session) Totals() map[models.SleepPhase]time.Duration {
	out := make(map[models.SleepPhase]time.Duration, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out
}

func phaseTotals(samples []models.Sample, mode TotalTimeMode) map[models.SleepPhase]time.Duration {
	byPhase := make(map[models.SleepPhase][]models.TimeRange)
	for _, s := range samples {
		p := s.SleepPhase()
		byPhase[p] = append(byPhase[p], s.Range())
	}

	totals := make(map[models.SleepPhase]time.Duration, len(byPhase))
	for phase, ranges := range byPhase {
		if mode == TotalTimeSum {
			var sum time.Duration
			for _, r := range ranges {
				sum += r.Duration()
			}
			totals[phase] = sum
			continue
		}
		totals[phase] = unionDuration(ranges)
	}
	return totals
}

func unionDuration(ranges []models.TimeRange) time.Duration {
	if len(ranges) == 0 {
		return 0
	}
	sorted := make([]models.TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var total time.Duration
	cur := sorted[0]
	for _, r := range sorted[1:] {
		if r.Start.After(cur.End) {
			total += cur.Duration()
			cur = r
			continue
		}
		if r.End.After(cur.End) {
			cur.End = r.End
		}
	}
	return total + cur.Duration()
}
