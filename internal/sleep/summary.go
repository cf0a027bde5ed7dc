// ABOUTME: Serialisable summary of a sleep session for CLI, MCP and batch output.
// ABOUTME: Durations are reported in minutes.
package sleep

import (
	"time"

	"github.com/harperreed/healthexport/internal/models"
)

// Summary is a flattened, serialisable view of a Session.
type Summary struct {
	Source        string             `json:"source" yaml:"source"`
	Start         time.Time          `json:"start" yaml:"start"`
	End           time.Time          `json:"end" yaml:"end"`
	Samples       int                `json:"samples" yaml:"samples"`
	Mode          string             `json:"total_time_mode" yaml:"total_time_mode"`
	AsleepMinutes float64            `json:"asleep_minutes" yaml:"asleep_minutes"`
	PhaseMinutes  map[string]float64 `json:"phase_minutes" yaml:"phase_minutes"`
}

// Summary flattens the session.
func (s Session) Summary() Summary {
	phases := make(map[string]float64, len(s.totals))
	for phase, d := range s.totals {
		phases[string(phase)] = d.Minutes()
	}
	return Summary{
		Source:        s.source,
		Start:         s.timeRange.Start,
		End:           s.timeRange.End,
		Samples:       len(s.samples),
		Mode:          s.mode.String(),
		AsleepMinutes: s.TotalAsleep().Minutes(),
		PhaseMinutes:  phases,
	}
}

// Summarize builds sessions and flattens them.
func (b Builder) Summarize(samples []models.Sample) ([]Summary, error) {
	sessions, err := b.Build(samples)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(sessions))
	for i, s := range sessions {
		out[i] = s.Summary()
	}
	return out, nil
}
