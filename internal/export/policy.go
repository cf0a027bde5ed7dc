// ABOUTME: Start-date and batch-size policies used to partition an export.
// ABOUTME: Batches are aligned to calendar boundaries and clamped to the export range.
package export

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/healthexport/internal/models"
)

// CalendarComponent is the unit batches are measured in.
type CalendarComponent string

const (
	ComponentHour  CalendarComponent = "hour"
	ComponentDay   CalendarComponent = "day"
	ComponentWeek  CalendarComponent = "week"
	ComponentMonth CalendarComponent = "month"
	ComponentYear  CalendarComponent = "year"
)

// floor returns the start of the component containing t, in t's location.
// Weeks start on Monday.
func (c CalendarComponent) floor(t time.Time) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch c {
	case ComponentHour:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case ComponentDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case ComponentWeek:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case ComponentMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case ComponentYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		panic(fmt.Sprintf("export: unknown calendar component %q", string(c)))
	}
}

func (c CalendarComponent) add(t time.Time, n int) time.Time {
	switch c {
	case ComponentHour:
		return t.Add(time.Duration(n) * time.Hour)
	case ComponentDay:
		return t.AddDate(0, 0, n)
	case ComponentWeek:
		return t.AddDate(0, 0, 7*n)
	case ComponentMonth:
		return t.AddDate(0, n, 0)
	case ComponentYear:
		return t.AddDate(n, 0, 0)
	default:
		panic(fmt.Sprintf("export: unknown calendar component %q", string(c)))
	}
}

// BatchSize is either automatic (the zero value) or a component and multiplier.
type BatchSize struct {
	Component  CalendarComponent
	Multiplier int
}

var (
	BatchSizeAutomatic = BatchSize{}
	BatchSizeByDay     = Every(1, ComponentDay)
	BatchSizeByWeek    = Every(1, ComponentWeek)
	BatchSizeByMonth   = Every(1, ComponentMonth)
	BatchSizeByYear    = Every(1, ComponentYear)
)

// Every returns a batch size of n components.
func Every(n int, c CalendarComponent) BatchSize {
	if n < 1 {
		n = 1
	}
	return BatchSize{Component: c, Multiplier: n}
}

// IsAutomatic reports whether the size is chosen per sample type.
func (b BatchSize) IsAutomatic() bool {
	return b.Component == ""
}

// Resolve maps automatic sizing to monthly batches for high-frequency types
// and six-month batches for everything else.
func (b BatchSize) Resolve(st models.SampleType) BatchSize {
	if !b.IsAutomatic() {
		return Every(b.Multiplier, b.Component)
	}
	if st.IsHighFrequency() {
		return Every(1, ComponentMonth)
	}
	return Every(6, ComponentMonth)
}

func (b BatchSize) String() string {
	if b.IsAutomatic() {
		return "auto"
	}
	if b.Multiplier == 1 {
		return string(b.Component)
	}
	return fmt.Sprintf("%d%s", b.Multiplier, b.Component)
}

var componentAliases = map[string]CalendarComponent{
	"h": ComponentHour, "hour": ComponentHour, "hours": ComponentHour,
	"d": ComponentDay, "day": ComponentDay, "days": ComponentDay,
	"w": ComponentWeek, "week": ComponentWeek, "weeks": ComponentWeek,
	"m": ComponentMonth, "month": ComponentMonth, "months": ComponentMonth,
	"y": ComponentYear, "year": ComponentYear, "years": ComponentYear,
}

// ParseBatchSize accepts "auto" or an optional count followed by a unit,
// e.g. "month", "2w", "6months".
func ParseBatchSize(s string) (BatchSize, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" || s == "automatic" {
		return BatchSizeAutomatic, nil
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n := 1
	if i > 0 {
		v, err := strconv.Atoi(s[:i])
		if err != nil || v < 1 {
			return BatchSize{}, fmt.Errorf("invalid batch size %q", s)
		}
		n = v
	}
	c, ok := componentAliases[strings.TrimSpace(s[i:])]
	if !ok {
		return BatchSize{}, fmt.Errorf("invalid batch size %q (use auto, day, week, month, year with optional count)", s)
	}
	return Every(n, c), nil
}

// partition splits [start, end) into batches aligned to size's calendar
// boundaries. The first batch runs to the next boundary and the last is
// truncated at end.
func partition(st models.SampleType, start, end time.Time, size BatchSize) []Batch {
	if !start.Before(end) {
		return nil
	}
	size = size.Resolve(st)

	var batches []Batch
	cur := start
	boundary := size.Component.floor(start)
	for cur.Before(end) {
		boundary = size.Component.add(boundary, size.Multiplier)
		if !boundary.After(cur) {
			continue
		}
		next := boundary
		if next.After(end) {
			next = end
		}
		batches = append(batches, Batch{SampleType: st, Range: models.TimeRange{Start: cur, End: next}})
		cur = next
	}
	return batches
}

// CalendarDuration is a calendar-aware span such as "3 months".
type CalendarDuration struct {
	Years  int `json:"years,omitempty"`
	Months int `json:"months,omitempty"`
	Days   int `json:"days,omitempty"`
	Hours  int `json:"hours,omitempty"`
}

// IsZero reports whether every field is zero.
func (d CalendarDuration) IsZero() bool {
	return d == CalendarDuration{}
}

func (d CalendarDuration) before(t time.Time) time.Time {
	return t.AddDate(-d.Years, -d.Months, -d.Days).Add(-time.Duration(d.Hours) * time.Hour)
}

// StartKind selects how an export's start date is found.
type StartKind string

const (
	StartOldestSample StartKind = "oldest_sample"
	StartLast         StartKind = "last"
	StartCustom       StartKind = "custom"
)

// StartDate is a start-date policy.
type StartDate struct {
	Kind StartKind        `json:"kind"`
	Last CalendarDuration `json:"last,omitempty"`
	Date time.Time        `json:"date,omitempty"`
}

// OldestSample starts at the earliest recorded sample of each type.
func OldestSample() StartDate {
	return StartDate{Kind: StartOldestSample}
}

// Last starts d before the end date. A zero duration behaves like OldestSample.
func Last(d CalendarDuration) StartDate {
	return StartDate{Kind: StartLast, Last: d}
}

// Custom starts at a fixed instant.
func Custom(t time.Time) StartDate {
	return StartDate{Kind: StartCustom, Date: t}
}

// Resolve computes the start instant for one sample type. ok is false when
// the provider has no samples of that type.
func (s StartDate) Resolve(ctx context.Context, p Provider, st models.SampleType, end time.Time) (start time.Time, ok bool, err error) {
	switch s.Kind {
	case StartCustom:
		return s.Date, true, nil
	case StartLast:
		if !s.Last.IsZero() {
			return s.Last.before(end), true, nil
		}
	}
	oldest, ok, err := p.OldestSampleDate(ctx, st)
	if err != nil {
		return time.Time{}, false, &QueryError{Err: err}
	}
	return oldest, ok, nil
}

// ParseStartDate accepts "oldest", a date (YYYY-MM-DD or RFC3339), or a
// relative span such as "30d", "6m", "2y", "12h".
func ParseStartDate(s string) (StartDate, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "oldest" {
		return OldestSample(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Custom(t), nil
		}
	}
	if len(s) >= 2 {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err == nil && n >= 0 {
			switch s[len(s)-1] {
			case 'h':
				return Last(CalendarDuration{Hours: n}), nil
			case 'd':
				return Last(CalendarDuration{Days: n}), nil
			case 'w':
				return Last(CalendarDuration{Days: 7 * n}), nil
			case 'm':
				return Last(CalendarDuration{Months: n}), nil
			case 'y':
				return Last(CalendarDuration{Years: n}), nil
			}
		}
	}
	return StartDate{}, fmt.Errorf("invalid start %q (use oldest, YYYY-MM-DD, or a span like 30d, 6m, 1y)", s)
}
