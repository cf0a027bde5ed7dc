// ABOUTME: Tests for sleep session segmentation.
// ABOUTME: Covers thresholds, overlaps, neighbour merging, idempotence and phase totals.
package sleep

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/ordered"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)

func sample(phase models.SleepPhase, start, end time.Duration) models.Sample {
	return *models.NewSleepSample(phase, t0.Add(start), t0.Add(end)).WithSource("watch")
}

func TestSingleSampleMakesOneSession(t *testing.T) {
	s := sample(models.SleepPhaseAsleepCore, 0, time.Hour)
	sessions, err := NewBuilder().Build([]models.Sample{s})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].Len())
	assert.True(t, sessions[0].Start().Equal(s.Start))
	assert.True(t, sessions[0].End().Equal(s.End))
}

func TestThresholdBoundary(t *testing.T) {
	b := NewBuilder()

	tests := []struct {
		name string
		gap  time.Duration
		want int
	}{
		{"exactly max distance merges", DefaultMaxDistance, 1},
		{"just over max distance splits", DefaultMaxDistance + time.Nanosecond, 2},
		{"touching merges", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := sample(models.SleepPhaseAsleepCore, 0, time.Hour)
			c := sample(models.SleepPhaseAsleepDeep, time.Hour+tt.gap, 2*time.Hour+tt.gap)
			sessions, err := b.Build([]models.Sample{a, c})
			require.NoError(t, err)
			assert.Len(t, sessions, tt.want)
		})
	}
}

func TestOverlappingSamplesMerge(t *testing.T) {
	a := sample(models.SleepPhaseAsleepCore, 0, time.Hour)
	b := sample(models.SleepPhaseInBed, -time.Hour, 2*time.Hour)

	sessions, err := NewBuilder().Build([]models.Sample{a, b})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Start().Equal(t0.Add(-time.Hour)))
	assert.True(t, sessions[0].End().Equal(t0.Add(2*time.Hour)))
}

func TestLongEarlySampleDefinesEnd(t *testing.T) {
	long := sample(models.SleepPhaseInBed, 0, 8*time.Hour)
	short := sample(models.SleepPhaseAsleepCore, time.Hour, 2*time.Hour)
	late := sample(models.SleepPhaseAsleepREM, 8*time.Hour+30*time.Minute, 9*time.Hour)

	sessions, err := NewBuilder().Build([]models.Sample{long, short, late})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].End().Equal(t0.Add(9*time.Hour)))
}

func TestMergeIsIdempotent(t *testing.T) {
	b := NewBuilder()
	input := []models.Sample{
		sample(models.SleepPhaseInBed, 0, 30*time.Minute),
		sample(models.SleepPhaseAsleepCore, 20*time.Minute, 2*time.Hour),
		sample(models.SleepPhaseAwake, 2*time.Hour+40*time.Minute, 2*time.Hour+50*time.Minute),
		sample(models.SleepPhaseAsleepDeep, 3*time.Hour, 4*time.Hour),
	}
	first, err := b.Build(input)
	require.NoError(t, err)
	require.Len(t, first, 1)

	again, err := b.BuildSource(first[0].Samples())
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first[0], again[0])
}

func TestOrderInvariance(t *testing.T) {
	watch := []models.Sample{
		sample(models.SleepPhaseAsleepCore, 0, time.Hour),
		sample(models.SleepPhaseAsleepDeep, 90*time.Minute, 2*time.Hour),
		sample(models.SleepPhaseAsleepREM, 5*time.Hour, 6*time.Hour),
	}
	ring := []models.Sample{
		*models.NewSleepSample(models.SleepPhaseAsleepCore, t0.Add(10*time.Minute), t0.Add(50*time.Minute)).WithSource("ring"),
		*models.NewSleepSample(models.SleepPhaseAwake, t0.Add(3*time.Hour), t0.Add(3*time.Hour+5*time.Minute)).WithSource("ring"),
	}

	b := NewBuilder()
	forward, err := b.Build(append(append([]models.Sample{}, watch...), ring...))
	require.NoError(t, err)
	reversed, err := b.Build(append(append([]models.Sample{}, ring...), watch...))
	require.NoError(t, err)

	assert.Equal(t, forward, reversed)
	assert.Len(t, forward, 4)
}

func TestSourcesAreNeverMixed(t *testing.T) {
	a := sample(models.SleepPhaseAsleepCore, 0, time.Hour)
	b := *models.NewSleepSample(models.SleepPhaseAsleepCore, t0.Add(10*time.Minute), t0.Add(time.Hour)).WithSource("phone")

	sessions, err := NewBuilder().Build([]models.Sample{a, b})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "phone", sessions[1].Source())

	_, err = NewBuilder().BuildSource([]models.Sample{a, b})
	assert.ErrorIs(t, err, ErrMixedSources)
}

func TestTypeMismatchFailsFast(t *testing.T) {
	good := sample(models.SleepPhaseAsleepCore, 0, time.Hour)
	bad := *models.NewSample(models.SampleHeartRate, t0, t0.Add(time.Minute), 60)

	sessions, err := NewBuilder().Build([]models.Sample{good, bad})
	assert.Nil(t, sessions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSampleTypeMismatch))

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, models.SampleHeartRate, mismatch.Got)
	assert.Equal(t, bad.ID, mismatch.SampleID)
}

func TestEqualStartsOrderedByID(t *testing.T) {
	lo := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	hi := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")
	a := *models.NewSleepSample(models.SleepPhaseInBed, t0, t0.Add(time.Hour)).WithSource("watch").WithID(hi)
	b := *models.NewSleepSample(models.SleepPhaseAsleepCore, t0, t0.Add(30*time.Minute)).WithSource("watch").WithID(lo)

	sessions, err := NewBuilder().Build([]models.Sample{a, b})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	got := sessions[0].Samples()
	assert.Equal(t, lo, got[0].ID)
	assert.Equal(t, hi, got[1].ID)
}

func TestPhaseTotals(t *testing.T) {
	input := []models.Sample{
		sample(models.SleepPhaseAsleepCore, 0, time.Hour),
		sample(models.SleepPhaseAsleepCore, 30*time.Minute, 90*time.Minute),
		sample(models.SleepPhaseAsleepDeep, 2*time.Hour, 3*time.Hour),
		sample(models.SleepPhaseAwake, 3*time.Hour, 3*time.Hour+10*time.Minute),
	}

	union := NewBuilder()
	sessions, err := union.Build(input)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, TotalTimeUnion, sessions[0].TotalTimeMode())
	assert.Equal(t, 90*time.Minute, sessions[0].TimeTracked(models.SleepPhaseAsleepCore))
	assert.Equal(t, 150*time.Minute, sessions[0].TotalAsleep())
	assert.Equal(t, 10*time.Minute, sessions[0].TimeTracked(models.SleepPhaseAwake))

	sum := Builder{MaxDistance: DefaultMaxDistance, Mode: TotalTimeSum}
	sessions, err = sum.Build(input)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, sessions[0].TimeTracked(models.SleepPhaseAsleepCore))
	assert.Equal(t, time.Duration(0), sessions[0].TimeTracked(models.SleepPhaseAsleepREM))
}

func TestNeighbourClustersAreAbsorbed(t *testing.T) {
	b := NewBuilder()
	clusters := ordered.New(clusterLess)

	// Out-of-order placement leaves two clusters two hours apart, then a
	// bridging sample lands within reach of both.
	b.place(clusters, sample(models.SleepPhaseAsleepCore, 0, time.Hour))
	b.place(clusters, sample(models.SleepPhaseAsleepCore, 4*time.Hour, 5*time.Hour))
	b.place(clusters, sample(models.SleepPhaseAsleepCore, 7*time.Hour, 8*time.Hour))
	require.Equal(t, 3, clusters.Len())

	b.place(clusters, sample(models.SleepPhaseAwake, 90*time.Minute, 6*time.Hour+30*time.Minute))
	require.Equal(t, 1, clusters.Len())
	assert.True(t, clusters.IsSorted())

	c := clusters.At(0)
	assert.Equal(t, 4, c.samples.Len())
	assert.True(t, c.timeRange().Start.Equal(t0))
	assert.True(t, c.timeRange().End.Equal(t0.Add(8*time.Hour)))
}

func TestAdjacentSessionsStaySeparated(t *testing.T) {
	b := NewBuilder()
	var input []models.Sample
	for night := 0; night < 5; night++ {
		base := time.Duration(night) * 24 * time.Hour
		input = append(input,
			sample(models.SleepPhaseAsleepCore, base, base+3*time.Hour),
			sample(models.SleepPhaseAsleepDeep, base+3*time.Hour+20*time.Minute, base+5*time.Hour),
		)
	}
	sessions, err := b.Build(input)
	require.NoError(t, err)
	require.Len(t, sessions, 5)
	for i := 1; i < len(sessions); i++ {
		gap := sessions[i].Start().Sub(sessions[i-1].End())
		assert.Greater(t, gap, b.MaxDistance)
	}
}

func TestParseTotalTimeMode(t *testing.T) {
	m, ok := ParseTotalTimeMode("sum")
	assert.True(t, ok)
	assert.Equal(t, TotalTimeSum, m)
	assert.Equal(t, "sum", m.String())

	_, ok = ParseTotalTimeMode("median")
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	samples := []models.Sample{
		sample(models.SleepPhaseInBed, 0, 8*time.Hour),
		sample(models.SleepPhaseAsleepCore, 30*time.Minute, 3*time.Hour),
		sample(models.SleepPhaseAsleepDeep, 3*time.Hour, 4*time.Hour),
	}
	summaries, err := NewBuilder().Summarize(samples)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "watch", s.Source)
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, "union", s.Mode)
	assert.InDelta(t, 210, s.AsleepMinutes, 0.001)
	assert.InDelta(t, 480, s.PhaseMinutes["in_bed"], 0.001)
}
