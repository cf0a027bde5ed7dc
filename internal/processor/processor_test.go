// ABOUTME: Tests for the batch processors.
// ABOUTME: Covers JSON/YAML batch files, empty batches, cancellation, sleep summaries and counting.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/healthexport/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var t0 = time.Date(2025, 5, 4, 22, 0, 0, 0, time.UTC)

func TestFileWriterJSON(t *testing.T) {
	w, err := NewFileWriter(t.TempDir(), FormatJSON)
	require.NoError(t, err)

	samples := []models.Sample{
		*models.NewSample(models.SampleHeartRate, t0, t0.Add(time.Minute), 58),
		*models.NewSample(models.SampleHeartRate, t0.Add(time.Hour), t0.Add(61*time.Minute), 55),
	}
	out, err := w.Process(context.Background(), samples, models.SampleHeartRate)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Samples)
	assert.Equal(t, filepath.Join(w.Dir(), "heart_rate", "20250504T220000Z.json"), out.Path)

	raw, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	assert.Equal(t, len(raw), out.Bytes)

	var doc batchDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 2, doc.Count)
	assert.Equal(t, samples[1].ID, doc.Samples[1].ID)

	leftovers, err := filepath.Glob(filepath.Join(w.Dir(), "heart_rate", ".batch-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files are cleaned up")
}

func TestFileWriterYAML(t *testing.T) {
	w, err := NewFileWriter(t.TempDir(), FormatYAML)
	require.NoError(t, err)

	samples := []models.Sample{*models.NewSleepSample(models.SleepPhaseAsleepREM, t0, t0.Add(time.Hour))}
	out, err := w.Process(context.Background(), samples, models.SampleSleepAnalysis)
	require.NoError(t, err)

	raw, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	var doc batchDocument
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, models.SampleSleepAnalysis, doc.SampleType)
	require.Len(t, doc.Samples, 1)
	assert.Equal(t, "asleep_rem", doc.Samples[0].Category)
}

func TestFileWriterSkipsEmptyBatches(t *testing.T) {
	w, err := NewFileWriter(t.TempDir(), FormatJSON)
	require.NoError(t, err)
	out, err := w.Process(context.Background(), nil, models.SampleStepCount)
	require.NoError(t, err)
	assert.Empty(t, out.Path)
	assert.Zero(t, out.Samples)
}

func TestFileWriterHonoursCancellation(t *testing.T) {
	w, err := NewFileWriter(t.TempDir(), FormatJSON)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Process(ctx, []models.Sample{*models.NewSample(models.SampleStepCount, t0, t0, 1)}, models.SampleStepCount)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepSummarizer(t *testing.T) {
	samples := []models.Sample{
		*models.NewSleepSample(models.SleepPhaseAsleepCore, t0, t0.Add(2*time.Hour)),
		*models.NewSleepSample(models.SleepPhaseAsleepDeep, t0.Add(2*time.Hour), t0.Add(3*time.Hour)),
		*models.NewSleepSample(models.SleepPhaseAsleepCore, t0.Add(20*time.Hour), t0.Add(21*time.Hour)),
	}
	got, err := NewSleepSummarizer().Process(context.Background(), samples, models.SampleSleepAnalysis)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 180, got[0].AsleepMinutes, 0.001)

	_, err = NewSleepSummarizer().Process(context.Background(), nil, models.SampleHeartRate)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestCounter(t *testing.T) {
	samples := []models.Sample{
		*models.NewSample(models.SampleStepCount, t0.Add(time.Hour), t0.Add(2*time.Hour), 300),
		*models.NewSample(models.SampleStepCount, t0, t0.Add(30*time.Minute), 200),
	}
	c, err := Counter{}.Process(context.Background(), samples, models.SampleStepCount)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Samples)
	assert.Equal(t, 500.0, c.Sum)
	require.NotNil(t, c.Range)
	assert.True(t, c.Range.Start.Equal(t0))
	assert.True(t, c.Range.End.Equal(t0.Add(2*time.Hour)))

	empty, err := Counter{}.Process(context.Background(), nil, models.SampleStepCount)
	require.NoError(t, err)
	assert.Nil(t, empty.Range)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
