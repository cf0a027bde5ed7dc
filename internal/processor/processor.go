// ABOUTME: Batch processors plugged into export sessions.
// ABOUTME: Writes batches to files, summarises sleep, or just counts samples.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/sleep"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedType is returned when a processor cannot handle a sample type.
var ErrUnsupportedType = errors.New("unsupported sample type")

// Format selects the on-disk encoding of batch files.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format %q (use json or yaml)", s)
	}
}

// BatchFile describes one written batch.
type BatchFile struct {
	Path       string            `json:"path,omitempty"`
	SampleType models.SampleType `json:"sample_type"`
	Samples    int               `json:"samples"`
	Bytes      int               `json:"bytes"`
}

// FileWriter writes each batch to <dir>/<sample type>/<first start>.<ext>.
// Empty batches produce no file.
type FileWriter struct {
	dir    string
	format Format
}

var _ export.Processor[BatchFile] = (*FileWriter)(nil)

// NewFileWriter creates dir if needed.
func NewFileWriter(dir string, format Format) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileWriter{dir: dir, format: format}, nil
}

// Dir returns the output directory.
func (w *FileWriter) Dir() string { return w.dir }

// Process writes samples to a new file.
func (w *FileWriter) Process(ctx context.Context, samples []models.Sample, st models.SampleType) (BatchFile, error) {
	out := BatchFile{SampleType: st, Samples: len(samples)}
	if len(samples) == 0 {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	data, err := w.encode(samples, st)
	if err != nil {
		return out, err
	}

	dir := filepath.Join(w.dir, string(st))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return out, fmt.Errorf("create type directory: %w", err)
	}
	name := samples[0].Start.UTC().Format("20060102T150405Z") + "." + string(w.format)
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return out, err
	}

	out.Path = path
	out.Bytes = len(data)
	return out, nil
}

type batchDocument struct {
	SampleType models.SampleType `json:"sample_type" yaml:"sample_type"`
	Count      int               `json:"count" yaml:"count"`
	Samples    []models.Sample   `json:"samples" yaml:"samples"`
}

func (w *FileWriter) encode(samples []models.Sample, st models.SampleType) ([]byte, error) {
	doc := batchDocument{SampleType: st, Count: len(samples), Samples: samples}
	switch w.format {
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal YAML: %w", err)
		}
		return data, nil
	default:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal JSON: %w", err)
		}
		return data, nil
	}
}

// writeFileAtomic writes via a temp file and rename so a cancelled export
// never leaves a half-written batch behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".batch-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write batch: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename batch: %w", err)
	}
	return nil
}

// SleepSummarizer segments each sleep batch into sessions.
// Sessions spanning a batch boundary are reported once per batch.
type SleepSummarizer struct {
	Builder sleep.Builder
}

var _ export.Processor[[]sleep.Summary] = SleepSummarizer{}

// NewSleepSummarizer uses the default 60 minute gap and union totals.
func NewSleepSummarizer() SleepSummarizer {
	return SleepSummarizer{Builder: sleep.NewBuilder()}
}

// Process returns one summary per session found in the batch.
func (s SleepSummarizer) Process(_ context.Context, samples []models.Sample, st models.SampleType) ([]sleep.Summary, error) {
	if st != models.SampleSleepAnalysis {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, st)
	}
	return s.Builder.Summarize(samples)
}

// Count summarises a batch without keeping its samples.
type Count struct {
	SampleType models.SampleType `json:"sample_type"`
	Samples    int               `json:"samples"`
	Sum        float64           `json:"sum"`
	Range      *models.TimeRange `json:"range,omitempty"`
}

// Counter is a processor that only counts; useful for dry runs.
type Counter struct{}

var _ export.Processor[Count] = Counter{}

// Process counts samples and sums their values.
func (Counter) Process(_ context.Context, samples []models.Sample, st models.SampleType) (Count, error) {
	c := Count{SampleType: st, Samples: len(samples)}
	for i, s := range samples {
		c.Sum += s.Value
		if i == 0 {
			r := s.Range()
			c.Range = &r
			continue
		}
		*c.Range = c.Range.Union(s.Range())
	}
	return c, nil
}
