// ABOUTME: Export and import of stored samples.
// ABOUTME: Supports JSON, YAML, and Markdown export formats and JSON/YAML import.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/healthexport/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for health samples.
type ExportData struct {
	Version    string          `json:"version" yaml:"version"`
	ExportedAt time.Time       `json:"exported_at" yaml:"exported_at"`
	Tool       string          `json:"tool" yaml:"tool"`
	Samples    []models.Sample `json:"samples" yaml:"samples"`
}

// GetAllData retrieves all samples for export.
func (d *DB) GetAllData(ctx context.Context) (*ExportData, error) {
	samples, err := d.ListSamples(ctx, SampleFilter{})
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	return newExportData(samples), nil
}

func newExportData(samples []models.Sample) *ExportData {
	return &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Tool:       "healthexport",
		Samples:    samples,
	}
}

// ImportData stores every sample and returns how many were new.
func (d *DB) ImportData(ctx context.Context, data *ExportData) (int, error) {
	n, err := d.CreateSamples(ctx, data.Samples)
	if err != nil {
		return 0, fmt.Errorf("import samples: %w", err)
	}
	return n, nil
}

// ExportJSON exports all samples as JSON.
func (d *DB) ExportJSON(ctx context.Context) ([]byte, error) {
	data, err := d.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all samples as YAML grouped by sample type.
func (d *DB) ExportYAML(ctx context.Context) ([]byte, error) {
	data, err := d.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	return MarshalSamplesYAML(data.Samples)
}

// MarshalSamplesYAML renders samples as YAML grouped by sample type.
func MarshalSamplesYAML(samples []models.Sample) ([]byte, error) {
	yamlData := struct {
		Version    string                  `yaml:"version"`
		ExportedAt string                  `yaml:"exported_at"`
		Tool       string                  `yaml:"tool"`
		Samples    map[string][]yamlSample `yaml:"samples"`
	}{
		Version:    "1.0",
		ExportedAt: time.Now().Format(time.RFC3339),
		Tool:       "healthexport",
		Samples:    make(map[string][]yamlSample),
	}

	for _, s := range samples {
		st := string(s.SampleType)
		yamlData.Samples[st] = append(yamlData.Samples[st], yamlSample{
			ID:       s.ID.String(),
			Start:    s.Start.Format(time.RFC3339Nano),
			End:      s.End.Format(time.RFC3339Nano),
			Source:   s.Source,
			Value:    s.Value,
			Unit:     s.Unit,
			Category: s.Category,
		})
	}

	return yaml.Marshal(yamlData)
}

type yamlSample struct {
	ID       string  `yaml:"id"`
	Start    string  `yaml:"start"`
	End      string  `yaml:"end"`
	Source   string  `yaml:"source,omitempty"`
	Value    float64 `yaml:"value,omitempty"`
	Unit     string  `yaml:"unit,omitempty"`
	Category string  `yaml:"category,omitempty"`
}

// ExportMarkdown renders samples as Markdown tables, one per sample type.
// A nil sampleType includes every type; since filters by start time.
func (d *DB) ExportMarkdown(ctx context.Context, sampleType *models.SampleType, since *time.Time) (string, error) {
	samples, err := d.ListSamples(ctx, SampleFilter{SampleType: sampleType, Since: since})
	if err != nil {
		return "", err
	}
	return RenderMarkdown(samples, time.Now()), nil
}

// RenderMarkdown renders samples as Markdown tables grouped by type.
func RenderMarkdown(samples []models.Sample, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Health Export - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	grouped := make(map[models.SampleType][]models.Sample)
	for _, s := range samples {
		grouped[s.SampleType] = append(grouped[s.SampleType], s)
	}

	types := make([]models.SampleType, 0, len(grouped))
	for t := range grouped {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		sb.WriteString(fmt.Sprintf("## %s\n\n", t))
		if t.IsCategory() {
			sb.WriteString("| Start | End | Category | Source |\n")
			sb.WriteString("|-------|-----|----------|--------|\n")
			for _, s := range grouped[t] {
				sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
					s.Start.Format("2006-01-02 15:04"), s.End.Format("2006-01-02 15:04"), s.Category, s.Source))
			}
		} else {
			sb.WriteString("| Start | Value | Source |\n")
			sb.WriteString("|-------|-------|--------|\n")
			for _, s := range grouped[t] {
				sb.WriteString(fmt.Sprintf("| %s | %.2f %s | %s |\n",
					s.Start.Format("2006-01-02 15:04"), s.Value, s.Unit, s.Source))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// ParseImport decodes an import file. JSON input may be an ExportData
// document or a bare array of samples; YAML input must be an ExportData
// document with a samples list.
func ParseImport(raw []byte, format string) (*ExportData, error) {
	switch strings.ToLower(format) {
	case "json", "":
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var samples []models.Sample
			if err := json.Unmarshal(trimmed, &samples); err != nil {
				return nil, fmt.Errorf("unmarshal JSON: %w", err)
			}
			return newExportData(samples), nil
		}
		var data ExportData
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return nil, fmt.Errorf("unmarshal JSON: %w", err)
		}
		return &data, nil
	case "yaml", "yml":
		var data ExportData
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("unmarshal YAML: %w", err)
		}
		return &data, nil
	default:
		return nil, fmt.Errorf("unsupported import format %q (use json or yaml)", format)
	}
}

// ImportJSON imports samples from JSON bytes.
func (d *DB) ImportJSON(ctx context.Context, raw []byte) (int, error) {
	data, err := ParseImport(raw, "json")
	if err != nil {
		return 0, err
	}
	return d.ImportData(ctx, data)
}
