// ABOUTME: Tests for logger construction.
// ABOUTME: Covers level parsing, JSON output with component keys, level filtering and the discard logger.
package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"loud", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestJSONLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Named(New(Options{Level: "debug", Format: "json", Writer: &buf}), "export")
	l.Info("batch completed", "sample_type", "heart_rate")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "batch completed", entry["msg"])
	assert.Equal(t, "export", entry["component"])
	assert.Equal(t, "heart_rate", entry["sample_type"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Writer: &buf})
	l.Info("hidden")
	assert.Empty(t, buf.String())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("nothing") })
}
