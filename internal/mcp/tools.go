// ABOUTME: MCP tool implementations for healthexport.
// ABOUTME: Starts, inspects, pauses and deletes export sessions, and summarises sleep.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/processor"
	"github.com/harperreed/healthexport/internal/sleep"
	"github.com/harperreed/healthexport/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "start_export",
		Description: "Start or resume a bulk export session writing batch files to disk",
	}, s.handleStartExport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_status",
		Description: "Show progress of one export session, or list all sessions",
	}, s.handleExportStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "pause_export",
		Description: "Pause a running export session; it can be resumed later",
	}, s.handlePauseExport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_export",
		Description: "Stop an export session for good and delete its saved progress",
	}, s.handleDeleteExport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "sleep_sessions",
		Description: "Group sleep samples into sessions with per-phase totals",
	}, s.handleSleepSessions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_samples",
		Description: "List recent health samples, optionally filtered by type",
	}, s.handleListSamples)
}

// Tool input/output types

type startExportInput struct {
	SessionID   string   `json:"session_id,omitempty" jsonschema:"Session ID to start or resume; generated when empty"`
	SampleTypes []string `json:"sample_types" jsonschema:"Sample types to export (heart_rate, step_count, sleep_analysis, etc.)"`
	Start       string   `json:"start,omitempty" jsonschema:"oldest, YYYY-MM-DD, or a span like 30d, 6m, 1y (default oldest)"`
	End         string   `json:"end,omitempty" jsonschema:"Exclusive end, YYYY-MM-DD or RFC3339 (default now)"`
	BatchSize   string   `json:"batch_size,omitempty" jsonschema:"auto, day, week, month or year with optional count (default auto)"`
	Format      string   `json:"format,omitempty" jsonschema:"Batch file format, json or yaml (default json)"`
	RetryFailed bool     `json:"retry_failed,omitempty" jsonschema:"Retry batches that failed in an earlier run"`
}

type exportOutput struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Pending   int    `json:"pending"`
	Failed    int    `json:"failed"`
	Completed int    `json:"completed"`
	InFlight  int    `json:"in_flight"`
	OutputDir string `json:"output_dir,omitempty"`
	Message   string `json:"message"`
}

type sessionInput struct {
	SessionID string `json:"session_id" jsonschema:"Export session ID"`
}

type statusInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Export session ID; lists every session when empty"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

type sleepSessionsInput struct {
	Start         string `json:"start,omitempty" jsonschema:"Start date YYYY-MM-DD or RFC3339 (default 7 days ago)"`
	End           string `json:"end,omitempty" jsonschema:"Exclusive end date YYYY-MM-DD or RFC3339 (default now)"`
	Source        string `json:"source,omitempty" jsonschema:"Only include samples from this source"`
	MaxGapMinutes int    `json:"max_gap_minutes,omitempty" jsonschema:"Largest gap joining samples into one session (default from config)"`
	Mode          string `json:"mode,omitempty" jsonschema:"Phase total mode, union or sum (default union)"`
}

type listSamplesInput struct {
	SampleType string `json:"sample_type,omitempty" jsonschema:"Filter by sample type"`
	Source     string `json:"source,omitempty" jsonschema:"Filter by source"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

// Tool handlers

func (s *Server) handleStartExport(ctx context.Context, req *mcp.CallToolRequest, input startExportInput) (*mcp.CallToolResult, exportOutput, error) {
	cfg, err := sessionConfig(input)
	if err != nil {
		return nil, exportOutput{}, err
	}
	format, err := processor.ParseFormat(input.Format)
	if err != nil {
		return nil, exportOutput{}, err
	}

	id := input.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	writer, err := processor.NewFileWriter(filepath.Join(s.opts.OutputDir, id), format)
	if err != nil {
		return nil, exportOutput{}, err
	}

	session, err := export.OpenSession[processor.BatchFile](ctx, s.exporter, id, cfg, writer)
	if err != nil {
		return nil, exportOutput{}, fmt.Errorf("failed to open session: %w", err)
	}

	out, err := session.Start(s.runCtx, export.StartOptions{
		RetryFailedBatches: input.RetryFailed,
		Concurrency:        s.opts.Concurrency,
	})
	msg := fmt.Sprintf("Started export %s", id)
	switch {
	case errors.Is(err, export.ErrAlreadyRunning):
		msg = fmt.Sprintf("Export %s is already running", id)
	case err != nil:
		return nil, exportOutput{}, fmt.Errorf("failed to start session: %w", err)
	default:
		s.drain(id, out)
	}

	return nil, progressOutput(id, session.State(), session.Progress(), writer.Dir(), msg), nil
}

// drain consumes a run's output so batches keep flowing after the tool call returns.
func (s *Server) drain(id string, out <-chan processor.BatchFile) {
	s.drains.Add(1)
	go func() {
		defer s.drains.Done()
		for f := range out {
			s.logger.Debug("batch written", "session", id, "path", f.Path, "samples", f.Samples)
		}
	}()
}

func (s *Server) handleExportStatus(ctx context.Context, req *mcp.CallToolRequest, input statusInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" {
		infos, err := s.exporter.Sessions(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(infos) == 0 {
			return nil, map[string]interface{}{"message": "No export sessions found."}, nil
		}
		return nil, infos, nil
	}

	info, ok, err := s.exporter.Info(ctx, input.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("session not found: %s", input.SessionID)
	}
	return nil, info, nil
}

func (s *Server) handlePauseExport(ctx context.Context, req *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, exportOutput, error) {
	if !s.exporter.Live(input.SessionID) {
		return nil, exportOutput{}, fmt.Errorf("session not running: %s", input.SessionID)
	}
	if err := s.exporter.Pause(ctx, input.SessionID); err != nil {
		return nil, exportOutput{}, fmt.Errorf("failed to pause session: %w", err)
	}
	info, _, err := s.exporter.Info(ctx, input.SessionID)
	if err != nil {
		return nil, exportOutput{}, err
	}
	return nil, progressOutput(info.ID, info.State, info.Progress, "", fmt.Sprintf("Paused export %s", info.ID)), nil
}

func (s *Server) handleDeleteExport(ctx context.Context, req *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, simpleOutput, error) {
	if input.SessionID == "" {
		return nil, simpleOutput{}, errors.New("session_id is required")
	}
	if err := s.exporter.DeleteSessionRestorationInfo(ctx, input.SessionID); err != nil {
		return nil, simpleOutput{}, err
	}
	return nil, simpleOutput{
		Message: fmt.Sprintf("Deleted export session: %s", input.SessionID),
	}, nil
}

func (s *Server) handleSleepSessions(ctx context.Context, req *mcp.CallToolRequest, input sleepSessionsInput) (*mcp.CallToolResult, any, error) {
	end := time.Now()
	if input.End != "" {
		t, err := parseTime(input.End)
		if err != nil {
			return nil, nil, err
		}
		end = t
	}
	start := end.AddDate(0, 0, -7)
	if input.Start != "" {
		t, err := parseTime(input.Start)
		if err != nil {
			return nil, nil, err
		}
		start = t
	}
	mode, ok := sleep.ParseTotalTimeMode(input.Mode)
	if !ok {
		return nil, nil, fmt.Errorf("unknown mode: %s", input.Mode)
	}
	builder := sleep.Builder{MaxDistance: s.opts.SleepGap, Mode: mode}
	if input.MaxGapMinutes > 0 {
		builder.MaxDistance = time.Duration(input.MaxGapMinutes) * time.Minute
	}

	samples, err := s.repo.Fetch(ctx, models.SampleSleepAnalysis, models.TimeRange{Start: start, End: end})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch sleep samples: %w", err)
	}
	if input.Source != "" {
		kept := samples[:0]
		for _, smp := range samples {
			if smp.Source == input.Source {
				kept = append(kept, smp)
			}
		}
		samples = kept
	}

	summaries, err := builder.Summarize(samples)
	if err != nil {
		return nil, nil, err
	}
	if len(summaries) == 0 {
		return nil, map[string]interface{}{"message": "No sleep sessions found."}, nil
	}
	return nil, summaries, nil
}

func (s *Server) handleListSamples(ctx context.Context, req *mcp.CallToolRequest, input listSamplesInput) (*mcp.CallToolResult, any, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}
	f := storage.SampleFilter{Source: input.Source, Limit: input.Limit, Newest: true}
	if input.SampleType != "" {
		if !models.IsValidSampleType(input.SampleType) {
			return nil, nil, fmt.Errorf("unknown sample type: %s", input.SampleType)
		}
		st := models.SampleType(input.SampleType)
		f.SampleType = &st
	}

	samples, err := s.repo.ListSamples(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, map[string]interface{}{"message": "No samples found."}, nil
	}
	return nil, samples, nil
}

func sessionConfig(input startExportInput) (export.SessionConfig, error) {
	if len(input.SampleTypes) == 0 {
		return export.SessionConfig{}, errors.New("at least one sample type is required")
	}
	cfg := export.SessionConfig{}
	for _, t := range input.SampleTypes {
		if !models.IsValidSampleType(t) {
			return export.SessionConfig{}, fmt.Errorf("unknown sample type: %s", t)
		}
		cfg.SampleTypes = append(cfg.SampleTypes, models.SampleType(t))
	}

	start, err := export.ParseStartDate(input.Start)
	if err != nil {
		return export.SessionConfig{}, err
	}
	cfg.Start = start

	if input.End != "" {
		end, err := parseTime(input.End)
		if err != nil {
			return export.SessionConfig{}, err
		}
		cfg.End = end
	}

	size, err := export.ParseBatchSize(input.BatchSize)
	if err != nil {
		return export.SessionConfig{}, err
	}
	cfg.BatchSize = size
	return cfg, nil
}

func progressOutput(id string, state export.State, p export.Progress, dir, msg string) exportOutput {
	return exportOutput{
		SessionID: id,
		State:     state.String(),
		Pending:   p.Pending,
		Failed:    p.Failed,
		Completed: p.Completed,
		InFlight:  p.InFlight,
		OutputDir: dir,
		Message:   msg,
	}
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD or RFC3339)", s)
}
