// ABOUTME: MCP server setup for the healthexport bulk exporter.
// ABOUTME: Wraps the MCP server with the sample repository and export registry.
package mcp

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/sleep"
	"github.com/harperreed/healthexport/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Options configures the export side of the server.
type Options struct {
	// OutputDir receives one subdirectory per export session.
	OutputDir   string
	Concurrency export.Concurrency
	SleepGap    time.Duration
	Logger      *log.Logger
}

// Server wraps the MCP server with storage and export access.
type Server struct {
	mcpServer *mcp.Server
	repo      storage.Repository
	exporter  *export.Exporter
	opts      Options
	logger    *log.Logger

	// Export runs outlive the tool call that started them.
	runCtx  context.Context
	stopRun context.CancelFunc
	drains  sync.WaitGroup
}

// NewServer creates a new MCP server over repo and exporter.
func NewServer(repo storage.Repository, exporter *export.Exporter, opts Options) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "healthexport",
			Version: "1.0.0",
		},
		nil,
	)

	if opts.SleepGap <= 0 {
		opts.SleepGap = sleep.DefaultMaxDistance
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	runCtx, stop := context.WithCancel(context.Background())
	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
		exporter:  exporter,
		opts:      opts,
		logger:    logger,
		runCtx:    runCtx,
		stopRun:   stop,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport. Running exports are
// paused and persisted when the transport closes.
func (s *Server) Serve(ctx context.Context) error {
	err := s.mcpServer.Run(ctx, &mcp.StdioTransport{})
	if cerr := s.Close(context.Background()); err == nil {
		err = cerr
	}
	return err
}

// Close pauses every session started through the server and waits for
// their output to drain.
func (s *Server) Close(ctx context.Context) error {
	err := s.exporter.Close(ctx)
	s.stopRun()
	s.drains.Wait()
	return err
}
