package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/anomaly"
	"github.com/urmzd/hearth/pkg/automation"
	"github.com/urmzd/hearth/pkg/db"
	"github.com/urmzd/hearth/pkg/sensor"
)

// Service is the automation surface exposed as tools.
type Service interface {
	Ingest(ctx context.Context, b sensor.Batch) (automation.Result, error)
	ManualControl(ctx context.Context, id, state string, value *int) (actuator.Result, error)
	ClearOverride(id string) error
	Actuators() []automation.ActuatorView
	Actuator(id string) (automation.ActuatorView, error)
	GatewayStats() anomaly.Stats
	RecentDecisions(ctx context.Context, n int) ([]db.Decision, error)
	DriverConnected() bool
}

// Server wraps the MCP server around the automation service
type Server struct {
	mcpServer *server.MCPServer
	svc       Service
}

// NewServer creates a new MCP server
func NewServer(svc Service, version string) *Server {
	s := &Server{svc: svc}
	s.mcpServer = server.NewMCPServer(
		"hearth",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
