package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/sensor"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	driver, status := "disconnected", "unhealthy"
	if s.svc.DriverConnected() {
		driver, status = "connected", "healthy"
	}

	out := GetHealthOutput{
		Status:    status,
		Driver:    driver,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListActuators(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := s.svc.Actuators()
	return mcp.NewToolResultText(formatJSON(ListActuatorsOutput{Actuators: list, Count: len(list)})), nil
}

func (s *Server) handleGetActuator(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	v, err := s.svc.Actuator(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("actuator not found: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(GetActuatorOutput{Actuator: v})), nil
}

func (s *Server) handleControlActuator(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := requiredString(request, "state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := optionalInt(request, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.ManualControl(ctx, id, st, value)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to control actuator: %s", err)), nil
	}

	out := ControlActuatorOutput{
		Result:  res,
		Message: fmt.Sprintf("%s set to %s under manual override", id, res.ReportedState),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleClearOverride(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.ClearOverride(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear override: %s", err)), nil
	}

	out := ClearOverrideOutput{
		Success: true,
		Message: fmt.Sprintf("%s returned to automatic control", id),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSubmitTelemetry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["batch"]
	if !ok || raw == nil {
		return mcp.NewToolResultError(`required parameter "batch" is missing`), nil
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid batch: %s", err)), nil
	}
	b, err := sensor.DecodeJSON(bytes.NewReader(body))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.Ingest(ctx, b)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("batch rejected: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(res)), nil
}

func (s *Server) handleGatewayStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.svc.GatewayStats())), nil
}

func (s *Server) handleRecentDecisions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 10
	if v, err := optionalInt(request, "limit"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if v != nil && *v > 0 {
		limit = *v
	}

	decisions, err := s.svc.RecentDecisions(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load decisions: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(RecentDecisionsOutput{Decisions: decisions, Count: len(decisions)})), nil
}

// --- helpers ---

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

// optionalInt reads a whole number. JSON numbers arrive as float64.
func optionalInt(request mcp.CallToolRequest, key string) (*int, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return nil, fmt.Errorf("parameter %q must be an integer", key)
	}
	return actuator.IntValue(int(f)), nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
