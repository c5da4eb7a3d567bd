package mcp

import "github.com/mark3labs/mcp-go/mcp"

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the health of the automation service and its actuator driver"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_actuators",
			mcp.WithDescription("List every actuator with its believed state and manual override status"),
		),
		s.handleListActuators,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_actuator",
			mcp.WithDescription("Get one actuator by id"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Actuator id, e.g. hvac_system or living_room_lights"),
			),
		),
		s.handleGetActuator,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("control_actuator",
			mcp.WithDescription("Set an actuator's state as the user. The actuator stays under manual override until it expires or is cleared; only life-safety rules may change it meanwhile."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Actuator id"),
			),
			mcp.WithString("state",
				mcp.Required(),
				mcp.Description("Target state, one of the actuator's states (see list_actuators)"),
			),
			mcp.WithNumber("value",
				mcp.Description("Brightness 0-100 for dimmable lights (optional)"),
			),
		),
		s.handleControlActuator,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("clear_override",
			mcp.WithDescription("Return an actuator to automatic control"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Actuator id"),
			),
		),
		s.handleClearOverride,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("submit_telemetry",
			mcp.WithDescription("Run a sensor batch through the rules and dispatch the resulting commands"),
			mcp.WithObject("batch",
				mcp.Required(),
				mcp.Description(`Batch object: {"device_id": "...", "location": "...", "readings": [{"sensor_type": "temperature", "value": 31.5}]}`),
			),
		),
		s.handleSubmitTelemetry,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("gateway_stats",
			mcp.WithDescription("Outlier filtering statistics and the most recent filtering summaries"),
		),
		s.handleGatewayStats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("recent_decisions",
			mcp.WithDescription("Most recent decisions with the readings that caused them and the commands issued"),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of decisions (default 10)"),
			),
		),
		s.handleRecentDecisions,
	)
}
