package mcp

import (
	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/automation"
	"github.com/urmzd/hearth/pkg/db"
)

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status (healthy or unhealthy)"`
	Driver    string `json:"driver" jsonschema:"description=Actuator driver connection status"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// ListActuatorsOutput is the output for the list_actuators tool
type ListActuatorsOutput struct {
	Actuators []automation.ActuatorView `json:"actuators" jsonschema:"description=Registered actuators"`
	Count     int                       `json:"count" jsonschema:"description=Total number of actuators"`
}

// GetActuatorOutput is the output for the get_actuator tool
type GetActuatorOutput struct {
	Actuator automation.ActuatorView `json:"actuator" jsonschema:"description=Actuator information"`
}

// ControlActuatorOutput is the output for the control_actuator tool
type ControlActuatorOutput struct {
	Result  actuator.Result `json:"result" jsonschema:"description=Dispatch result"`
	Message string          `json:"message" jsonschema:"description=Status message"`
}

// ClearOverrideOutput is the output for the clear_override tool
type ClearOverrideOutput struct {
	Success bool   `json:"success" jsonschema:"description=Whether the override was cleared"`
	Message string `json:"message" jsonschema:"description=Status message"`
}

// RecentDecisionsOutput is the output for the recent_decisions tool
type RecentDecisionsOutput struct {
	Decisions []db.Decision `json:"decisions" jsonschema:"description=Decisions, newest first"`
	Count     int           `json:"count" jsonschema:"description=Number of decisions returned"`
}
