package types

import (
	"time"

	"github.com/urmzd/hearth/pkg/automation"
	"github.com/urmzd/hearth/pkg/db"
)

// --- Request DTOs ---

// SetStateRequest is the request body for POST /actuators/:id/state
type SetStateRequest struct {
	State string `json:"state" binding:"required"`
	Value *int   `json:"value,omitempty"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Driver    string    `json:"driver"`
	Timestamp time.Time `json:"timestamp"`
}

// ListActuatorsResponse is returned from GET /actuators
type ListActuatorsResponse struct {
	Actuators []automation.ActuatorView `json:"actuators"`
	Count     int                       `json:"count"`
}

// ActuatorResponse is returned from GET /actuators/:id
type ActuatorResponse struct {
	Actuator automation.ActuatorView `json:"actuator"`
}

// OverrideResponse is returned from DELETE /actuators/:id/override
type OverrideResponse struct {
	ActuatorID string `json:"actuator_id"`
	Status     string `json:"status"`
}

// DecisionsResponse is returned from GET /decisions
type DecisionsResponse struct {
	Decisions []db.Decision `json:"decisions"`
	Count     int           `json:"count"`
}
