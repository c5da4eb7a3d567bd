package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/anomaly"
	"github.com/urmzd/hearth/pkg/api/types"
	"github.com/urmzd/hearth/pkg/automation"
	"github.com/urmzd/hearth/pkg/db"
	"github.com/urmzd/hearth/pkg/sensor"
)

// Automation is the part of automation.Service the handlers use.
type Automation interface {
	Ingest(ctx context.Context, b sensor.Batch) (automation.Result, error)
	IngestGateway(ctx context.Context, b sensor.Batch) (automation.GatewayResult, error)
	ManualControl(ctx context.Context, id, state string, value *int) (actuator.Result, error)
	ClearOverride(id string) error
	Actuators() []automation.ActuatorView
	Actuator(id string) (automation.ActuatorView, error)
	GatewayStats() anomaly.Stats
	RecentDecisions(ctx context.Context, n int) ([]db.Decision, error)
	DriverConnected() bool
	Subscribe() chan automation.Event
	Unsubscribe(ch chan automation.Event)
}

// writeError maps domain errors onto status codes.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, sensor.ErrInvalidEnvelope):
		status, code = http.StatusBadRequest, "invalid_envelope"
	case errors.Is(err, sensor.ErrMalformedPayload):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, actuator.ErrUnknownActuator):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, actuator.ErrInvalidState):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, actuator.ErrTimeout):
		status, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, actuator.ErrNotConnected):
		status, code = http.StatusServiceUnavailable, "driver_disconnected"
	case errors.Is(err, automation.ErrNoJournal):
		status, code = http.StatusServiceUnavailable, "no_journal"
	}
	c.JSON(status, types.ErrorResponse{Error: code, Message: err.Error()})
}
