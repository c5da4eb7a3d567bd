package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/hearth/pkg/sensor"
)

// TelemetryHandler accepts sensor batches over HTTP
type TelemetryHandler struct {
	svc Automation
}

// NewTelemetryHandler creates a new telemetry handler
func NewTelemetryHandler(svc Automation) *TelemetryHandler {
	return &TelemetryHandler{svc: svc}
}

// Ingest handles POST /telemetry
// @Summary      Submit a sensor batch
// @Description  Runs a JSON batch through the rule engine and dispatches the resulting commands
// @Tags         telemetry
// @Accept       json
// @Produce      json
// @Param        request  body      sensor.Batch  true  "Sensor batch"
// @Success      200      {object}  automation.Result
// @Failure      400      {object}  types.ErrorResponse  "Invalid envelope or body"
// @Router       /telemetry [post]
func (h *TelemetryHandler) Ingest(c *gin.Context) {
	b, err := sensor.DecodeJSON(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.Ingest(c.Request.Context(), b)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// IngestXML handles POST /telemetry/xml
// @Summary      Submit a sensor batch as XML
// @Description  Accepts the <sensor_data> document some devices emit
// @Tags         telemetry
// @Accept       xml
// @Produce      json
// @Success      200  {object}  automation.Result
// @Failure      400  {object}  types.ErrorResponse  "Invalid envelope or body"
// @Router       /telemetry/xml [post]
func (h *TelemetryHandler) IngestXML(c *gin.Context) {
	b, err := sensor.DecodeXML(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.Ingest(c.Request.Context(), b)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// IngestGateway handles POST /gateway/telemetry
// @Summary      Filter and submit a sensor batch
// @Description  Removes range and IQR outliers, then ingests the accepted readings
// @Tags         gateway
// @Accept       json
// @Produce      json
// @Param        request  body      sensor.Batch  true  "Sensor batch"
// @Success      200      {object}  automation.GatewayResult
// @Failure      400      {object}  types.ErrorResponse  "Invalid envelope or body"
// @Router       /gateway/telemetry [post]
func (h *TelemetryHandler) IngestGateway(c *gin.Context) {
	b, err := sensor.DecodeJSON(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.IngestGateway(c.Request.Context(), b)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GatewayStats handles GET /gateway/stats
// @Summary      Gateway filtering statistics
// @Tags         gateway
// @Produce      json
// @Success      200  {object}  anomaly.Stats
// @Router       /gateway/stats [get]
func (h *TelemetryHandler) GatewayStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.GatewayStats())
}
