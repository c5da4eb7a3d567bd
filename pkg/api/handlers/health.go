package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/hearth/pkg/api/types"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	svc Automation
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(svc Automation) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health status of the API and the actuator driver
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	driver := "disconnected"
	status, httpStatus := "degraded", http.StatusServiceUnavailable
	if h.svc.DriverConnected() {
		driver = "connected"
		status, httpStatus = "healthy", http.StatusOK
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		Driver:    driver,
		Timestamp: time.Now(),
	})
}
