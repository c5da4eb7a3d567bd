package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/hearth/pkg/api/types"
)

// ActuatorsHandler handles actuator listing and manual control
type ActuatorsHandler struct {
	svc Automation
}

// NewActuatorsHandler creates a new actuators handler
func NewActuatorsHandler(svc Automation) *ActuatorsHandler {
	return &ActuatorsHandler{svc: svc}
}

// ListActuators handles GET /actuators
// @Summary      List actuators
// @Description  Returns every registered actuator with its believed state and override status
// @Tags         actuators
// @Produce      json
// @Success      200  {object}  types.ListActuatorsResponse
// @Router       /actuators [get]
func (h *ActuatorsHandler) ListActuators(c *gin.Context) {
	list := h.svc.Actuators()
	c.JSON(http.StatusOK, types.ListActuatorsResponse{Actuators: list, Count: len(list)})
}

// GetActuator handles GET /actuators/:id
// @Summary      Get actuator
// @Tags         actuators
// @Produce      json
// @Param        id   path      string  true  "Actuator id"
// @Success      200  {object}  types.ActuatorResponse
// @Failure      404  {object}  types.ErrorResponse  "Actuator not found"
// @Router       /actuators/{id} [get]
func (h *ActuatorsHandler) GetActuator(c *gin.Context) {
	v, err := h.svc.Actuator(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ActuatorResponse{Actuator: v})
}

// SetState handles POST /actuators/:id/state
// @Summary      Set actuator state
// @Description  Applies a user command and places the actuator under manual override
// @Tags         actuators
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Actuator id"
// @Param        request  body      types.SetStateRequest  true  "Target state"
// @Success      200      {object}  actuator.Result
// @Failure      400      {object}  types.ErrorResponse  "Invalid state"
// @Failure      404      {object}  types.ErrorResponse  "Actuator not found"
// @Failure      500      {object}  types.ErrorResponse  "Driver error"
// @Router       /actuators/{id}/state [post]
func (h *ActuatorsHandler) SetState(c *gin.Context) {
	var req types.SetStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	res, err := h.svc.ManualControl(c.Request.Context(), c.Param("id"), req.State, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ClearOverride handles DELETE /actuators/:id/override
// @Summary      Return an actuator to automatic control
// @Tags         actuators
// @Produce      json
// @Param        id   path      string  true  "Actuator id"
// @Success      200  {object}  types.OverrideResponse
// @Failure      404  {object}  types.ErrorResponse  "Actuator not found"
// @Router       /actuators/{id}/override [delete]
func (h *ActuatorsHandler) ClearOverride(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.ClearOverride(id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.OverrideResponse{ActuatorID: id, Status: "automatic"})
}

// RecentDecisions handles GET /decisions
// @Summary      Recent decisions
// @Tags         decisions
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of decisions"  default(20)
// @Success      200    {object}  types.DecisionsResponse
// @Failure      503    {object}  types.ErrorResponse  "Decision log unavailable"
// @Router       /decisions [get]
func (h *ActuatorsHandler) RecentDecisions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "limit must be a positive integer",
		})
		return
	}
	decisions, err := h.svc.RecentDecisions(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DecisionsResponse{Decisions: decisions, Count: len(decisions)})
}
