package handlers

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// EventsHandler streams command and override events
type EventsHandler struct {
	svc       Automation
	heartbeat time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(svc Automation) *EventsHandler {
	return &EventsHandler{svc: svc, heartbeat: 30 * time.Second}
}

// Events handles GET /events (SSE stream)
// @Summary      Subscribe to actuator events
// @Description  Server-Sent Events stream of dispatched commands and override changes
// @Tags         events
// @Produce      text/event-stream
// @Success      200  {string}  string  "SSE event stream"
// @Router       /events [get]
func (h *EventsHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	events := h.svc.Subscribe()
	defer h.svc.Unsubscribe(events)

	sendSSEEvent(c.Writer, "connected", map[string]any{
		"timestamp": time.Now(),
		"message":   "Connected to actuator event stream",
	})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case evt, ok := <-events:
			if !ok {
				return
			}
			sendSSEEvent(c.Writer, evt.Type, evt)
			c.Writer.Flush()

		case <-ticker.C:
			sendSSEEvent(c.Writer, "heartbeat", map[string]any{"timestamp": time.Now()})
			c.Writer.Flush()
		}
	}
}

func sendSSEEvent(w io.Writer, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: "+string(jsonData)+"\n\n")
}
