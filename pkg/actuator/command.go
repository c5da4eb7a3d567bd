package actuator

import (
	"fmt"
	"time"
)

// Sources of a command.
const (
	TriggeredBySystem  = "system"
	TriggeredByUser    = "user"
	TriggeredByAdvisor = "advisor"
)

// Command is an intent for one actuator. The engine never assumes it was
// carried out; the dispatcher reports the outcome back through Feedback.
type Command struct {
	ID           string    `json:"command_id,omitempty"`
	ActuatorID   string    `json:"actuator_id"`
	ActuatorType string    `json:"actuator_type"`
	State        string    `json:"state"`
	Value        *int      `json:"value,omitempty"`
	Reason       string    `json:"reason"`
	TriggeredBy  string    `json:"triggered_by"`
	Timestamp    time.Time `json:"timestamp"`
}

// IntValue returns a pointer to v, for Command.Value.
func IntValue(v int) *int { return &v }

func (c Command) String() string {
	if c.Value != nil {
		return fmt.Sprintf("%s -> %s@%d (%s)", c.ActuatorID, c.State, *c.Value, c.Reason)
	}
	return fmt.Sprintf("%s -> %s (%s)", c.ActuatorID, c.State, c.Reason)
}

// Payload is the document validated against the actuator's state schema.
func (c Command) Payload() map[string]any {
	p := map[string]any{"state": c.State}
	if c.Value != nil {
		p["value"] = float64(*c.Value)
	}
	return p
}
