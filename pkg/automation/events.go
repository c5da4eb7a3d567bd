package automation

import (
	"sync"
	"time"

	"github.com/urmzd/hearth/pkg/actuator"
)

// Event types.
const (
	EventCommand  = "command"
	EventOverride = "override"
)

// Event is pushed to subscribers for every dispatched command and every
// override change.
type Event struct {
	Type       string           `json:"type"`
	ActuatorID string           `json:"actuator_id"`
	Result     *actuator.Result `json:"result,omitempty"`
	Overridden bool             `json:"overridden,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// hub fans events out to subscribers. Slow subscribers miss events rather
// than block the pipeline.
type hub struct {
	mu   sync.Mutex
	subs []chan Event
}

func (h *hub) subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs = append(h.subs, ch)
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.subs {
		if sub == ch {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (h *hub) publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe returns a channel of events. Release it with Unsubscribe.
func (s *Service) Subscribe() chan Event {
	return s.events.subscribe()
}

// Unsubscribe stops delivery and closes ch.
func (s *Service) Unsubscribe(ch chan Event) {
	s.events.unsubscribe(ch)
}

func (s *Service) publishResults(results []actuator.Result) {
	for i := range results {
		res := results[i]
		s.events.publish(Event{
			Type:       EventCommand,
			ActuatorID: res.Command.ActuatorID,
			Result:     &res,
			Timestamp:  s.clock.Now(),
		})
	}
}

func (s *Service) publishOverride(id string, active bool) {
	s.events.publish(Event{
		Type:       EventOverride,
		ActuatorID: id,
		Overridden: active,
		Timestamp:  s.clock.Now(),
	})
}
