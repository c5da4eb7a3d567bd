package actuator

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/urmzd/hearth/pkg/actuator/schema"
	"github.com/urmzd/hearth/pkg/config"
)

// Actuator type constants used by the rules.
const (
	TypeClimate      = "climate_control"
	TypeLight        = "light"
	TypeFan          = "fan"
	TypeAlarm        = "alarm"
	TypeValve        = "valve"
	TypeMotor        = "motor"
	TypeDehumidifier = "dehumidifier"
	TypeNotifier     = "notifier"
	TypeEnergy       = "energy"
	TypeBlinds       = "blinds"
	TypeWindow       = "window"
)

// Spec describes one registered actuator.
type Spec struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Location    string          `json:"location"`
	States      []string        `json:"states"`
	Initial     string          `json:"initial_state"`
	Dimmable    bool            `json:"dimmable,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	StateSchema json.RawMessage `json:"state_schema"`
}

// Accepts reports whether state is one of the actuator's states.
func (s Spec) Accepts(state string) bool {
	for _, st := range s.States {
		if st == state {
			return true
		}
	}
	return false
}

// Registry is the immutable set of actuators the system may command.
type Registry struct {
	byID map[string]Spec
	ids  []string
}

// NewRegistry builds a registry from configuration.
func NewRegistry(entries []config.Actuator) (*Registry, error) {
	r := &Registry{byID: make(map[string]Spec, len(entries))}
	for _, e := range entries {
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate actuator %q", e.ID)
		}
		spec := Spec{
			ID:       e.ID,
			Type:     e.Type,
			Location: e.Location,
			States:   append([]string(nil), e.States...),
			Initial:  e.Initial,
			Dimmable: e.Dimmable,
			Priority: e.Priority,
		}
		if spec.Initial == "" && len(spec.States) > 0 {
			spec.Initial = spec.States[0]
		}
		if !spec.Accepts(spec.Initial) {
			return nil, fmt.Errorf("actuator %q: initial state %q: %w", e.ID, spec.Initial, ErrInvalidState)
		}
		spec.StateSchema = schema.StateSchema(spec.States, spec.Type == TypeLight)
		r.byID[e.ID] = spec
		r.ids = append(r.ids, e.ID)
	}
	sort.Strings(r.ids)
	return r, nil
}

// Get returns the spec for id.
func (r *Registry) Get(id string) (Spec, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// List returns every spec ordered by id.
func (r *Registry) List() []Spec {
	out := make([]Spec, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}

// Find returns the first actuator, by id order, of the given type at location.
func (r *Registry) Find(location, typ string) (Spec, bool) {
	for _, id := range r.ids {
		s := r.byID[id]
		if s.Location == location && s.Type == typ {
			return s, true
		}
	}
	return Spec{}, false
}

// InitialStates returns id -> initial state, for seeding the state cache.
func (r *Registry) InitialStates() map[string]string {
	out := make(map[string]string, len(r.byID))
	for id, s := range r.byID {
		out[id] = s.Initial
	}
	return out
}

// LightsAt returns the conventional light id for a location.
func LightsAt(location string) string { return location + "_lights" }

// ExhaustAt returns the conventional exhaust id for a location.
func ExhaustAt(location string) string { return location + "_exhaust" }
