package actuator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/actuator/schema"
	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/metrics"
)

// Result statuses.
const (
	StatusApplied = "applied"
	StatusDropped = "dropped"
	StatusFailed  = "failed"
)

// Result is the outcome of dispatching one command.
type Result struct {
	Command       Command `json:"command"`
	Status        string  `json:"status"`
	ReportedState string  `json:"reported_state,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Feedback receives the state an actuator reported after a command.
type Feedback interface {
	UpdateActuatorState(id, state string)
}

// Recorder persists dispatched commands.
type Recorder interface {
	RecordCommand(ctx context.Context, res Result) error
}

// Dispatcher is the boundary between decisions and hardware. It drops
// commands for unregistered actuators or invalid states, stamps the rest
// with an id, applies them, records them, and feeds the reported state back.
type Dispatcher struct {
	registry  *Registry
	validator *schema.Validator
	driver    Driver
	feedback  Feedback
	recorder  Recorder
	clock     clock.Clock
	newID     func() string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder persists every result.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithClock sets the time source for command timestamps.
func WithClock(c clock.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithIDGenerator replaces uuid generation, for tests.
func WithIDGenerator(fn func() string) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// NewDispatcher creates a dispatcher. A nil driver falls back to loopback.
func NewDispatcher(registry *Registry, driver Driver, feedback Feedback, opts ...DispatcherOption) *Dispatcher {
	if driver == nil {
		driver = NewLoopbackDriver()
	}
	d := &Dispatcher{
		registry:  registry,
		validator: schema.NewValidator(),
		driver:    driver,
		feedback:  feedback,
		clock:     clock.System{},
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the actuator registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Driver returns the underlying driver.
func (d *Dispatcher) Driver() Driver { return d.driver }

// Validate checks that cmd targets a registered actuator with an accepted
// state, without dispatching it.
func (d *Dispatcher) Validate(cmd Command) error {
	spec, ok := d.registry.Get(cmd.ActuatorID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActuator, cmd.ActuatorID)
	}
	if err := d.validator.Validate(spec.ID, spec.StateSchema, cmd.Payload()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidState, cmd.ActuatorID, err)
	}
	return nil
}

// Dispatch applies cmds in order. A failure on one command never stops the
// rest.
func (d *Dispatcher) Dispatch(ctx context.Context, cmds []Command) []Result {
	results := make([]Result, 0, len(cmds))
	for _, cmd := range cmds {
		results = append(results, d.dispatch(ctx, cmd))
	}
	return results
}

func (d *Dispatcher) dispatch(ctx context.Context, cmd Command) Result {
	if cmd.ID == "" {
		cmd.ID = d.newID()
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = d.clock.Now()
	}
	if spec, ok := d.registry.Get(cmd.ActuatorID); ok && cmd.ActuatorType == "" {
		cmd.ActuatorType = spec.Type
	}

	if err := d.Validate(cmd); err != nil {
		reason := "invalid_state"
		if errors.Is(err, ErrUnknownActuator) {
			reason = "unregistered"
		}
		metrics.IncCommandDropped(reason)
		log.Warn().
			Err(err).
			Str("actuator_id", cmd.ActuatorID).
			Str("state", cmd.State).
			Msg("Dropping command")
		res := Result{Command: cmd, Status: StatusDropped, Error: err.Error()}
		d.record(ctx, res)
		return res
	}

	reported, err := d.driver.Apply(ctx, cmd)
	if err != nil {
		metrics.IncCommandApplied("error")
		log.Error().
			Err(err).
			Str("actuator_id", cmd.ActuatorID).
			Str("state", cmd.State).
			Msg("Failed to apply command")
		res := Result{Command: cmd, Status: StatusFailed, Error: err.Error()}
		d.record(ctx, res)
		return res
	}

	metrics.IncCommandApplied("ok")
	if d.feedback != nil {
		d.feedback.UpdateActuatorState(cmd.ActuatorID, reported)
	}
	log.Info().
		Str("command_id", cmd.ID).
		Str("actuator_id", cmd.ActuatorID).
		Str("state", reported).
		Str("triggered_by", cmd.TriggeredBy).
		Str("reason", cmd.Reason).
		Msg("Command applied")

	res := Result{Command: cmd, Status: StatusApplied, ReportedState: reported}
	d.record(ctx, res)
	return res
}

func (d *Dispatcher) record(ctx context.Context, res Result) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordCommand(ctx, res); err != nil {
		log.Error().Err(err).Str("command_id", res.Command.ID).Msg("Failed to record command")
	}
}
