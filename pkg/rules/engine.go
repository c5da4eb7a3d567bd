package rules

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/metrics"
	"github.com/urmzd/hearth/pkg/sensor"
	"github.com/urmzd/hearth/pkg/state"
)

// Fixed actuator ids the rules address directly.
const (
	HVAC          = "hvac_system"
	FireAlarm     = "fire_alarm"
	GasAlarm      = "gas_alarm"
	SecurityAlarm = "security_alarm"
	WaterShutoff  = "water_shutoff"
	Notifier      = "home_notifier"
	LoadShedder   = "load_shedder"
	WindowBlinds  = "window_blinds"
	Skylight      = "skylight"
	Irrigation    = "irrigation_valve"
)

// Engine turns one batch plus the shared state into an ordered list of
// commands. It holds no mutable state of its own.
type Engine struct {
	store    *state.Store
	cfg      config.Rules
	registry *actuator.Registry
	cooldown time.Duration
	advisor  Advisor
	handlers map[sensor.Kind]handler
}

// Option configures an Engine.
type Option func(*Engine)

// WithAdvisor merges advisory commands into the output.
func WithAdvisor(a Advisor) Option {
	return func(e *Engine) { e.advisor = a }
}

// WithCooldown sets the alert cooldown. Zero uses the store default.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) { e.cooldown = d }
}

// New creates an engine over store.
func New(store *state.Store, cfg config.Rules, registry *actuator.Registry, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		cfg:      cfg,
		registry: registry,
		handlers: handlerTable(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the state store the engine decides over.
func (e *Engine) Store() *state.Store { return e.store }

// decision carries what one Process call has learned so far.
type decision struct {
	tx    *state.Tx
	batch sensor.Batch

	sawTemperature bool

	// HVAC wishes raised by other kinds, settled by the climate policy.
	smoke         bool
	smokeLocation string
	ventilate     bool
	ventReason    string
	co2Clear      bool
}

// climateJudged reports whether the climate policy had data to decide HVAC
// on in this batch, whether or not it moved it.
func (d *decision) climateJudged() bool {
	return d.sawTemperature || d.smoke
}

// Process evaluates one batch. The whole evaluation runs inside a single
// store critical section, so concurrent batches never observe each other
// half-applied. The only error is a rejected envelope.
func (e *Engine) Process(b sensor.Batch) ([]actuator.Command, error) {
	if err := b.Validate(); err != nil {
		metrics.ObserveBatch("rejected", 0)
		return nil, err
	}

	start := time.Now()
	var out []actuator.Command
	e.store.Atomically(func(tx *state.Tx) {
		out = e.decide(tx, b)
	})
	metrics.ObserveBatch("ok", time.Since(start))

	for _, c := range out {
		metrics.IncCommandEmitted(c.ActuatorID)
	}
	log.Debug().
		Str("device_id", b.DeviceID).
		Str("location", b.Location).
		Int("readings", len(b.Readings)).
		Int("commands", len(out)).
		Msg("Batch processed")
	return out, nil
}

func (e *Engine) decide(tx *state.Tx, b sensor.Batch) []actuator.Command {
	d := &decision{tx: tx, batch: b}

	for _, r := range b.Readings {
		v, ok := r.Float()
		if !ok {
			continue
		}
		tx.AppendHistory(b.DeviceID, b.Location, r.Kind, v)
		if r.Kind == sensor.KindTemperature {
			d.sawTemperature = true
		}
	}

	var cands []candidate
	for _, r := range b.Readings {
		h := e.handlers[r.Kind]
		if h == nil {
			continue
		}
		v, ok := r.Float()
		if !ok {
			log.Debug().
				Str("device_id", b.DeviceID).
				Str("sensor_type", r.Kind.String()).
				Str("value", r.Value.String()).
				Msg("Skipping non-numeric reading")
			continue
		}
		cands = append(cands, h(e, d, r, v)...)
	}

	cands = append(cands, e.climate(d)...)
	cands = append(cands, e.composites(d)...)

	g := newGate(e, tx)
	out := g.apply(cands)

	if e.advisor != nil {
		out = append(out, g.merge(d, e.advisor.Advise(e.adviceInput(d)))...)
	}
	return out
}

// command builds a system command stamped with the decision instant.
func (e *Engine) command(d *decision, id, st, reason string) actuator.Command {
	cmd := actuator.Command{
		ActuatorID:  id,
		State:       st,
		Reason:      reason,
		TriggeredBy: actuator.TriggeredBySystem,
		Timestamp:   d.tx.Now(),
	}
	if spec, ok := e.registry.Get(id); ok {
		cmd.ActuatorType = spec.Type
	}
	return cmd
}
