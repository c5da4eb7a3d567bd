// Package automation wires the pipeline: gateway filter, rule engine and
// dispatcher, with the decision and gateway logs behind them.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/anomaly"
	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/db"
	"github.com/urmzd/hearth/pkg/rules"
	"github.com/urmzd/hearth/pkg/sensor"
	"github.com/urmzd/hearth/pkg/state"
)

// Journal persists what the service did. *db.DB implements it.
type Journal interface {
	RecordDecision(ctx context.Context, d db.Decision) error
	RecentDecisions(ctx context.Context, limit int) ([]db.Decision, error)
	RecordGatewayLog(ctx context.Context, e anomaly.LogEntry) error
}

// Result is the outcome of ingesting one batch.
type Result struct {
	DeviceID   string            `json:"device_id"`
	Location   string            `json:"location"`
	Readings   int               `json:"readings"`
	Outliers   []anomaly.Outlier `json:"outliers,omitempty"`
	Commands   []actuator.Result `json:"commands"`
	DecisionID string            `json:"decision_id,omitempty"`
}

// GatewayResult pairs the filtering output with the decision it fed.
type GatewayResult struct {
	Filtered anomaly.FilteredBatch `json:"filtered"`
	Result   Result                `json:"result"`
}

// ActuatorView is an actuator with its believed state and override status.
type ActuatorView struct {
	ID            string     `json:"actuator_id"`
	Type          string     `json:"actuator_type"`
	Location      string     `json:"location"`
	States        []string   `json:"states"`
	State         string     `json:"state"`
	LastUpdated   time.Time  `json:"last_updated"`
	Overridden    bool       `json:"overridden"`
	OverrideUntil *time.Time `json:"override_until,omitempty"`
}

// Service is the single entry point used by every transport.
type Service struct {
	cfg        config.Config
	clock      clock.Clock
	store      *state.Store
	filter     *anomaly.Filter
	engine     *rules.Engine
	dispatcher *actuator.Dispatcher
	journal    Journal
	newID      func() string
	events     hub
}

// Options are the dependencies of a Service. Store, Filter, Engine and
// Dispatcher are required; a nil Journal disables persistence.
type Options struct {
	Config     config.Config
	Clock      clock.Clock
	Store      *state.Store
	Filter     *anomaly.Filter
	Engine     *rules.Engine
	Dispatcher *actuator.Dispatcher
	Journal    Journal
	NewID      func() string
}

// New creates a service.
func New(opts Options) *Service {
	s := &Service{
		cfg:        opts.Config,
		clock:      opts.Clock,
		store:      opts.Store,
		filter:     opts.Filter,
		engine:     opts.Engine,
		dispatcher: opts.Dispatcher,
		journal:    opts.Journal,
		newID:      opts.NewID,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Ingest runs one batch through the pipeline. Batches from gateway-enabled
// devices are filtered first unless they arrive already filtered.
func (s *Service) Ingest(ctx context.Context, b sensor.Batch) (Result, error) {
	if err := b.Validate(); err != nil {
		return Result{}, err
	}

	var outliers []anomaly.Outlier
	if !b.GatewayProcessed && s.cfg.GatewayEnabled(b.DeviceID) {
		fb := s.filterBatch(ctx, b)
		outliers = fb.Outliers
		b = fb.Batch()
	}

	res, err := s.decide(ctx, b)
	res.Outliers = outliers
	return res, err
}

// IngestGateway always filters, then ingests the accepted readings.
func (s *Service) IngestGateway(ctx context.Context, b sensor.Batch) (GatewayResult, error) {
	if err := b.Validate(); err != nil {
		return GatewayResult{}, err
	}
	fb := s.filterBatch(ctx, b)
	res, err := s.decide(ctx, fb.Batch())
	if err != nil {
		return GatewayResult{}, err
	}
	res.Outliers = fb.Outliers
	return GatewayResult{Filtered: fb, Result: res}, nil
}

func (s *Service) filterBatch(ctx context.Context, b sensor.Batch) anomaly.FilteredBatch {
	fb := s.filter.FilterBatch(b)
	if s.journal != nil {
		entry := anomaly.LogEntry{
			DeviceID: fb.DeviceID,
			Location: fb.Location,
			At:       s.clock.Now(),
			Counts:   fb.Counts,
			Details:  fb.Outliers,
		}
		if err := s.journal.RecordGatewayLog(ctx, entry); err != nil {
			log.Error().Err(err).Str("device_id", b.DeviceID).Msg("Failed to record gateway log")
		}
	}
	return fb
}

func (s *Service) decide(ctx context.Context, b sensor.Batch) (Result, error) {
	res := Result{DeviceID: b.DeviceID, Location: b.Location, Readings: len(b.Readings)}

	cmds, err := s.engine.Process(b)
	if err != nil {
		return res, err
	}
	res.Commands = s.dispatcher.Dispatch(ctx, cmds)
	s.publishResults(res.Commands)
	if len(res.Commands) == 0 {
		return res, nil
	}

	res.DecisionID = s.newID()
	if s.journal != nil {
		d := db.Decision{
			ID:        res.DecisionID,
			DeviceID:  b.DeviceID,
			Location:  b.Location,
			Readings:  b.Readings,
			Results:   res.Commands,
			DecidedAt: s.clock.Now(),
		}
		if err := s.journal.RecordDecision(ctx, d); err != nil {
			log.Error().Err(err).Str("decision_id", d.ID).Msg("Failed to record decision")
		}
	}
	return res, nil
}

// ManualControl applies a user command and puts the actuator under manual
// override, so non-critical automation leaves it alone until the override
// expires or is cleared.
func (s *Service) ManualControl(ctx context.Context, id, st string, value *int) (actuator.Result, error) {
	cmd := actuator.Command{
		ActuatorID:  id,
		State:       st,
		Value:       value,
		Reason:      "Manual control",
		TriggeredBy: actuator.TriggeredByUser,
		Timestamp:   s.clock.Now(),
	}
	if err := s.dispatcher.Validate(cmd); err != nil {
		return actuator.Result{}, err
	}

	s.store.SetOverride(id)
	s.publishOverride(id, true)
	res := s.dispatcher.Dispatch(ctx, []actuator.Command{cmd})[0]
	s.publishResults([]actuator.Result{res})
	if res.Status == actuator.StatusFailed {
		return res, fmt.Errorf("failed to apply %s: %s", id, res.Error)
	}
	log.Info().Str("actuator_id", id).Str("state", st).Msg("Manual override set")
	return res, nil
}

// ClearOverride returns an actuator to automatic control.
func (s *Service) ClearOverride(id string) error {
	if !s.dispatcher.Registry().Has(id) {
		return fmt.Errorf("%w: %s", actuator.ErrUnknownActuator, id)
	}
	s.store.ClearOverride(id)
	s.publishOverride(id, false)
	log.Info().Str("actuator_id", id).Msg("Manual override cleared")
	return nil
}

// Actuators lists every registered actuator, sorted by id.
func (s *Service) Actuators() []ActuatorView {
	states := s.store.Actuators()
	overrides := s.store.ActiveOverrides()

	specs := s.dispatcher.Registry().List()
	out := make([]ActuatorView, 0, len(specs))
	for _, spec := range specs {
		out = append(out, view(spec, states, overrides))
	}
	return out
}

// Actuator returns one actuator.
func (s *Service) Actuator(id string) (ActuatorView, error) {
	spec, ok := s.dispatcher.Registry().Get(id)
	if !ok {
		return ActuatorView{}, fmt.Errorf("%w: %s", actuator.ErrUnknownActuator, id)
	}
	return view(spec, s.store.Actuators(), s.store.ActiveOverrides()), nil
}

func view(spec actuator.Spec, states map[string]state.ActuatorState, overrides map[string]time.Time) ActuatorView {
	v := ActuatorView{
		ID:       spec.ID,
		Type:     spec.Type,
		Location: spec.Location,
		States:   spec.States,
		State:    state.DefaultState,
	}
	if st, ok := states[spec.ID]; ok {
		v.State = st.State
		v.LastUpdated = st.LastUpdated
	}
	if until, ok := overrides[spec.ID]; ok {
		v.Overridden = true
		v.OverrideUntil = &until
	}
	return v
}

// GatewayStats summarises gateway filtering since startup.
func (s *Service) GatewayStats() anomaly.Stats {
	return s.filter.Stats()
}

// ErrNoJournal is returned by history queries when persistence is off.
var ErrNoJournal = errors.New("decision log not configured")

// RecentDecisions returns up to n decisions, newest first.
func (s *Service) RecentDecisions(ctx context.Context, n int) ([]db.Decision, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	return s.journal.RecentDecisions(ctx, n)
}

// DriverConnected reports whether the actuator driver is usable.
func (s *Service) DriverConnected() bool {
	return s.dispatcher.Driver().IsConnected()
}
