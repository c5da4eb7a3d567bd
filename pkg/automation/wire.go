package automation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/anomaly"
	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/db"
	"github.com/urmzd/hearth/pkg/rules"
	"github.com/urmzd/hearth/pkg/state"
)

// Build assembles a Service from configuration. With a database, actuator
// states persisted by an earlier run take precedence over configured
// initial states, and every command and decision is logged. A nil driver
// uses the loopback driver.
func Build(ctx context.Context, cfg config.Config, database *db.DB, driver actuator.Driver, clk clock.Clock) (*Service, error) {
	if clk == nil {
		clk = clock.System{}
	}

	registry, err := actuator.NewRegistry(cfg.Actuators)
	if err != nil {
		return nil, fmt.Errorf("failed to build actuator registry: %w", err)
	}

	initial := registry.InitialStates()
	if database != nil {
		if err := database.SeedActuators(ctx, initial, clk.Now()); err != nil {
			return nil, err
		}
		persisted, err := database.ActuatorStates(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load actuator states: %w", err)
		}
		for id, st := range persisted {
			if spec, ok := registry.Get(id); ok && spec.Accepts(st) {
				initial[id] = st
			}
		}
	}

	store := state.New(clk, state.OptionsFrom(cfg.State), initial)

	var engineOpts []rules.Option
	if cfg.Advisor.Enabled {
		engineOpts = append(engineOpts, rules.WithAdvisor(rules.NewHeuristicAdvisor(cfg.Advisor)))
	}
	engine := rules.New(store, cfg.Rules, registry, engineOpts...)

	dispatchOpts := []actuator.DispatcherOption{actuator.WithClock(clk)}
	opts := Options{
		Config: cfg,
		Clock:  clk,
		Store:  store,
		Filter: anomaly.New(cfg.Anomaly, anomaly.WithClock(clk)),
		Engine: engine,
	}
	if database != nil {
		dispatchOpts = append(dispatchOpts, actuator.WithRecorder(database))
		opts.Journal = database
	}
	opts.Dispatcher = actuator.NewDispatcher(registry, driver, store, dispatchOpts...)

	log.Info().
		Int("actuators", len(registry.List())).
		Bool("advisor", cfg.Advisor.Enabled).
		Bool("persistent", database != nil).
		Msg("Automation service ready")
	return New(opts), nil
}
