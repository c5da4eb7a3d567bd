package rules

import (
	"fmt"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/sensor"
)

// AdviceInput is what an advisor sees for one batch.
type AdviceInput struct {
	Batch   sensor.Batch
	Climate *Climate
}

// Advisor suggests commands. Its output is merged after the rules and never
// overrides them: advice is dropped for any actuator the rules already
// commanded in the batch, or that is under manual control.
type Advisor interface {
	Advise(in AdviceInput) []actuator.Command
}

// AdvisorFunc adapts a function to Advisor.
type AdvisorFunc func(in AdviceInput) []actuator.Command

func (f AdvisorFunc) Advise(in AdviceInput) []actuator.Command { return f(in) }

// HeuristicAdvisor is the fallback predictor: it suggests an HVAC mode from
// the pooled temperature and the batch's CO2 reading.
type HeuristicAdvisor struct {
	cfg config.Advisor
}

// NewHeuristicAdvisor creates the advisor.
func NewHeuristicAdvisor(cfg config.Advisor) *HeuristicAdvisor {
	return &HeuristicAdvisor{cfg: cfg}
}

func (a *HeuristicAdvisor) Advise(in AdviceInput) []actuator.Command {
	if in.Climate != nil {
		switch {
		case in.Climate.Avg > a.cfg.High:
			return []actuator.Command{a.hvac("cooling", fmt.Sprintf("Predicted cooling demand at %.1f°C", in.Climate.Avg))}
		case in.Climate.Avg < a.cfg.Low:
			return []actuator.Command{a.hvac("heating", fmt.Sprintf("Predicted heating demand at %.1f°C", in.Climate.Avg))}
		}
	}
	if co2, ok := in.Batch.Numeric(sensor.KindCO2); ok && co2 > a.cfg.CO2 {
		return []actuator.Command{a.hvac("fan_only", fmt.Sprintf("Predicted ventilation demand at %g ppm", co2))}
	}
	return nil
}

func (a *HeuristicAdvisor) hvac(st, reason string) actuator.Command {
	return actuator.Command{
		ActuatorID:   HVAC,
		ActuatorType: actuator.TypeClimate,
		State:        st,
		Reason:       reason,
		TriggeredBy:  actuator.TriggeredByAdvisor,
	}
}

func (e *Engine) adviceInput(d *decision) AdviceInput {
	in := AdviceInput{Batch: d.batch}
	if d.sawTemperature {
		if c, ok := e.pooledClimate(d); ok {
			in.Climate = &c
		}
	}
	return in
}
