package rules

import (
	"fmt"
	"math"
	"sort"

	"github.com/urmzd/hearth/pkg/sensor"
	"github.com/urmzd/hearth/pkg/state"
)

// Climate is the pooled view of recent temperatures across locations.
type Climate struct {
	// Avg is the weighted mean of per-location means.
	Avg float64 `json:"avg"`
	// Max and Min are taken over raw samples.
	Max       float64            `json:"max"`
	Min       float64            `json:"min"`
	Samples   int                `json:"samples"`
	Locations map[string]float64 `json:"locations"`
}

// Aggregate pools samples: each location is reduced to its mean, and the
// means are averaged with weight(location). It reports false for an empty
// pool.
func Aggregate(samples []state.Sample, weight func(location string) float64) (Climate, bool) {
	if len(samples) == 0 {
		return Climate{}, false
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	c := Climate{
		Max:       math.Inf(-1),
		Min:       math.Inf(1),
		Samples:   len(samples),
		Locations: make(map[string]float64),
	}
	for _, s := range samples {
		sums[s.Location] += s.Value
		counts[s.Location]++
		c.Max = math.Max(c.Max, s.Value)
		c.Min = math.Min(c.Min, s.Value)
	}

	locations := make([]string, 0, len(sums))
	for loc := range sums {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	var weighted, total float64
	for _, loc := range locations {
		mean := sums[loc] / float64(counts[loc])
		c.Locations[loc] = mean
		w := weight(loc)
		weighted += mean * w
		total += w
	}
	if total <= 0 {
		return Climate{}, false
	}
	c.Avg = weighted / total
	return c, true
}

// pooledClimate aggregates the temperature pool as of the decision instant.
func (e *Engine) pooledClimate(d *decision) (Climate, bool) {
	since := d.tx.Now().Add(-e.cfg.Temperature.PoolWindow)
	return Aggregate(d.tx.Pool(sensor.KindTemperature, since), e.cfg.Weight)
}

// climate settles the single HVAC decision for the batch. Priority: smoke
// shutdown, critical heat, the four hysteresis transitions, then a
// ventilation request. It returns at most one HVAC candidate, plus the fire
// alarm on critical heat.
func (e *Engine) climate(d *decision) []candidate {
	current := d.tx.ActuatorState(HVAC)

	if d.smoke {
		if current == "off" {
			return nil
		}
		return []candidate{e.safetyLevel(d, HVAC, "off", fmt.Sprintf("Fire safety protocol: smoke at %s", d.smokeLocation))}
	}

	if d.sawTemperature {
		if cands := e.temperaturePolicy(d, current); cands != nil {
			return cands
		}
	}

	switch {
	case d.ventilate && current == "off":
		return []candidate{e.normal(d, HVAC, "fan_only", d.ventReason)}
	case !d.ventilate && d.co2Clear && current == "fan_only":
		return []candidate{e.normal(d, HVAC, "off", "CO2 level normalized")}
	}
	return nil
}

func (e *Engine) temperaturePolicy(d *decision, current string) []candidate {
	c, ok := e.pooledClimate(d)
	if !ok {
		return nil
	}
	t := e.cfg.Temperature
	n := len(c.Locations)

	switch {
	case c.Max >= t.CriticalHigh:
		return []candidate{
			e.safetyLevel(d, HVAC, "cooling", fmt.Sprintf("Critical temperature: %.1f°C (limit %.1f°C)", c.Max, t.CriticalHigh)),
			e.safetyEdge(d, "critical_temperature", FireAlarm, "on", fmt.Sprintf("Critical temperature: %.1f°C", c.Max)),
		}
	case c.Avg > t.High && current != "cooling":
		return []candidate{e.normal(d, HVAC, "cooling", fmt.Sprintf("Pooled temperature %.2f°C above %.1f°C across %d locations", c.Avg, t.High, n))}
	case c.Avg <= t.High-t.Hysteresis && current == "cooling":
		return []candidate{e.normal(d, HVAC, "off", fmt.Sprintf("Pooled temperature %.2f°C back below %.1f°C", c.Avg, t.High-t.Hysteresis))}
	case c.Min < t.Low && current != "heating":
		return []candidate{e.normal(d, HVAC, "heating", fmt.Sprintf("Minimum temperature %.1f°C below %.1f°C", c.Min, t.Low))}
	case c.Avg >= t.Low+t.Hysteresis && current == "heating":
		return []candidate{e.normal(d, HVAC, "off", fmt.Sprintf("Pooled temperature %.2f°C back above %.1f°C", c.Avg, t.Low+t.Hysteresis))}
	}
	return nil
}
