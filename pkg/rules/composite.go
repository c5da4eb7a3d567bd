package rules

import (
	"fmt"
	"strings"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/sensor"
)

// composites evaluates rules that need several readings from the same
// batch. History is not consulted.
func (e *Engine) composites(d *decision) []candidate {
	var out []candidate
	if c, ok := e.ventilationEmergency(d); ok {
		out = append(out, c)
	}
	if c, ok := e.unauthorizedEntry(d); ok {
		out = append(out, c)
	}
	return out
}

// ventilationEmergency fires when heat and gas rise together wherever an
// exhaust is installed.
func (e *Engine) ventilationEmergency(d *decision) (candidate, bool) {
	b := d.batch
	exhaust := actuator.ExhaustAt(b.Location)
	if !e.registry.Has(exhaust) {
		return candidate{}, false
	}
	temp, ok := b.Numeric(sensor.KindTemperature)
	if !ok {
		return candidate{}, false
	}
	gas, ok := b.Numeric(sensor.KindGas)
	if !ok {
		return candidate{}, false
	}
	k := e.cfg.Kitchen
	if temp <= k.Temperature || gas <= k.Gas {
		return candidate{}, false
	}
	reason := fmt.Sprintf("Emergency ventilation at %s: temp=%.1f°C, gas=%.1fppm", b.Location, temp, gas)
	return e.safetyLevel(d, exhaust, "high", reason), true
}

// unauthorizedEntry fires on motion with the door open and no credential
// presented, at an entry location.
func (e *Engine) unauthorizedEntry(d *decision) (candidate, bool) {
	b := d.batch
	if !e.cfg.IsEntry(b.Location) {
		return candidate{}, false
	}
	id := actuator.LightsAt(b.Location)
	if !e.registry.Has(id) {
		return candidate{}, false
	}
	motion, ok := b.Numeric(sensor.KindMotion)
	if !ok || !detected(motion) {
		return candidate{}, false
	}
	door, ok := b.Numeric(sensor.KindDoor)
	if !ok || detected(door) {
		return candidate{}, false
	}
	rfid, ok := b.Find(sensor.KindRFID)
	if !ok || !absentCredential(rfid.Value) {
		return candidate{}, false
	}
	return e.normal(d, id, "on", "Potential unauthorized entry detected").withValue(100).escalated(), true
}

func absentCredential(v sensor.Value) bool {
	if v.IsNull() {
		return true
	}
	if v.Type() != sensor.ValueText {
		return false
	}
	s := strings.TrimSpace(v.String())
	return s == "" || strings.EqualFold(s, "none")
}
