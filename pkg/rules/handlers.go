package rules

import (
	"fmt"
	"strings"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/sensor"
)

// handler evaluates one numeric reading. It may append candidates and raise
// HVAC wishes on d, and nothing else.
type handler func(e *Engine, d *decision, r sensor.Reading, v float64) []candidate

// handlerTable maps every known kind. Kinds with a nil entry are read by
// other rules (context) or aggregated later (temperature).
func handlerTable() map[sensor.Kind]handler {
	return map[sensor.Kind]handler{
		sensor.KindTemperature:     nil,
		sensor.KindHumidity:        humidityRule,
		sensor.KindPressure:        nil,
		sensor.KindLight:           lightRule,
		sensor.KindMotion:          motionRule,
		sensor.KindCO2:             co2Rule,
		sensor.KindGas:             gasRule,
		sensor.KindSmoke:           smokeRule,
		sensor.KindDistance:        distanceRule,
		sensor.KindWaterLeak:       waterLeakRule,
		sensor.KindDoor:            doorRule,
		sensor.KindRFID:            nil,
		sensor.KindObjectDetection: nil,
		sensor.KindSignalStrength:  nil,
		sensor.KindSound:           soundRule,
		sensor.KindVibration:       vibrationRule,
		sensor.KindEnergy:          energyRule,
		sensor.KindUV:              uvRule,
		sensor.KindRain:            rainRule,
		sensor.KindGlassBreak:      glassBreakRule,
		sensor.KindPressureMat:     pressureMatRule,
	}
}

func detected(v float64) bool { return v >= 0.5 }

func humidityRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	loc := d.batch.Location
	dehum, ok := e.registry.Find(loc, actuator.TypeDehumidifier)
	if !ok {
		return nil
	}
	band := e.cfg.Humidity
	switch {
	case v > band.High:
		return []candidate{e.level(d, dehum.ID, "on", fmt.Sprintf("High humidity: %g%% at %s", v, loc))}
	case v >= band.Low:
		return []candidate{e.level(d, dehum.ID, "off", fmt.Sprintf("Humidity normalized: %g%% at %s", v, loc))}
	}
	return nil
}

func lightRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	loc := d.batch.Location
	id := actuator.LightsAt(loc)
	if !e.registry.Has(id) {
		return nil
	}
	cfg := e.cfg.Light
	switch {
	case v < cfg.Dark:
		if cfg.RequireMotion && !d.tx.RecentMotion(loc, e.cfg.Motion.Timeout) {
			return nil
		}
		return []candidate{e.level(d, id, "on", fmt.Sprintf("Dark environment: %g lux with motion at %s", v, loc)).withValue(cfg.Brightness)}
	case v > cfg.Bright:
		return []candidate{e.level(d, id, "off", fmt.Sprintf("Bright environment: %g lux at %s", v, loc))}
	}
	return nil
}

func motionRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	loc := d.batch.Location
	id := actuator.LightsAt(loc)

	if detected(v) {
		d.tx.MarkMotion(loc)
		if !e.registry.Has(id) {
			return nil
		}
		if light, ok := d.tx.Latest(loc, sensor.KindLight); ok && light.Value < e.cfg.Light.Dark {
			return []candidate{e.level(d, id, "on", fmt.Sprintf("Motion detected in dark area at %s", loc)).withValue(e.cfg.Light.Brightness)}
		}
		return nil
	}

	if e.registry.Has(id) && !d.tx.RecentMotion(loc, e.cfg.Motion.Timeout) {
		return []candidate{e.level(d, id, "off", fmt.Sprintf("No motion timeout at %s", loc))}
	}
	return nil
}

func co2Rule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	loc := d.batch.Location
	cfg := e.cfg.CO2
	if v <= cfg.Warning {
		d.co2Clear = true
		return nil
	}

	d.ventilate = true
	if v > cfg.Critical {
		d.ventReason = fmt.Sprintf("Critical CO2 level: %g ppm at %s", v, loc)
		if id := actuator.ExhaustAt(loc); e.registry.Has(id) {
			return []candidate{e.level(d, id, "high", fmt.Sprintf("Critical CO2 level: %g ppm", v)).escalated()}
		}
		return nil
	}
	if d.ventReason == "" {
		d.ventReason = fmt.Sprintf("Elevated CO2 level: %g ppm at %s", v, loc)
	}
	return nil
}

func gasRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	loc := d.batch.Location
	cfg := e.cfg.Gas
	exhaust := actuator.ExhaustAt(loc)
	hasExhaust := e.registry.Has(exhaust)

	switch {
	case v > cfg.Critical:
		out := []candidate{e.safetyLevel(d, GasAlarm, "on", fmt.Sprintf("Critical gas level: %g ppm at %s", v, loc))}
		if hasExhaust {
			out = append(out, e.safetyLevel(d, exhaust, "high", fmt.Sprintf("Emergency ventilation for gas: %g ppm", v)))
		}
		return out
	case v > cfg.Warning:
		if hasExhaust {
			return []candidate{e.level(d, exhaust, "medium", fmt.Sprintf("Elevated gas level: %g ppm at %s", v, loc))}
		}
		return nil
	default:
		return []candidate{e.level(d, GasAlarm, "off", fmt.Sprintf("Gas level cleared: %g ppm at %s", v, loc))}
	}
}

func smokeRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	if !detected(v) {
		return nil
	}
	loc := d.batch.Location
	d.smoke = true
	d.smokeLocation = loc
	return []candidate{e.safetyEdge(d, FireAlarm, FireAlarm, "on", fmt.Sprintf("Smoke detected at %s", loc))}
}

func distanceRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	motor, ok := e.registry.Find(d.batch.Location, actuator.TypeMotor)
	if !ok {
		return nil
	}
	cfg := e.cfg.Distance
	switch {
	case v < cfg.Critical:
		return []candidate{e.level(d, motor.ID, "paused", fmt.Sprintf("Critical obstacle at %gcm", v))}
	case v < cfg.Obstacle:
		return []candidate{e.level(d, motor.ID, "paused", fmt.Sprintf("Obstacle detected: %s at %gcm", objectName(d.batch, r), v))}
	}
	if d.tx.ActuatorState(motor.ID) == "paused" {
		return []candidate{e.level(d, motor.ID, "cleaning", fmt.Sprintf("Path clear at %gcm", v))}
	}
	return nil
}

// objectName prefers the label on the distance reading itself, then an
// object_detection reading in the same batch.
func objectName(b sensor.Batch, r sensor.Reading) string {
	if r.ObjectName != "" {
		return r.ObjectName
	}
	if det, ok := b.Find(sensor.KindObjectDetection); ok && det.Value.Type() == sensor.ValueText {
		if s := strings.TrimSpace(det.Value.String()); s != "" {
			return s
		}
	}
	return "unknown"
}

func waterLeakRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	loc := d.batch.Location
	if detected(v) {
		return []candidate{e.safetyLevel(d, WaterShutoff, "closed", fmt.Sprintf("Water leak detected at %s", loc))}
	}
	return []candidate{e.level(d, WaterShutoff, "open", fmt.Sprintf("Water leak cleared at %s", loc))}
}

func doorRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	loc := d.batch.Location
	id := actuator.LightsAt(loc)
	if detected(v) || !e.cfg.IsEntry(loc) || !e.registry.Has(id) {
		return nil
	}
	return []candidate{e.level(d, id, "on", fmt.Sprintf("Door opened at %s", loc))}
}

func soundRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	if v <= e.cfg.Sound.Threshold {
		return nil
	}
	loc := d.batch.Location
	return []candidate{e.edge(d, "sound:"+loc, Notifier, "notify", fmt.Sprintf("Loud noise: %g dB at %s", v, loc))}
}

func vibrationRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	if v <= e.cfg.Vibration.Threshold {
		return nil
	}
	loc := d.batch.Location
	return []candidate{e.edge(d, "vibration:"+loc, Notifier, "notify", fmt.Sprintf("Abnormal vibration: %g mm/s at %s", v, loc))}
}

func energyRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	cfg := e.cfg.Energy
	switch {
	case v > cfg.Shed:
		return []candidate{e.level(d, LoadShedder, "shed", fmt.Sprintf("Power draw %g W above %g W", v, cfg.Shed))}
	case v <= cfg.Shed-cfg.Hysteresis:
		return []candidate{e.level(d, LoadShedder, "normal", fmt.Sprintf("Power draw back to %g W", v))}
	}
	return nil
}

func uvRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	cfg := e.cfg.UV
	switch {
	case v >= cfg.High:
		return []candidate{e.level(d, WindowBlinds, "closed", fmt.Sprintf("High UV index %g at %s", v, d.batch.Location))}
	case v <= cfg.Low:
		return []candidate{e.level(d, WindowBlinds, "open", fmt.Sprintf("Low UV index %g at %s", v, d.batch.Location))}
	}
	return nil
}

func rainRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	if !detected(v) {
		return nil
	}
	loc := d.batch.Location
	return []candidate{
		e.level(d, Skylight, "closed", fmt.Sprintf("Rain detected at %s", loc)),
		e.level(d, Irrigation, "off", fmt.Sprintf("Rain detected at %s", loc)),
	}
}

func glassBreakRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	if !detected(v) {
		return nil
	}
	loc := d.batch.Location
	return []candidate{e.safetyEdge(d, SecurityAlarm, SecurityAlarm, "on", fmt.Sprintf("Glass break detected at %s", loc))}
}

func pressureMatRule(e *Engine, d *decision, r sensor.Reading, v float64) []candidate {
	if !detected(v) {
		return nil
	}
	loc := d.batch.Location
	d.tx.MarkMotion(loc)
	id := actuator.LightsAt(loc)
	if !e.registry.Has(id) {
		return nil
	}
	return []candidate{e.level(d, id, "on", fmt.Sprintf("Presence detected at %s", loc))}
}
