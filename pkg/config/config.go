package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that points at a YAML overlay.
const EnvPath = "HEARTH_CONFIG"

// Config is the load-time configuration. It is never mutated after Load.
type Config struct {
	Rules     Rules             `yaml:"rules"`
	Anomaly   Anomaly           `yaml:"anomaly"`
	State     State             `yaml:"state"`
	Advisor   Advisor           `yaml:"advisor"`
	Actuators []Actuator        `yaml:"actuators"`
	Devices   map[string]Device `yaml:"devices"`
	MQTT      MQTT              `yaml:"mqtt"`
	Serial    Serial            `yaml:"serial"`
}

// Rules holds the decision thresholds.
type Rules struct {
	Temperature Temperature `yaml:"temperature"`
	Humidity    Band        `yaml:"humidity"`
	Light       Light       `yaml:"light"`
	Motion      Motion      `yaml:"motion"`
	CO2         Levels      `yaml:"co2"`
	Gas         Levels      `yaml:"gas"`
	Distance    Distance    `yaml:"distance"`
	Sound       Alert       `yaml:"sound"`
	Vibration   Alert       `yaml:"vibration"`
	Energy      Energy      `yaml:"energy"`
	UV          Band        `yaml:"uv"`
	Kitchen     Kitchen     `yaml:"kitchen"`

	// EntryLocations are locations where door and credential rules apply.
	EntryLocations []string `yaml:"entry_locations"`

	// LocationWeights scale each location's mean temperature when pooling.
	// Unlisted locations weigh 1.0.
	LocationWeights map[string]float64 `yaml:"location_weights"`
}

type Temperature struct {
	High         float64       `yaml:"high_threshold"`
	Low          float64       `yaml:"low_threshold"`
	CriticalHigh float64       `yaml:"critical_high"`
	Hysteresis   float64       `yaml:"hysteresis"`
	PoolWindow   time.Duration `yaml:"pool_window"`
}

type Band struct {
	High float64 `yaml:"high_threshold"`
	Low  float64 `yaml:"low_threshold"`
}

type Levels struct {
	Warning  float64 `yaml:"warning_threshold"`
	Critical float64 `yaml:"critical_threshold"`
}

type Light struct {
	Dark          float64 `yaml:"dark_threshold"`
	Bright        float64 `yaml:"bright_threshold"`
	Brightness    int     `yaml:"brightness"`
	RequireMotion bool    `yaml:"require_motion"`
}

type Motion struct {
	Timeout time.Duration `yaml:"timeout"`
}

type Distance struct {
	Obstacle float64 `yaml:"obstacle_threshold"`
	Critical float64 `yaml:"critical_threshold"`
}

type Alert struct {
	Threshold float64 `yaml:"alert_threshold"`
}

type Energy struct {
	Shed       float64 `yaml:"shed_threshold"`
	Hysteresis float64 `yaml:"hysteresis"`
}

type Kitchen struct {
	Temperature float64 `yaml:"temperature_threshold"`
	Gas         float64 `yaml:"gas_threshold"`
}

// Range is an inclusive hard bound for one sensor kind.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type Anomaly struct {
	WindowSize   int              `yaml:"window_size"`
	Multiplier   float64          `yaml:"multiplier"`
	MinSamples   int              `yaml:"min_samples"`
	StatsLogSize int              `yaml:"stats_log_size"`
	Ranges       map[string]Range `yaml:"ranges"`
}

type State struct {
	HistorySize int           `yaml:"history_size"`
	OverrideTTL time.Duration `yaml:"override_ttl"`
	CooldownTTL time.Duration `yaml:"cooldown_ttl"`
}

// Advisor configures the heuristic advisory predictor.
type Advisor struct {
	Enabled bool    `yaml:"enabled"`
	High    float64 `yaml:"high_threshold"`
	Low     float64 `yaml:"low_threshold"`
	CO2     float64 `yaml:"co2_threshold"`
}

// Actuator is one entry of the actuator registry.
type Actuator struct {
	ID       string   `yaml:"id"`
	Type     string   `yaml:"type"`
	Location string   `yaml:"location"`
	States   []string `yaml:"states"`
	Initial  string   `yaml:"initial"`
	Dimmable bool     `yaml:"dimmable"`
	Priority string   `yaml:"priority"`
}

// Device describes a known producer.
type Device struct {
	Location       string `yaml:"location"`
	Format         string `yaml:"format"`
	GatewayEnabled bool   `yaml:"gateway_enabled"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

type Serial struct {
	Port       string        `yaml:"port"`
	AckTimeout time.Duration `yaml:"ack_timeout"`
}

// Load returns the defaults overlaid by the YAML file at path, or at
// $HEARTH_CONFIG when path is empty, then by a few environment fallbacks.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = os.Getenv("HEARTH_MQTT_BROKER")
	}
	if cfg.Serial.Port == "" {
		cfg.Serial.Port = os.Getenv("HEARTH_SERIAL_PORT")
	}
	if v := os.Getenv("HEARTH_OVERRIDE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.State.OverrideTTL = d
		}
	}
	if v := os.Getenv("HEARTH_ADVISOR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Advisor.Enabled = b
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	var errs []error

	t := c.Rules.Temperature
	if t.Hysteresis < 0 {
		errs = append(errs, errors.New("rules.temperature.hysteresis must not be negative"))
	}
	if t.Low+t.Hysteresis > t.High-t.Hysteresis {
		errs = append(errs, fmt.Errorf("rules.temperature: hysteresis bands overlap (low=%.1f high=%.1f hysteresis=%.1f)", t.Low, t.High, t.Hysteresis))
	}
	if t.CriticalHigh <= t.High {
		errs = append(errs, errors.New("rules.temperature.critical_high must exceed high_threshold"))
	}
	if t.PoolWindow <= 0 {
		errs = append(errs, errors.New("rules.temperature.pool_window must be positive"))
	}
	if c.Rules.Gas.Warning >= c.Rules.Gas.Critical {
		errs = append(errs, errors.New("rules.gas.warning_threshold must be below critical_threshold"))
	}
	if c.Rules.Distance.Critical >= c.Rules.Distance.Obstacle {
		errs = append(errs, errors.New("rules.distance.critical_threshold must be below obstacle_threshold"))
	}
	for loc, w := range c.Rules.LocationWeights {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("rules.location_weights[%s] must be positive", loc))
		}
	}

	if c.Anomaly.WindowSize < 1 {
		errs = append(errs, errors.New("anomaly.window_size must be at least 1"))
	}
	if c.Anomaly.MinSamples < 2 {
		errs = append(errs, errors.New("anomaly.min_samples must be at least 2"))
	}
	if c.Anomaly.Multiplier <= 0 {
		errs = append(errs, errors.New("anomaly.multiplier must be positive"))
	}
	for kind, r := range c.Anomaly.Ranges {
		if r.Min > r.Max {
			errs = append(errs, fmt.Errorf("anomaly.ranges[%s]: min exceeds max", kind))
		}
	}

	if c.State.HistorySize < 1 {
		errs = append(errs, errors.New("state.history_size must be at least 1"))
	}
	if c.State.OverrideTTL <= 0 || c.State.CooldownTTL <= 0 {
		errs = append(errs, errors.New("state ttls must be positive"))
	}

	seen := make(map[string]bool, len(c.Actuators))
	for _, a := range c.Actuators {
		if a.ID == "" {
			errs = append(errs, errors.New("actuators: entry without id"))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("actuators: duplicate id %q", a.ID))
		}
		seen[a.ID] = true
		if len(a.States) == 0 {
			errs = append(errs, fmt.Errorf("actuators[%s]: states required", a.ID))
		}
	}

	return errors.Join(errs...)
}

// GatewayEnabled reports whether batches from deviceID go through the
// anomaly filter before reaching the rules.
func (c Config) GatewayEnabled(deviceID string) bool {
	d, ok := c.Devices[deviceID]
	return ok && d.GatewayEnabled
}

// IsEntry reports whether location is configured as an entry point.
func (r Rules) IsEntry(location string) bool {
	for _, l := range r.EntryLocations {
		if strings.EqualFold(l, location) {
			return true
		}
	}
	return false
}

// Weight returns the pooling weight of location.
func (r Rules) Weight(location string) float64 {
	if w, ok := r.LocationWeights[location]; ok {
		return w
	}
	return 1.0
}
