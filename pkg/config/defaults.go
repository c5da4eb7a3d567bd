package config

import "time"

var (
	onOff      = []string{"off", "on"}
	openClosed = []string{"open", "closed"}
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Rules: Rules{
			Temperature: Temperature{
				High:         30,
				Low:          18,
				CriticalHigh: 40,
				Hysteresis:   2,
				PoolWindow:   5 * time.Minute,
			},
			Humidity: Band{High: 70, Low: 30},
			Light: Light{
				Dark:          200,
				Bright:        800,
				Brightness:    80,
				RequireMotion: true,
			},
			Motion:    Motion{Timeout: 300 * time.Second},
			CO2:       Levels{Warning: 1000, Critical: 2000},
			Gas:       Levels{Warning: 800, Critical: 1500},
			Distance:  Distance{Obstacle: 50, Critical: 20},
			Sound:     Alert{Threshold: 85},
			Vibration: Alert{Threshold: 5},
			Energy:    Energy{Shed: 4500, Hysteresis: 500},
			UV:        Band{High: 8, Low: 3},
			Kitchen:   Kitchen{Temperature: 35, Gas: 500},

			EntryLocations: []string{"entrance"},
			LocationWeights: map[string]float64{
				"living_room": 1.5,
				"bedroom":     1.2,
				"kitchen":     1.0,
				"basement":    0.5,
				"roof":        0.5,
			},
		},
		Anomaly: Anomaly{
			WindowSize:   10,
			Multiplier:   1.5,
			MinSamples:   5,
			StatsLogSize: 1000,
			Ranges: map[string]Range{
				"temperature": {Min: -20, Max: 60},
				"humidity":    {Min: 0, Max: 100},
				"pressure":    {Min: 900, Max: 1100},
				"light":       {Min: 0, Max: 100000},
				"co2":         {Min: 300, Max: 5000},
				"distance":    {Min: 0, Max: 400},
			},
		},
		State: State{
			HistorySize: 100,
			OverrideTTL: time.Hour,
			CooldownTTL: 60 * time.Second,
		},
		Advisor: Advisor{
			Enabled: true,
			High:    30,
			Low:     17,
			CO2:     1200,
		},
		Actuators: DefaultActuators(),
		Devices: map[string]Device{
			"roof_station": {Location: "roof", Format: "json", GatewayEnabled: true},
			"living_room":  {Location: "living_room", Format: "json"},
			"kitchen":      {Location: "kitchen", Format: "json"},
			"dust_cleaner": {Location: "mobile", Format: "xml"},
			"bedroom":      {Location: "bedroom", Format: "json"},
			"basement":     {Location: "basement", Format: "json"},
			"entrance":     {Location: "entrance", Format: "json"},
		},
		MQTT: MQTT{
			ClientID: "hearth",
			Topic:    "hearth/telemetry/#",
			QoS:      1,
		},
		Serial: Serial{AckTimeout: 2 * time.Second},
	}
}

// DefaultActuators returns the stock actuator registry.
func DefaultActuators() []Actuator {
	return []Actuator{
		{ID: "hvac_system", Type: "climate_control", Location: "whole_house", States: []string{"off", "heating", "cooling", "fan_only"}, Initial: "off"},
		{ID: "living_room_lights", Type: "light", Location: "living_room", States: onOff, Initial: "off", Dimmable: true},
		{ID: "bedroom_lights", Type: "light", Location: "bedroom", States: onOff, Initial: "off", Dimmable: true},
		{ID: "entrance_lights", Type: "light", Location: "entrance", States: onOff, Initial: "off"},
		{ID: "kitchen_exhaust", Type: "fan", Location: "kitchen", States: []string{"off", "low", "medium", "high"}, Initial: "off"},
		{ID: "fire_alarm", Type: "alarm", Location: "whole_house", States: onOff, Initial: "off", Priority: "critical"},
		{ID: "gas_alarm", Type: "alarm", Location: "kitchen", States: onOff, Initial: "off", Priority: "critical"},
		{ID: "security_alarm", Type: "alarm", Location: "whole_house", States: onOff, Initial: "off", Priority: "critical"},
		{ID: "water_shutoff", Type: "valve", Location: "basement", States: openClosed, Initial: "open", Priority: "high"},
		{ID: "dust_cleaner_motor", Type: "motor", Location: "mobile", States: []string{"off", "cleaning", "paused", "returning"}, Initial: "cleaning"},
		{ID: "dehumidifier", Type: "dehumidifier", Location: "basement", States: onOff, Initial: "off"},
		{ID: "door_lock", Type: "lock", Location: "entrance", States: []string{"locked", "unlocked"}, Initial: "locked"},
		{ID: "home_notifier", Type: "notifier", Location: "whole_house", States: []string{"idle", "notify"}, Initial: "idle"},
		{ID: "load_shedder", Type: "energy", Location: "whole_house", States: []string{"normal", "shed"}, Initial: "normal"},
		{ID: "window_blinds", Type: "blinds", Location: "whole_house", States: openClosed, Initial: "open"},
		{ID: "skylight", Type: "window", Location: "whole_house", States: openClosed, Initial: "open"},
		{ID: "irrigation_valve", Type: "valve", Location: "garden", States: onOff, Initial: "off"},
	}
}
