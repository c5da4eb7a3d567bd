package sensor

import "strings"

// Kind identifies what a reading measures. The set is closed: anything the
// decoder does not recognise becomes KindUnknown and is ignored by the rules.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTemperature
	KindHumidity
	KindPressure
	KindLight
	KindMotion
	KindCO2
	KindGas
	KindSmoke
	KindDistance
	KindWaterLeak
	KindDoor
	KindRFID
	KindObjectDetection
	KindSignalStrength
	KindSound
	KindVibration
	KindEnergy
	KindUV
	KindRain
	KindGlassBreak
	KindPressureMat

	kindCount
)

// KindInfo describes a sensor kind.
type KindInfo struct {
	Name    string
	Numeric bool
	Unit    string
}

var kinds = [kindCount]KindInfo{
	KindUnknown:         {Name: "unknown"},
	KindTemperature:     {Name: "temperature", Numeric: true, Unit: "°C"},
	KindHumidity:        {Name: "humidity", Numeric: true, Unit: "%"},
	KindPressure:        {Name: "pressure", Numeric: true, Unit: "hPa"},
	KindLight:           {Name: "light", Numeric: true, Unit: "lux"},
	KindMotion:          {Name: "motion", Numeric: true, Unit: "boolean"},
	KindCO2:             {Name: "co2", Numeric: true, Unit: "ppm"},
	KindGas:             {Name: "gas", Numeric: true, Unit: "ppm"},
	KindSmoke:           {Name: "smoke", Numeric: true, Unit: "boolean"},
	KindDistance:        {Name: "distance", Numeric: true, Unit: "cm"},
	KindWaterLeak:       {Name: "water_leak", Numeric: true, Unit: "boolean"},
	KindDoor:            {Name: "door_sensor", Numeric: true, Unit: "boolean"},
	KindRFID:            {Name: "rfid", Unit: "string"},
	KindObjectDetection: {Name: "object_detection", Unit: "string"},
	KindSignalStrength:  {Name: "signal_strength", Numeric: true, Unit: "dBm"},
	KindSound:           {Name: "sound", Numeric: true, Unit: "dB"},
	KindVibration:       {Name: "vibration", Numeric: true, Unit: "mm/s"},
	KindEnergy:          {Name: "energy", Numeric: true, Unit: "W"},
	KindUV:              {Name: "uv", Numeric: true, Unit: "index"},
	KindRain:            {Name: "rain", Numeric: true, Unit: "boolean"},
	KindGlassBreak:      {Name: "glass_break", Numeric: true, Unit: "boolean"},
	KindPressureMat:     {Name: "pressure_mat", Numeric: true, Unit: "boolean"},
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := KindUnknown + 1; k < kindCount; k++ {
		m[kinds[k].Name] = k
	}
	return m
}()

// ParseKind maps a wire name such as "water_leak" to its Kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindsByName[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// AllKinds returns every known kind except KindUnknown, in declaration order.
func AllKinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Info returns the descriptor for k.
func (k Kind) Info() KindInfo {
	if k >= kindCount {
		return kinds[KindUnknown]
	}
	return kinds[k]
}

// String returns the wire name.
func (k Kind) String() string {
	return k.Info().Name
}

// Numeric reports whether readings of this kind carry a number.
func (k Kind) Numeric() bool {
	return k.Info().Numeric
}

// Binary reports whether the kind is a two-state detector (0 or 1).
func (k Kind) Binary() bool {
	return k.Info().Unit == "boolean"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognised names decode
// to KindUnknown rather than failing, so a single odd reading never rejects
// the whole batch.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		*k = KindUnknown
		return nil
	}
	*k = parsed
	return nil
}
