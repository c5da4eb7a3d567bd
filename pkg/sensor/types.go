package sensor

import (
	"fmt"
	"time"
)

// Reading is a single measurement inside a batch.
type Reading struct {
	Kind       Kind      `json:"sensor_type"`
	Value      Value     `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	ObjectName string    `json:"object_name,omitempty"` // distance sensors only
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// Float returns the numeric value when the kind is numeric and the value
// converts cleanly.
func (r Reading) Float() (float64, bool) {
	if !r.Kind.Numeric() {
		return 0, false
	}
	return r.Value.Float()
}

// Batch is the unit of ingestion: readings from one device at one location.
type Batch struct {
	DeviceID         string    `json:"device_id"`
	Location         string    `json:"location"`
	Timestamp        time.Time `json:"timestamp,omitempty"`
	Readings         []Reading `json:"readings"`
	GatewayProcessed bool      `json:"gateway_processed,omitempty"`
}

// Validate checks the envelope. Missing device_id or location rejects the
// whole batch; nothing inside the readings can.
func (b Batch) Validate() error {
	if b.DeviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrInvalidEnvelope)
	}
	if b.Location == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidEnvelope)
	}
	return nil
}

// Find returns the first reading of the given kind.
func (b Batch) Find(kind Kind) (Reading, bool) {
	for _, r := range b.Readings {
		if r.Kind == kind {
			return r, true
		}
	}
	return Reading{}, false
}

// Numeric returns the first numeric value of the given kind in the batch.
func (b Batch) Numeric(kind Kind) (float64, bool) {
	for _, r := range b.Readings {
		if r.Kind != kind {
			continue
		}
		if v, ok := r.Float(); ok {
			return v, true
		}
	}
	return 0, false
}
