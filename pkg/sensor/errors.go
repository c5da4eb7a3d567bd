package sensor

import "errors"

var (
	// ErrInvalidEnvelope indicates a batch without device_id or location
	ErrInvalidEnvelope = errors.New("invalid batch envelope")

	// ErrMalformedPayload indicates a body that could not be decoded at all
	ErrMalformedPayload = errors.New("malformed telemetry payload")
)
