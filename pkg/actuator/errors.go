package actuator

import "errors"

var (
	// ErrUnknownActuator indicates a command for an id missing from the registry
	ErrUnknownActuator = errors.New("actuator not registered")

	// ErrInvalidState indicates a state the actuator does not accept
	ErrInvalidState = errors.New("invalid actuator state")

	// ErrTimeout indicates the driver gave up waiting for an acknowledgement
	ErrTimeout = errors.New("operation timed out")

	// ErrNotConnected indicates the driver has no open transport
	ErrNotConnected = errors.New("driver not connected")

	// ErrRejected indicates the device refused the command
	ErrRejected = errors.New("command rejected by device")
)
