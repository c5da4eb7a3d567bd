package actuator

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/config"
)

// Driver delivers commands to hardware. Apply returns the state the actuator
// reports after the command, which may differ from the one requested.
type Driver interface {
	Apply(ctx context.Context, cmd Command) (string, error)

	// IsConnected returns true if the transport is usable
	IsConnected() bool

	Close() error
}

// LoopbackDriver acknowledges every command with the requested state. It is
// used when no actuator bus is attached, and in tests.
type LoopbackDriver struct {
	mu      sync.Mutex
	applied []Command
}

// NewLoopbackDriver creates a new LoopbackDriver.
func NewLoopbackDriver() *LoopbackDriver {
	return &LoopbackDriver{}
}

func (d *LoopbackDriver) Apply(ctx context.Context, cmd Command) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	d.applied = append(d.applied, cmd)
	d.mu.Unlock()
	return cmd.State, nil
}

// Applied returns the commands seen so far.
func (d *LoopbackDriver) Applied() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.applied...)
}

func (d *LoopbackDriver) IsConnected() bool { return true }

func (d *LoopbackDriver) Close() error { return nil }

// OpenDriver opens the serial bus named in cfg. Without a port, or when the
// port cannot be opened, it falls back to loopback so the service still
// runs.
func OpenDriver(cfg config.Serial) Driver {
	if cfg.Port == "" {
		log.Info().Msg("No actuator bus configured, using loopback driver")
		return NewLoopbackDriver()
	}
	d, err := OpenSerial(cfg.Port, cfg.AckTimeout)
	if err != nil {
		log.Warn().Err(err).Str("port", cfg.Port).Msg("Actuator bus unavailable, using loopback driver")
		return NewLoopbackDriver()
	}
	return d
}
