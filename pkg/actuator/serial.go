package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Port is the subset of serial.Port the driver needs.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SerialDriver speaks newline-delimited JSON to an actuator controller board.
// Each command line is answered by one acknowledgement line:
//
//	-> {"id":"...","actuator_id":"kitchen_exhaust","state":"high"}
//	<- {"id":"...","ok":true,"state":"high"}
type SerialDriver struct {
	port       Port
	ackTimeout time.Duration

	mu      sync.Mutex
	pending []byte
	closed  bool
}

type serialFrame struct {
	ID         string `json:"id"`
	ActuatorID string `json:"actuator_id"`
	State      string `json:"state"`
	Value      *int   `json:"value,omitempty"`
}

type serialAck struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// OpenSerial opens the actuator bus at 115200 baud, 8N1.
func OpenSerial(portPath string, ackTimeout time.Duration) (*SerialDriver, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portPath, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portPath, err)
	}

	// Controller boards gate their UART on RTS.
	if err := port.SetRTS(true); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set RTS: %w", err)
	}

	log.Info().Str("port", portPath).Msg("Serial port opened")

	return NewSerialDriver(port, ackTimeout), nil
}

// NewSerialDriver wraps an already open port.
func NewSerialDriver(port Port, ackTimeout time.Duration) *SerialDriver {
	if ackTimeout <= 0 {
		ackTimeout = 2 * time.Second
	}
	return &SerialDriver{port: port, ackTimeout: ackTimeout}
}

func (d *SerialDriver) Apply(ctx context.Context, cmd Command) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", ErrNotConnected
	}

	frame, err := json.Marshal(serialFrame{
		ID:         cmd.ID,
		ActuatorID: cmd.ActuatorID,
		State:      cmd.State,
		Value:      cmd.Value,
	})
	if err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	frame = append(frame, '\n')
	if _, err := d.port.Write(frame); err != nil {
		return "", fmt.Errorf("write frame: %w", err)
	}

	deadline := time.Now().Add(d.ackTimeout)
	for {
		line, err := d.readLine(ctx, deadline)
		if err != nil {
			return "", err
		}
		var ack serialAck
		if err := json.Unmarshal(line, &ack); err != nil {
			log.Debug().Err(err).Str("line", string(line)).Msg("Ignoring unparseable serial line")
			continue
		}
		if ack.ID != cmd.ID {
			log.Debug().Str("got", ack.ID).Str("want", cmd.ID).Msg("Ignoring stale acknowledgement")
			continue
		}
		if !ack.OK {
			return "", fmt.Errorf("%w: %s", ErrRejected, ack.Error)
		}
		if ack.State == "" {
			return cmd.State, nil
		}
		return ack.State, nil
	}
}

// readLine returns the next complete line, keeping any bytes after it for
// the following call.
func (d *SerialDriver) readLine(ctx context.Context, deadline time.Time) ([]byte, error) {
	buf := make([]byte, 256)
	for {
		if i := bytes.IndexByte(d.pending, '\n'); i >= 0 {
			line := bytes.TrimSpace(d.pending[:i])
			d.pending = append(d.pending[:0:0], d.pending[i+1:]...)
			if len(line) == 0 {
				continue
			}
			return line, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		if err := d.port.SetReadTimeout(remaining); err != nil {
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
		n, err := d.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read ack: %w", err)
		}
		d.pending = append(d.pending, buf[:n]...)
	}
}

func (d *SerialDriver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed
}

// Close closes the serial port.
func (d *SerialDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.port.Close()
}
