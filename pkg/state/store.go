package state

import (
	"sort"
	"sync"
	"time"

	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/sensor"
)

// DefaultState is reported for actuators the cache has never heard of.
const DefaultState = "off"

// Sample is one entry of the sensor history.
type Sample struct {
	Value    float64   `json:"value"`
	Location string    `json:"location"`
	At       time.Time `json:"timestamp"`
}

// ActuatorState is the engine's belief about one actuator.
type ActuatorState struct {
	State       string    `json:"state"`
	LastUpdated time.Time `json:"last_updated"`
}

// Options sizes the store.
type Options struct {
	HistorySize int
	OverrideTTL time.Duration
	CooldownTTL time.Duration
}

// OptionsFrom converts the configuration section.
func OptionsFrom(cfg config.State) Options {
	return Options{
		HistorySize: cfg.HistorySize,
		OverrideTTL: cfg.OverrideTTL,
		CooldownTTL: cfg.CooldownTTL,
	}
}

type historyKey struct {
	device string
	kind   sensor.Kind
}

type locationKey struct {
	location string
	kind     sensor.Kind
}

// Store holds everything a decision reads or writes. Engine work goes
// through Atomically; the exported methods lock for themselves and must not
// be called from inside an Atomically callback.
type Store struct {
	mu    sync.Mutex
	clock clock.Clock
	opts  Options

	actuators map[string]ActuatorState
	history   map[historyKey]*ring
	latest    map[locationKey]Sample
	motion    map[string]time.Time

	overrides *Overrides
	cooldowns *Cooldowns
}

// New returns a store seeded with the initial actuator states.
func New(c clock.Clock, opts Options, initial map[string]string) *Store {
	if c == nil {
		c = clock.System{}
	}
	if opts.HistorySize < 1 {
		opts.HistorySize = 100
	}
	now := c.Now()
	s := &Store{
		clock:     c,
		opts:      opts,
		actuators: make(map[string]ActuatorState, len(initial)),
		history:   make(map[historyKey]*ring),
		latest:    make(map[locationKey]Sample),
		motion:    make(map[string]time.Time),
		overrides: NewOverrides(c, opts.OverrideTTL),
		cooldowns: NewCooldowns(c, opts.CooldownTTL),
	}
	for id, st := range initial {
		s.actuators[id] = ActuatorState{State: st, LastUpdated: now}
	}
	return s
}

// Clock returns the store's time source.
func (s *Store) Clock() clock.Clock { return s.clock }

// Atomically runs fn with exclusive access to the store. Everything fn
// observes belongs to one consistent snapshot and one instant, tx.Now().
func (s *Store) Atomically(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Tx{s: s, now: s.clock.Now()})
}

// UpdateActuatorState records the state an actuator reported after a command
// was applied. It is the only way the cache changes after construction.
func (s *Store) UpdateActuatorState(id, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actuators[id] = ActuatorState{State: state, LastUpdated: s.clock.Now()}
}

// Actuators returns a copy of the cache.
func (s *Store) Actuators() map[string]ActuatorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ActuatorState, len(s.actuators))
	for id, st := range s.actuators {
		out[id] = st
	}
	return out
}

// Actuator returns the cached state of one actuator.
func (s *Store) Actuator(id string) (ActuatorState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.actuators[id]
	return st, ok
}

// SetOverride puts id under manual control.
func (s *Store) SetOverride(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides.Set(id)
}

// ClearOverride returns id to automatic control.
func (s *Store) ClearOverride(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides.Clear(id)
}

// OverrideActive reports whether id is under manual control.
func (s *Store) OverrideActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrides.Active(id)
}

// ActiveOverrides returns the expiry of every active override.
func (s *Store) ActiveOverrides() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrides.Snapshot()
}

// Tx is the view handed to an Atomically callback. It must not escape it.
type Tx struct {
	s   *Store
	now time.Time
}

// Now is the instant the decision is made at.
func (tx *Tx) Now() time.Time { return tx.now }

// AppendHistory records a numeric reading from deviceID at location.
func (tx *Tx) AppendHistory(deviceID, location string, kind sensor.Kind, value float64) {
	key := historyKey{device: deviceID, kind: kind}
	r, ok := tx.s.history[key]
	if !ok {
		r = newRing(tx.s.opts.HistorySize)
		tx.s.history[key] = r
	}
	sample := Sample{Value: value, Location: location, At: tx.now}
	r.push(sample)
	tx.s.latest[locationKey{location: location, kind: kind}] = sample
}

// History returns the samples from one device, oldest first.
func (tx *Tx) History(deviceID string, kind sensor.Kind) []Sample {
	if r, ok := tx.s.history[historyKey{device: deviceID, kind: kind}]; ok {
		return r.values()
	}
	return nil
}

// Latest returns the most recent sample of kind reported at location.
func (tx *Tx) Latest(location string, kind sensor.Kind) (Sample, bool) {
	s, ok := tx.s.latest[locationKey{location: location, kind: kind}]
	return s, ok
}

// Pool returns every sample of kind, from any device and location, recorded
// at or after since. Samples are grouped by device in device id order.
func (tx *Tx) Pool(kind sensor.Kind, since time.Time) []Sample {
	var devices []string
	for key := range tx.s.history {
		if key.kind == kind {
			devices = append(devices, key.device)
		}
	}
	sort.Strings(devices)

	var out []Sample
	for _, device := range devices {
		for _, sample := range tx.s.history[historyKey{device: device, kind: kind}].values() {
			if !sample.At.Before(since) {
				out = append(out, sample)
			}
		}
	}
	return out
}

// MarkMotion stamps location with the current instant.
func (tx *Tx) MarkMotion(location string) {
	tx.s.motion[location] = tx.now
}

// LastMotion returns when motion was last seen at location.
func (tx *Tx) LastMotion(location string) (time.Time, bool) {
	t, ok := tx.s.motion[location]
	return t, ok
}

// RecentMotion reports whether motion was seen at location less than within
// ago.
func (tx *Tx) RecentMotion(location string, within time.Duration) bool {
	t, ok := tx.s.motion[location]
	return ok && tx.now.Sub(t) < within
}

// ActuatorState returns the cached state of id, or DefaultState.
func (tx *Tx) ActuatorState(id string) string {
	if st, ok := tx.s.actuators[id]; ok {
		return st.State
	}
	return DefaultState
}

// OverrideActive reports whether id is under manual control at tx.Now().
func (tx *Tx) OverrideActive(id string) bool {
	return tx.s.overrides.activeAt(id, tx.now)
}

// CanFire applies the cooldown table at tx.Now(). A non-positive cooldown
// uses the configured default.
func (tx *Tx) CanFire(alertID string, cooldown time.Duration) bool {
	return tx.s.cooldowns.canFireAt(alertID, cooldown, tx.now)
}

type ring struct {
	buf  []Sample
	head int
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Sample, capacity)}
}

func (r *ring) push(s Sample) {
	if r.size == len(r.buf) {
		r.buf[r.head] = s
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[(r.head+r.size)%len(r.buf)] = s
	r.size++
}

func (r *ring) values() []Sample {
	out := make([]Sample, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}
