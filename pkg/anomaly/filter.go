package anomaly

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/metrics"
	"github.com/urmzd/hearth/pkg/sensor"
)

// Reason names why a reading was rejected.
type Reason string

const (
	ReasonRange Reason = "range"
	ReasonIQR   Reason = "iqr"
)

// Verdict is the classification of one reading.
type Verdict struct {
	Outlier bool
	Reason  Reason
	Detail  string
}

func valid() Verdict { return Verdict{} }

func outlier(reason Reason, format string, args ...any) Verdict {
	return Verdict{Outlier: true, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Filter classifies readings against per-device learning windows. Each device
// owns a shard with its own lock, so producers never contend with each other.
type Filter struct {
	windowSize int
	minSamples int
	multiplier float64
	ranges     map[sensor.Kind]config.Range
	clock      clock.Clock

	mu     sync.RWMutex
	shards map[string]*shard

	logMu   sync.Mutex
	log     []LogEntry
	logSize int
}

type shard struct {
	mu      sync.Mutex
	windows map[sensor.Kind]*Window
}

// Option configures a Filter.
type Option func(*Filter)

// WithClock sets the time source used to stamp the statistics log.
func WithClock(c clock.Clock) Option {
	return func(f *Filter) {
		if c != nil {
			f.clock = c
		}
	}
}

// New builds a filter from configuration. Range keys that do not name a
// known sensor kind are ignored with a warning.
func New(cfg config.Anomaly, opts ...Option) *Filter {
	f := &Filter{
		windowSize: cfg.WindowSize,
		minSamples: cfg.MinSamples,
		multiplier: cfg.Multiplier,
		ranges:     make(map[sensor.Kind]config.Range, len(cfg.Ranges)),
		clock:      clock.System{},
		shards:     make(map[string]*shard),
		logSize:    cfg.StatsLogSize,
	}
	if f.logSize <= 0 {
		f.logSize = 1000
	}
	for name, r := range cfg.Ranges {
		kind, ok := sensor.ParseKind(name)
		if !ok {
			log.Warn().Str("sensor_type", name).Msg("Ignoring range for unknown sensor type")
			continue
		}
		f.ranges[kind] = r
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Classify decides whether r is an outlier given the accepted history in w.
// It does not modify w. A nil window skips the statistical check.
func (f *Filter) Classify(r sensor.Reading, w *Window) Verdict {
	if !r.Kind.Numeric() {
		return valid()
	}
	v, ok := r.Value.Float()
	if !ok {
		// Nothing to measure; the rules skip it too.
		return valid()
	}

	if rng, ok := f.ranges[r.Kind]; ok {
		if v < rng.Min {
			return outlier(ReasonRange, "Below minimum: %g < %g", v, rng.Min)
		}
		if v > rng.Max {
			return outlier(ReasonRange, "Above maximum: %g > %g", v, rng.Max)
		}
	}

	// Two-state detectors have no spread to learn.
	if r.Kind.Binary() || w == nil || w.Len() < f.minSamples {
		return valid()
	}

	q1, q3, err := Quartiles(w.Values())
	if err != nil {
		log.Warn().Err(err).Str("sensor_type", r.Kind.String()).Msg("Quartile computation failed, accepting reading")
		return valid()
	}
	iqr := q3 - q1
	lower := q1 - f.multiplier*iqr
	upper := q3 + f.multiplier*iqr
	if v < lower {
		return outlier(ReasonIQR, "IQR outlier: %g < %.2f", v, lower)
	}
	if v > upper {
		return outlier(ReasonIQR, "IQR outlier: %g > %.2f", v, upper)
	}
	return valid()
}

// Observe classifies r against the device's window and appends it only when
// it is valid and numeric.
func (f *Filter) Observe(deviceID string, r sensor.Reading) Verdict {
	s := f.shard(deviceID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.observeLocked(s, r)
}

func (f *Filter) observeLocked(s *shard, r sensor.Reading) Verdict {
	w := s.windows[r.Kind]
	verdict := f.Classify(r, w)
	if verdict.Outlier {
		return verdict
	}
	if v, ok := r.Float(); ok {
		if w == nil {
			w = NewWindow(f.windowSize)
			s.windows[r.Kind] = w
		}
		w.Push(v)
	}
	return verdict
}

func (f *Filter) shard(deviceID string) *shard {
	f.mu.RLock()
	s, ok := f.shards[deviceID]
	f.mu.RUnlock()
	if ok {
		return s
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.shards[deviceID]; ok {
		return s
	}
	s = &shard{windows: make(map[sensor.Kind]*Window)}
	f.shards[deviceID] = s
	return s
}

// Window returns a copy of the accepted values for one device and kind.
func (f *Filter) Window(deviceID string, kind sensor.Kind) []float64 {
	f.mu.RLock()
	s, ok := f.shards[deviceID]
	f.mu.RUnlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[kind]; ok {
		return w.Values()
	}
	return nil
}

// FilterBatch splits a batch into accepted readings and outlier details, and
// records the result in the statistics log. Readings are classified in order,
// so an earlier reading of a kind can shape the verdict on a later one.
func (f *Filter) FilterBatch(b sensor.Batch) FilteredBatch {
	out := FilteredBatch{
		DeviceID:  b.DeviceID,
		Location:  b.Location,
		Timestamp: b.Timestamp,
		Readings:  make([]sensor.Reading, 0, len(b.Readings)),
		Outliers:  []Outlier{},
	}

	s := f.shard(b.DeviceID)
	s.mu.Lock()
	for _, r := range b.Readings {
		verdict := f.observeLocked(s, r)
		if !verdict.Outlier {
			out.Readings = append(out.Readings, r)
			metrics.IncReading("valid")
			continue
		}
		out.Outliers = append(out.Outliers, Outlier{
			SensorType: r.Kind,
			Value:      r.Value,
			Reason:     verdict.Reason,
			Detail:     verdict.Detail,
		})
		metrics.IncReading("outlier")
		metrics.IncOutlier(r.Kind.String(), string(verdict.Reason))
		log.Warn().
			Str("device_id", b.DeviceID).
			Str("sensor_type", r.Kind.String()).
			Str("value", r.Value.String()).
			Str("reason", verdict.Detail).
			Msg("Outlier detected")
	}
	s.mu.Unlock()

	out.Counts = Counts{
		Original: len(b.Readings),
		Filtered: len(out.Readings),
		Outliers: len(out.Outliers),
	}
	f.record(LogEntry{
		DeviceID: b.DeviceID,
		Location: b.Location,
		At:       f.clock.Now(),
		Counts:   out.Counts,
		Details:  out.Outliers,
	})
	return out
}

func (f *Filter) record(e LogEntry) {
	f.logMu.Lock()
	defer f.logMu.Unlock()
	f.log = append(f.log, e)
	if over := len(f.log) - f.logSize; over > 0 {
		f.log = append(f.log[:0:0], f.log[over:]...)
	}
}

// Stats summarises the statistics log.
func (f *Filter) Stats() Stats {
	f.logMu.Lock()
	defer f.logMu.Unlock()

	var st Stats
	for _, e := range f.log {
		st.TotalProcessed += e.Counts.Original
		st.TotalOutliers += e.Counts.Outliers
	}
	if st.TotalProcessed > 0 {
		st.FilterRate = float64(st.TotalOutliers) / float64(st.TotalProcessed)
	}
	from := len(f.log) - recentEntries
	if from < 0 {
		from = 0
	}
	st.Recent = append([]LogEntry(nil), f.log[from:]...)
	return st
}

const recentEntries = 10

// Outlier describes a rejected reading.
type Outlier struct {
	SensorType sensor.Kind  `json:"sensor_type"`
	Value      sensor.Value `json:"value"`
	Reason     Reason       `json:"reason"`
	Detail     string       `json:"detail"`
}

// Counts are the per-batch tallies.
type Counts struct {
	Original int `json:"original"`
	Filtered int `json:"filtered"`
	Outliers int `json:"outliers"`
}

// FilteredBatch is the gateway output for one batch.
type FilteredBatch struct {
	DeviceID  string           `json:"device_id"`
	Location  string           `json:"location"`
	Timestamp time.Time        `json:"timestamp,omitempty"`
	Readings  []sensor.Reading `json:"readings"`
	Outliers  []Outlier        `json:"outliers"`
	Counts    Counts           `json:"counts"`
}

// Batch returns the accepted readings as a batch marked gateway-processed.
func (fb FilteredBatch) Batch() sensor.Batch {
	return sensor.Batch{
		DeviceID:         fb.DeviceID,
		Location:         fb.Location,
		Timestamp:        fb.Timestamp,
		Readings:         fb.Readings,
		GatewayProcessed: true,
	}
}

// LogEntry is one statistics log record.
type LogEntry struct {
	DeviceID string    `json:"device_id"`
	Location string    `json:"location"`
	At       time.Time `json:"timestamp"`
	Counts   Counts    `json:"counts"`
	Details  []Outlier `json:"outlier_details,omitempty"`
}

// Stats is the gateway filtering summary.
type Stats struct {
	TotalProcessed int        `json:"total_processed"`
	TotalOutliers  int        `json:"total_outliers"`
	FilterRate     float64    `json:"filter_rate"`
	Recent         []LogEntry `json:"recent_logs"`
}
