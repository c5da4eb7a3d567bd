package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const metricPrefix = "hearth_"

var (
	registerOnce sync.Once

	batchesTotal   *prometheus.CounterVec
	processLatency prometheus.Histogram

	readingsFiltered *prometheus.CounterVec
	outliersTotal    *prometheus.CounterVec

	commandsEmitted    *prometheus.CounterVec
	commandsSuppressed *prometheus.CounterVec
	commandsDropped    *prometheus.CounterVec
	commandsApplied    *prometheus.CounterVec

	mqttMessages *prometheus.CounterVec
)

// Init registers the collectors with the default registry. db may be nil;
// when set, row-count gauges are exported for the command and decision logs.
func Init(db *sql.DB) {
	registerOnce.Do(func() {
		batchesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batches_total",
				Help: "Telemetry batches processed by result",
			},
			[]string{"result"},
		)
		processLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "process_latency_seconds",
				Help:    "Rule engine processing latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
			},
		)
		readingsFiltered = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "gateway_readings_total",
				Help: "Readings seen by the anomaly filter by verdict",
			},
			[]string{"verdict"},
		)
		outliersTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outliers_total",
				Help: "Readings rejected by the anomaly filter by sensor kind and reason",
			},
			[]string{"sensor_type", "reason"},
		)
		commandsEmitted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_emitted_total",
				Help: "Commands emitted by the rule engine by actuator",
			},
			[]string{"actuator"},
		)
		commandsSuppressed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_suppressed_total",
				Help: "Candidate commands suppressed by policy gate",
			},
			[]string{"gate"},
		)
		commandsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_dropped_total",
				Help: "Commands dropped at the dispatcher by reason",
			},
			[]string{"reason"},
		)
		commandsApplied = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_applied_total",
				Help: "Commands handed to a driver by result",
			},
			[]string{"result"},
		)
		mqttMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "mqtt_messages_total",
				Help: "MQTT telemetry messages by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			batchesTotal,
			processLatency,
			readingsFiltered,
			outliersTotal,
			commandsEmitted,
			commandsSuppressed,
			commandsDropped,
			commandsApplied,
			mqttMessages,
		)

		if db != nil {
			registerDBMetrics(db)
		}
	})
}

func registerDBMetrics(db *sql.DB) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "command_log_rows",
			Help: "Rows in the command log",
		},
		func() float64 {
			return queryCount(db, "SELECT COUNT(*) FROM commands")
		},
	))
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "decision_log_rows",
			Help: "Rows in the decision log",
		},
		func() float64 {
			return queryCount(db, "SELECT COUNT(*) FROM decisions")
		},
	))
}

func queryCount(db *sql.DB, query string) float64 {
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		log.Debug().Err(err).Msg("metrics query failed")
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

// ObserveBatch records one processed batch.
func ObserveBatch(result string, duration time.Duration) {
	if result == "" {
		result = "unknown"
	}
	if batchesTotal != nil {
		batchesTotal.WithLabelValues(result).Inc()
	}
	if processLatency != nil && duration >= 0 {
		processLatency.Observe(duration.Seconds())
	}
}

// IncReading counts a reading seen by the anomaly filter.
func IncReading(verdict string) {
	if readingsFiltered != nil {
		readingsFiltered.WithLabelValues(verdict).Inc()
	}
}

// IncOutlier counts a rejected reading.
func IncOutlier(sensorType, reason string) {
	if sensorType == "" {
		sensorType = "unknown"
	}
	if outliersTotal != nil {
		outliersTotal.WithLabelValues(sensorType, reason).Inc()
	}
}

// IncCommandEmitted counts an engine command.
func IncCommandEmitted(actuatorID string) {
	if commandsEmitted != nil {
		commandsEmitted.WithLabelValues(actuatorID).Inc()
	}
}

// IncCommandSuppressed counts a candidate stopped by a gate.
func IncCommandSuppressed(gate string) {
	if commandsSuppressed != nil {
		commandsSuppressed.WithLabelValues(gate).Inc()
	}
}

// IncCommandDropped counts a command the dispatcher refused.
func IncCommandDropped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if commandsDropped != nil {
		commandsDropped.WithLabelValues(reason).Inc()
	}
}

// IncCommandApplied counts a driver round trip.
func IncCommandApplied(result string) {
	if commandsApplied != nil {
		commandsApplied.WithLabelValues(result).Inc()
	}
}

// IncMQTTMessage counts an MQTT telemetry message.
func IncMQTTMessage(result string) {
	if mqttMessages != nil {
		mqttMessages.WithLabelValues(result).Inc()
	}
}
