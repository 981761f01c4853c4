// Package metrics exposes prometheus instruments for the measurement cycle.
// They are served on /metrics in serve mode.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "weather_metrics"

var (
	// Attempts counts sensor read attempts by fault ("none" for accepted reads).
	Attempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "read_attempts_total",
			Help:      "Sensor read attempts by fault",
		},
		[]string{"fault"},
	)

	PowerCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "power_cycles_total",
			Help:      "Sensor power cycles",
		},
	)

	Acquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "acquisitions_total",
			Help:      "Acquisition runs by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "attempts_total",
			Help:      "Submission attempts by sink and result",
		},
		[]string{"sink", "result"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "runs_total",
			Help:      "Submission runs by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)

	Temperature = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last valid temperature",
		},
	)

	Humidity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "humidity_percent",
			Help:      "Last valid relative humidity",
		},
	)

	LastReading = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reading_timestamp_seconds",
			Help:      "Unix time of the last valid reading",
		},
	)
)
