// Package observability provides Prometheus metrics for mapdrive.
//
// mapdrive is a one-shot process, so metrics are not served over HTTP. They
// are written to a .prom file for the windows_exporter (or node_exporter)
// textfile collector to pick up.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// namespace is the Prometheus metric namespace prefix for all mapdrive metrics.
	namespace = "mapdrive"
)

// Metrics holds all Prometheus metrics for mapdrive.
type Metrics struct {
	registry *prometheus.Registry

	// Mapping metrics
	connectAttemptsTotal *prometheus.CounterVec
	mapOpsTotal          *prometheus.CounterVec
	mapDuration          prometheus.Histogram
	lastRunTimestamp     prometheus.Gauge

	// Disconnect metrics
	disconnectsTotal *prometheus.CounterVec

	// Security audit metrics
	securityEventsTotal *prometheus.CounterVec

	// Reachability probe metrics
	probeChecksTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
// Uses a custom registry so only mapdrive series end up in the textfile.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		connectAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_attempts_total",
				Help:      "Total number of drive connection attempts by result",
			},
			[]string{"result"},
		),

		mapOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "map_operations_total",
				Help:      "Total number of mapping runs by outcome",
			},
			[]string{"outcome"},
		),

		mapDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "map_duration_seconds",
			Help:      "Wall time from start of a mapping run to its outcome",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),

		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last mapping run finished",
		}),

		disconnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disconnects_total",
				Help:      "Total number of forced disconnects by status",
			},
			[]string{"status"},
		),

		securityEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "security_events_total",
				Help:      "Total number of security audit events by type and outcome",
			},
			[]string{"type", "outcome"},
		),

		probeChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probe_checks_total",
				Help:      "Total number of SMB port reachability checks by port and result",
			},
			[]string{"port", "result"},
		),
	}

	// Register all metrics with the custom registry
	reg.MustRegister(
		m.connectAttemptsTotal,
		m.mapOpsTotal,
		m.mapDuration,
		m.lastRunTimestamp,
		m.disconnectsTotal,
		m.securityEventsTotal,
		m.probeChecksTotal,
	)

	return m
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in text exposition format to path.
// The file is written atomically (temp file + rename).
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// RecordConnectAttempt records one connection attempt.
// class should be "retryable" or "fatal" for failed attempts.
func (m *Metrics) RecordConnectAttempt(err error, class string) {
	result := "success"
	if err != nil {
		result = class
	}
	m.connectAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordMapOutcome records the end of a mapping run.
// outcome should be one of: already_online, mapped, exhausted, aborted, canceled.
func (m *Metrics) RecordMapOutcome(outcome string, duration time.Duration) {
	m.mapOpsTotal.WithLabelValues(outcome).Inc()
	m.mapDuration.Observe(duration.Seconds())
	m.lastRunTimestamp.SetToCurrentTime()
}

// RecordDisconnect records a forced disconnect.
func (m *Metrics) RecordDisconnect(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.disconnectsTotal.WithLabelValues(status).Inc()
}

// RecordProbe records one port reachability check.
func (m *Metrics) RecordProbe(port string, reachable bool) {
	result := "unreachable"
	if reachable {
		result = "reachable"
	}
	m.probeChecksTotal.WithLabelValues(port, result).Inc()
}

// RecordSecurityEvent records one security audit event.
func (m *Metrics) RecordSecurityEvent(eventType, outcome string) {
	m.securityEventsTotal.WithLabelValues(eventType, outcome).Inc()
}
