package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics tracks validation counters on a private registry; nothing here
// touches the process-global default registry.
type Metrics struct {
	registry *prometheus.Registry

	attempts  prometheus.Counter
	failures  prometheus.Counter
	timeouts  prometheus.Counter
	durations prometheus.Histogram
}

// NewMetrics creates the registry and collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodeharness_restart_attempts_total",
			Help: "Total daemon restart attempts executed",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodeharness_restart_failures_total",
			Help: "Restart attempts that violated the expected signature",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodeharness_restart_timeouts_total",
			Help: "Restart attempts killed for overrunning the wait deadline",
		}),
		durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nodeharness_restart_duration_seconds",
			Help:    "Wall-clock duration of each restart attempt",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(m.attempts, m.failures, m.timeouts, m.durations)
	return m
}

// ObserveAttempt updates counters from an attempt record
func (m *Metrics) ObserveAttempt(a Attempt) {
	m.attempts.Inc()
	if a.TimedOut {
		m.timeouts.Inc()
	}
	if !a.Passed {
		m.failures.Inc()
	}
	m.durations.Observe(a.Duration.Seconds())
}

// WriteTextfile writes the registry in text exposition format, suitable for
// the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	defer f.Close()

	encoder := expfmt.NewEncoder(f, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}

	return nil
}
