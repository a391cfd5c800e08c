package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gclog/gclog-go/pkg/gclog/event"
)

const namespace = "gclog"

// EngineMetrics holds the counters updated while a log is processed.
type EngineMetrics struct {
	// Lines counts every line handed to the collector parsers.
	Lines prometheus.Counter

	// Unmatched counts lines no parser recognized.
	Unmatched prometheus.Counter

	// LineErrors counts lines on which a parser returned an error.
	LineErrors prometheus.Counter

	// Events counts emitted events by category and type.
	Events *prometheus.CounterVec

	// Pauses observes the duration of pause events in seconds.
	Pauses *prometheus.HistogramVec
}

// NewEngineMetrics creates engine metrics registered with reg. Engines
// sharing a registry share its counters.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		Lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "lines_total",
			Help:      "Total number of log lines processed.",
		}),
		Unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "unmatched_lines_total",
			Help:      "Total number of log lines no parser recognized.",
		}),
		LineErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "line_errors_total",
			Help:      "Total number of log lines on which a parser failed.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_total",
			Help:      "Total number of events emitted, by category and type.",
		}, []string{"category", "type"}),
		Pauses: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "pause_seconds",
			Help:      "Duration of stop-the-world pauses in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"category"}),
	}

	m.Lines = register(reg, m.Lines)
	m.Unmatched = register(reg, m.Unmatched)
	m.LineErrors = register(reg, m.LineErrors)
	m.Events = register(reg, m.Events)
	m.Pauses = register(reg, m.Pauses)
	return m
}

// register registers c, or returns the equal collector already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordLine counts one processed line.
func (m *EngineMetrics) RecordLine(matched bool) {
	m.Lines.Inc()
	if !matched {
		m.Unmatched.Inc()
	}
}

// RecordLineError counts one line on which a parser failed.
func (m *EngineMetrics) RecordLineError() {
	m.LineErrors.Inc()
}

// RecordEvent counts ev and observes its pause duration when known.
func (m *EngineMetrics) RecordEvent(ev event.Event) {
	m.Events.WithLabelValues(string(ev.Category), string(ev.Type)).Inc()
	if ev.IsPause() && ev.HasDuration() {
		m.Pauses.WithLabelValues(string(ev.Category)).Observe(ev.Duration)
	}
}
