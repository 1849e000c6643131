// Package metrics defines the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jun/markpad/core/plugin"
)

// Metrics groups the collectors recorded by handlers.
type Metrics struct {
	Renders        *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	Formats        *prometheus.CounterVec
	PluginEvents   *prometheus.CounterVec
	Locks          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "markpad_renders_total",
				Help: "Markdown renders by kind (preview, export) and outcome",
			},
			[]string{"kind", "outcome"},
		),
		RenderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "markpad_render_duration_seconds",
				Help:    "Duration of Markdown renders",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"kind"},
		),
		Formats: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "markpad_format_requests_total",
				Help: "formatText requests by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		PluginEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "markpad_plugin_events_total",
				Help: "Plugin registry lifecycle events",
			},
			[]string{"event"},
		),
		Locks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "markpad_lock_operations_total",
				Help: "Edit lock operations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
	}
	reg.MustRegister(m.Renders, m.RenderDuration, m.Formats, m.PluginEvents, m.Locks)
	return m
}

// NewNop returns collectors registered nowhere, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveRender records one render started at start.
func (m *Metrics) ObserveRender(kind string, start time.Time, err error) {
	m.Renders.WithLabelValues(kind, Outcome(err)).Inc()
	m.RenderDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// Watch counts the lifecycle events of reg. The returned func stops
// counting.
func (m *Metrics) Watch(reg *plugin.Registry) func() {
	events := []string{
		plugin.EventRegistered,
		plugin.EventUnregistered,
		plugin.EventEnabled,
		plugin.EventDisabled,
		plugin.EventConfig,
	}
	offs := make([]func(), 0, len(events))
	for _, ev := range events {
		counter := m.PluginEvents.WithLabelValues(ev)
		offs = append(offs, reg.On(ev, func(...any) error {
			counter.Inc()
			return nil
		}))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// Outcome is the label value for an operation's result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
