package observability

import (
	"context"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tagbridge"

// Metrics holds the dispatcher collectors.
type Metrics struct {
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	openDuration    prometheus.Histogram
	hits            *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of dispatched commands by outcome",
			},
			[]string{"command", "status", "kind"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Time from dispatch to response delivery",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Total number of session lifecycle transitions",
			},
			[]string{"from", "to"},
		),
		openDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "container_open_duration_seconds",
				Help:      "Duration of successful container opens",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hits_total",
				Help:      "Total number of hits handed to send, by outcome",
			},
			[]string{"hit_type", "outcome"},
		),
	}
	reg.MustRegister(m.commands, m.commandDuration, m.transitions, m.openDuration, m.hits)
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommand: func(_ context.Context, e *domain.CommandEvent) {
			m.commands.WithLabelValues(string(e.Command), string(e.Status), string(e.Kind)).Inc()
			m.commandDuration.WithLabelValues(string(e.Command)).Observe(e.Duration.Seconds())
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnOpen: func(_ context.Context, _ *domain.TransitionEvent, d time.Duration) {
			m.openDuration.Observe(d.Seconds())
		},
		OnHit: func(_ context.Context, e *domain.HitEvent) {
			m.hits.WithLabelValues(e.HitType, e.Outcome).Inc()
		},
	}
}
