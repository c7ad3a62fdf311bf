package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nova"

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	StageVisits  *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	Turns        *prometheus.CounterVec
	TurnDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. Collectors
// already registered by a previous call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StageVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_visits_total",
				Help:      "Total number of workflow stage visits",
			},
			[]string{"stage"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "external_call_duration_seconds",
				Help:      "Duration of each external call attempt",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service", "operation", "outcome"},
		),
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Processed turns by final status and error kind",
			},
			[]string{"status", "kind"},
		),
		TurnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "End to end duration of processed turns",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 90},
			},
		),
	}

	var err error
	if m.StageVisits, err = register(reg, m.StageVisits); err != nil {
		return nil, err
	}
	if m.CallDuration, err = register(reg, m.CallDuration); err != nil {
		return nil, err
	}
	if m.Turns, err = register(reg, m.Turns); err != nil {
		return nil, err
	}
	if m.TurnDuration, err = register(reg, m.TurnDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			m.StageVisits.WithLabelValues(string(e.Stage)).Inc()
		},
		OnExternalCall: func(_ context.Context, e *domain.CallEvent) {
			m.CallDuration.WithLabelValues(e.Service, e.Operation, e.Outcome).Observe(e.Duration.Seconds())
		},
		OnTurnComplete: func(_ context.Context, e *domain.TurnEvent) {
			kind := string(e.Kind)
			if kind == "" {
				kind = "none"
			}
			m.Turns.WithLabelValues(string(e.Status), kind).Inc()
			m.TurnDuration.Observe(e.Duration.Seconds())
		},
	}
}

// Handler exposes the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
