// Package prom exposes fuse circuit breaker state as Prometheus metrics.
//
// Gauges are sampled from a [fuse.CircuitBreaker] on scrape; counters are
// fed by [fuse.Hooks] callbacks. Because hooks must be installed when the
// policy is built, wiring happens in two steps:
//
//	hooks, _ := prom.NewHooks("payments", registerer)
//	p := fuse.NewPolicy[Receipt]("payments",
//		fuse.WithHooks(hooks),
//		fuse.WithCircuitBreaker(fuse.FailureThreshold(5)),
//	)
//	_ = prom.RegisterMetrics("payments", p.CircuitBreaker(), registerer)
package prom

import (
	"errors"
	"unicode/utf8"

	prometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fusekit/fuse"
)

const (
	// MetricsNamespace is the common metric namespace (prefix).
	MetricsNamespace = "circuit_breaker"

	// OpenStateMetricName is the suffix of the open metric.
	OpenStateMetricName = "open"
	openStateMetricHelp = "One if the circuit is not in the closed state."

	// ConsecutiveFailuresMetricName is the suffix of the failure count metric.
	ConsecutiveFailuresMetricName = "consecutive_failures"
	consecutiveFailuresMetricHelp = "Consecutive classified failures recorded by the circuit breaker."

	// TransitionsMetricName is the suffix of the transitions metric.
	TransitionsMetricName = "transitions_total"
	transitionsMetricHelp = "Number of circuit breaker state transitions."

	// RejectionsMetricName is the suffix of the rejections metric.
	RejectionsMetricName = "rejections_total"
	rejectionsMetricHelp = "Number of calls rejected while the circuit was open."

	// BreakerNameLabel is the label name for the circuit breaker name.
	BreakerNameLabel = "name"
	// TransitionLabel is the label name for the transition target state.
	TransitionLabel = "to"
)

// ErrInvalidBreakerName reports a breaker name that is not valid UTF-8.
var ErrInvalidBreakerName = errors.New("invalid circuit breaker name")

// RegisterMetricsToDefaultRegisterer registers the breaker gauges with the
// Prometheus DefaultRegisterer, labeled with name.
func RegisterMetricsToDefaultRegisterer(name string, cb *fuse.CircuitBreaker) error {
	return RegisterMetrics(name, cb, prometheus.DefaultRegisterer)
}

// RegisterMetrics registers the breaker gauges with the provided Registerer,
// labeled with name. It returns ErrInvalidBreakerName if name is not a valid
// UTF-8 string.
func RegisterMetrics(name string, cb *fuse.CircuitBreaker, registerer prometheus.Registerer) error {
	return RegisterMetricsWithFactory(name, cb, promauto.With(registerer))
}

// RegisterMetricsWithFactory registers the breaker gauges using the provided
// promauto Factory, labeled with name. It returns ErrInvalidBreakerName if
// name is not a valid UTF-8 string.
func RegisterMetricsWithFactory(name string, cb *fuse.CircuitBreaker, factory promauto.Factory) error {
	if !utf8.ValidString(name) {
		return ErrInvalidBreakerName
	}

	openStateGauge(name, cb, factory)
	consecutiveFailuresGauge(name, cb, factory)

	return nil
}

func openStateGauge(name string, cb *fuse.CircuitBreaker, factory promauto.Factory) {
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   MetricsNamespace,
			Name:        OpenStateMetricName,
			Help:        openStateMetricHelp,
			ConstLabels: prometheus.Labels{BreakerNameLabel: name},
		},
		func() float64 {
			if cb.State() == fuse.Closed {
				return 0.0
			}

			return 1.0
		},
	)
}

func consecutiveFailuresGauge(name string, cb *fuse.CircuitBreaker, factory promauto.Factory) {
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   MetricsNamespace,
			Name:        ConsecutiveFailuresMetricName,
			Help:        consecutiveFailuresMetricHelp,
			ConstLabels: prometheus.Labels{BreakerNameLabel: name},
		},
		func() float64 {
			return float64(cb.FailureCount())
		},
	)
}

// NewHooksForDefaultRegisterer builds counter-backed hooks registered with
// the Prometheus DefaultRegisterer.
func NewHooksForDefaultRegisterer(name string) (fuse.Hooks, error) {
	return NewHooks(name, prometheus.DefaultRegisterer)
}

// NewHooks builds a [fuse.Hooks] whose circuit breaker callbacks increment
// Prometheus counters registered with the provided Registerer. Transition
// counters are labeled with the target state; rejections get their own
// counter. It returns ErrInvalidBreakerName if name is not a valid UTF-8
// string.
func NewHooks(name string, registerer prometheus.Registerer) (fuse.Hooks, error) {
	return NewHooksWithFactory(name, promauto.With(registerer))
}

// NewHooksWithFactory builds counter-backed hooks using the provided
// promauto Factory.
func NewHooksWithFactory(name string, factory promauto.Factory) (fuse.Hooks, error) {
	if !utf8.ValidString(name) {
		return fuse.Hooks{}, ErrInvalidBreakerName
	}

	transitions := factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        TransitionsMetricName,
			Help:        transitionsMetricHelp,
			ConstLabels: prometheus.Labels{BreakerNameLabel: name},
		},
		[]string{TransitionLabel},
	)

	rejections := factory.NewCounter(
		prometheus.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        RejectionsMetricName,
			Help:        rejectionsMetricHelp,
			ConstLabels: prometheus.Labels{BreakerNameLabel: name},
		},
	)

	return fuse.Hooks{
		OnCircuitOpen: func() {
			transitions.WithLabelValues("open").Inc()
		},
		OnCircuitClose: func() {
			transitions.WithLabelValues("closed").Inc()
		},
		OnCircuitHalfOpen: func() {
			transitions.WithLabelValues("half_open").Inc()
		},
		OnCircuitRejected: rejections.Inc,
	}, nil
}
