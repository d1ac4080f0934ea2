package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the logic engine.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with evaluation and validation paths.
type Collector interface {
	IncEvaluation(form string)
	IncCalculationFailure(form, field string)
	IncCycleDetected(form string)
	IncValidationRejected(form string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncEvaluation(string)                 {}
func (noopCollector) IncCalculationFailure(string, string) {}
func (noopCollector) IncCycleDetected(string)              {}
func (noopCollector) IncValidationRejected(string)         {}

// PrometheusCollector exposes engine counters via Prometheus.
type PrometheusCollector struct {
	evaluations         *prometheus.CounterVec
	calculationFailures *prometheus.CounterVec
	cyclesDetected      *prometheus.CounterVec
	validationRejected  *prometheus.CounterVec
}

var (
	evaluationCounter         *prometheus.CounterVec
	evaluationCounterLock     sync.Mutex
	calculationFailureCounter *prometheus.CounterVec
	calculationFailureLock    sync.Mutex
	cycleDetectedCounter      *prometheus.CounterVec
	cycleDetectedCounterLock  sync.Mutex
	validationRejectedCounter *prometheus.CounterVec
	validationRejectedLock    sync.Mutex
)

func registerCounter(reg prometheus.Registerer, lock *sync.Mutex, current **prometheus.CounterVec, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	lock.Lock()
	defer lock.Unlock()
	if *current != nil {
		return *current, nil
	}
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				*current = existing
				return existing, nil
			}
		}
		return nil, err
	}
	*current = counter
	return counter, nil
}

// NewPrometheusCollector registers the engine metrics with the provided
// registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	evaluations, err := registerCounter(reg, &evaluationCounterLock, &evaluationCounter, prometheus.CounterOpts{
		Name: "formlogic_evaluation_passes_total",
		Help: "Number of full calculation passes executed per form.",
	}, []string{"form"})
	if err != nil {
		return nil, err
	}

	failures, err := registerCounter(reg, &calculationFailureLock, &calculationFailureCounter, prometheus.CounterOpts{
		Name: "formlogic_calculation_failures_total",
		Help: "Number of per-field calculation failures, by form and field.",
	}, []string{"form", "field"})
	if err != nil {
		return nil, err
	}

	cycles, err := registerCounter(reg, &cycleDetectedCounterLock, &cycleDetectedCounter, prometheus.CounterOpts{
		Name: "formlogic_cycles_detected_total",
		Help: "Number of circular dependency rejections per form.",
	}, []string{"form"})
	if err != nil {
		return nil, err
	}

	rejected, err := registerCounter(reg, &validationRejectedLock, &validationRejectedCounter, prometheus.CounterOpts{
		Name: "formlogic_validation_rejected_total",
		Help: "Number of configuration validation rejections per form.",
	}, []string{"form"})
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		evaluations:         evaluations,
		calculationFailures: failures,
		cyclesDetected:      cycles,
		validationRejected:  rejected,
	}, nil
}

// IncEvaluation increments the evaluation pass counter for a form.
func (p *PrometheusCollector) IncEvaluation(form string) {
	if p == nil || p.evaluations == nil {
		return
	}
	p.evaluations.WithLabelValues(form).Inc()
}

// IncCalculationFailure records a per-field calculation failure.
func (p *PrometheusCollector) IncCalculationFailure(form, field string) {
	if p == nil || p.calculationFailures == nil {
		return
	}
	p.calculationFailures.WithLabelValues(form, field).Inc()
}

// IncCycleDetected records a rejected circular dependency.
func (p *PrometheusCollector) IncCycleDetected(form string) {
	if p == nil || p.cyclesDetected == nil {
		return
	}
	p.cyclesDetected.WithLabelValues(form).Inc()
}

// IncValidationRejected records a configuration validation rejection.
func (p *PrometheusCollector) IncValidationRejected(form string) {
	if p == nil || p.validationRejected == nil {
		return
	}
	p.validationRejected.WithLabelValues(form).Inc()
}
