package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector exposes per-simulation Prometheus metrics. It satisfies
// simulation.MetricsRecorder.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Steps         *prometheus.CounterVec
	StepDurations *prometheus.HistogramVec
	Fields        *prometheus.GaugeVec
	RecordedRows  *prometheus.CounterVec
}

// NewSimCollector registers simulation metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	reg, gatherer := gathererFor(reg)

	steps, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "psim_steps_total",
		Help: "Simulation steps executed, labeled by simulation and result.",
	}, []string{"simulation", "result"}), "psim_steps_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "psim_step_duration_seconds",
		Help:    "Wall-clock duration of one simulation step.",
		Buckets: []float64{1e-6, 1e-5, 1e-4, 5e-4, 1e-3, 5e-3, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"simulation"}), "psim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	fields, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "psim_fields",
		Help: "Fields registered in the simulation state, labeled by access.",
	}, []string{"simulation", "access"}), "psim_fields")
	if err != nil {
		return nil, err
	}

	rows, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "psim_recorded_samples_total",
		Help: "Field samples written by the recorder.",
	}, []string{"simulation"}), "psim_recorded_samples_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:      gatherer,
		Steps:         steps,
		StepDurations: durations,
		Fields:        fields,
		RecordedRows:  rows,
	}, nil
}

// ObserveStep records one step outcome.
func (c *SimCollector) ObserveStep(sim string, d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Steps.WithLabelValues(sim, result).Inc()
	c.StepDurations.WithLabelValues(sim).Observe(d.Seconds())
}

// SetFieldCounts updates the registry size gauges.
func (c *SimCollector) SetFieldCounts(sim string, readable, writable int) {
	if c == nil {
		return
	}
	c.Fields.WithLabelValues(sim, "readable").Set(float64(readable))
	c.Fields.WithLabelValues(sim, "writable").Set(float64(writable))
}

// AddRecordedSamples counts samples persisted by the recorder.
func (c *SimCollector) AddRecordedSamples(sim string, n int) {
	if c == nil {
		return
	}
	c.RecordedRows.WithLabelValues(sim).Add(float64(n))
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
