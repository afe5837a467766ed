// Package metrics exposes optimizer and job counters for prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several servers (or tests) can run
// side by side in one process.
type Collector struct {
	registry *prometheus.Registry

	optimizations *prometheus.CounterVec
	iterations    *prometheus.HistogramVec
	duration      *prometheus.HistogramVec
	jobsRunning   prometheus.Gauge
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		optimizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipefit_optimizations_total",
				Help: "Finished optimizations by solver and terminal state",
			},
			[]string{"solver", "state"},
		),
		iterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recipefit_optimizer_iterations",
				Help:    "Outer iterations per optimization",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8), // 10 .. ~164k
			},
			[]string{"solver"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recipefit_optimization_seconds",
				Help:    "Wall time spent in the optimizer",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"solver"},
		),
		jobsRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recipefit_jobs_running",
				Help: "Jobs currently being optimized",
			},
		),
	}

	registry.MustRegister(c.optimizations, c.iterations, c.duration, c.jobsRunning)
	registry.MustRegister(collectors.NewGoCollector())
	return c
}

// RecordOptimization records one finished optimizer run.
func (c *Collector) RecordOptimization(solver, state string, iterations int, elapsed time.Duration) {
	c.optimizations.WithLabelValues(solver, state).Inc()
	c.iterations.WithLabelValues(solver).Observe(float64(iterations))
	c.duration.WithLabelValues(solver).Observe(elapsed.Seconds())
}

// JobStarted increments the running jobs gauge.
func (c *Collector) JobStarted() {
	c.jobsRunning.Inc()
}

// JobFinished decrements the running jobs gauge.
func (c *Collector) JobFinished() {
	c.jobsRunning.Dec()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
