// Package stats exposes solve-time counters -- decisions, propagations,
// conflicts, restarts, models found -- via github.com/prometheus/client_golang,
// following a small-interface-plus-injected-collectors shape: a
// Collector is built once and set with Set/Inc, injected into whatever
// needs to report rather than read from a global.
package stats

import "github.com/prometheus/client_golang/prometheus"

// Collector is the counters a single solve run updates. It is not a
// prometheus.Collector itself; it owns one and registers it, matching
// pkg/metrics.MetricsProvider's role of wrapping prometheus types
// behind a narrow interface the rest of the module depends on.
type Collector struct {
	decisions prometheus.Counter
	propagations prometheus.Counter
	conflicts prometheus.Counter
	restarts prometheus.Counter
	models prometheus.Counter
	nogoods prometheus.Gauge
}

// NewCollector builds a Collector and registers its metrics with reg.
// Passing a fresh prometheus.NewRegistry() keeps successive solves (as
// in tests) from colliding on the default global registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		decisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hexsolve_decisions_total",
			Help: "Number of decisions made by the CDNL engine.",
		}),
		propagations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hexsolve_propagations_total",
			Help: "Number of literals assigned by unit propagation.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hexsolve_conflicts_total",
			Help: "Number of conflicts encountered.",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hexsolve_restarts_total",
			Help: "Number of Luby-sequence restarts performed.",
		}),
		models: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hexsolve_models_total",
			Help: "Number of answer sets reported.",
		}),
		nogoods: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hexsolve_nogoods",
			Help: "Number of nogoods currently in the store.",
		}),
	}
	reg.MustRegister(c.decisions, c.propagations, c.conflicts, c.restarts, c.models, c.nogoods)
	return c
}

// ObserveDecision, ObservePropagation, ObserveConflict and
// ObserveRestart take no arguments so that a cdnl.Observer adapter can
// call them without stats importing symtab/nogood to spell out
// cdnl.Observer's exact method signatures. This module defines no such
// adapter, and cmd/hexsolve builds no Collector.
func (c *Collector) ObserveDecision() { c.decisions.Inc() }
func (c *Collector) ObservePropagation() { c.propagations.Inc() }
func (c *Collector) ObserveConflict() { c.conflicts.Inc() }
func (c *Collector) ObserveRestart() { c.restarts.Inc() }
func (c *Collector) ObserveModel() { c.models.Inc() }
func (c *Collector) SetNogoodCount(n int) { c.nogoods.Set(float64(n)) }
