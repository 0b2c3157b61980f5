// Package metrics exports stash outcomes as Prometheus counters.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gravitas-games/logistics/internal/stash"
)

// Run results used as the result label of logistics_stash_runs_total.
const (
	ResultOK          = "ok"
	ResultLoss        = "loss"
	ResultAborted     = "aborted"
	ResultNoInventory = "no_inventory"
)

// Stash counts runs, legs and items by outcome.
type Stash struct {
	registry *prometheus.Registry
	legs     *prometheus.CounterVec
	items    *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

// New creates the counters on a private registry that also carries the Go
// and process collectors.
func New() *Stash {
	reg := prometheus.NewRegistry()
	m := &Stash{
		registry: reg,
		legs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logistics",
			Subsystem: "stash",
			Name:      "legs_total",
			Help:      "Transfer legs by final state.",
		}, []string{"state"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logistics",
			Subsystem: "stash",
			Name:      "items_total",
			Help:      "Items by outcome: removed, added, restored or lost.",
		}, []string{"state"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logistics",
			Subsystem: "stash",
			Name:      "runs_total",
			Help:      "Redistribution runs by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.legs, m.items, m.runs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Record adds one report to the counters.
func (m *Stash) Record(_ context.Context, r stash.Report) error {
	m.runs.WithLabelValues(Result(r)).Inc()
	for _, leg := range r.Legs {
		m.legs.WithLabelValues(leg.State.String()).Inc()
	}
	t := r.Totals()
	m.items.WithLabelValues("removed").Add(float64(t.Removed))
	m.items.WithLabelValues("added").Add(float64(t.Added))
	m.items.WithLabelValues("restored").Add(float64(t.Restored))
	m.items.WithLabelValues("lost").Add(float64(t.Lost))
	return nil
}

// Result classifies a report for the runs counter.
func Result(r stash.Report) string {
	switch {
	case r.Aborted:
		return ResultAborted
	case r.NoInventory:
		return ResultNoInventory
	case r.HasLoss():
		return ResultLoss
	default:
		return ResultOK
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Stash) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for extra collectors.
func (m *Stash) Registry() *prometheus.Registry { return m.registry }
