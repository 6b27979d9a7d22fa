// Package metrics exposes solver progress as Prometheus metrics. A Collector
// wraps the engine callbacks, so any run can be observed by passing its
// callbacks through Observe.
package metrics

import (
	"net/http"
	"sync"

	"github.com/piwi3910/polysolve/internal/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the solver metrics.
type Collector struct {
	nodesVisited   prometheus.Counter
	solutionsFound prometheus.Counter
	runsFinished   *prometheus.CounterVec
	searchDepth    prometheus.Gauge
	nodesPerSec    prometheus.Gauge

	// Status snapshots report cumulative node counts per run; the counter
	// needs deltas, so remember the last seen count per run id.
	mu        sync.Mutex
	lastNodes map[string]int64
}

// NewCollector builds and registers the solver metrics. A nil registerer
// uses the default Prometheus registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		nodesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "polysolve_nodes_visited_total",
			Help: "Total number of search nodes expanded",
		}),
		solutionsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "polysolve_solutions_found_total",
			Help: "Total number of complete covers found",
		}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polysolve_runs_finished_total",
			Help: "Total number of finished runs by stop reason",
		}, []string{"reason"}),
		searchDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "polysolve_search_depth",
			Help: "Current depth of the search stack",
		}),
		nodesPerSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "polysolve_nodes_per_second",
			Help: "Search speed over the last status interval",
		}),
		lastNodes: make(map[string]int64),
	}

	reg.MustRegister(c.nodesVisited)
	reg.MustRegister(c.solutionsFound)
	reg.MustRegister(c.runsFinished)
	reg.MustRegister(c.searchDepth)
	reg.MustRegister(c.nodesPerSec)
	return c
}

// Observe wraps engine callbacks so every event also updates the metrics.
// The wrapped hooks still fire.
func (c *Collector) Observe(cb engine.Callbacks) engine.Callbacks {
	return engine.Callbacks{
		OnStatus: func(s engine.StatusSnapshot) {
			c.recordStatus(s.RunID, s.Nodes)
			c.searchDepth.Set(float64(s.Depth))
			c.nodesPerSec.Set(s.NodesPerSec)
			if cb.OnStatus != nil {
				cb.OnStatus(s)
			}
		},
		OnSolution: func(s engine.Solution) {
			c.solutionsFound.Inc()
			if cb.OnSolution != nil {
				cb.OnSolution(s)
			}
		},
		OnDone: func(s engine.RunSummary) {
			c.recordStatus(s.RunID, s.Nodes)
			c.forgetRun(s.RunID)
			c.runsFinished.WithLabelValues(string(s.Reason)).Inc()
			c.searchDepth.Set(0)
			if cb.OnDone != nil {
				cb.OnDone(s)
			}
		},
	}
}

// recordStatus advances the node counter by the delta since the last report
// of the same run.
func (c *Collector) recordStatus(runID string, nodes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := c.lastNodes[runID]
	if nodes > last {
		c.nodesVisited.Add(float64(nodes - last))
		c.lastNodes[runID] = nodes
	}
}

func (c *Collector) forgetRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lastNodes, runID)
}

// StartServer exposes the metrics over HTTP at /metrics. It blocks.
func StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
