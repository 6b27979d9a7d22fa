package metrics

import (
	"testing"

	"github.com/piwi3910/polysolve/internal/engine"
	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCubeModel(t *testing.T) *engine.PrecomputedModel {
	t.Helper()
	db, err := model.Load()
	require.NoError(t, err)
	var cells []lattice.Cell
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				cells = append(cells, lattice.Cell{I: i, J: j, K: k})
			}
		}
	}
	m, err := engine.Precompute(model.NewContainer(cells), db)
	require.NoError(t, err)
	return m
}

func TestNewCollector_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	require.NotNil(t, c)

	// Registering the same names twice must panic.
	assert.Panics(t, func() { NewCollector(reg) })
}

func TestObserve_CountsMatchTheRunSummary(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	m := newCubeModel(t)

	solutions := 0
	doneFired := false
	cb := c.Observe(engine.Callbacks{
		OnSolution: func(engine.Solution) { solutions++ },
		OnDone:     func(engine.RunSummary) { doneFired = true },
	})

	r, err := engine.Solve(m, engine.SolveSettings{
		Inventory:  map[string]int{"E": 2},
		SliceNodes: 1,
	}, cb)
	require.NoError(t, err)
	sum := r.Wait()

	assert.True(t, doneFired, "the wrapped OnDone hook must still fire")
	assert.Equal(t, sum.Solutions, solutions)
	assert.Equal(t, float64(sum.Nodes), testutil.ToFloat64(c.nodesVisited))
	assert.Equal(t, float64(sum.Solutions), testutil.ToFloat64(c.solutionsFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsFinished.WithLabelValues(string(sum.Reason))))
	assert.Zero(t, testutil.ToFloat64(c.searchDepth), "depth gauge resets when the run finishes")
}

func TestObserve_AccumulatesAcrossRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	m := newCubeModel(t)

	var total int64
	for i := 0; i < 3; i++ {
		r, err := engine.Solve(m, engine.SolveSettings{
			Inventory: map[string]int{"E": 2},
		}, c.Observe(engine.Callbacks{}))
		require.NoError(t, err)
		total += r.Wait().Nodes
	}

	assert.Equal(t, float64(total), testutil.ToFloat64(c.nodesVisited))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.runsFinished.WithLabelValues(string(engine.ReasonComplete))))
}

func TestObserve_NilInnerHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	m := newCubeModel(t)

	r, err := engine.Solve(m, engine.SolveSettings{
		Inventory: map[string]int{"E": 2},
	}, c.Observe(engine.Callbacks{}))
	require.NoError(t, err)
	sum := r.Wait()
	assert.Equal(t, engine.ReasonComplete, sum.Reason)
}
