package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveParallel_MatchesSerialResults(t *testing.T) {
	db := loadDB(t)
	container := block(2, 2, 4)
	m := precompute(t, container, db)
	settings := SolveSettings{
		Inventory: map[string]int{"E": 4},
		Pruning:   allPruning(),
	}

	var serial collector
	r, err := Solve(m, settings, serial.callbacks())
	require.NoError(t, err)
	want := r.Wait()

	var parallel collector
	h, err := SolveParallel(m, settings, PrefixSettings{
		PrefixDepth:       2,
		TargetPrefixCount: 64,
		ThreadBudget:      4,
		UseMRV:            true,
	}, parallel.callbacks())
	require.NoError(t, err)
	got := h.Wait()

	assert.Equal(t, ReasonComplete, got.Reason)
	assert.Equal(t, want.Solutions, got.Solutions)
	assert.ElementsMatch(t, solutionKeys(serial.solutions), solutionKeys(parallel.solutions),
		"the lanes must find exactly the serial solution set")
	for _, sol := range parallel.solutions {
		assertExactCover(t, container, sol)
		assert.Equal(t, h.ID(), sol.RunID)
	}
	require.Len(t, parallel.summaries, 1)
}

func TestSolveParallel_FirstCellPrefixesCoverTheSameSpace(t *testing.T) {
	db := loadDB(t)
	m := precompute(t, block(2, 2, 2), db)
	settings := SolveSettings{
		Inventory: map[string]int{"E": 2},
		Pruning:   allPruning(),
	}

	var c collector
	h, err := SolveParallel(m, settings, PrefixSettings{
		PrefixDepth:       1,
		TargetPrefixCount: 8,
		ThreadBudget:      2,
		UseMRV:            false,
	}, c.callbacks())
	require.NoError(t, err)
	sum := h.Wait()

	assert.Equal(t, ReasonComplete, sum.Reason)
	assert.Equal(t, 3, sum.Solutions)
}

func TestSolveParallel_PrefixDeeperThanTheSearch(t *testing.T) {
	db := loadDB(t)
	container := tetraContainer()
	m := precompute(t, container, db)

	// Depth exceeds the only solution's length, so the enumerator captures the
	// cover as a complete prefix and the lane emits it directly.
	var c collector
	h, err := SolveParallel(m, SolveSettings{}, PrefixSettings{
		PrefixDepth:       3,
		TargetPrefixCount: 16,
		ThreadBudget:      2,
	}, c.callbacks())
	require.NoError(t, err)
	sum := h.Wait()

	assert.Equal(t, ReasonComplete, sum.Reason)
	assert.Equal(t, 1, sum.Solutions)
	assert.Positive(t, sum.Nodes, "enumeration work counts toward the summary")
	require.Len(t, c.solutions, 1)
	assertExactCover(t, container, c.solutions[0])
	assert.Equal(t, "F", c.solutions[0].Placements[0].PieceID)
}

func TestSolveParallel_SolutionLimitAcrossLanes(t *testing.T) {
	db := loadDB(t)
	m := precompute(t, block(2, 2, 4), db)

	var c collector
	h, err := SolveParallel(m, SolveSettings{
		MaxSolutions: 1,
		Inventory:    map[string]int{"E": 4},
	}, PrefixSettings{
		PrefixDepth:       2,
		TargetPrefixCount: 32,
		ThreadBudget:      4,
	}, c.callbacks())
	require.NoError(t, err)
	sum := h.Wait()

	assert.Equal(t, ReasonSolutionLimit, sum.Reason)
	assert.Equal(t, 1, sum.Solutions)
	assert.Len(t, c.solutions, 1, "the global limit caps emissions across all lanes")
}

func TestSolveParallel_DeadRootCompletesEmpty(t *testing.T) {
	db := loadDB(t)
	line := make([]lattice.Cell, 6)
	for i := range line {
		line[i] = lattice.Cell{I: i}
	}
	m := precompute(t, model.NewContainer(line), db)

	var c collector
	h, err := SolveParallel(m, SolveSettings{
		Pruning: PruningSettings{MultipleOf4: true},
	}, DefaultPrefixSettings(), c.callbacks())
	require.NoError(t, err)
	sum := h.Wait()

	assert.Equal(t, ReasonComplete, sum.Reason)
	assert.Zero(t, sum.Solutions)
	assert.Empty(t, c.solutions)
}

func TestSolveParallel_FallbackToSerial(t *testing.T) {
	db := loadDB(t)
	m := precompute(t, block(2, 2, 2), db)
	settings := SolveSettings{Inventory: map[string]int{"E": 2}}
	bad := PrefixSettings{ThreadBudget: -1, FallbackToCPU: true}

	var c collector
	h, err := SolveParallel(m, settings, bad, c.callbacks())
	require.NoError(t, err)
	sum := h.Wait()
	assert.Equal(t, ReasonComplete, sum.Reason)
	assert.Equal(t, 3, sum.Solutions)

	bad.FallbackToCPU = false
	_, err = SolveParallel(m, settings, bad, Callbacks{})
	assert.Error(t, err, "without fallback, invalid prefix settings must surface")
}

func TestSolveParallel_PauseResume(t *testing.T) {
	db := loadDB(t)
	m := precompute(t, block(2, 2, 4), db)

	var c collector
	h, err := SolveParallel(m, SolveSettings{
		Inventory:  map[string]int{"E": 4},
		SliceNodes: 4,
	}, PrefixSettings{
		PrefixDepth:       2,
		TargetPrefixCount: 32,
		ThreadBudget:      2,
	}, c.callbacks())
	require.NoError(t, err)

	h.Pause()
	time.Sleep(time.Millisecond)
	h.Resume()
	sum := h.Wait()

	assert.Equal(t, ReasonComplete, sum.Reason)
	assert.Positive(t, sum.Solutions)
	for _, sol := range c.solutions {
		assertExactCover(t, block(2, 2, 4), sol)
	}
}

func TestSolveParallel_CallbacksNeverOverlap(t *testing.T) {
	db := loadDB(t)
	m := precompute(t, block(2, 4, 4), db)

	// A shared flag catches any two callback invocations running at once,
	// across hooks and lanes alike.
	var inFlight int32
	var overlaps int32
	enter := func() {
		if !atomic.CompareAndSwapInt32(&inFlight, 0, 1) {
			atomic.AddInt32(&overlaps, 1)
		}
	}
	exit := func() { atomic.StoreInt32(&inFlight, 0) }

	// Plain appends, no lock: the emitter's serialization is what makes an
	// unsynchronized consumer safe.
	var solutions []Solution
	h, err := SolveParallel(m, SolveSettings{
		Inventory:      map[string]int{"E": 8, "A": 4, "B": 4},
		Pruning:        allPruning(),
		StatusInterval: time.Nanosecond,
		SliceNodes:     8,
	}, PrefixSettings{
		PrefixDepth:       2,
		TargetPrefixCount: 64,
		ThreadBudget:      16,
		UseMRV:            true,
	}, Callbacks{
		OnStatus: func(StatusSnapshot) {
			enter()
			exit()
		},
		OnSolution: func(s Solution) {
			enter()
			solutions = append(solutions, s)
			exit()
		},
	})
	require.NoError(t, err)
	sum := h.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps), "callbacks must fire one at a time")
	assert.Len(t, solutions, sum.Solutions, "an unsynchronized consumer must not lose solutions")
	assert.Positive(t, sum.Solutions)
}

func TestSolveParallel_SolutionsStreamDuringTheSearch(t *testing.T) {
	db := loadDB(t)
	m := precompute(t, block(2, 2, 4), db)

	ready := make(chan struct{})
	pausedAfterFirst := make(chan struct{})
	var mu sync.Mutex
	var got []Solution
	var h Handle

	cb := Callbacks{OnSolution: func(s Solution) {
		<-ready
		mu.Lock()
		got = append(got, s)
		n := len(got)
		mu.Unlock()
		if n == 1 {
			h.Pause()
			close(pausedAfterFirst)
		}
	}}

	var err error
	h, err = SolveParallel(m, SolveSettings{
		Inventory:  map[string]int{"E": 4},
		Pruning:    allPruning(),
		SliceNodes: 1,
	}, PrefixSettings{
		PrefixDepth:       1,
		TargetPrefixCount: 16,
		ThreadBudget:      1,
	}, cb)
	require.NoError(t, err)
	close(ready)

	// Each prefix subtree holds several covers; the first must surface while
	// the rest of its subtree is still unexplored, not after it completes.
	<-pausedAfterFirst
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	during := len(got)
	mu.Unlock()
	assert.Equal(t, 1, during, "a paused run must not keep emitting")

	h.Resume()
	sum := h.Wait()
	assert.Equal(t, ReasonComplete, sum.Reason)
	assert.Greater(t, sum.Solutions, 1)
	mu.Lock()
	assert.Len(t, got, sum.Solutions)
	mu.Unlock()
}

func TestEnumeratePrefixes_DisjointAndCovering(t *testing.T) {
	db := loadDB(t)
	m := precompute(t, block(2, 2, 4), db)
	settings := SolveSettings{Inventory: map[string]int{"E": 4}}
	require.NoError(t, settings.Validate())

	prefixes, nodes, err := enumeratePrefixes(m, settings, PrefixSettings{
		PrefixDepth:       2,
		TargetPrefixCount: 64,
		ThreadBudget:      1,
		UseMRV:            true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, prefixes)
	assert.Positive(t, nodes)

	// The branching cell is fixed per node, so two prefixes must disagree on
	// the placement covering some shared branching cell.
	seen := make(map[string]bool)
	for _, pf := range prefixes {
		key := ""
		for _, pid := range pf.placements {
			key += m.placements[pid].public.String() + "|"
		}
		assert.False(t, seen[key], "duplicate prefix %s", key)
		seen[key] = true
		assert.NotEmpty(t, pf.placements)
	}
}

func TestEnumeratePrefixes_TargetCapRecordsShallowerPrefixes(t *testing.T) {
	db := loadDB(t)
	m := precompute(t, block(2, 2, 4), db)
	settings := SolveSettings{Inventory: map[string]int{"E": 4}}
	require.NoError(t, settings.Validate())

	capped, _, err := enumeratePrefixes(m, settings, PrefixSettings{
		PrefixDepth:       3,
		TargetPrefixCount: 2,
		ThreadBudget:      1,
		UseMRV:            true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, capped)

	shallower := 0
	for _, pf := range capped {
		if len(pf.placements) < 3 && !pf.complete {
			shallower++
		}
	}
	assert.Positive(t, shallower, "once the target is reached remaining branches stay as shallow prefixes")
}

func TestPrefixSettings_Validate(t *testing.T) {
	ps := PrefixSettings{}
	require.NoError(t, ps.Validate())
	assert.Equal(t, 2, ps.PrefixDepth)
	assert.Equal(t, 256, ps.TargetPrefixCount)
	assert.Positive(t, ps.ThreadBudget)

	bad := PrefixSettings{PrefixDepth: -1}
	assert.Error(t, bad.Validate())
}
