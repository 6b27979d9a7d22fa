package engine

import (
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/piwi3910/polysolve/internal/model"
)

// StopReason states why a run terminated.
type StopReason string

const (
	// ReasonComplete means the search space was exhausted.
	ReasonComplete StopReason = "complete"
	// ReasonTimeout means the wall-clock budget expired.
	ReasonTimeout StopReason = "timeout"
	// ReasonSolutionLimit means MaxSolutions was reached.
	ReasonSolutionLimit StopReason = "solutionLimit"
)

// StatusSnapshot is a progress report emitted while a run is searching.
// Snapshots are immutable; the engine retains nothing after emission.
type StatusSnapshot struct {
	RunID       string
	Depth       int
	Nodes       int64
	Placed      int
	Stack       []model.Placement
	NodesPerSec float64
}

// Solution is one complete exact cover: the committed placement stack at the
// moment every container cell was filled.
type Solution struct {
	RunID      string
	Placements []model.Placement
}

// RunSummary is the terminal report of a run.
type RunSummary struct {
	RunID     string
	Reason    StopReason
	Elapsed   time.Duration
	Nodes     int64
	Solutions int
}

// Callbacks carries the three observer hooks of a run. Every invocation is
// tagged with the run id, so a caller holding several overlapping runs can
// discard events from a superseded one. Nil hooks are skipped.
type Callbacks struct {
	OnStatus   func(StatusSnapshot)
	OnSolution func(Solution)
	OnDone     func(RunSummary)
}

type runState int

const (
	stateRunning runState = iota
	statePaused
	stateDone
)

// frame is one level of the iterative depth-first search. cands holds the
// placement ids branching over the chosen cell; chosen is the placement that
// was committed to enter this frame (-1 at the root).
type frame struct {
	cands  []int
	next   int
	chosen int
}

// Run is one solver invocation. The search advances on a single runner
// goroutine in bounded node slices; Pause stops scheduling further slices
// after the current one and Resume continues from the preserved stack.
type Run struct {
	id       string
	model    *PrecomputedModel
	settings SolveSettings
	cb       Callbacks

	mu    sync.Mutex
	cond  *sync.Cond
	state runState

	// Search state. Touched only by the runner goroutine.
	occupied   []bool
	emptyCount int
	emptyOdd   int
	invLeft    []int
	invTotal   int
	stack      []frame
	placed     []int
	rng        *rand.Rand

	nodes     int64
	solutions int
	started   time.Time
	deadline  time.Time

	lastStatus      time.Time
	lastStatusNodes int64

	doneCh   chan struct{}
	doneOnce sync.Once
	summary  RunSummary
}

// Solve starts a run against a precomputed model. The returned Run is
// already searching; callbacks fire on its runner goroutine.
func Solve(m *PrecomputedModel, settings SolveSettings, cb Callbacks) (*Run, error) {
	r, err := newRun(m, settings, cb)
	if err != nil {
		return nil, err
	}
	r.seedSearch()
	go r.loop()
	return r, nil
}

// newRun builds a run with its initial search state but does not seed the
// root frame or start the runner goroutine. The prefix-parallel backend uses
// it to drive suffix searches directly.
func newRun(m *PrecomputedModel, settings SolveSettings, cb Callbacks) (*Run, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	r := &Run{
		id:       uuid.New().String(),
		model:    m,
		settings: settings,
		cb:       cb,
		state:    stateRunning,
		occupied: make([]bool, m.container.Len()),
		invLeft:  make([]int, len(m.pieces)),
		rng:      rand.New(rand.NewSource(settings.Seed)),
		doneCh:   make(chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)

	r.emptyCount = m.container.Len()
	r.emptyOdd = m.oddCells
	for i, p := range m.pieces {
		n := 1
		if settings.Inventory != nil {
			n = settings.Inventory[p.ID]
		}
		r.invLeft[i] = n
		r.invTotal += n
	}

	r.started = time.Now()
	r.lastStatus = r.started
	if settings.Timeout > 0 {
		r.deadline = r.started.Add(settings.Timeout)
	}
	return r, nil
}

// ID returns the unique identity of this run.
func (r *Run) ID() string { return r.id }

// Pause asks the run to stop scheduling further slices after the current
// one. The search stack is preserved. Pausing a finished run is a no-op.
func (r *Run) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateRunning {
		r.state = statePaused
	}
}

// Resume restarts slicing from the exact point of suspension.
func (r *Run) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == statePaused {
		r.state = stateRunning
		r.cond.Broadcast()
	}
}

// Wait blocks until the run terminates and returns its summary.
func (r *Run) Wait() RunSummary {
	<-r.doneCh
	return r.summary
}

// seedSearch validates the initial state and pushes the root frame. A state
// that is dead before the first placement leaves the stack empty, so the
// first slice reports exhaustion with no nodes visited.
func (r *Run) seedSearch() {
	if r.invTotal*model.PieceSize < r.emptyCount {
		return // inventory cannot possibly fill the container
	}
	if !r.pruneState(nil) {
		return
	}
	r.stack = append(r.stack, frame{cands: r.candidates(), chosen: -1})
}

type stepResult int

const (
	stepMore stepResult = iota
	stepExhausted
	stepLimit
)

// step advances the search by at most maxNodes node expansions.
func (r *Run) step(maxNodes int) stepResult {
	for n := 0; n < maxNodes; n++ {
		if len(r.stack) == 0 {
			return stepExhausted
		}
		f := &r.stack[len(r.stack)-1]
		if f.next >= len(f.cands) {
			r.stack = r.stack[:len(r.stack)-1]
			if f.chosen >= 0 {
				r.unapply(f.chosen)
			}
			continue
		}

		pid := f.cands[f.next]
		f.next++
		pl := &r.model.placements[pid]
		if r.invLeft[pl.piece] == 0 || !r.freeCells(pl) {
			continue
		}

		r.apply(pid)
		r.nodes++

		if r.emptyCount == 0 {
			r.solutions++
			r.emitSolution()
			limit := r.settings.MaxSolutions > 0 && r.solutions >= r.settings.MaxSolutions
			r.unapply(pid)
			if limit {
				return stepLimit
			}
			continue
		}

		if !r.pruneState(pl) {
			r.unapply(pid)
			continue
		}
		r.stack = append(r.stack, frame{cands: r.candidates(), chosen: pid})
	}
	return stepMore
}

// loop is the cooperative scheduler: bounded slices interleaved with yields,
// deadline and limit checks at slice boundaries only.
func (r *Run) loop() {
	for {
		r.mu.Lock()
		for r.state == statePaused {
			r.cond.Wait()
		}
		if r.state == stateDone {
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		res := r.step(r.settings.SliceNodes)
		r.maybeEmitStatus()

		switch {
		case res == stepExhausted:
			r.finish(ReasonComplete)
			return
		case res == stepLimit:
			r.finish(ReasonSolutionLimit)
			return
		case !r.deadline.IsZero() && time.Now().After(r.deadline):
			r.finish(ReasonTimeout)
			return
		}
		runtime.Gosched()
	}
}

func (r *Run) finish(reason StopReason) {
	r.mu.Lock()
	r.state = stateDone
	r.cond.Broadcast()
	r.mu.Unlock()

	r.doneOnce.Do(func() {
		r.summary = RunSummary{
			RunID:     r.id,
			Reason:    reason,
			Elapsed:   time.Since(r.started),
			Nodes:     r.nodes,
			Solutions: r.solutions,
		}
		if r.cb.OnDone != nil {
			r.cb.OnDone(r.summary)
		}
		close(r.doneCh)
	})
}

func (r *Run) emitSolution() {
	if r.cb.OnSolution == nil {
		return
	}
	r.cb.OnSolution(Solution{RunID: r.id, Placements: r.placedPlacements()})
}

func (r *Run) maybeEmitStatus() {
	if r.cb.OnStatus == nil {
		return
	}
	now := time.Now()
	elapsed := now.Sub(r.lastStatus)
	if elapsed < r.settings.StatusInterval {
		return
	}
	rate := float64(r.nodes-r.lastStatusNodes) / elapsed.Seconds()
	r.lastStatus = now
	r.lastStatusNodes = r.nodes

	r.cb.OnStatus(StatusSnapshot{
		RunID:       r.id,
		Depth:       len(r.stack),
		Nodes:       r.nodes,
		Placed:      len(r.placed),
		Stack:       r.placedPlacements(),
		NodesPerSec: rate,
	})
}

func (r *Run) placedPlacements() []model.Placement {
	out := make([]model.Placement, len(r.placed))
	for i, pid := range r.placed {
		out[i] = r.model.placements[pid].public
	}
	return out
}

func (r *Run) freeCells(pl *placement) bool {
	for _, ci := range pl.cells {
		if r.occupied[ci] {
			return false
		}
	}
	return true
}

func (r *Run) apply(pid int) {
	pl := &r.model.placements[pid]
	for _, ci := range pl.cells {
		r.occupied[ci] = true
	}
	r.emptyCount -= model.PieceSize
	r.emptyOdd -= pl.odd
	r.invLeft[pl.piece]--
	r.invTotal--
	r.placed = append(r.placed, pid)
}

func (r *Run) unapply(pid int) {
	pl := &r.model.placements[pid]
	for _, ci := range pl.cells {
		r.occupied[ci] = false
	}
	r.emptyCount += model.PieceSize
	r.emptyOdd += pl.odd
	r.invLeft[pl.piece]++
	r.invTotal++
	r.placed = r.placed[:len(r.placed)-1]
}

// inTail reports whether the endgame strategy switch is active: below the
// threshold the search stops shuffling and enumerates exhaustively.
func (r *Run) inTail() bool {
	return r.settings.TailSwitch.Enable && r.emptyCount <= r.settings.TailSwitch.TailSize
}

// candidates picks the branching cell by the most-constrained-cell heuristic
// and returns the legal placements covering it, ordered deterministically
// unless the shuffle strategy applies.
func (r *Run) candidates() []int {
	bestCell := -1
	bestCount := -1
	var ties []int

	for ci := range r.occupied {
		if r.occupied[ci] {
			continue
		}
		count := 0
		for _, pid := range r.model.byCell[ci] {
			pl := &r.model.placements[pid]
			if r.invLeft[pl.piece] > 0 && r.freeCells(pl) {
				count++
			}
		}
		switch {
		case bestCell < 0 || count < bestCount:
			bestCell = ci
			bestCount = count
			ties = ties[:0]
			ties = append(ties, ci)
		case count == bestCount:
			ties = append(ties, ci)
		}
	}
	if bestCell < 0 {
		return nil
	}
	if r.settings.RandomizeTies && !r.inTail() && len(ties) > 1 {
		bestCell = ties[r.rng.Intn(len(ties))]
	}

	var cands []int
	for _, pid := range r.model.byCell[bestCell] {
		pl := &r.model.placements[pid]
		if r.invLeft[pl.piece] > 0 && r.freeCells(pl) {
			cands = append(cands, pid)
		}
	}
	if r.shouldShuffle() {
		r.rng.Shuffle(len(cands), func(a, b int) { cands[a], cands[b] = cands[b], cands[a] })
	}
	return cands
}

// firstCellCandidates branches on the lowest-index empty cell instead of the
// most constrained one. The prefix enumerator uses it when MRV is disabled.
func (r *Run) firstCellCandidates() []int {
	for ci := range r.occupied {
		if r.occupied[ci] {
			continue
		}
		var cands []int
		for _, pid := range r.model.byCell[ci] {
			pl := &r.model.placements[pid]
			if r.invLeft[pl.piece] > 0 && r.freeCells(pl) {
				cands = append(cands, pid)
			}
		}
		return cands
	}
	return nil
}

func (r *Run) shouldShuffle() bool {
	if r.inTail() {
		return false
	}
	switch r.settings.Shuffle {
	case ShuffleInitial:
		return len(r.stack) == 0
	case ShuffleContinuous:
		return true
	default:
		return false
	}
}
