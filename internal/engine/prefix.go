package engine

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PrefixSettings configures the accelerated prefix-parallel backend: the
// search space is split into partial placement sequences ("prefixes") of
// fixed depth, and each prefix's suffix space is explored on its own
// execution lane.
type PrefixSettings struct {
	// PrefixDepth is how many placements deep prefixes are enumerated.
	PrefixDepth int `json:"prefix_depth" yaml:"prefixDepth"`
	// TargetPrefixCount caps how many prefixes are generated; once reached,
	// remaining branches are recorded as shallower prefixes so the whole
	// space stays covered.
	TargetPrefixCount int `json:"target_prefix_count" yaml:"targetPrefixCount"`
	// ThreadBudget is the number of parallel lanes. Excess prefixes queue
	// rather than error.
	ThreadBudget int `json:"thread_budget" yaml:"threadBudget"`
	// UseMRV applies the most-constrained-cell heuristic during prefix
	// enumeration; otherwise prefixes branch on the first empty cell.
	UseMRV bool `json:"use_mrv" yaml:"useMRV"`
	// FallbackToCPU reverts to the serial engine when the parallel path is
	// unavailable or fails.
	FallbackToCPU bool `json:"fallback_to_cpu" yaml:"fallbackToCPU"`
}

// DefaultPrefixSettings sizes the backend for the current host.
func DefaultPrefixSettings() PrefixSettings {
	return PrefixSettings{
		PrefixDepth:       2,
		TargetPrefixCount: 256,
		ThreadBudget:      runtime.NumCPU(),
		UseMRV:            true,
		FallbackToCPU:     true,
	}
}

// Validate checks the prefix settings and fills unset values with defaults.
func (ps *PrefixSettings) Validate() error {
	if ps.PrefixDepth < 0 || ps.TargetPrefixCount < 0 || ps.ThreadBudget < 0 {
		return fmt.Errorf("prefix settings: negative values are not allowed")
	}
	if ps.PrefixDepth == 0 {
		ps.PrefixDepth = 2
	}
	if ps.TargetPrefixCount == 0 {
		ps.TargetPrefixCount = 256
	}
	if ps.ThreadBudget == 0 {
		ps.ThreadBudget = runtime.NumCPU()
	}
	return nil
}

// prefix is one unit of parallel work: the placements committed so far.
// complete marks a prefix that is already a full cover.
type prefix struct {
	placements []int
	complete   bool
}

// ParallelRun coordinates one prefix-parallel invocation. It satisfies the
// same external contract as Run: run-id-tagged callbacks that never run
// concurrently, Pause/Resume at slice granularity, and a single terminal
// OnDone.
type ParallelRun struct {
	id       string
	model    *PrecomputedModel
	settings SolveSettings
	cb       Callbacks

	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	stop   bool
	reason StopReason

	// emitMu serializes every callback invocation across lanes, so consumers
	// get the serial engine's one-at-a-time contract without locking.
	emitMu sync.Mutex

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

// SolveParallel starts the accelerated backend. When the parallel path
// cannot start and FallbackToCPU is set, it transparently returns a serial
// run instead; both satisfy Handle.
func SolveParallel(m *PrecomputedModel, settings SolveSettings, ps PrefixSettings, cb Callbacks) (Handle, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := ps.Validate(); err != nil {
		if ps.FallbackToCPU {
			return Solve(m, settings, cb)
		}
		return nil, err
	}

	prefixes, enumNodes, err := enumeratePrefixes(m, settings, ps)
	if err != nil {
		if ps.FallbackToCPU {
			return Solve(m, settings, cb)
		}
		return nil, err
	}

	p := &ParallelRun{
		id:       uuid.New().String(),
		model:    m,
		settings: settings,
		cb:       cb,
		nodes:    enumNodes,
		started:  time.Now(),
		doneCh:   make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	p.lastStatus = p.started
	if settings.Timeout > 0 {
		p.deadline = p.started.Add(settings.Timeout)
	}

	go p.run(prefixes, ps)
	return p, nil
}

// Handle is the common surface of the serial and parallel engines.
type Handle interface {
	ID() string
	Pause()
	Resume()
	Wait() RunSummary
}

// ID returns the unique identity of this run.
func (p *ParallelRun) ID() string { return p.id }

// Pause stops all lanes from scheduling further slices.
func (p *ParallelRun) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Resume lets the lanes continue from their preserved stacks.
func (p *ParallelRun) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	p.cond.Broadcast()
}

// Wait blocks until the run terminates and returns its summary.
func (p *ParallelRun) Wait() RunSummary {
	<-p.doneCh
	return p.summary
}

// enumeratePrefixes splits the search space into disjoint prefixes. The
// branching cell is fixed per node, so two prefixes always differ in which
// placement covers that cell and their subtrees cannot overlap. The returned
// node count is the enumeration work, folded into the run summary.
func enumeratePrefixes(m *PrecomputedModel, settings SolveSettings, ps PrefixSettings) ([]prefix, int64, error) {
	r, err := newRun(m, settings, Callbacks{})
	if err != nil {
		return nil, 0, err
	}
	if !r.pruneState(nil) {
		return nil, 0, nil // dead root: nothing to search
	}

	var out []prefix
	var walk func(depth int)
	walk = func(depth int) {
		if r.emptyCount == 0 {
			out = append(out, prefix{placements: append([]int(nil), r.placed...), complete: true})
			return
		}
		if depth == 0 || len(out) >= ps.TargetPrefixCount {
			out = append(out, prefix{placements: append([]int(nil), r.placed...)})
			return
		}
		var cands []int
		if ps.UseMRV {
			cands = r.candidates()
		} else {
			cands = r.firstCellCandidates()
		}
		for _, pid := range cands {
			pl := &r.model.placements[pid]
			if r.invLeft[pl.piece] == 0 || !r.freeCells(pl) {
				continue
			}
			r.apply(pid)
			r.nodes++
			if r.pruneState(pl) || r.emptyCount == 0 {
				walk(depth - 1)
			}
			r.unapply(pid)
		}
	}
	walk(ps.PrefixDepth)
	return out, r.nodes, nil
}

// run drives the worker pool and owns the terminal report.
func (p *ParallelRun) run(prefixes []prefix, ps PrefixSettings) {
	if len(prefixes) == 0 {
		p.finish(ReasonComplete)
		return
	}

	work := make(chan prefix, len(prefixes))
	for _, pf := range prefixes {
		work <- pf
	}
	close(work)

	// A failed lane remembers how many solutions its prefix already emitted,
	// so the serial retry can replay the subtree without emitting them twice.
	type failedPrefix struct {
		pf      prefix
		emitted int
	}
	var failed []failedPrefix
	var failedMu sync.Mutex

	lanes := ps.ThreadBudget
	if lanes > len(prefixes) {
		lanes = len(prefixes)
	}

	statusDone := make(chan struct{})
	go p.statusLoop(statusDone)

	var wg sync.WaitGroup
	for i := 0; i < lanes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pf := range work {
				if p.stopped() {
					return
				}
				if emitted, err := p.searchPrefix(pf, 0); err != nil {
					failedMu.Lock()
					failed = append(failed, failedPrefix{pf: pf, emitted: emitted})
					failedMu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	close(statusDone)

	// Lanes that failed hand their unexplored prefixes to the serial engine,
	// so no prefix is lost and none runs twice. Replay is deterministic, so
	// skipping the already-emitted solutions is exact.
	if len(failed) > 0 && ps.FallbackToCPU {
		for _, f := range failed {
			if p.stopped() {
				break
			}
			if _, err := p.searchPrefix(f.pf, f.emitted); err != nil {
				break
			}
		}
	}

	p.mu.Lock()
	reason := p.reason
	p.mu.Unlock()
	if reason == "" {
		reason = ReasonComplete
	}
	p.finish(reason)
}

// searchPrefix explores one prefix's suffix space with the serial search
// core. Solutions are emitted as they are found; skip suppresses the first
// emissions when a failed lane's prefix is replayed. Returns how many of the
// subtree's solutions have been emitted so far, skipped ones included.
func (p *ParallelRun) searchPrefix(pf prefix, skip int) (emitted int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lane failed: %v", rec)
		}
	}()

	if pf.complete {
		if skip == 0 {
			p.emit(pf.placements)
		}
		return 1, nil
	}

	settings := p.settings
	settings.MaxSolutions = 0 // the coordinator enforces the global limit
	r, runErr := newRun(p.model, settings, Callbacks{})
	if runErr != nil {
		return 0, runErr
	}
	r.cb.OnSolution = func(Solution) {
		emitted++
		if emitted > skip {
			p.emit(append([]int(nil), r.placed...))
		}
	}
	for _, pid := range pf.placements {
		r.apply(pid)
	}
	r.seedSearch()

	for {
		p.waitIfPaused()
		if p.stopped() {
			// Abandoned mid-subtree by limit or deadline.
			p.addNodes(r.nodes)
			return emitted, nil
		}
		res := r.step(settings.SliceNodes)
		if res == stepExhausted {
			p.addNodes(r.nodes)
			return emitted, nil
		}
		if !p.deadline.IsZero() && time.Now().After(p.deadline) {
			p.signalStop(ReasonTimeout)
			p.addNodes(r.nodes)
			return emitted, nil
		}
		runtime.Gosched()
	}
}

// emit funnels one solution through the shared emitter: counters and the
// global solution limit are settled under the run lock, then the callback
// fires under emitMu so no two invocations ever overlap.
func (p *ParallelRun) emit(pids []int) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if p.settings.MaxSolutions > 0 && p.solutions >= p.settings.MaxSolutions {
		p.mu.Unlock()
		return
	}
	p.solutions++
	if p.settings.MaxSolutions > 0 && p.solutions >= p.settings.MaxSolutions && !p.stop {
		p.stop = true
		p.reason = ReasonSolutionLimit
		p.cond.Broadcast()
	}
	p.mu.Unlock()

	if p.cb.OnSolution == nil {
		return
	}
	sol := Solution{RunID: p.id}
	for _, pid := range pids {
		sol.Placements = append(sol.Placements, p.model.placements[pid].public)
	}
	p.cb.OnSolution(sol)
}

func (p *ParallelRun) addNodes(n int64) {
	p.mu.Lock()
	p.nodes += n
	p.mu.Unlock()
}

func (p *ParallelRun) signalStop(reason StopReason) {
	p.mu.Lock()
	if !p.stop {
		p.stop = true
		p.reason = reason
	}
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *ParallelRun) stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop
}

func (p *ParallelRun) waitIfPaused() {
	p.mu.Lock()
	for p.paused && !p.stop {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

func (p *ParallelRun) statusLoop(done <-chan struct{}) {
	if p.cb.OnStatus == nil {
		return
	}
	ticker := time.NewTicker(p.settings.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			p.mu.Lock()
			nodes := p.nodes
			placed := p.solutions
			p.mu.Unlock()
			elapsed := now.Sub(p.lastStatus)
			rate := 0.0
			if elapsed > 0 {
				rate = float64(nodes-p.lastStatusNodes) / elapsed.Seconds()
			}
			p.lastStatus = now
			p.lastStatusNodes = nodes
			p.emitMu.Lock()
			p.cb.OnStatus(StatusSnapshot{
				RunID:       p.id,
				Nodes:       nodes,
				Placed:      placed,
				NodesPerSec: rate,
			})
			p.emitMu.Unlock()
		}
	}
}

func (p *ParallelRun) finish(reason StopReason) {
	p.doneOnce.Do(func() {
		p.mu.Lock()
		p.summary = RunSummary{
			RunID:     p.id,
			Reason:    reason,
			Elapsed:   time.Since(p.started),
			Nodes:     p.nodes,
			Solutions: p.solutions,
		}
		p.mu.Unlock()
		if p.cb.OnDone != nil {
			p.emitMu.Lock()
			p.cb.OnDone(p.summary)
			p.emitMu.Unlock()
		}
		close(p.doneCh)
	})
}
