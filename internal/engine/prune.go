package engine

import "github.com/piwi3910/polysolve/internal/model"

// pruneState evaluates the enabled pruning rules against the current partial
// state. lastPlaced is the placement that was just committed, or nil when
// checking the initial state. A false return means no exact cover can be
// completed from here.
//
// Every rule is sound: it only rejects states from which completion is
// impossible, so enabling any subset never hides a reachable solution.
func (r *Run) pruneState(lastPlaced *placement) bool {
	// Inventory is a hard constraint, not a toggle: the remaining pieces
	// must be able to cover the remaining cells at all.
	if r.invTotal*model.PieceSize < r.emptyCount {
		return false
	}

	p := r.settings.Pruning
	if p.Connectivity {
		if !r.checkComponents() {
			return false
		}
	} else if p.MultipleOf4 && r.emptyCount%model.PieceSize != 0 {
		return false
	}

	if p.ColorResidue && !r.checkColorResidue() {
		return false
	}
	if p.NeighborTouch && lastPlaced != nil && !r.checkNeighborTouch(lastPlaced) {
		return false
	}
	return true
}

// checkComponents walks the empty region and verifies each connected
// component is independently completable. Pieces are connected, so every
// piece lands inside a single component; a component whose size is not a
// multiple of the piece size can never be exactly covered.
func (r *Run) checkComponents() bool {
	seen := make([]bool, len(r.occupied))
	for start := range r.occupied {
		if r.occupied[start] || seen[start] {
			continue
		}
		size := 0
		frontier := []int{start}
		seen[start] = true
		for len(frontier) > 0 {
			cur := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			size++
			for _, nb := range r.model.neighbors[cur] {
				if !r.occupied[nb] && !seen[nb] {
					seen[nb] = true
					frontier = append(frontier, nb)
				}
			}
		}
		if size%model.PieceSize != 0 {
			return false
		}
	}
	return true
}

// checkColorResidue bounds the remaining odd-class cells by what the
// remaining inventory can cover. Exactly emptyCount/4 more pieces must be
// placed; each contributes between the minimum and maximum odd-class
// coverage over the pieces that still have inventory. A residue outside
// those bounds cannot be reproduced by any piece combination.
//
// This is a sound relaxation of the exact residue-combination test, which is
// exponential in the inventory size.
func (r *Run) checkColorResidue() bool {
	if r.emptyCount%model.PieceSize != 0 {
		// The residue argument needs a whole number of pieces; leave
		// non-multiple states to the other rules.
		return true
	}
	needed := r.emptyCount / model.PieceSize
	if needed == 0 {
		return r.emptyOdd == 0
	}

	lo, hi := -1, -1
	for pi, left := range r.invLeft {
		if left == 0 || r.noPlacements(pi) {
			continue
		}
		if lo < 0 || r.model.oddMin[pi] < lo {
			lo = r.model.oddMin[pi]
		}
		if hi < 0 || r.model.oddMax[pi] > hi {
			hi = r.model.oddMax[pi]
		}
	}
	if lo < 0 {
		return false // no piece with inventory has any placement at all
	}
	return r.emptyOdd >= needed*lo && r.emptyOdd <= needed*hi
}

// noPlacements reports whether a piece produced no placements at precompute
// time, in which case its color bounds are the sentinel initial values.
func (r *Run) noPlacements(pi int) bool {
	return r.model.oddMax[pi] < 0
}

// checkNeighborTouch is the adjacency-based forward check behind the
// neighborTouch toggle: every still-empty cell adjacent to the cells of the
// freshly committed placement must remain coverable by at least one
// placement whose four cells are all empty. A cell that no placement can
// cover anymore makes the branch dead regardless of the rest of the search,
// so the rule never rejects a completable state.
func (r *Run) checkNeighborTouch(last *placement) bool {
	for _, ci := range last.cells {
		for _, nb := range r.model.neighbors[ci] {
			if r.occupied[nb] {
				continue
			}
			coverable := false
			for _, pid := range r.model.byCell[nb] {
				pl := &r.model.placements[pid]
				if r.invLeft[pl.piece] > 0 && r.freeCells(pl) {
					coverable = true
					break
				}
			}
			if !coverable {
				return false
			}
		}
	}
	return true
}
