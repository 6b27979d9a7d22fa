// Package engine implements placement enumeration and the exact-cover search
// over a container: the interactive fit finder, the precomputed placement
// index, the pausable backtracking solver, and the prefix-parallel backend.
package engine

import (
	"fmt"

	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
)

// FitRequest names the inputs of a fit enumeration: the container, the cells
// already taken, the anchor the user is pointing at, and the piece to try.
type FitRequest struct {
	Container *model.Container
	Occupied  map[lattice.Cell]bool
	Anchor    lattice.Cell
	PieceID   string
}

// ComputeFits enumerates every orientation of the requested piece that,
// anchored at the request's anchor cell, stays fully inside the container and
// overlaps no occupied cell. The result order follows the piece's orientation
// order, so a caller can cycle through fits deterministically.
//
// An anchor that is occupied or outside the container yields an empty result;
// an unknown piece id is a caller error and is reported as one.
func ComputeFits(db *model.PieceDB, req FitRequest) ([]model.Placement, error) {
	orients := db.GetOrientations(req.PieceID)
	if len(orients) == 0 {
		return nil, fmt.Errorf("compute fits: %w: %q", model.ErrUnknownPiece, req.PieceID)
	}
	if !req.Container.Contains(req.Anchor) || req.Occupied[req.Anchor] {
		return nil, nil
	}

	var fits []model.Placement
	for _, o := range orients {
		pl := model.NewPlacement(req.PieceID, o, req.Anchor)
		if placementFits(pl, req.Container, req.Occupied) {
			fits = append(fits, pl)
		}
	}
	return fits, nil
}

func placementFits(pl model.Placement, container *model.Container, occupied map[lattice.Cell]bool) bool {
	for _, c := range pl.Cells {
		if !container.Contains(c) || occupied[c] {
			return false
		}
	}
	return true
}
