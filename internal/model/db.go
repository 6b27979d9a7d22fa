package model

import (
	"errors"
	"fmt"

	"github.com/piwi3910/polysolve/internal/lattice"
)

// Load-time validation errors.
var (
	ErrBadShape     = errors.New("piece shape must be exactly four connected cells")
	ErrDuplicate    = errors.New("two piece ids share a congruent shape")
	ErrUnknownPiece = errors.New("unknown piece id")
)

// PieceDB maps every piece id to its full orientation set. It is built once
// by Load and immutable afterwards, so the fit finder and solver can share it
// read-only across concurrent runs.
type PieceDB struct {
	pieces       []Piece
	orientations map[string][]Orientation
	// byShape maps a canonical shape key to the (piece, orientation) pair it
	// belongs to; it backs MatchShape.
	byShape map[string]Match
}

// Match identifies the (piece, orientation) pair a shape resolved to.
type Match struct {
	PieceID       string
	OrientationID int
}

// Load builds the piece database for the built-in 25-piece library.
func Load() (*PieceDB, error) {
	return LoadPieces(BaseShapes())
}

// LoadPieces builds a piece database from an explicit piece table. For every
// piece it derives the full orientation set by applying the lattice's proper
// rotation group to the base shape and collapsing duplicates under
// normalization. It fails fast on malformed shapes and on two distinct piece
// ids that are congruent under rotation.
func LoadPieces(pieces []Piece) (*PieceDB, error) {
	db := &PieceDB{
		pieces:       make([]Piece, 0, len(pieces)),
		orientations: make(map[string][]Orientation, len(pieces)),
		byShape:      make(map[string]Match),
	}
	for _, p := range pieces {
		if err := validateShape(p); err != nil {
			return nil, fmt.Errorf("piece %q: %w", p.ID, err)
		}
		if _, dup := db.orientations[p.ID]; dup {
			return nil, fmt.Errorf("piece %q: duplicate piece id", p.ID)
		}

		orients := deriveOrientations(p)
		for _, o := range orients {
			if prev, clash := db.byShape[o.normalized]; clash {
				return nil, fmt.Errorf("pieces %q and %q: %w", prev.PieceID, p.ID, ErrDuplicate)
			}
			db.byShape[o.normalized] = Match{PieceID: p.ID, OrientationID: o.ID}
		}
		db.pieces = append(db.pieces, p)
		db.orientations[p.ID] = orients
	}
	return db, nil
}

// validateShape checks the 4-cell and connectivity invariants of a base
// shape.
func validateShape(p Piece) error {
	if len(p.Cells) != PieceSize {
		return ErrBadShape
	}
	seen := make(map[lattice.Cell]bool, PieceSize)
	for _, c := range p.Cells {
		if seen[c] {
			return ErrBadShape
		}
		seen[c] = true
	}
	if !connected(p.Cells) {
		return ErrBadShape
	}
	return nil
}

// connected reports whether the cells form one component under adjacency.
func connected(cells []lattice.Cell) bool {
	if len(cells) == 0 {
		return false
	}
	visited := map[int]bool{0: true}
	frontier := []int{0}
	for len(frontier) > 0 {
		cur := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for i, c := range cells {
			if !visited[i] && lattice.Adjacent(cells[cur], c) {
				visited[i] = true
				frontier = append(frontier, i)
			}
		}
	}
	return len(visited) == len(cells)
}

// deriveOrientations applies every proper rotation to the base shape and
// keeps one representative per normalized form, in rotation order, so
// orientation ids are stable across loads.
func deriveOrientations(p Piece) []Orientation {
	var out []Orientation
	seen := make(map[string]bool)
	for _, r := range lattice.Rotations {
		rotated := r.ApplyAll(p.Cells)
		key := shapeKey(rotated)
		if seen[key] {
			continue
		}
		seen[key] = true

		// Re-anchor so the rotated anchor cell sits at the origin.
		anchor := rotated[0]
		offsets := make([]lattice.Cell, len(rotated))
		for i, c := range rotated {
			offsets[i] = c.Sub(anchor)
		}
		out = append(out, Orientation{
			ID:         len(out),
			Offsets:    offsets,
			normalized: key,
		})
	}
	return out
}

// Pieces returns the library's pieces in load order.
func (db *PieceDB) Pieces() []Piece { return db.pieces }

// GetOrientations returns the full orientation set of a piece, or nil for an
// unknown id. The returned slice must not be modified.
func (db *PieceDB) GetOrientations(pieceID string) []Orientation {
	return db.orientations[pieceID]
}

// MatchShape resolves an arbitrary 4-cell shape to the (piece, orientation)
// pair it is congruent to under translation. It returns ok=false for shapes
// that match no known piece, including malformed or disconnected input.
// Matching is deterministic: congruent inputs always resolve to the same
// pair because the database holds exactly one entry per normalized form.
func (db *PieceDB) MatchShape(cells []lattice.Cell) (Match, bool) {
	if len(cells) != PieceSize {
		return Match{}, false
	}
	seen := make(map[lattice.Cell]bool, PieceSize)
	for _, c := range cells {
		if seen[c] {
			return Match{}, false
		}
		seen[c] = true
	}
	m, ok := db.byShape[shapeKey(cells)]
	return m, ok
}
