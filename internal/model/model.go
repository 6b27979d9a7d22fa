// Package model defines the puzzle domain: pieces and their orientation
// sets, containers, and placements. A PieceDB is built once at load time and
// is immutable afterwards; the fit finder and the solver share it read-only.
package model

import (
	"fmt"
	"sort"

	"github.com/piwi3910/polysolve/internal/lattice"
)

// PieceSize is the number of cells in every piece.
const PieceSize = 4

// Piece is one entry of the piece library: a one-letter id plus its canonical
// base shape. The anchor is always the cell at index 0.
type Piece struct {
	ID    string         `json:"id"`
	Cells []lattice.Cell `json:"cells"`
}

// Orientation is one lattice-symmetry-equivalent rotation of a piece,
// expressed as four offsets relative to the anchor. The anchor offset is
// always (0,0,0).
type Orientation struct {
	ID      int            `json:"id"`
	Offsets []lattice.Cell `json:"offsets"`

	// normalized holds the sorted normalized form of Offsets, the shape key
	// that matching and deduplication compare.
	normalized string
}

// Container is the finite set of cells forming the target shape of one
// puzzle. It is immutable once created.
type Container struct {
	cells []lattice.Cell
	index map[lattice.Cell]int
}

// NewContainer builds a container from a cell list. Duplicate cells collapse
// to one entry; the stored order is the canonical lexicographic cell order.
func NewContainer(cells []lattice.Cell) *Container {
	set := make(map[lattice.Cell]int, len(cells))
	uniq := make([]lattice.Cell, 0, len(cells))
	for _, c := range cells {
		if _, ok := set[c]; ok {
			continue
		}
		set[c] = 0
		uniq = append(uniq, c)
	}
	sort.Slice(uniq, func(a, b int) bool { return uniq[a].Less(uniq[b]) })
	for i, c := range uniq {
		set[c] = i
	}
	return &Container{cells: uniq, index: set}
}

// Len returns the number of cells in the container.
func (c *Container) Len() int { return len(c.cells) }

// Cells returns the container's cells in canonical order. The caller must
// not modify the returned slice.
func (c *Container) Cells() []lattice.Cell { return c.cells }

// Contains reports container membership.
func (c *Container) Contains(cell lattice.Cell) bool {
	_, ok := c.index[cell]
	return ok
}

// IndexOf returns the canonical index of a cell, or -1 if it is not part of
// the container.
func (c *Container) IndexOf(cell lattice.Cell) int {
	i, ok := c.index[cell]
	if !ok {
		return -1
	}
	return i
}

// Placement is one candidate or committed use of a piece: an orientation of
// a piece pinned to an anchor cell. Cells is always exactly the orientation's
// offsets translated by Anchor.
type Placement struct {
	PieceID       string         `json:"piece"`
	OrientationID int            `json:"orientation"`
	Anchor        lattice.Cell   `json:"anchor"`
	Cells         []lattice.Cell `json:"cells"`
}

// NewPlacement materializes a placement from an orientation and anchor.
func NewPlacement(pieceID string, o Orientation, anchor lattice.Cell) Placement {
	cells := make([]lattice.Cell, len(o.Offsets))
	for i, off := range o.Offsets {
		cells[i] = anchor.Add(off)
	}
	return Placement{
		PieceID:       pieceID,
		OrientationID: o.ID,
		Anchor:        anchor,
		Cells:         cells,
	}
}

func (p Placement) String() string {
	return fmt.Sprintf("%s/%d@%s", p.PieceID, p.OrientationID, p.Anchor)
}

// shapeKey reduces a cell set to a canonical comparable string: the sorted
// normalized cells joined together. Congruent-under-translation shapes share
// a key.
func shapeKey(cells []lattice.Cell) string {
	norm := lattice.Normalize(cells)
	sort.Slice(norm, func(a, b int) bool { return norm[a].Less(norm[b]) })
	key := ""
	for _, c := range norm {
		key += c.Key() + ";"
	}
	return key
}
