package model

import "github.com/piwi3910/polysolve/internal/lattice"

// baseShapes is the canonical 25-piece library, ids A through Y. Each shape
// is four connected cells with the anchor at index 0. The shapes are pairwise
// non-congruent under the proper rotation group; Load validates that
// invariant every time the library is built.
var baseShapes = []Piece{
	{ID: "A", Cells: cells4(0, 0, 0, 1, 0, 0, 2, 0, 0, 3, 0, 0)}, // straight run
	{ID: "B", Cells: cells4(0, 0, 0, 1, 0, 0, 2, 0, 0, 2, 1, 0)}, // ell
	{ID: "C", Cells: cells4(0, 0, 0, 1, 0, 0, 2, 0, 0, 1, 1, 0)}, // tee
	{ID: "D", Cells: cells4(0, 0, 0, 1, 0, 0, 1, 1, 0, 2, 1, 0)}, // ess
	{ID: "E", Cells: cells4(0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0)}, // square
	{ID: "F", Cells: cells4(0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1)}, // axis tripod
	{ID: "G", Cells: cells4(0, 0, 0, 1, 0, 0, 2, 0, 0, 3, 1, 0)}, // run, hooked end
	{ID: "H", Cells: cells4(0, 0, 0, 1, 1, 0, 2, 2, 0, 3, 2, 0)}, // double slant, step out
	{ID: "I", Cells: cells4(0, 0, 0, 1, 1, 0, 2, 2, 0, 3, 3, 0)}, // straight slant run
	{ID: "J", Cells: cells4(0, 0, 0, 1, 1, 0, 2, 2, 0, 2, 2, 1)}, // slant run, lifted end
	{ID: "K", Cells: cells4(0, 0, 0, 1, 0, 0, 1, 1, 1, 2, 1, 1)}, // offset zed
	{ID: "L", Cells: cells4(0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 1)}, // flat wedge
	{ID: "M", Cells: cells4(0, 0, 0, 1, 1, 0, 1, 0, 1, 0, 1, 1)}, // regular tetrahedron
	{ID: "N", Cells: cells4(0, 0, 0, 1, 0, 0, 0, 1, 1, 1, 1, 1)}, // slant rectangle
	{ID: "O", Cells: cells4(0, 0, 0, 1, 0, 0, 1, 1, 0, 1, 1, 1)}, // screw
	{ID: "P", Cells: cells4(0, 0, 0, 1, 0, 0, 2, 0, 0, 2, 1, 1)}, // run, slant hook
	{ID: "Q", Cells: cells4(0, 0, 0, 1, 1, 0, 2, 0, 0, 3, 1, 0)}, // slant zigzag
	{ID: "R", Cells: cells4(0, 0, 0, 1, 1, 0, 2, 0, 0, 1, -1, 0)}, // rhombus
	{ID: "S", Cells: cells4(0, 0, 0, 1, 0, 0, 2, 1, 0, 3, 1, 0)}, // long zed
	{ID: "T", Cells: cells4(0, 0, 0, 1, 1, 0, 2, 0, 0, 2, 0, 1)}, // slant vee, lifted end
	{ID: "U", Cells: cells4(0, 0, 0, 1, 1, 0, 1, -1, 0, -1, 0, 1)}, // slant tripod
	{ID: "V", Cells: cells4(0, 0, 0, 1, 0, 0, 2, 0, 0, 1, 1, 1)}, // run, slant branch
	{ID: "W", Cells: cells4(0, 0, 0, 1, 1, 0, 1, 1, 1, 2, 0, 1)}, // twisted chain
	{ID: "X", Cells: cells4(0, 0, 0, 1, 1, 0, 1, 2, 1, 2, 2, 2)}, // spiral slant run
	{ID: "Y", Cells: cells4(0, 0, 0, 1, 0, 0, 1, 1, 1, 1, 2, 1)}, // hook, slant tail
}

func cells4(v ...int) []lattice.Cell {
	out := make([]lattice.Cell, 0, PieceSize)
	for i := 0; i+2 < len(v); i += 3 {
		out = append(out, lattice.Cell{I: v[i], J: v[i+1], K: v[i+2]})
	}
	return out
}

// PieceIDs returns the ids of the built-in library in canonical order.
func PieceIDs() []string {
	ids := make([]string, len(baseShapes))
	for i, p := range baseShapes {
		ids[i] = p.ID
	}
	return ids
}

// BaseShapes returns a copy of the built-in 25-piece library.
func BaseShapes() []Piece {
	out := make([]Piece, len(baseShapes))
	for i, p := range baseShapes {
		cells := make([]lattice.Cell, len(p.Cells))
		copy(cells, p.Cells)
		out[i] = Piece{ID: p.ID, Cells: cells}
	}
	return out
}
