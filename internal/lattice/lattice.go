// Package lattice provides the integer coordinate model for the
// face-centered-cubic sphere packing that the puzzle is built on: the cell
// value type, the adjacency predicate, shape normalization, and the proper
// rotation group used to enumerate piece orientations.
package lattice

import "fmt"

// Cell identifies one lattice point by its integer (i, j, k) coordinates.
// Cells are immutable values; equality and map membership are by coordinate.
type Cell struct {
	I int `json:"i"`
	J int `json:"j"`
	K int `json:"k"`
}

// Key returns the canonical string encoding of a cell, used wherever cells
// act as set or map members in serialized form.
func (c Cell) Key() string {
	return fmt.Sprintf("%d,%d,%d", c.I, c.J, c.K)
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.I, c.J, c.K)
}

// Add returns the cell translated by d.
func (c Cell) Add(d Cell) Cell {
	return Cell{I: c.I + d.I, J: c.J + d.J, K: c.K + d.K}
}

// Sub returns the component-wise difference c - d.
func (c Cell) Sub(d Cell) Cell {
	return Cell{I: c.I - d.I, J: c.J - d.J, K: c.K - d.K}
}

// Less orders cells lexicographically by (i, j, k). It gives every cell set a
// single canonical ordering, which keeps orientation ids and shape matching
// deterministic across runs.
func (c Cell) Less(d Cell) bool {
	if c.I != d.I {
		return c.I < d.I
	}
	if c.J != d.J {
		return c.J < d.J
	}
	return c.K < d.K
}

// Adjacent reports whether two cells are nearest neighbors in the packing.
// The component-wise absolute difference must have exactly one or exactly two
// components equal to 1 and every remaining component equal to 0.
func Adjacent(a, b Cell) bool {
	ones := 0
	for _, d := range [3]int{a.I - b.I, a.J - b.J, a.K - b.K} {
		switch {
		case d == 1 || d == -1:
			ones++
		case d != 0:
			return false
		}
	}
	return ones == 1 || ones == 2
}

// Normalize translates a shape so that the minimum i, j and k over its cells
// each become zero (each axis independently). Translated-but-congruent shapes
// normalize to the same cell set, which is what orientation deduplication and
// shape matching compare.
func Normalize(cells []Cell) []Cell {
	if len(cells) == 0 {
		return nil
	}
	min := cells[0]
	for _, c := range cells[1:] {
		if c.I < min.I {
			min.I = c.I
		}
		if c.J < min.J {
			min.J = c.J
		}
		if c.K < min.K {
			min.K = c.K
		}
	}
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = c.Sub(min)
	}
	return out
}

// ColorClass assigns a cell to one of two parity color classes. Every
// placement of a piece covers a number of odd-class cells that the solver can
// precompute, which is what the color-residue pruning rule counts against.
func ColorClass(c Cell) int {
	s := c.I + c.J + c.K
	if s%2 != 0 {
		return 1
	}
	return 0
}

// NumColorClasses is the number of values ColorClass can take.
const NumColorClasses = 2

// Rotation is an integer 3x3 matrix applied to cell coordinates.
type Rotation [3][3]int

// Apply transforms a single cell.
func (r Rotation) Apply(c Cell) Cell {
	return Cell{
		I: r[0][0]*c.I + r[0][1]*c.J + r[0][2]*c.K,
		J: r[1][0]*c.I + r[1][1]*c.J + r[1][2]*c.K,
		K: r[2][0]*c.I + r[2][1]*c.J + r[2][2]*c.K,
	}
}

// ApplyAll transforms every cell of a shape.
func (r Rotation) ApplyAll(cells []Cell) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = r.Apply(c)
	}
	return out
}

// Rotations holds the 24 proper rotations of the lattice: all signed
// permutation matrices with determinant +1. Applying each one to a base shape
// and deduplicating under Normalize yields the orientation set of a piece.
// The slice order is fixed so orientation ids are stable.
var Rotations = properRotations()

func properRotations() []Rotation {
	perms := [6][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	permSign := [6]int{1, -1, -1, 1, 1, -1}

	var out []Rotation
	for pi, p := range perms {
		for sBits := 0; sBits < 8; sBits++ {
			signs := [3]int{1, 1, 1}
			det := permSign[pi]
			for axis := 0; axis < 3; axis++ {
				if sBits&(1<<axis) != 0 {
					signs[axis] = -1
					det = -det
				}
			}
			if det != 1 {
				continue
			}
			var m Rotation
			for row := 0; row < 3; row++ {
				m[row][p[row]] = signs[row]
			}
			out = append(out, m)
		}
	}
	return out
}
