// Package export renders solver results to PDF assembly sheets and XLSX
// workbooks.
package export

import (
	"sort"

	"github.com/piwi3910/polysolve/internal/engine"
	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
)

// Report bundles everything the exporters need about a finished run.
type Report struct {
	ContainerName string
	Container     *model.Container
	Summary       engine.RunSummary
	Solutions     []engine.Solution
}

// pieceColor is an RGB color assigned to a piece letter.
type pieceColor struct {
	R, G, B int
}

// pieceColors is the palette cycled over piece letters in diagrams and
// legends.
var pieceColors = []pieceColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// colorFor maps a piece id to its palette color. Single-letter ids spread
// evenly over the palette.
func colorFor(pieceID string) pieceColor {
	if pieceID == "" {
		return pieceColors[0]
	}
	return pieceColors[int(pieceID[0])%len(pieceColors)]
}

// layer is one constant-k slice of a solution: the cells at that height and
// the piece letter occupying each.
type layer struct {
	k     int
	cells map[lattice.Cell]string
}

// solutionLayers splits a solution into per-height slices, lowest first.
func solutionLayers(sol engine.Solution) []layer {
	byK := make(map[int]map[lattice.Cell]string)
	for _, pl := range sol.Placements {
		for _, c := range pl.Cells {
			if byK[c.K] == nil {
				byK[c.K] = make(map[lattice.Cell]string)
			}
			byK[c.K][c] = pl.PieceID
		}
	}
	ks := make([]int, 0, len(byK))
	for k := range byK {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	layers := make([]layer, len(ks))
	for i, k := range ks {
		layers[i] = layer{k: k, cells: byK[k]}
	}
	return layers
}

// bounds returns the inclusive i and j ranges of a container.
func bounds(container *model.Container) (minI, maxI, minJ, maxJ int) {
	first := true
	for _, c := range container.Cells() {
		if first {
			minI, maxI, minJ, maxJ = c.I, c.I, c.J, c.J
			first = false
			continue
		}
		if c.I < minI {
			minI = c.I
		}
		if c.I > maxI {
			maxI = c.I
		}
		if c.J < minJ {
			minJ = c.J
		}
		if c.J > maxJ {
			maxJ = c.J
		}
	}
	return minI, maxI, minJ, maxJ
}

// pieceUsage counts how often each piece letter appears in a solution, in
// sorted order for stable legends.
func pieceUsage(sol engine.Solution) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, pl := range sol.Placements {
		if !seen[pl.PieceID] {
			seen[pl.PieceID] = true
			ids = append(ids, pl.PieceID)
		}
	}
	sort.Strings(ids)
	return ids
}
