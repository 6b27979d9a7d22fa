package engine

import (
	"errors"
	"fmt"

	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
)

// ErrEmptyContainer is returned by Precompute for a container with no cells.
var ErrEmptyContainer = errors.New("container has no cells")

// placement is the solver's internal placement record: the public placement
// plus the container-relative indexing the search works on.
type placement struct {
	public model.Placement
	piece  int    // index into PrecomputedModel.pieces
	cells  [4]int // container cell indices covered
	odd    int    // cells in the odd parity color class
}

// PrecomputedModel is the immutable placement index for one container and
// piece database. It is built once and reused across solver runs, including
// concurrent runs against the same container.
type PrecomputedModel struct {
	container *model.Container
	db        *model.PieceDB

	pieces   []model.Piece
	pieceIdx map[string]int

	placements []placement
	// byCell maps each container cell index to the placements covering it;
	// the minimum-remaining-values heuristic counts against these lists.
	byCell [][]int

	// adjacency lists between container cells, used by the connectivity and
	// neighbor-touch pruning rules.
	neighbors [][]int

	// oddByPiece holds the min and max odd-class coverage over each piece's
	// placements, feeding the color-residue bound.
	oddMin []int
	oddMax []int

	oddCells int // odd-class cells in the whole container
}

// Precompute enumerates every placement of every (piece, orientation) pair
// that fits fully inside the container: for each orientation, each of its
// four cells may land on each container cell. It also builds the reverse
// cell-to-placements index and the adjacency lists the pruning rules need.
func Precompute(container *model.Container, db *model.PieceDB) (*PrecomputedModel, error) {
	if container.Len() == 0 {
		return nil, fmt.Errorf("precompute: %w", ErrEmptyContainer)
	}

	m := &PrecomputedModel{
		container: container,
		db:        db,
		pieces:    db.Pieces(),
		pieceIdx:  make(map[string]int),
		byCell:    make([][]int, container.Len()),
		neighbors: make([][]int, container.Len()),
	}
	for i, p := range m.pieces {
		m.pieceIdx[p.ID] = i
	}
	for _, c := range container.Cells() {
		if lattice.ColorClass(c) == 1 {
			m.oddCells++
		}
	}

	m.oddMin = make([]int, len(m.pieces))
	m.oddMax = make([]int, len(m.pieces))
	for i := range m.pieces {
		m.oddMin[i] = model.PieceSize + 1
		m.oddMax[i] = -1
	}

	seen := make(map[string]bool)
	for pi, p := range m.pieces {
		for _, o := range db.GetOrientations(p.ID) {
			for _, target := range container.Cells() {
				// Any of the orientation's four cells may land on the target
				// cell; each choice induces one candidate anchor.
				for _, off := range o.Offsets {
					anchor := target.Sub(off)
					pl := model.NewPlacement(p.ID, o, anchor)
					key := pl.String()
					if seen[key] {
						continue
					}
					seen[key] = true
					m.addPlacement(pi, pl)
				}
			}
		}
	}

	for i, a := range container.Cells() {
		for j, b := range container.Cells() {
			if i != j && lattice.Adjacent(a, b) {
				m.neighbors[i] = append(m.neighbors[i], j)
			}
		}
	}
	return m, nil
}

func (m *PrecomputedModel) addPlacement(pieceIdx int, pl model.Placement) {
	var cells [4]int
	odd := 0
	for i, c := range pl.Cells {
		ci := m.container.IndexOf(c)
		if ci < 0 {
			return // sticks out of the container
		}
		cells[i] = ci
		if lattice.ColorClass(c) == 1 {
			odd++
		}
	}

	id := len(m.placements)
	m.placements = append(m.placements, placement{
		public: pl,
		piece:  pieceIdx,
		cells:  cells,
		odd:    odd,
	})
	for _, ci := range cells {
		m.byCell[ci] = append(m.byCell[ci], id)
	}
	if odd < m.oddMin[pieceIdx] {
		m.oddMin[pieceIdx] = odd
	}
	if odd > m.oddMax[pieceIdx] {
		m.oddMax[pieceIdx] = odd
	}
}

// Container returns the container the model was built for.
func (m *PrecomputedModel) Container() *model.Container { return m.container }

// PlacementCount returns the size of the placement table.
func (m *PrecomputedModel) PlacementCount() int { return len(m.placements) }

// PlacementsCovering returns the ids of placements covering a container cell
// index. The returned slice must not be modified.
func (m *PrecomputedModel) PlacementsCovering(cellIdx int) []int { return m.byCell[cellIdx] }
