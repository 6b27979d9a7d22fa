package engine

import (
	"testing"

	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrecompute_EmptyContainer(t *testing.T) {
	db := loadDB(t)
	_, err := Precompute(model.NewContainer(nil), db)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyContainer)
}

func TestPrecompute_PlacementsStayInsideTheContainer(t *testing.T) {
	db := loadDB(t)
	container := block(3, 3, 3)
	m := precompute(t, container, db)

	require.Positive(t, m.PlacementCount())
	for i := range m.placements {
		pl := &m.placements[i]
		seen := make(map[int]bool)
		for _, ci := range pl.cells {
			assert.GreaterOrEqual(t, ci, 0)
			assert.Less(t, ci, container.Len())
			assert.False(t, seen[ci], "placement %d repeats cell %d", i, ci)
			seen[ci] = true
		}
		assert.GreaterOrEqual(t, pl.piece, 0)
		assert.Less(t, pl.piece, len(m.pieces))
	}
}

func TestPrecompute_NoDuplicatePlacements(t *testing.T) {
	db := loadDB(t)
	m := precompute(t, block(2, 2, 2), db)

	seen := make(map[string]bool)
	for i := range m.placements {
		key := m.placements[i].public.String()
		assert.False(t, seen[key], "placement %s enumerated twice", key)
		seen[key] = true
	}
}

func TestPrecompute_ReverseIndexIsExact(t *testing.T) {
	db := loadDB(t)
	container := block(2, 2, 2)
	m := precompute(t, container, db)

	// byCell lists exactly the placements covering the cell, for every cell.
	for ci := 0; ci < container.Len(); ci++ {
		for _, pid := range m.PlacementsCovering(ci) {
			found := false
			for _, c := range m.placements[pid].cells {
				if c == ci {
					found = true
				}
			}
			assert.True(t, found, "placement %d indexed under cell %d it does not cover", pid, ci)
		}
	}
	counted := 0
	for ci := 0; ci < container.Len(); ci++ {
		counted += len(m.PlacementsCovering(ci))
	}
	assert.Equal(t, m.PlacementCount()*model.PieceSize, counted)
}

func TestPrecompute_NeighborsFollowLatticeAdjacency(t *testing.T) {
	db := loadDB(t)
	container := block(2, 2, 2)
	m := precompute(t, container, db)
	cells := container.Cells()

	for ci, nbs := range m.neighbors {
		for _, nb := range nbs {
			assert.True(t, lattice.Adjacent(cells[ci], cells[nb]),
				"%v and %v indexed as neighbors but not adjacent", cells[ci], cells[nb])
		}
		// Symmetry: every neighbor lists us back.
		for _, nb := range nbs {
			back := false
			for _, rev := range m.neighbors[nb] {
				if rev == ci {
					back = true
				}
			}
			assert.True(t, back)
		}
	}
}

func TestPrecompute_ColorBounds(t *testing.T) {
	db := loadDB(t)
	container := block(2, 2, 2)
	m := precompute(t, container, db)
	cells := container.Cells()

	odd := 0
	for _, c := range cells {
		if lattice.ColorClass(c) == 1 {
			odd++
		}
	}
	assert.Equal(t, odd, m.oddCells)

	for pi := range m.pieces {
		if m.oddMax[pi] < 0 {
			continue // piece with no placements in this container
		}
		assert.GreaterOrEqual(t, m.oddMin[pi], 0)
		assert.LessOrEqual(t, m.oddMin[pi], m.oddMax[pi])
		assert.LessOrEqual(t, m.oddMax[pi], model.PieceSize)
	}
}
