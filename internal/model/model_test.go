package model

import (
	"testing"

	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BuiltInLibrary(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)
	require.Len(t, db.Pieces(), 25)

	for _, p := range db.Pieces() {
		orients := db.GetOrientations(p.ID)
		assert.NotEmpty(t, orients, "piece %s has no orientations", p.ID)
		assert.LessOrEqual(t, len(orients), 24, "piece %s", p.ID)

		for i, o := range orients {
			assert.Equal(t, i, o.ID, "orientation ids must be dense and ordered")
			require.Len(t, o.Offsets, PieceSize)
			assert.Equal(t, lattice.Cell{}, o.Offsets[0], "anchor offset must be the origin")
		}
	}
}

func TestLoad_OrientationCountsFollowSymmetry(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	// The straight run maps onto the three axes only.
	assert.Len(t, db.GetOrientations("A"), 3)
	// The regular tetrahedron is preserved by half the rotation group, so it
	// has exactly two images: itself and its mirror twin.
	assert.Len(t, db.GetOrientations("M"), 2)
}

func TestGetOrientations_UnknownPiece(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)
	assert.Empty(t, db.GetOrientations("Z"))
	assert.Empty(t, db.GetOrientations(""))
}

func TestMatchShape_RoundTripsEveryOrientation(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	shift := lattice.Cell{I: -4, J: 9, K: 17}
	for _, p := range db.Pieces() {
		for _, o := range db.GetOrientations(p.ID) {
			moved := make([]lattice.Cell, len(o.Offsets))
			for i, off := range o.Offsets {
				moved[i] = off.Add(shift)
			}
			m, ok := db.MatchShape(moved)
			require.True(t, ok, "piece %s orientation %d did not match", p.ID, o.ID)
			assert.Equal(t, p.ID, m.PieceID)
			assert.Equal(t, o.ID, m.OrientationID)
		}
	}
}

func TestMatchShape_RejectsUnknownShapes(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	// Disconnected: two far-apart dominoes.
	_, ok := db.MatchShape([]lattice.Cell{
		{}, {I: 1}, {I: 10}, {I: 11},
	})
	assert.False(t, ok)

	// Wrong size.
	_, ok = db.MatchShape([]lattice.Cell{{}, {I: 1}, {I: 2}})
	assert.False(t, ok)

	// Repeated cell.
	_, ok = db.MatchShape([]lattice.Cell{{}, {}, {I: 1}, {I: 2}})
	assert.False(t, ok)
}

func TestMatchShape_Deterministic(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	shape := []lattice.Cell{{I: 5, J: 5, K: 5}, {I: 6, J: 5, K: 5}, {I: 7, J: 5, K: 5}, {I: 8, J: 5, K: 5}}
	first, ok := db.MatchShape(shape)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := db.MatchShape(shape)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestLoadPieces_RejectsDisconnectedShape(t *testing.T) {
	_, err := LoadPieces([]Piece{
		{ID: "A", Cells: []lattice.Cell{{}, {I: 1}, {I: 5}, {I: 6}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestLoadPieces_RejectsWrongCellCount(t *testing.T) {
	_, err := LoadPieces([]Piece{
		{ID: "A", Cells: []lattice.Cell{{}, {I: 1}, {I: 2}}},
	})
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestLoadPieces_RejectsCongruentDuplicates(t *testing.T) {
	// The same ell shape under two ids, one of them rotated: load must fail.
	_, err := LoadPieces([]Piece{
		{ID: "A", Cells: []lattice.Cell{{}, {I: 1}, {I: 2}, {I: 2, J: 1}}},
		{ID: "B", Cells: []lattice.Cell{{}, {J: 1}, {J: 2}, {I: 1, J: 2}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestNewContainer_DeduplicatesAndOrders(t *testing.T) {
	c := NewContainer([]lattice.Cell{{I: 1}, {}, {I: 1}, {J: 1}})
	assert.Equal(t, 3, c.Len())
	assert.True(t, c.Contains(lattice.Cell{J: 1}))
	assert.False(t, c.Contains(lattice.Cell{K: 1}))
	assert.Equal(t, 0, c.IndexOf(lattice.Cell{}))
	assert.Equal(t, -1, c.IndexOf(lattice.Cell{K: 9}))
}

func TestNewPlacement_TranslatesOffsets(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	o := db.GetOrientations("A")[0]
	anchor := lattice.Cell{I: 2, J: 3, K: 4}
	pl := NewPlacement("A", o, anchor)

	require.Len(t, pl.Cells, PieceSize)
	assert.Equal(t, anchor, pl.Cells[0])
	for i, cell := range pl.Cells {
		assert.Equal(t, o.Offsets[i].Add(anchor), cell)
	}
}
