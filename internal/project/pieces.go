package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/polysolve/internal/model"
)

// PieceEntry is the JSON form of one base shape.
type PieceEntry struct {
	ID    string   `json:"id"`
	Cells [][3]int `json:"cells"`
}

// PieceFile is the JSON document form of a piece table.
type PieceFile struct {
	Pieces []PieceEntry `json:"pieces"`
}

// SavePieceTable writes a piece table to a JSON file.
func SavePieceTable(path string, pieces []model.Piece) error {
	file := PieceFile{Pieces: make([]PieceEntry, len(pieces))}
	for i, p := range pieces {
		file.Pieces[i] = PieceEntry{ID: p.ID, Cells: cellsToTriples(p.Cells)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadPieceTable reads a piece table from a JSON file and builds a database
// from it, running the full shape validation.
func LoadPieceTable(path string) (*model.PieceDB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file PieceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse piece table %s: %w", path, err)
	}
	if len(file.Pieces) == 0 {
		return nil, fmt.Errorf("piece table %s has no pieces", path)
	}
	pieces := make([]model.Piece, len(file.Pieces))
	for i, e := range file.Pieces {
		pieces[i] = model.Piece{ID: e.ID, Cells: triplesToCells(e.Cells)}
	}
	db, err := model.LoadPieces(pieces)
	if err != nil {
		return nil, fmt.Errorf("piece table %s: %w", path, err)
	}
	return db, nil
}
