// Package project handles on-disk persistence: JSON container and piece
// table documents, and YAML solver configuration files.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
)

// ContainerFile is the JSON document form of a container. Cells are integer
// triples in lattice coordinates.
type ContainerFile struct {
	Name  string   `json:"name"`
	Cells [][3]int `json:"cells"`
}

// SaveContainer writes a container to a JSON file, creating the directory if
// needed.
func SaveContainer(path, name string, container *model.Container) error {
	file := ContainerFile{Name: name, Cells: cellsToTriples(container.Cells())}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadContainer reads a container from a JSON file.
func LoadContainer(path string) (string, *model.Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	var file ContainerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "", nil, fmt.Errorf("parse container file %s: %w", path, err)
	}
	if len(file.Cells) == 0 {
		return "", nil, fmt.Errorf("container file %s has no cells", path)
	}
	return file.Name, model.NewContainer(triplesToCells(file.Cells)), nil
}

func cellsToTriples(cells []lattice.Cell) [][3]int {
	out := make([][3]int, len(cells))
	for i, c := range cells {
		out[i] = [3]int{c.I, c.J, c.K}
	}
	return out
}

func triplesToCells(triples [][3]int) []lattice.Cell {
	out := make([]lattice.Cell, len(triples))
	for i, t := range triples {
		out[i] = lattice.Cell{I: t[0], J: t[1], K: t[2]}
	}
	return out
}
