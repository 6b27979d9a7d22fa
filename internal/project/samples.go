package project

import (
	"fmt"
	"sort"

	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
)

// SampleContainers returns the built-in demo containers by name. The slab is
// sized for the full library: 100 cells for 25 four-cell pieces.
func SampleContainers() map[string]*model.Container {
	return map[string]*model.Container{
		"tetrahedron": model.NewContainer([]lattice.Cell{
			{I: 0, J: 0, K: 0}, {I: 1, J: 0, K: 0}, {I: 0, J: 1, K: 0}, {I: 0, J: 0, K: 1},
		}),
		"cube":  boxContainer(2, 2, 2),
		"tower": boxContainer(2, 2, 4),
		"slab":  boxContainer(5, 5, 4),
	}
}

// Sample looks up one built-in container by name.
func Sample(name string) (*model.Container, error) {
	samples := SampleContainers()
	if c, ok := samples[name]; ok {
		return c, nil
	}
	names := make([]string, 0, len(samples))
	for n := range samples {
		names = append(names, n)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("unknown sample container %q (have %v)", name, names)
}

func boxContainer(di, dj, dk int) *model.Container {
	var cells []lattice.Cell
	for i := 0; i < di; i++ {
		for j := 0; j < dj; j++ {
			for k := 0; k < dk; k++ {
				cells = append(cells, lattice.Cell{I: i, J: j, K: k})
			}
		}
	}
	return model.NewContainer(cells)
}
