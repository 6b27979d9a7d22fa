package engine

import (
	"fmt"
	"time"
)

// ShuffleStrategy selects how candidate placement order is perturbed.
type ShuffleStrategy string

const (
	// ShuffleNone keeps the precompute enumeration order everywhere.
	ShuffleNone ShuffleStrategy = "none"
	// ShuffleInitial shuffles the candidate order once, at the root node.
	ShuffleInitial ShuffleStrategy = "initial"
	// ShuffleContinuous shuffles the candidate order at every search node.
	ShuffleContinuous ShuffleStrategy = "continuous"
)

// MoveOrdering selects how the solver picks the next cell to branch on.
type MoveOrdering string

// MostConstrainedCell branches on the empty cell covered by the fewest
// remaining legal placements. It is the only ordering the engine implements.
const MostConstrainedCell MoveOrdering = "mostConstrainedCell"

// PruningSettings toggles the individual pruning rules. Each rule is sound:
// enabling any subset never hides a reachable solution.
type PruningSettings struct {
	// MultipleOf4 requires the overall empty cell count to stay a multiple of
	// the piece size.
	MultipleOf4 bool `json:"multiple_of_4" yaml:"multipleOf4"`
	// Connectivity requires every connected component of the empty region to
	// be independently completable: a multiple of the piece size on its own.
	// It subsumes MultipleOf4.
	Connectivity bool `json:"connectivity" yaml:"connectivity"`
	// ColorResidue bounds the remaining odd-color-class cells by what the
	// remaining piece inventory can possibly cover.
	ColorResidue bool `json:"color_residue" yaml:"colorResidue"`
	// NeighborTouch forward-checks that every empty cell adjacent to a fresh
	// placement is still coverable by at least one legal placement.
	NeighborTouch bool `json:"neighbor_touch" yaml:"neighborTouch"`
}

// TailSwitchSettings controls the endgame strategy change.
type TailSwitchSettings struct {
	Enable bool `json:"enable" yaml:"enable"`
	// TailSize is the unfilled-cell threshold at or below which randomized
	// shuffling is disabled in favor of exhaustive deterministic order.
	TailSize int `json:"tail_size" yaml:"tailSize"`
}

// SolveSettings is the full configuration surface of one solver run. All
// recognized options are enumerated here and validated by Validate; there is
// no dynamic settings object.
type SolveSettings struct {
	// MaxSolutions stops the run after this many solutions; 0 means search
	// the whole space.
	MaxSolutions int `json:"max_solutions" yaml:"maxSolutions"`
	// Timeout is the wall-clock budget; 0 means no deadline. It is checked
	// at slice boundaries only.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	MoveOrdering MoveOrdering    `json:"move_ordering" yaml:"moveOrdering"`
	Pruning      PruningSettings `json:"pruning" yaml:"pruning"`

	// StatusInterval is the minimum time between status snapshots; 0 keeps
	// the default.
	StatusInterval time.Duration `json:"status_interval" yaml:"statusInterval"`

	// Seed drives all randomized tie-breaking. The same seed, settings and
	// model reproduce the same search trace.
	Seed          int64           `json:"seed" yaml:"seed"`
	RandomizeTies bool            `json:"randomize_ties" yaml:"randomizeTies"`
	Shuffle       ShuffleStrategy `json:"shuffle" yaml:"shuffle"`

	TailSwitch TailSwitchSettings `json:"tail_switch" yaml:"tailSwitch"`

	// Inventory caps how many times each piece id may be used. A nil map
	// means one of each; explicit entries of 0 exclude a piece entirely.
	Inventory map[string]int `json:"inventory,omitempty" yaml:"inventory,omitempty"`

	// SliceNodes bounds how many search nodes one cooperative slice may
	// expand before yielding; 0 keeps the default.
	SliceNodes int `json:"slice_nodes" yaml:"sliceNodes"`
}

// DefaultSettings returns the settings used when the caller specifies
// nothing: one solution, all pruning rules on, deterministic order.
func DefaultSettings() SolveSettings {
	return SolveSettings{
		MaxSolutions: 1,
		MoveOrdering: MostConstrainedCell,
		Pruning: PruningSettings{
			MultipleOf4:   true,
			Connectivity:  true,
			ColorResidue:  true,
			NeighborTouch: false,
		},
		StatusInterval: 250 * time.Millisecond,
		Shuffle:        ShuffleNone,
		TailSwitch:     TailSwitchSettings{Enable: true, TailSize: 16},
	}
}

const defaultSliceNodes = 2048

// Validate checks the settings and fills unset values with defaults.
func (s *SolveSettings) Validate() error {
	if s.MaxSolutions < 0 {
		return fmt.Errorf("settings: max solutions must be >= 0, got %d", s.MaxSolutions)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("settings: timeout must be >= 0")
	}
	if s.MoveOrdering == "" {
		s.MoveOrdering = MostConstrainedCell
	}
	if s.MoveOrdering != MostConstrainedCell {
		return fmt.Errorf("settings: unknown move ordering %q", s.MoveOrdering)
	}
	if s.Shuffle == "" {
		s.Shuffle = ShuffleNone
	}
	switch s.Shuffle {
	case ShuffleNone, ShuffleInitial, ShuffleContinuous:
	default:
		return fmt.Errorf("settings: unknown shuffle strategy %q", s.Shuffle)
	}
	if s.TailSwitch.Enable && s.TailSwitch.TailSize < 0 {
		return fmt.Errorf("settings: tail size must be >= 0")
	}
	for id, n := range s.Inventory {
		if n < 0 {
			return fmt.Errorf("settings: inventory for piece %q must be >= 0, got %d", id, n)
		}
	}
	if s.StatusInterval <= 0 {
		s.StatusInterval = 250 * time.Millisecond
	}
	if s.SliceNodes <= 0 {
		s.SliceNodes = defaultSliceNodes
	}
	return nil
}
