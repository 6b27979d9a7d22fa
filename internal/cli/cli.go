// Package cli wires the solver, importers and exporters into a cobra command
// tree.
package cli

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/piwi3910/polysolve/internal/engine"
	"github.com/piwi3910/polysolve/internal/export"
	"github.com/piwi3910/polysolve/internal/importer"
	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/metrics"
	"github.com/piwi3910/polysolve/internal/model"
	"github.com/piwi3910/polysolve/internal/project"
	"github.com/spf13/cobra"
)

// BuildCLI assembles the polysolve command tree.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "polysolve",
		Short: "PolySolve: an FCC-lattice polysphere puzzle solver",
		Long: `PolySolve assembles 3D shapes from a library of 25 four-cell pieces
on a face-centered-cubic lattice. It provides a pausable exact-cover
backtracking solver, a prefix-parallel accelerated backend, DXF container
import and PDF/XLSX solution export.`,
		Version: "1.0.0",
	}

	rootCmd.AddCommand(buildPiecesCommand())
	rootCmd.AddCommand(buildVerifyCommand())
	rootCmd.AddCommand(buildSolveCommand())
	rootCmd.AddCommand(buildImportCommand())

	return rootCmd
}

// containerFlags is the shared way of naming a container: a JSON file or a
// built-in sample.
type containerFlags struct {
	file   string
	sample string
}

func (cf *containerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cf.file, "container", "", "container JSON file")
	cmd.Flags().StringVar(&cf.sample, "sample", "", "built-in sample container (tetrahedron, cube, tower, slab)")
}

func (cf *containerFlags) load() (string, *model.Container, error) {
	switch {
	case cf.file != "" && cf.sample != "":
		return "", nil, fmt.Errorf("--container and --sample are mutually exclusive")
	case cf.file != "":
		return project.LoadContainer(cf.file)
	case cf.sample != "":
		c, err := project.Sample(cf.sample)
		return cf.sample, c, err
	default:
		return "", nil, fmt.Errorf("a container is required (use --container or --sample)")
	}
}

func loadDB(piecesPath string) (*model.PieceDB, error) {
	if piecesPath == "" {
		return model.Load()
	}
	return project.LoadPieceTable(piecesPath)
}

func buildPiecesCommand() *cobra.Command {
	var piecesPath string

	cmd := &cobra.Command{
		Use:   "pieces",
		Short: "List the piece library",
		Long:  "Print every piece with its orientation count and base shape",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := loadDB(piecesPath)
			if err != nil {
				return fmt.Errorf("failed to load pieces: %w", err)
			}
			fmt.Printf("%-6s %-13s %s\n", "Piece", "Orientations", "Base shape")
			for _, p := range db.Pieces() {
				cells := make([]string, len(p.Cells))
				for i, c := range p.Cells {
					cells[i] = c.String()
				}
				fmt.Printf("%-6s %-13d %s\n", p.ID, len(db.GetOrientations(p.ID)), strings.Join(cells, " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&piecesPath, "pieces", "", "piece table JSON file (default: built-in library)")
	return cmd
}

func buildVerifyCommand() *cobra.Command {
	var cf containerFlags
	var piecesPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a container for obvious solvability problems",
		Long:  "Report cell count, connectivity, color balance and placement coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, container, err := cf.load()
			if err != nil {
				return err
			}
			db, err := loadDB(piecesPath)
			if err != nil {
				return fmt.Errorf("failed to load pieces: %w", err)
			}
			return verifyContainer(name, container, db)
		},
	}
	cf.register(cmd)
	cmd.Flags().StringVar(&piecesPath, "pieces", "", "piece table JSON file (default: built-in library)")
	return cmd
}

// verifyContainer prints the diagnostics the pruning rules would check at the
// search root, plus per-cell placement coverage.
func verifyContainer(name string, container *model.Container, db *model.PieceDB) error {
	cells := container.Cells()
	fmt.Printf("Container: %s\n", name)
	fmt.Printf("  Cells:          %d\n", container.Len())

	if container.Len()%model.PieceSize != 0 {
		fmt.Printf("  Multiple of %d:  NO (unsolvable with whole pieces)\n", model.PieceSize)
	} else {
		fmt.Printf("  Multiple of %d:  yes (%d pieces needed)\n", model.PieceSize, container.Len()/model.PieceSize)
	}

	components := connectedComponents(cells)
	fmt.Printf("  Components:     %d", len(components))
	bad := 0
	for _, size := range components {
		if size%model.PieceSize != 0 {
			bad++
		}
	}
	if bad > 0 {
		fmt.Printf("  (%d not a multiple of %d)", bad, model.PieceSize)
	}
	fmt.Println()

	odd := 0
	for _, c := range cells {
		if lattice.ColorClass(c) == 1 {
			odd++
		}
	}
	fmt.Printf("  Color balance:  %d even / %d odd\n", container.Len()-odd, odd)

	pm, err := engine.Precompute(container, db)
	if err != nil {
		return fmt.Errorf("precompute failed: %w", err)
	}
	fmt.Printf("  Placements:     %d\n", pm.PlacementCount())

	uncoverable := 0
	for i := range cells {
		if len(pm.PlacementsCovering(i)) == 0 {
			uncoverable++
		}
	}
	if uncoverable > 0 {
		fmt.Printf("  WARNING: %d cells are covered by no placement at all\n", uncoverable)
	}
	return nil
}

// connectedComponents returns the sizes of the container's connected regions
// under lattice adjacency.
func connectedComponents(cells []lattice.Cell) []int {
	index := make(map[lattice.Cell]int, len(cells))
	for i, c := range cells {
		index[c] = i
	}
	seen := make([]bool, len(cells))
	var sizes []int
	for start := range cells {
		if seen[start] {
			continue
		}
		size := 0
		frontier := []int{start}
		seen[start] = true
		for len(frontier) > 0 {
			cur := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			size++
			for other, oi := range index {
				if !seen[oi] && lattice.Adjacent(cells[cur], other) {
					seen[oi] = true
					frontier = append(frontier, oi)
				}
			}
		}
		sizes = append(sizes, size)
	}
	return sizes
}

type solveFlags struct {
	cf         containerFlags
	piecesPath string
	configPath string

	maxSolutions int
	timeout      time.Duration
	seed         int64
	randomize    bool
	shuffle      string
	tailSwitch   bool
	tailSize     int
	inventory    string

	pruneMultiple      bool
	pruneConnectivity  bool
	pruneColorResidue  bool
	pruneNeighborTouch bool

	parallel     bool
	prefixDepth  int
	prefixCount  int
	threadBudget int

	pdfPath     string
	xlsxPath    string
	metricsAddr string
	quiet       bool
}

func buildSolveCommand() *cobra.Command {
	var f solveFlags

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Search a container for exact covers",
		Long:  "Run the backtracking solver (or the prefix-parallel backend) against a container",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, &f)
		},
	}
	f.cf.register(cmd)
	cmd.Flags().StringVar(&f.piecesPath, "pieces", "", "piece table JSON file (default: built-in library)")
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML solve configuration file")

	cmd.Flags().IntVar(&f.maxSolutions, "max-solutions", 1, "stop after this many solutions (0 = all)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "wall-clock budget (0 = none)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "seed for randomized tie-breaking")
	cmd.Flags().BoolVar(&f.randomize, "randomize-ties", false, "break move-ordering ties randomly")
	cmd.Flags().StringVar(&f.shuffle, "shuffle", "none", "candidate shuffle strategy: none, initial, continuous")
	cmd.Flags().BoolVar(&f.tailSwitch, "tail-switch", true, "disable shuffling in the endgame")
	cmd.Flags().IntVar(&f.tailSize, "tail-size", 16, "empty-cell threshold for the endgame switch")
	cmd.Flags().StringVar(&f.inventory, "inventory", "", "per-piece inventory, e.g. 'E=2,A=1' (default: one of each)")

	cmd.Flags().BoolVar(&f.pruneMultiple, "prune-multiple-of-4", true, "prune empty regions not divisible by the piece size")
	cmd.Flags().BoolVar(&f.pruneConnectivity, "prune-connectivity", true, "prune disconnected dead regions")
	cmd.Flags().BoolVar(&f.pruneColorResidue, "prune-color-residue", true, "prune impossible color residues")
	cmd.Flags().BoolVar(&f.pruneNeighborTouch, "prune-neighbor-touch", false, "forward-check neighbors of fresh placements")

	cmd.Flags().BoolVar(&f.parallel, "parallel", false, "use the prefix-parallel backend")
	cmd.Flags().IntVar(&f.prefixDepth, "prefix-depth", 2, "prefix enumeration depth (parallel backend)")
	cmd.Flags().IntVar(&f.prefixCount, "prefix-count", 256, "target prefix count (parallel backend)")
	cmd.Flags().IntVar(&f.threadBudget, "threads", 0, "parallel lanes (0 = all CPUs)")

	cmd.Flags().StringVar(&f.pdfPath, "pdf", "", "write an assembly PDF to this path")
	cmd.Flags().StringVar(&f.xlsxPath, "xlsx", "", "write a solution workbook to this path")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "suppress progress output")

	return cmd
}

// buildConfig merges the YAML config file (when given) with the command line;
// explicitly set flags win.
func buildConfig(cmd *cobra.Command, f *solveFlags) (project.Config, error) {
	cfg := project.DefaultConfig()
	if f.configPath != "" {
		loaded, err := project.LoadConfig(f.configPath)
		if err != nil {
			return project.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("max-solutions") || f.configPath == "" {
		cfg.Solve.MaxSolutions = f.maxSolutions
	}
	if flags.Changed("timeout") {
		cfg.Solve.Timeout = f.timeout
	}
	if flags.Changed("seed") {
		cfg.Solve.Seed = f.seed
	}
	if flags.Changed("randomize-ties") {
		cfg.Solve.RandomizeTies = f.randomize
	}
	if flags.Changed("shuffle") {
		cfg.Solve.Shuffle = engine.ShuffleStrategy(f.shuffle)
	}
	if flags.Changed("tail-switch") {
		cfg.Solve.TailSwitch.Enable = f.tailSwitch
	}
	if flags.Changed("tail-size") {
		cfg.Solve.TailSwitch.TailSize = f.tailSize
	}
	if flags.Changed("prune-multiple-of-4") {
		cfg.Solve.Pruning.MultipleOf4 = f.pruneMultiple
	}
	if flags.Changed("prune-connectivity") {
		cfg.Solve.Pruning.Connectivity = f.pruneConnectivity
	}
	if flags.Changed("prune-color-residue") {
		cfg.Solve.Pruning.ColorResidue = f.pruneColorResidue
	}
	if flags.Changed("prune-neighbor-touch") {
		cfg.Solve.Pruning.NeighborTouch = f.pruneNeighborTouch
	}
	if flags.Changed("prefix-depth") {
		cfg.Prefix.PrefixDepth = f.prefixDepth
	}
	if flags.Changed("prefix-count") {
		cfg.Prefix.TargetPrefixCount = f.prefixCount
	}
	if flags.Changed("threads") {
		cfg.Prefix.ThreadBudget = f.threadBudget
	}

	if f.inventory != "" {
		inv, err := parseInventory(f.inventory)
		if err != nil {
			return project.Config{}, err
		}
		cfg.Solve.Inventory = inv
	}
	return cfg, nil
}

// parseInventory reads a 'A=1,E=2' style flag into an inventory map.
func parseInventory(s string) (map[string]int, error) {
	inv := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid inventory entry %q (want PIECE=COUNT)", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid inventory count in %q", part)
		}
		inv[strings.TrimSpace(kv[0])] = n
	}
	if len(inv) == 0 {
		return nil, fmt.Errorf("inventory flag is empty")
	}
	return inv, nil
}

func runSolve(cmd *cobra.Command, f *solveFlags) error {
	cfg, err := buildConfig(cmd, f)
	if err != nil {
		return err
	}

	name, container, err := f.cf.load()
	if err != nil {
		return err
	}
	db, err := loadDB(f.piecesPath)
	if err != nil {
		return fmt.Errorf("failed to load pieces: %w", err)
	}
	pm, err := engine.Precompute(container, db)
	if err != nil {
		return fmt.Errorf("precompute failed: %w", err)
	}

	// Both engines serialize callback invocations, so plain appends are safe
	// even on the parallel backend.
	var solutions []engine.Solution
	cb := engine.Callbacks{
		OnStatus: func(s engine.StatusSnapshot) {
			if !f.quiet {
				log.Printf("run %s: depth=%d placed=%d nodes=%d (%.0f nodes/s)",
					shortID(s.RunID), s.Depth, s.Placed, s.Nodes, s.NodesPerSec)
			}
		},
		OnSolution: func(s engine.Solution) {
			solutions = append(solutions, s)
			if !f.quiet {
				log.Printf("run %s: solution %d found", shortID(s.RunID), len(solutions))
			}
		},
	}

	if f.metricsAddr != "" {
		collector := metrics.NewCollector(nil)
		cb = collector.Observe(cb)
		go func() {
			log.Printf("Serving metrics on %s/metrics", f.metricsAddr)
			if err := metrics.StartServer(f.metricsAddr); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	log.Printf("Solving %s (%d cells, %d placements)", name, container.Len(), pm.PlacementCount())

	var handle engine.Handle
	if f.parallel {
		handle, err = engine.SolveParallel(pm, cfg.Solve, cfg.Prefix, cb)
	} else {
		handle, err = engine.Solve(pm, cfg.Solve, cb)
	}
	if err != nil {
		return fmt.Errorf("failed to start solver: %w", err)
	}
	summary := handle.Wait()

	fmt.Printf("\nRun %s finished: %s\n", shortID(summary.RunID), summary.Reason)
	fmt.Printf("  Solutions: %d\n", summary.Solutions)
	fmt.Printf("  Nodes:     %d\n", summary.Nodes)
	fmt.Printf("  Elapsed:   %s\n", summary.Elapsed.Round(time.Millisecond))
	printSolutions(solutions)

	report := export.Report{
		ContainerName: name,
		Container:     container,
		Summary:       summary,
		Solutions:     solutions,
	}
	if f.pdfPath != "" {
		if err := export.ExportPDF(f.pdfPath, report); err != nil {
			return fmt.Errorf("PDF export failed: %w", err)
		}
		log.Printf("Wrote %s", f.pdfPath)
	}
	if f.xlsxPath != "" {
		if err := export.ExportXLSX(f.xlsxPath, report); err != nil {
			return fmt.Errorf("XLSX export failed: %w", err)
		}
		log.Printf("Wrote %s", f.xlsxPath)
	}
	return nil
}

// printSolutions lists each solution's placements grouped by piece letter.
func printSolutions(solutions []engine.Solution) {
	for i, sol := range solutions {
		fmt.Printf("\nSolution %d:\n", i+1)
		placements := append([]model.Placement(nil), sol.Placements...)
		sort.Slice(placements, func(a, b int) bool {
			return placements[a].PieceID < placements[b].PieceID
		})
		for _, pl := range placements {
			cells := make([]string, len(pl.Cells))
			for j, c := range pl.Cells {
				cells[j] = c.String()
			}
			fmt.Printf("  %s o%-3d @ %-12s %s\n", pl.PieceID, pl.OrientationID, pl.Anchor.String(), strings.Join(cells, " "))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func buildImportCommand() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import containers from CAD files",
	}

	var layers int
	var outPath string
	var name string

	dxfCmd := &cobra.Command{
		Use:   "dxf <file>",
		Short: "Rasterize closed DXF outlines into a container",
		Long:  "Read closed shapes from a DXF drawing, rasterize them onto lattice columns and extrude them into layers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := importer.ImportDXF(args[0], layers)
			for _, w := range result.Warnings {
				log.Printf("warning: %s", w)
			}
			if len(result.Errors) > 0 {
				for _, e := range result.Errors {
					log.Printf("error: %s", e)
				}
				return fmt.Errorf("import failed with %d errors", len(result.Errors))
			}

			fmt.Printf("Imported %d cells (%d layers)\n", result.Container.Len(), layers)
			if outPath != "" {
				if err := project.SaveContainer(outPath, name, result.Container); err != nil {
					return fmt.Errorf("failed to save container: %w", err)
				}
				log.Printf("Wrote %s", outPath)
			}
			return nil
		},
	}
	dxfCmd.Flags().IntVar(&layers, "layers", 1, "how many lattice layers deep to extrude")
	dxfCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the container JSON to this path")
	dxfCmd.Flags().StringVar(&name, "name", "imported", "container name for the JSON document")

	importCmd.AddCommand(dxfCmd)
	return importCmd
}
