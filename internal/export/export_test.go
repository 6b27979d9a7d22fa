package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/polysolve/internal/engine"
	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
	"github.com/xuri/excelize/v2"
)

// solveReport runs a real solve and bundles the results into a Report.
func solveReport(t *testing.T, name string, container *model.Container, inventory map[string]int) Report {
	t.Helper()
	db, err := model.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	m, err := engine.Precompute(container, db)
	if err != nil {
		t.Fatalf("Precompute returned error: %v", err)
	}

	var solutions []engine.Solution
	r, err := engine.Solve(m, engine.SolveSettings{Inventory: inventory}, engine.Callbacks{
		OnSolution: func(s engine.Solution) { solutions = append(solutions, s) },
	})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	summary := r.Wait()

	return Report{
		ContainerName: name,
		Container:     container,
		Summary:       summary,
		Solutions:     solutions,
	}
}

func cubeReport(t *testing.T) Report {
	t.Helper()
	var cells []lattice.Cell
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				cells = append(cells, lattice.Cell{I: i, J: j, K: k})
			}
		}
	}
	return solveReport(t, "cube", model.NewContainer(cells), map[string]int{"E": 2})
}

func TestExportPDF_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solutions.pdf")
	report := cubeReport(t)
	if len(report.Solutions) == 0 {
		t.Fatal("solve produced no solutions")
	}

	if err := ExportPDF(path, report); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	// Three solution pages plus a summary page.
	if info.Size() < 500 {
		t.Errorf("PDF file seems too small: %d bytes", info.Size())
	}
}

func TestExportPDF_NoSolutions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	err := ExportPDF(path, Report{ContainerName: "empty"})
	if err == nil {
		t.Fatal("expected error for a report without solutions, got nil")
	}
}

func TestExportXLSX_WorkbookContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solutions.xlsx")
	report := cubeReport(t)

	if err := ExportXLSX(path, report); err != nil {
		t.Fatalf("ExportXLSX returned error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("cannot reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := 1 + len(report.Solutions)
	if len(sheets) != want {
		t.Fatalf("workbook has %d sheets, want %d (%v)", len(sheets), want, sheets)
	}

	reason, err := f.GetCellValue("Summary", "B4")
	if err != nil {
		t.Fatalf("cannot read summary cell: %v", err)
	}
	if reason != string(report.Summary.Reason) {
		t.Errorf("summary stop reason = %q, want %q", reason, report.Summary.Reason)
	}

	piece, err := f.GetCellValue("Solution 1", "A2")
	if err != nil {
		t.Fatalf("cannot read solution cell: %v", err)
	}
	if piece != "E" {
		t.Errorf("first placement piece = %q, want E", piece)
	}
}

func TestExportXLSX_NoSolutions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := ExportXLSX(path, Report{}); err == nil {
		t.Fatal("expected error for a report without solutions, got nil")
	}
}

func TestSolutionLayers_SplitsByHeight(t *testing.T) {
	report := cubeReport(t)
	for _, sol := range report.Solutions {
		layers := solutionLayers(sol)
		total := 0
		for _, ly := range layers {
			for c := range ly.cells {
				if c.K != ly.k {
					t.Errorf("cell %v filed under layer k=%d", c, ly.k)
				}
			}
			total += len(ly.cells)
		}
		if total != report.Container.Len() {
			t.Errorf("layers hold %d cells, want %d", total, report.Container.Len())
		}
	}
}

func TestColorFor_CyclesStably(t *testing.T) {
	if colorFor("A") != colorFor("A") {
		t.Error("colorFor is not stable")
	}
	if colorFor("") != pieceColors[0] {
		t.Error("empty id should fall back to the first palette entry")
	}
}
