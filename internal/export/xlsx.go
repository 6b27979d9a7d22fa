package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX writes a workbook with a summary sheet and one sheet per
// solution listing every placement.
func ExportXLSX(path string, report Report) error {
	if len(report.Solutions) == 0 {
		return fmt.Errorf("no solutions to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	summaryRows := [][]interface{}{
		{"Container", report.ContainerName},
		{"Cells", report.Container.Len()},
		{"Run", report.Summary.RunID},
		{"Stop Reason", string(report.Summary.Reason)},
		{"Solutions", report.Summary.Solutions},
		{"Nodes Visited", report.Summary.Nodes},
		{"Elapsed", report.Summary.Elapsed.String()},
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return err
		}
	}

	for i, sol := range report.Solutions {
		name := fmt.Sprintf("Solution %d", i+1)
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		header := []interface{}{"Piece", "Orientation", "Anchor", "Cells"}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		for j, pl := range sol.Placements {
			cells := ""
			for _, c := range pl.Cells {
				if cells != "" {
					cells += " "
				}
				cells += c.String()
			}
			row := []interface{}{pl.PieceID, pl.OrientationID, pl.Anchor.String(), cells}
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}
