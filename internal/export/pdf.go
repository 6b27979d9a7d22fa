package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/polysolve/internal/engine"
	qrcode "github.com/skip2/go-qrcode"
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 5.0
	qrSize       = 28.0
	maxCellSize  = 14.0
)

// qrPlacement is the compact placement form embedded in the QR payload.
type qrPlacement struct {
	Piece       string `json:"piece"`
	Orientation int    `json:"orientation"`
	Anchor      [3]int `json:"anchor"`
}

// qrPayload is the JSON document encoded into each solution page's QR code:
// enough to reconstruct the assembly without the PDF.
type qrPayload struct {
	Container  [][3]int      `json:"container"`
	Placements []qrPlacement `json:"placements"`
}

// ExportPDF generates an assembly document: one page per solution with
// per-layer diagrams, a legend and a QR code carrying the placement data,
// followed by a run summary page.
func ExportPDF(path string, report Report) error {
	if len(report.Solutions) == 0 {
		return fmt.Errorf("no solutions to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for i, sol := range report.Solutions {
		pdf.AddPage()
		if err := renderSolutionPage(pdf, report, i, sol); err != nil {
			return err
		}
	}

	pdf.AddPage()
	renderSummaryPage(pdf, report)

	return pdf.OutputFileAndClose(path)
}

// renderSolutionPage draws the layer diagrams of a single solution on the
// current page.
func renderSolutionPage(pdf *fpdf.Fpdf, report Report, idx int, sol engine.Solution) error {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Solution %d: %s (%d cells, %d pieces)",
		idx+1, report.ContainerName, report.Container.Len(), len(sol.Placements))
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	layers := solutionLayers(sol)
	minI, maxI, minJ, maxJ := bounds(report.Container)
	cols := maxI - minI + 1
	rows := maxJ - minJ + 1

	// Fit all layer diagrams side by side, leaving room for the QR block.
	drawWidth := pageWidth - marginLeft - marginRight - qrSize - 10
	drawHeight := pageHeight - drawAreaTop - marginBottom - 20
	cell := math.Min(drawWidth/float64(len(layers)*cols+len(layers)-1), drawHeight/float64(rows+1))
	cell = math.Min(cell, maxCellSize)

	x := marginLeft
	for _, ly := range layers {
		renderLayer(pdf, ly, minI, minJ, cols, rows, x, drawAreaTop, cell)
		x += float64(cols)*cell + cell
	}

	renderLegend(pdf, sol, drawAreaTop+float64(rows)*cell+8)

	if err := renderQR(pdf, report, idx, sol); err != nil {
		return err
	}
	return nil
}

// renderLayer draws one constant-height slice as a grid of colored squares
// with piece letters.
func renderLayer(pdf *fpdf.Fpdf, ly layer, minI, minJ, cols, rows int, x, y, cell float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)
	pdf.SetXY(x, y-5)
	pdf.CellFormat(float64(cols)*cell, 4, fmt.Sprintf("k = %d", ly.k), "", 0, "L", false, 0, "")

	for c, pieceID := range ly.cells {
		col := colorFor(pieceID)
		// j grows upward on the page, so flip rows.
		px := x + float64(c.I-minI)*cell
		py := y + float64(rows-1-(c.J-minJ))*cell

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, cell, cell, "FD")

		if cell >= 5 {
			pdf.SetFont("Helvetica", "B", layerFontSize(cell))
			pdf.SetTextColor(0, 0, 0)
			labelW := pdf.GetStringWidth(pieceID)
			pdf.SetXY(px+(cell-labelW)/2, py+cell/2-2)
			pdf.CellFormat(labelW, 4, pieceID, "", 0, "C", false, 0, "")
		}
	}
}

// renderLegend draws a compact color swatch list of the pieces used.
func renderLegend(pdf *fpdf.Fpdf, sol engine.Solution, startY float64) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Pieces used:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 28
	maxX := pageWidth - marginRight - qrSize - 10
	for _, id := range pieceUsage(sol) {
		col := colorFor(id)
		labelW := pdf.GetStringWidth(id) + 6
		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")
		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, id, "", 0, "L", false, 0, "")
		xPos += labelW + 2
	}
}

// renderQR places the machine-readable placement payload in the top right
// corner of the solution page.
func renderQR(pdf *fpdf.Fpdf, report Report, idx int, sol engine.Solution) error {
	payload := qrPayload{}
	for _, c := range report.Container.Cells() {
		payload.Container = append(payload.Container, [3]int{c.I, c.J, c.K})
	}
	for _, pl := range sol.Placements {
		payload.Placements = append(payload.Placements, qrPlacement{
			Piece:       pl.PieceID,
			Orientation: pl.OrientationID,
			Anchor:      [3]int{pl.Anchor.I, pl.Anchor.J, pl.Anchor.K},
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal QR payload: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_solution_%d", idx)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	qrX := pageWidth - marginRight - qrSize
	pdf.ImageOptions(imgName, qrX, drawAreaTop, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(qrX, drawAreaTop+qrSize+1)
	pdf.CellFormat(qrSize, 3, "placement data", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	return nil
}

// renderSummaryPage draws the terminal run report.
func renderSummaryPage(pdf *fpdf.Fpdf, report Report) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Solve Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18
	items := []struct {
		label string
		value string
	}{
		{"Container", fmt.Sprintf("%s (%d cells)", report.ContainerName, report.Container.Len())},
		{"Run", report.Summary.RunID},
		{"Stop Reason", string(report.Summary.Reason)},
		{"Solutions", fmt.Sprintf("%d", report.Summary.Solutions)},
		{"Nodes Visited", fmt.Sprintf("%d", report.Summary.Nodes)},
		{"Elapsed", report.Summary.Elapsed.String()},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range items {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(120, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by PolySolve", "", 0, "C", false, 0, "")
}

// layerFontSize picks a letter size proportional to the cell square.
func layerFontSize(cell float64) float64 {
	switch {
	case cell > 10:
		return 9
	case cell > 7:
		return 7
	default:
		return 6
	}
}
