// Package importer turns CAD drawings into solver containers. Closed DXF
// outlines are rasterized onto the lattice and extruded into layers.
package importer

import (
	"fmt"
	"math"
	"sort"

	"github.com/piwi3910/polysolve/internal/lattice"
	"github.com/piwi3910/polysolve/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

// point is a 2D drawing coordinate in DXF units. One DXF unit maps to one
// lattice cell.
type point struct {
	X, Y float64
}

// outline is a closed polygon in drawing coordinates.
type outline []point

// segment is a line segment between two points, used for chaining
// disconnected LINE and ARC entities into closed outlines.
type segment struct {
	start point
	end   point
}

// ImportResult holds the outcome of one import: the container built from the
// drawing, plus per-file warnings and errors.
type ImportResult struct {
	Container *model.Container
	Errors    []string
	Warnings  []string
}

// ImportDXF reads closed shapes (LWPOLYLINE, CIRCLE, chains of connected
// LINEs/ARCs) from a DXF file, rasterizes their union onto unit lattice
// columns and extrudes the footprint layers deep.
func ImportDXF(path string, layers int) ImportResult {
	result := ImportResult{}
	if layers < 1 {
		result.Errors = append(result.Errors, fmt.Sprintf("Layer count must be at least 1, got %d", layers))
		return result
	}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var outlines []outline
	var segments []segment

	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			o := lwPolylineToOutline(e)
			if len(o) >= 3 {
				outlines = append(outlines, o)
			} else {
				result.Warnings = append(result.Warnings,
					"Skipped LWPOLYLINE with fewer than 3 vertices")
			}

		case *entity.Circle:
			outlines = append(outlines, circleToOutline(e, 64))

		case *entity.Arc:
			pts := arcToPoints(e, 32)
			if len(pts) >= 2 {
				segments = append(segments, pointsToSegments(pts)...)
			}

		case *entity.Line:
			segments = append(segments, segment{
				start: point{X: e.Start[0], Y: e.Start[1]},
				end:   point{X: e.End[0], Y: e.End[1]},
			})

		default:
			// Unsupported entity types are silently skipped
		}
	}

	for _, o := range chainSegments(segments, 0.01) {
		if len(o) >= 3 {
			outlines = append(outlines, o)
		}
	}

	if len(outlines) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in DXF file")
		return result
	}

	cells := rasterize(outlines, layers, &result)
	if len(cells) == 0 {
		result.Errors = append(result.Errors, "Outlines cover no whole lattice cells")
		return result
	}

	result.Container = model.NewContainer(cells)
	return result
}

// rasterize samples each outline's bounding box at cell centers, includes a
// column when its center lies inside the outline, and extrudes the footprint
// upward.
func rasterize(outlines []outline, layers int, result *ImportResult) []lattice.Cell {
	footprint := make(map[[2]int]bool)
	for _, o := range outlines {
		min, max := boundingBox(o)
		if max.X-min.X < 1 || max.Y-min.Y < 1 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped shape smaller than one cell (%.2f x %.2f)", max.X-min.X, max.Y-min.Y))
			continue
		}
		covered := 0
		for i := int(math.Floor(min.X)); float64(i) < max.X; i++ {
			for j := int(math.Floor(min.Y)); float64(j) < max.Y; j++ {
				center := point{X: float64(i) + 0.5, Y: float64(j) + 0.5}
				if insidePolygon(o, center) {
					footprint[[2]int{i, j}] = true
					covered++
				}
			}
		}
		if covered == 0 {
			result.Warnings = append(result.Warnings,
				"Shape encloses no cell centers and was dropped")
		}
	}

	var cells []lattice.Cell
	for col := range footprint {
		for k := 0; k < layers; k++ {
			cells = append(cells, lattice.Cell{I: col[0], J: col[1], K: k})
		}
	}
	return cells
}

// insidePolygon is an even-odd ray cast from the sample point.
func insidePolygon(o outline, p point) bool {
	inside := false
	n := len(o)
	for i := 0; i < n; i++ {
		a, b := o[i], o[(i+1)%n]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// lwPolylineToOutline converts a DXF LWPOLYLINE entity to an outline. Bulge
// values on vertices produce interpolated arc segments.
func lwPolylineToOutline(lw *entity.LwPolyline) outline {
	var o outline
	for i := 0; i < len(lw.Vertices); i++ {
		v := lw.Vertices[i]
		current := point{X: v[0], Y: v[1]}

		bulge := 0.0
		if i < len(lw.Bulges) {
			bulge = lw.Bulges[i]
		}
		if math.Abs(bulge) > 1e-9 {
			next := lw.Vertices[(i+1)%len(lw.Vertices)]
			arcPts := bulgeArcPoints(current, point{X: next[0], Y: next[1]}, bulge, 32)
			o = append(o, arcPts[:len(arcPts)-1]...)
		} else {
			o = append(o, current)
		}
	}
	return o
}

// bulgeArcPoints generates points along an arc defined by two endpoints and a
// DXF bulge factor. The bulge is the tangent of 1/4 the included angle.
func bulgeArcPoints(p1, p2 point, bulge float64, numSegments int) outline {
	mx := (p1.X + p2.X) / 2
	my := (p1.Y + p2.Y) / 2
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	chordLen := math.Sqrt(dx*dx + dy*dy)
	if chordLen < 1e-9 {
		return outline{p1, p2}
	}

	sagitta := math.Abs(bulge) * chordLen / 2
	radius := (chordLen*chordLen/(4*sagitta) + sagitta) / 2

	perpX := -dy / chordLen
	perpY := dx / chordLen
	dist := radius - sagitta
	if bulge > 0 {
		perpX, perpY = -perpX, -perpY
	}
	cx := mx + perpX*dist
	cy := my + perpY*dist

	startAngle := math.Atan2(p1.Y-cy, p1.X-cx)
	endAngle := math.Atan2(p2.Y-cy, p2.X-cx)
	if bulge < 0 {
		if endAngle > startAngle {
			endAngle -= 2 * math.Pi
		}
	} else {
		if endAngle < startAngle {
			endAngle += 2 * math.Pi
		}
	}

	var pts outline
	for i := 0; i <= numSegments; i++ {
		t := float64(i) / float64(numSegments)
		angle := startAngle + t*(endAngle-startAngle)
		pts = append(pts, point{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		})
	}
	return pts
}

// circleToOutline approximates a circle as a regular polygon.
func circleToOutline(c *entity.Circle, numSegments int) outline {
	o := make(outline, numSegments)
	cx, cy, r := c.Center[0], c.Center[1], c.Radius
	for i := 0; i < numSegments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(numSegments)
		o[i] = point{
			X: cx + r*math.Cos(angle),
			Y: cy + r*math.Sin(angle),
		}
	}
	return o
}

// arcToPoints converts a DXF ARC entity to a series of line points.
func arcToPoints(a *entity.Arc, numSegments int) []point {
	cx, cy := a.Circle.Center[0], a.Circle.Center[1]
	r := a.Circle.Radius
	startRad := a.Angle[0] * math.Pi / 180
	endRad := a.Angle[1] * math.Pi / 180
	if endRad <= startRad {
		endRad += 2 * math.Pi
	}

	pts := make([]point, numSegments+1)
	for i := 0; i <= numSegments; i++ {
		t := float64(i) / float64(numSegments)
		angle := startRad + t*(endRad-startRad)
		pts[i] = point{
			X: cx + r*math.Cos(angle),
			Y: cy + r*math.Sin(angle),
		}
	}
	return pts
}

// pointsToSegments converts a point sequence to connected segments.
func pointsToSegments(pts []point) []segment {
	segs := make([]segment, 0, len(pts)-1)
	for i := 0; i < len(pts)-1; i++ {
		segs = append(segs, segment{start: pts[i], end: pts[i+1]})
	}
	return segs
}

// chainSegments connects individual segments into closed outlines. tolerance
// is the maximum distance between endpoints to consider them connected.
func chainSegments(segs []segment, tolerance float64) []outline {
	if len(segs) == 0 {
		return nil
	}

	used := make([]bool, len(segs))
	var outlines []outline

	for {
		startIdx := -1
		for i, u := range used {
			if !u {
				startIdx = i
				break
			}
		}
		if startIdx == -1 {
			break
		}

		chain := outline{segs[startIdx].start, segs[startIdx].end}
		used[startIdx] = true

		changed := true
		for changed {
			changed = false
			tail := chain[len(chain)-1]
			for i, seg := range segs {
				if used[i] {
					continue
				}
				if pointsClose(tail, seg.start, tolerance) {
					chain = append(chain, seg.end)
					used[i] = true
					changed = true
					break
				}
				if pointsClose(tail, seg.end, tolerance) {
					chain = append(chain, seg.start)
					used[i] = true
					changed = true
					break
				}
			}
		}

		// Only a chain that loops back on itself is a closed outline.
		if len(chain) >= 4 && pointsClose(chain[0], chain[len(chain)-1], tolerance) {
			outlines = append(outlines, chain[:len(chain)-1])
		}
	}

	sort.Slice(outlines, func(i, j int) bool {
		return outlineArea(outlines[i]) > outlineArea(outlines[j])
	})
	return outlines
}

// pointsClose checks whether two points are within the given tolerance.
func pointsClose(a, b point, tolerance float64) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx+dy*dy) <= tolerance
}

// outlineArea computes the absolute area of a polygon using the shoelace
// formula.
func outlineArea(o outline) float64 {
	n := len(o)
	if n < 3 {
		return 0
	}
	var area float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += o[i].X * o[j].Y
		area -= o[j].X * o[i].Y
	}
	return math.Abs(area) / 2
}

// boundingBox returns the min and max corners of an outline.
func boundingBox(o outline) (point, point) {
	min, max := o[0], o[0]
	for _, p := range o[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max
}
