// Package export renders stored flights as SVG images.
package export

import (
	"fmt"
	"strings"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/csconv"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/viz"
)

type Point struct{ X, Y float64 }

// CanvasToSVG draws every set braille dot of canvas as a circle. scale is
// the size of one dot cell in SVG units.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height)

	// Braille dot bits, [row][col].
	pixelMap := [4][2]int{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}
	dotRadius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			r := canvas.Grid[row][col]
			if r < 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)

			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4

			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] != 0 {
						cx := baseX + float64(dx)*scale + scale/2
						cy := baseY + float64(dy)*scale + scale/2
						fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
					}
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// GroundTrack returns the east/north path of a run.
func GroundTrack(states []dynamo.State, notation dynamo.Notation) []Point {
	out := make([]Point, 0, len(states))
	for _, x := range states {
		if len(x) < dynamo.StateDim {
			continue
		}
		p := x.Position()
		if notation == dynamo.NotationNED {
			p = csconv.NedToEnu(p)
		}
		out = append(out, Point{X: p.X, Y: p.Y})
	}
	return out
}

// TrajectoryToSVG draws points as one polyline scaled to width x height
// with 10% padding, y up.
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor)

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// TrackCanvas draws a ground track on a braille canvas, fitted to the
// track's extent.
func TrackCanvas(points []Point, width, height int) *viz.Canvas {
	c := viz.NewCanvas(width, height)
	if len(points) == 0 {
		return c
	}
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	view := viz.View{
		CenterEast:  (minX + maxX) / 2,
		CenterNorth: (minY + maxY) / 2,
		Span:        max(maxX-minX, maxY-minY, 1) * 1.2,
	}
	px, py := c.Pixel(view, points[0].X, points[0].Y)
	c.Set(px, py)
	for _, p := range points[1:] {
		x, y := c.Pixel(view, p.X, p.Y)
		c.DrawLine(px, py, x, y)
		px, py = x, y
	}
	return c
}
