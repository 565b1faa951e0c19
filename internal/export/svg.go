package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/sdesim/internal/analysis"
)

// Point is one vertex of a plotted curve.
type Point struct{ X, Y float64 }

// frame maps data coordinates onto a width x height canvas with 10% padding.
type frame struct {
	minX, rangeX float64
	minY, rangeY float64
	width        float64
	height       float64
}

func newFrame(curves [][]Point, width, height int) (frame, bool) {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, c := range curves {
		for _, p := range c {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) {
				continue
			}
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return frame{}, false
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

	return frame{
		minX:   minX,
		rangeX: maxX - minX,
		minY:   minY,
		rangeY: maxY - minY,
		width:  float64(width),
		height: float64(height),
	}, true
}

func (f frame) project(p Point) (float64, float64) {
	x := (p.X - f.minX) / f.rangeX * f.width
	y := f.height - (p.Y-f.minY)/f.rangeY*f.height
	return x, y
}

func header(sb *strings.Builder, width, height int) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))
}

// path writes the curve as one or more polyline segments, breaking at NaN.
func (f frame) path(sb *strings.Builder, points []Point, stroke string) {
	open := false
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			if open {
				sb.WriteString("\"/>\n")
				open = false
			}
			continue
		}
		x, y := f.project(p)
		if !open {
			sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M%.1f,%.1f`, stroke, x, y))
			open = true
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	if open {
		sb.WriteString("\"/>\n")
	}
}

// TrajectoryToSVG draws one curve.
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}
	f, ok := newFrame([][]Point{points}, width, height)
	if !ok {
		return ""
	}

	var sb strings.Builder
	header(&sb, width, height)
	f.path(&sb, points, strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

// EnsembleToSVG draws the ensemble mean of one state over time inside a shaded
// band of mean ± k standard deviations.
func EnsembleToSVG(stats *analysis.Stats, state int, k float64, width, height int) string {
	if stats == nil || stats.Points < 2 || state < 0 || state >= stats.StateDim {
		return ""
	}

	mean, lower, upper := stats.Series(state, k)
	meanPts := make([]Point, stats.Points)
	lowPts := make([]Point, stats.Points)
	upPts := make([]Point, stats.Points)
	for p := range meanPts {
		t := stats.Times[p]
		meanPts[p] = Point{t, mean[p]}
		lowPts[p] = Point{t, lower[p]}
		upPts[p] = Point{t, upper[p]}
	}

	f, ok := newFrame([][]Point{lowPts, upPts}, width, height)
	if !ok {
		return ""
	}

	var sb strings.Builder
	header(&sb, width, height)

	sb.WriteString(`<polygon fill="#00ff00" fill-opacity="0.15" points="`)
	for i, p := range upPts {
		x, y := f.project(p)
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
	}
	for i := len(lowPts) - 1; i >= 0; i-- {
		x, y := f.project(lowPts[i])
		sb.WriteString(fmt.Sprintf(" %.1f,%.1f", x, y))
	}
	sb.WriteString("\"/>\n")

	f.path(&sb, meanPts, "#00ff00")
	sb.WriteString("</svg>")
	return sb.String()
}
