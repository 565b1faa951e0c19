package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// Scatter is a 2D projection of ensemble states.
type Scatter struct {
	XIndex, YIndex int
	Points         []struct{ X, Y float64 }
}

// FinalScatter projects the terminal state of every usable realization onto (xIdx, yIdx).
func FinalScatter(res *dynamo.Result, xIdx, yIdx int) *Scatter {
	if xIdx >= res.StateDim || yIdx >= res.StateDim {
		return nil
	}
	sc := &Scatter{XIndex: xIdx, YIndex: yIdx}
	for _, r := range usable(res) {
		x := res.Final(r)
		sc.add(x[xIdx], x[yIdx])
	}
	return sc
}

// TrajectoryScatter projects every stored point of one realization onto (xIdx, yIdx).
func TrajectoryScatter(res *dynamo.Result, realization, xIdx, yIdx int) *Scatter {
	if xIdx >= res.StateDim || yIdx >= res.StateDim || realization >= res.Realizations {
		return nil
	}
	sc := &Scatter{XIndex: xIdx, YIndex: yIdx}
	path := res.Realization(realization)
	n := res.StateDim
	for p := 0; p < res.Points(); p++ {
		sc.add(path[p*n+xIdx], path[p*n+yIdx])
	}
	return sc
}

func (s *Scatter) add(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	s.Points = append(s.Points, struct{ X, Y float64 }{X: x, Y: y})
}

func (s *Scatter) bounds() (minX, maxX, minY, maxY float64) {
	minX, maxX = s.Points[0].X, s.Points[0].X
	minY, maxY = s.Points[0].Y, s.Points[0].Y
	for _, p := range s.Points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	// 10% padding
	padX := (maxX - minX) * 0.1
	padY := (maxY - minY) * 0.1
	if padX == 0 {
		padX = 0.5
	}
	if padY == 0 {
		padY = 0.5
	}
	return minX - padX, maxX + padX, minY - padY, maxY + padY
}

// ASCII renders the scatter on a width×height canvas, densest cells drawn heavier.
func (s *Scatter) ASCII(width, height int) string {
	if s == nil || len(s.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX, minY, maxY := s.bounds()
	rangeX := maxX - minX
	rangeY := maxY - minY

	counts := make([][]int, height)
	for i := range counts {
		counts[i] = make([]int, width)
	}
	for _, p := range s.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			counts[row][col]++
		}
	}

	shades := []rune{' ', '·', '•', '●'}
	var sb strings.Builder
	for _, row := range counts {
		for _, c := range row {
			switch {
			case c == 0:
				sb.WriteRune(shades[0])
			case c < 3:
				sb.WriteRune(shades[1])
			case c < 10:
				sb.WriteRune(shades[2])
			default:
				sb.WriteRune(shades[3])
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
