// Package noise builds the discretized driving noise of an SDE batch: Gaussian
// increments scaled by sqrt(dt), their Wiener path, and the equidistant time grid.
package noise

import (
	"math"

	"github.com/san-kum/sdesim/internal/rng"
)

// Layout describes a noise buffer shaped [realization][step][dim], dim fastest.
type Layout struct {
	Steps        int
	NoiseDim     int
	Realizations int
}

// NoiseLen is the length of the increment buffer.
func (l Layout) NoiseLen() int {
	return l.NoiseDim * l.Steps * l.Realizations
}

// PathLen is the length of the cumulative path buffer, which has Steps+1 slices.
func (l Layout) PathLen() int {
	return l.NoiseDim * (l.Steps + 1) * l.Realizations
}

// Offset is the index of increment (realization, step, 0).
func (l Layout) Offset(realization, step int) int {
	return (realization*l.Steps + step) * l.NoiseDim
}

// Block returns the increments of one realization.
func (l Layout) Block(buf []float64, realization int) []float64 {
	size := l.Steps * l.NoiseDim
	return buf[realization*size : (realization+1)*size]
}

// TimeGrid returns steps+1 points starting at t0 spaced finalTime/steps apart.
// Points are accumulated, so the last one may differ from t0+finalTime by rounding.
func TimeGrid(t0, finalTime float64, steps int) []float64 {
	grid := make([]float64, steps+1)
	dt := finalTime / float64(steps)
	t := t0
	for i := range grid {
		grid[i] = t
		t += dt
	}
	return grid
}

// ScaledNoise draws noiseDim*steps*realizations independent increments with mean 0 and
// standard deviation sqrt(finalTime/steps). The increments are not accumulated.
func ScaledNoise(gen *rng.MersenneTwister, finalTime float64, steps, noiseDim, realizations int) []float64 {
	l := Layout{Steps: steps, NoiseDim: noiseDim, Realizations: realizations}
	dW := make([]float64, l.NoiseLen())
	FillScaledNoise(gen, dW, finalTime, steps)
	return dW
}

// FillScaledNoise writes Euler-Maruyama increments for the given horizon into dst.
func FillScaledNoise(gen *rng.MersenneTwister, dst []float64, finalTime float64, steps int) {
	sqrtDt := math.Sqrt(finalTime / float64(steps))
	gen.Normal(dst, 0, sqrtDt)
}

// CumulativePath turns increments into a Wiener path per realization. Slice 0 of each
// realization is zero and slice k is the sum of increments 0..k-1.
func CumulativePath(increments []float64, steps, noiseDim, realizations int) []float64 {
	l := Layout{Steps: steps, NoiseDim: noiseDim, Realizations: realizations}
	w := make([]float64, l.PathLen())

	pathSize := (steps + 1) * noiseDim
	for r := 0; r < realizations; r++ {
		path := w[r*pathSize : (r+1)*pathSize]
		dW := l.Block(increments, r)
		for j := noiseDim; j < pathSize; j++ {
			path[j] = path[j-noiseDim] + dW[j-noiseDim]
		}
	}
	return w
}
