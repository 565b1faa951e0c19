package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// Stats holds per-point ensemble moments, laid out [point][state].
type Stats struct {
	Points   int
	StateDim int
	Times    []float64
	Mean     []float64
	Std      []float64
	// Used counts the realizations that entered the statistics.
	Used int
}

// Ensemble computes mean and standard deviation across the realizations of res
// that did not fail. Points are split over workers.
func Ensemble(res *dynamo.Result, workers int) *Stats {
	n := res.StateDim
	points := res.Points()

	used := usable(res)
	s := &Stats{
		Points:   points,
		StateDim: n,
		Times:    pointTimes(res),
		Mean:     make([]float64, points*n),
		Std:      make([]float64, points*n),
		Used:     len(used),
	}
	if len(used) == 0 {
		dynamo.State(s.Mean).Fill(math.NaN())
		dynamo.State(s.Std).Fill(math.NaN())
		return s
	}

	dynamo.ParallelFor(points, workers, func(_ int, r dynamo.Range) {
		sample := make([]float64, len(used))
		for p := r.Start; p < r.End; p++ {
			for i := 0; i < n; i++ {
				for j, ri := range used {
					sample[j] = res.Realization(ri)[p*n+i]
				}
				mean, std := stat.MeanStdDev(sample, nil)
				if len(sample) == 1 {
					std = 0
				}
				s.Mean[p*n+i] = mean
				s.Std[p*n+i] = std
			}
		}
	})
	return s
}

func usable(res *dynamo.Result) []int {
	idx := make([]int, 0, res.Realizations)
	for r := 0; r < res.Realizations; r++ {
		if r < len(res.Reports) && res.Reports[r].Failed() {
			continue
		}
		if r < len(res.Reports) && res.Reports[r].Error != "" {
			continue
		}
		if !dynamo.State(res.Final(r)).IsValid() {
			continue
		}
		idx = append(idx, r)
	}
	return idx
}

func pointTimes(res *dynamo.Result) []float64 {
	if res.Mode == dynamo.FinalState && len(res.Times) > 0 {
		return []float64{res.Times[len(res.Times)-1]}
	}
	return res.Times
}

// Series returns the mean of one state over time with the band mean ± k·std.
func (s *Stats) Series(state int, k float64) (mean, lower, upper []float64) {
	mean = make([]float64, s.Points)
	lower = make([]float64, s.Points)
	upper = make([]float64, s.Points)
	for p := 0; p < s.Points; p++ {
		m := s.Mean[p*s.StateDim+state]
		d := k * s.Std[p*s.StateDim+state]
		mean[p], lower[p], upper[p] = m, m-d, m+d
	}
	return mean, lower, upper
}

type StateSummary struct {
	State     int
	FinalMean float64
	FinalStd  float64
	// MinMean and MaxMean bound the ensemble mean over time.
	MinMean float64
	MaxMean float64
}

func (s *Stats) Summary() []StateSummary {
	out := make([]StateSummary, s.StateDim)
	last := (s.Points - 1) * s.StateDim
	for i := range out {
		sum := StateSummary{
			State:     i,
			FinalMean: s.Mean[last+i],
			FinalStd:  s.Std[last+i],
			MinMean:   math.Inf(1),
			MaxMean:   math.Inf(-1),
		}
		for p := 0; p < s.Points; p++ {
			m := s.Mean[p*s.StateDim+i]
			sum.MinMean = math.Min(sum.MinMean, m)
			sum.MaxMean = math.Max(sum.MaxMean, m)
		}
		out[i] = sum
	}
	return out
}

// FinalQuantiles returns the requested quantiles of each state's terminal
// distribution, indexed [state][quantile].
func FinalQuantiles(res *dynamo.Result, ps []float64) [][]float64 {
	used := usable(res)
	out := make([][]float64, res.StateDim)
	sample := make([]float64, len(used))

	for i := range out {
		out[i] = make([]float64, len(ps))
		if len(used) == 0 {
			dynamo.State(out[i]).Fill(math.NaN())
			continue
		}
		for j, r := range used {
			sample[j] = res.Final(r)[i]
		}
		sort.Float64s(sample)
		for q, p := range ps {
			out[i][q] = stat.Quantile(p, stat.Empirical, sample, nil)
		}
	}
	return out
}
