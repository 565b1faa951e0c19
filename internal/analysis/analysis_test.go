package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// twoStates builds 3 realizations of a 2-state path with 2 points each.
func twoStates() *dynamo.Result {
	return &dynamo.Result{
		Times: []float64{0, 1},
		States: []float64{
			1, 10, 2, 20,
			1, 10, 4, 40,
			1, 10, 6, 60,
		},
		StateDim:     2,
		Steps:        1,
		Realizations: 3,
		Mode:         dynamo.FullTrajectory,
		Reports:      make([]dynamo.RealizationReport, 3),
	}
}

func TestEnsemble(t *testing.T) {
	for _, workers := range []int{1, 2, 4} {
		s := Ensemble(twoStates(), workers)

		if s.Used != 3 || s.Points != 2 {
			t.Fatalf("unexpected shape %+v", s)
		}
		if s.Mean[0] != 1 || s.Std[0] != 0 {
			t.Errorf("initial point: mean %g std %g", s.Mean[0], s.Std[0])
		}
		if math.Abs(s.Mean[2]-4) > 1e-12 || math.Abs(s.Mean[3]-40) > 1e-12 {
			t.Errorf("final means %v", s.Mean[2:])
		}
		// sample std of {2,4,6}
		if math.Abs(s.Std[2]-2) > 1e-12 || math.Abs(s.Std[3]-20) > 1e-12 {
			t.Errorf("final stds %v", s.Std[2:])
		}
	}
}

func TestEnsembleSkipsFailed(t *testing.T) {
	res := twoStates()
	res.States[10] = math.NaN()
	res.States[11] = math.NaN()
	res.Reports[2].Error = "singular"

	s := Ensemble(res, 2)
	if s.Used != 2 {
		t.Fatalf("expected 2 usable realizations, got %d", s.Used)
	}
	if math.Abs(s.Mean[2]-3) > 1e-12 {
		t.Errorf("failed realization leaked into mean: %g", s.Mean[2])
	}
}

func TestEnsembleAllFailed(t *testing.T) {
	res := twoStates()
	for i := range res.Reports {
		res.Reports[i].Error = "singular"
	}
	s := Ensemble(res, 1)
	if s.Used != 0 || !math.IsNaN(s.Mean[0]) {
		t.Errorf("expected NaN statistics, got %+v", s)
	}
}

func TestSeriesAndSummary(t *testing.T) {
	s := Ensemble(twoStates(), 1)

	mean, lower, upper := s.Series(0, 2)
	if len(mean) != 2 || mean[1] != 4 || lower[1] != 0 || upper[1] != 8 {
		t.Errorf("unexpected series %v %v %v", mean, lower, upper)
	}

	sum := s.Summary()
	if len(sum) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(sum))
	}
	if sum[1].FinalMean != 40 || sum[1].MinMean != 10 || sum[1].MaxMean != 40 {
		t.Errorf("unexpected summary %+v", sum[1])
	}
}

func TestFinalMode(t *testing.T) {
	res := &dynamo.Result{
		Times:        []float64{0, 0.5, 1},
		States:       []float64{1, 3},
		StateDim:     1,
		Steps:        2,
		Realizations: 2,
		Mode:         dynamo.FinalState,
	}
	s := Ensemble(res, 1)
	if s.Points != 1 || len(s.Times) != 1 || s.Times[0] != 1 || s.Mean[0] != 2 {
		t.Errorf("unexpected final-mode stats %+v", s)
	}
}

func TestFinalQuantiles(t *testing.T) {
	q := FinalQuantiles(twoStates(), []float64{0, 0.5, 1})
	if q[0][0] != 2 || q[0][1] != 4 || q[0][2] != 6 {
		t.Errorf("unexpected quantiles %v", q[0])
	}
	if q[1][2] != 60 {
		t.Errorf("unexpected max %v", q[1])
	}
}

func TestScatter(t *testing.T) {
	res := twoStates()

	sc := FinalScatter(res, 0, 1)
	if sc == nil || len(sc.Points) != 3 {
		t.Fatalf("expected 3 points, got %+v", sc)
	}
	art := sc.ASCII(20, 5)
	if lines := strings.Split(strings.TrimRight(art, "\n"), "\n"); len(lines) != 5 {
		t.Errorf("expected 5 rows, got %d", len(lines))
	}
	if !strings.ContainsRune(art, '·') {
		t.Error("expected plotted points")
	}

	if FinalScatter(res, 0, 5) != nil {
		t.Error("expected nil for out of range index")
	}
	if tr := TrajectoryScatter(res, 1, 0, 1); tr == nil || len(tr.Points) != 2 {
		t.Errorf("unexpected trajectory scatter %+v", tr)
	}
	if (&Scatter{}).ASCII(10, 10) != "" {
		t.Error("expected empty rendering for no points")
	}
}
