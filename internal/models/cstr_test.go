package models

import (
	"math"
	"testing"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// checkJacobian compares an analytic column-major Jacobian with central differences.
func checkJacobian(t *testing.T, m dynamo.Model, x dynamo.State, u float64) {
	t.Helper()
	n := m.StateDim()

	jac := make([]float64, n*n)
	m.Jacobian(0, x, u, nil, jac)

	plus := make(dynamo.State, n)
	minus := make(dynamo.State, n)
	for j := 0; j < n; j++ {
		step := 1e-6 * math.Max(1, math.Abs(x[j]))
		xp := x.Clone()
		xm := x.Clone()
		xp[j] += step
		xm[j] -= step
		m.Drift(0, xp, u, nil, plus)
		m.Drift(0, xm, u, nil, minus)

		for i := 0; i < n; i++ {
			fd := (plus[i] - minus[i]) / (2 * step)
			an := jac[j*n+i]
			if math.Abs(fd-an) > 1e-6*math.Max(1, math.Abs(an)) {
				t.Errorf("J[%d,%d]: analytic %g, finite difference %g", i, j, an, fd)
			}
		}
	}
}

func TestCSTRDimensions(t *testing.T) {
	c := NewCSTR()
	if c.StateDim() != 3 || c.NoiseDim() != 3 {
		t.Errorf("expected 3x3, got %dx%d", c.StateDim(), c.NoiseDim())
	}
}

func TestCSTRJacobian(t *testing.T) {
	c := NewCSTR()
	u := FlowToSI(700)

	states := []dynamo.State{
		c.DefaultState(),
		{0.05, 0.25, 300},
		{0.4, 0.6, 330},
	}
	for _, x := range states {
		checkJacobian(t, c, x, u)
	}
}

func TestCSTRSteadyInflow(t *testing.T) {
	c := NewCSTR()
	u := FlowToSI(500)

	// no reactants and inlet temperature: only the feed term acts
	x := dynamo.State{0, 0, c.Tin}
	out := make(dynamo.State, 3)
	c.Drift(0, x, u, nil, out)

	fv := u / c.V
	if math.Abs(out[0]-fv*c.CAin) > 1e-15 || math.Abs(out[1]-fv*c.CBin) > 1e-15 || out[2] != 0 {
		t.Errorf("unexpected drift %v", out)
	}
}

func TestCSTRDiffusion(t *testing.T) {
	c := NewCSTR()
	u := FlowToSI(600)
	out := make(dynamo.State, 3)
	c.Diffusion(0, c.DefaultState(), u, nil, out)

	if out[0] != 0 || out[1] != 0 {
		t.Errorf("concentrations should be noise free, got %v", out)
	}
	if math.Abs(out[2]-10*u/0.105) > 1e-15 {
		t.Errorf("expected temperature diffusion %g, got %g", 10*u/0.105, out[2])
	}
}

func TestCSTRParams(t *testing.T) {
	c := NewCSTR()
	params := c.GetParams()
	if params["k0"] != 48266327438.6281 || params["sigma"] != 10 {
		t.Errorf("unexpected defaults %v", params)
	}

	if err := c.SetParam("sigma", 2); err != nil || c.Sigma != 2 {
		t.Errorf("set sigma: %v", err)
	}
	if err := c.SetParam("V", 0); err == nil {
		t.Error("expected error for zero volume")
	}
	if err := c.SetParam("bogus", 1); err == nil {
		t.Error("expected error for unknown param")
	}
}

func TestFlowRateProfile(t *testing.T) {
	profile := FlowRateProfile()
	if len(profile) != SamplesPerExperiment {
		t.Fatalf("expected %d samples, got %d", SamplesPerExperiment, len(profile))
	}
	if profile[0] != 700 || profile[12] != 200 || profile[34] != 700 {
		t.Errorf("unexpected profile %v", profile)
	}

	if got := FlowToSI(600); math.Abs(got-0.01) > 1e-15 {
		t.Errorf("600 mL/min = %g L/s, want 0.01", got)
	}

	sched := FlowSchedule(profile, 60)
	if sched.At(0) != FlowToSI(700) || sched.At(60*12) != FlowToSI(200) || sched.At(60*40) != FlowToSI(700) {
		t.Error("flow schedule does not follow the profile")
	}
}
